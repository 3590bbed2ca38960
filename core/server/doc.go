// Package server holds the HTTP server configuration and constants.
//
// While the main application entry point handles the server startup, this package
// defines the configuration structures and valid values for server settings,
// such as the upload size limit.
//
// # Configuration
//
// The Config struct defines the HTTP port, API key, and the request body
// limit applied to import uploads.
//
// # Usage
//
// This package is primarily used by the core/config package to embed server settings
// and by the start command to size the fiber body limit.
package server
