// Package exports builds versioned bundle documents from the current
// inventory. An exported bundle re-imports as a pure no-op, which
// makes export/import round-trips safe backup and migration tools.
// Bundles can optionally be archived to object storage.
package exports
