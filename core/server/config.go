package server

// DefaultUploadLimitMB caps import uploads when no limit is configured.
const DefaultUploadLimitMB = 10

// Config holds configuration for the HTTP server.
type Config struct {
	// Port is the port where the server will listen.
	Port string `mapstructure:"port" default:"8080"`
	// ApiKey is the secret key required to access the API.
	ApiKey string `mapstructure:"api_key" default:""`
	// UploadLimitMB caps the size of a single import upload.
	UploadLimitMB int `mapstructure:"upload_limit_mb" default:"10"`
}

// BodyLimitBytes returns the request body limit in bytes. Zero or
// negative configured values fall back to the default.
func (c Config) BodyLimitBytes() int {
	limit := c.UploadLimitMB
	if limit <= 0 {
		limit = DefaultUploadLimitMB
	}
	return limit * 1024 * 1024
}
