package httpapi

// maxBodyBytes controls the maximum allowed request body size for JSON
// endpoints.
var maxBodyBytes int64 = 1 << 20

// SetMaxBodyBytes allows configuring the maximum request body size.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = 1 << 20
		return
	}
	maxBodyBytes = n
}

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods = []string{"GET", "POST", "OPTIONS"}
	corsAllowedHeaders = []string{"Accept", "Authorization", "Content-Type", "X-API-Key"}
)

// SetCORSOptions configures CORS behavior for the HTTP server. Must be
// called before NewMux.
func SetCORSOptions(enabled bool, origins []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
}
