package shotgun

import "net/http"

// Config holds Shotgun connection configuration.
type Config struct {
	// BaseURL is the Shotgun site URL (e.g., https://yoursite.shotgunstudio.com)
	BaseURL string

	// ScriptName is the API script name used to authenticate.
	ScriptName string

	// ScriptKey is the API script key.
	ScriptKey string

	// RateLimit is the maximum number of requests per second.
	RateLimit float64

	// Transport allows injecting a custom HTTP transport (for tests/stubs).
	Transport http.RoundTripper
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return &ValidationError{Field: "baseUrl", Message: "required"}
	}
	if c.ScriptName == "" {
		return &ValidationError{Field: "scriptName", Message: "required"}
	}
	if c.ScriptKey == "" {
		return &ValidationError{Field: "scriptKey", Message: "required"}
	}
	return nil
}
