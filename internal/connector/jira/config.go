package jira

import "net/http"

// Config holds Jira connection configuration.
type Config struct {
	// BaseURL is the Jira instance URL (e.g., https://yoursite.atlassian.net)
	BaseURL string

	// Email is the user's email for authentication
	Email string

	// APIToken is the Atlassian API token
	APIToken string

	// ShotgunIDField is the custom field id storing the linked Shotgun
	// entity id, e.g. "customfield_11501".
	ShotgunIDField string

	// ShotgunTypeField is the custom field id storing the linked Shotgun
	// entity type.
	ShotgunTypeField string

	// ShotgunURLField is the custom field id storing the Shotgun page URL.
	ShotgunURLField string

	// RateLimit is the maximum number of requests per second.
	RateLimit float64

	// Transport allows injecting a custom HTTP transport (for tests/stubs).
	Transport http.RoundTripper
}

// CrossRefFields groups the custom field ids binding an Issue to its
// Shotgun counterpart.
type CrossRefFields struct {
	IDField   string
	TypeField string
	URLField  string
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
	if c.Email == "" {
		return &ValidationError{Field: "email", Message: "required"}
	}
	if c.APIToken == "" {
		return &ValidationError{Field: "apiToken", Message: "required"}
	}
	if c.ShotgunIDField == "" {
		return &ValidationError{Field: "shotgunIdField", Message: "required"}
	}
	if c.ShotgunTypeField == "" {
		return &ValidationError{Field: "shotgunTypeField", Message: "required"}
	}
	return nil
}
