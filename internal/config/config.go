// Package config provides configuration loading for the bridge server.
//
// Settings come from a YAML file, with environment variables overriding
// individual values. Credentials are normally supplied through the
// environment only.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Settings is the full bridge server configuration.
type Settings struct {
	Server  ServerSettings  `yaml:"server"`
	Shotgun ShotgunSettings `yaml:"shotgun"`
	Jira    JiraSettings    `yaml:"jira"`
	Audit   AuditSettings   `yaml:"audit"`
	Logging LoggingSettings `yaml:"logging"`
}

// ServerSettings holds the webhook listener configuration.
type ServerSettings struct {
	Host string `yaml:"host" env:"BRIDGE_HOST"`
	Port int    `yaml:"port" env:"BRIDGE_PORT"`
}

// ShotgunSettings holds the Shotgun site connection configuration.
type ShotgunSettings struct {
	BaseURL    string  `yaml:"base_url" env:"BRIDGE_SG_URL"`
	ScriptName string  `yaml:"script_name" env:"BRIDGE_SG_SCRIPT_NAME"`
	ScriptKey  string  `yaml:"script_key" env:"BRIDGE_SG_SCRIPT_KEY"`
	RateLimit  float64 `yaml:"rate_limit" env:"BRIDGE_SG_RATE_LIMIT"`
}

// JiraSettings holds the Jira site connection configuration plus the
// custom field ids that link issues back to Shotgun.
type JiraSettings struct {
	BaseURL   string  `yaml:"base_url" env:"BRIDGE_JIRA_URL"`
	Email     string  `yaml:"email" env:"BRIDGE_JIRA_EMAIL"`
	APIToken  string  `yaml:"api_token" env:"BRIDGE_JIRA_API_TOKEN"`
	RateLimit float64 `yaml:"rate_limit" env:"BRIDGE_JIRA_RATE_LIMIT"`

	// ProjectID and ProjectKey identify the project issues are created in.
	ProjectID  string `yaml:"project_id" env:"BRIDGE_JIRA_PROJECT_ID"`
	ProjectKey string `yaml:"project_key" env:"BRIDGE_JIRA_PROJECT_KEY"`

	ShotgunIDField   string `yaml:"shotgun_id_field" env:"BRIDGE_JIRA_SG_ID_FIELD"`
	ShotgunTypeField string `yaml:"shotgun_type_field" env:"BRIDGE_JIRA_SG_TYPE_FIELD"`
	ShotgunURLField  string `yaml:"shotgun_url_field" env:"BRIDGE_JIRA_SG_URL_FIELD"`
}

// AuditSettings holds the optional audit trail database configuration.
// An empty DatabaseURL disables auditing.
type AuditSettings struct {
	DatabaseURL string `yaml:"database_url" env:"BRIDGE_AUDIT_DATABASE_URL"`
}

// LoggingSettings holds the log output configuration.
type LoggingSettings struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" env:"BRIDGE_LOG_LEVEL"`

	// Format is "text" or "json".
	Format string `yaml:"format" env:"BRIDGE_LOG_FORMAT"`
}

// Defaults returns the settings applied before the file and environment
// are read.
func Defaults() Settings {
	return Settings{
		Server:  ServerSettings{Host: "0.0.0.0", Port: 9090},
		Logging: LoggingSettings{Level: "info", Format: "text"},
	}
}

// Load reads settings from the given YAML file, then applies environment
// overrides. An empty path skips the file and uses the environment alone.
func Load(path string) (Settings, error) {
	settings := Defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return settings, fmt.Errorf("read settings file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &settings); err != nil {
			return settings, fmt.Errorf("parse settings file %s: %w", path, err)
		}
	}
	if err := env.Parse(&settings); err != nil {
		return settings, fmt.Errorf("apply environment overrides: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return settings, err
	}
	return settings, nil
}

// Validate checks that every required connection setting is present.
func (s *Settings) Validate() error {
	switch {
	case s.Shotgun.BaseURL == "":
		return fmt.Errorf("shotgun.base_url is required")
	case s.Shotgun.ScriptName == "":
		return fmt.Errorf("shotgun.script_name is required")
	case s.Shotgun.ScriptKey == "":
		return fmt.Errorf("shotgun.script_key is required")
	case s.Jira.BaseURL == "":
		return fmt.Errorf("jira.base_url is required")
	case s.Jira.Email == "":
		return fmt.Errorf("jira.email is required")
	case s.Jira.APIToken == "":
		return fmt.Errorf("jira.api_token is required")
	case s.Jira.ShotgunIDField == "":
		return fmt.Errorf("jira.shotgun_id_field is required")
	case s.Jira.ShotgunTypeField == "":
		return fmt.Errorf("jira.shotgun_type_field is required")
	}
	return nil
}
