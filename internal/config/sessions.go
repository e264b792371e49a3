package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/trendgate/trendgate/internal/gates"
)

// SessionsConfig holds named trading-session profiles so the same
// engine build can run conservative or extended admission windows.
type SessionsConfig struct {
	Active   string                    `yaml:"active_profile"`
	Profiles map[string]SessionProfile `yaml:"profiles"`
}

// SessionProfile is one admission window configuration.
type SessionProfile struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	StartHour   int    `yaml:"start_hour"`
	EndHour     int    `yaml:"end_hour"`
	OnePerDay   bool   `yaml:"one_per_day"`
}

// LoadSessionsConfig loads session profiles from file.
func LoadSessionsConfig(path string) (*SessionsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions config: %w", err)
	}

	var cfg SessionsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse sessions YAML: %w", err)
	}

	return &cfg, nil
}

// GetActiveProfile returns the currently active session profile.
func (sc *SessionsConfig) GetActiveProfile() (*SessionProfile, error) {
	if sc.Active == "" {
		return nil, fmt.Errorf("no active profile set")
	}

	profile, exists := sc.Profiles[sc.Active]
	if !exists {
		return nil, fmt.Errorf("active profile '%s' not found", sc.Active)
	}

	return &profile, nil
}

// GateConfig converts a profile into admission gate settings.
func (sp *SessionProfile) GateConfig() *gates.Config {
	return &gates.Config{
		SessionStartHour: sp.StartHour,
		SessionEndHour:   sp.EndHour,
		OneTradePerDay:   sp.OnePerDay,
	}
}

// Validate checks a profile for consistency.
func (sp *SessionProfile) Validate() []string {
	var errors []string

	if sp.StartHour < 0 || sp.StartHour > 23 {
		errors = append(errors, fmt.Sprintf("profile %s: start hour %d outside [0, 23]", sp.Name, sp.StartHour))
	}
	if sp.EndHour < 0 || sp.EndHour > 24 {
		errors = append(errors, fmt.Sprintf("profile %s: end hour %d outside [0, 24]", sp.Name, sp.EndHour))
	}
	if sp.StartHour >= sp.EndHour && !(sp.StartHour == 0 && sp.EndHour == 0) {
		errors = append(errors, fmt.Sprintf("profile %s: start hour %d not before end hour %d", sp.Name, sp.StartHour, sp.EndHour))
	}

	return errors
}

// DefaultSessionsConfig returns safe default session profiles.
func DefaultSessionsConfig() *SessionsConfig {
	return &SessionsConfig{
		Active: "london",
		Profiles: map[string]SessionProfile{
			"london": {
				Name:        "London",
				Description: "London session hours, one entry per day",
				StartHour:   8,
				EndHour:     18,
				OnePerDay:   true,
			},
			"extended": {
				Name:        "Extended",
				Description: "London plus New York overlap",
				StartHour:   7,
				EndHour:     21,
				OnePerDay:   true,
			},
		},
	}
}
