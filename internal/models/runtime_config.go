package models

import "time"

// CorsConfig is the CORS policy row reloaded by the server at runtime.
// AllowedOrigins is comma separated.
type CorsConfig struct {
	ConfigKey        string    `json:"config_key" yaml:"config_key"`
	AllowedOrigins   string    `json:"allowed_origins" yaml:"allowed_origins"`
	AllowCredentials bool      `json:"allow_credentials" yaml:"allow_credentials"`
	MaxAge           int       `json:"max_age" yaml:"max_age"`
	CreatedAt        time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" yaml:"updated_at"`
}

// RatelimitConfig is a formatted limiter rate such as "5-S" or "100-M"
type RatelimitConfig struct {
	ConfigKey string    `json:"config_key" yaml:"config_key"`
	Rate      string    `json:"rate" yaml:"rate"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}
