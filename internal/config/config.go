package config

import (
	"errors"
	"time"
)

// Config holds everything the server needs at startup.
type Config struct {
	Addr        string
	DBDriver    string
	DatabaseURL string

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	JWTTTL      time.Duration

	CORSOrigin string
	LogLevel   string

	// CacheSweepInterval enables the background cache sweep when positive.
	CacheSweepInterval time.Duration
}

// Defaults used when neither a flag nor an env var is set.
const (
	DefaultAddr        = ":8000"
	DefaultDBDriver    = "sqlite"
	DefaultDatabaseURL = "study_habit.db"
	DefaultJWTSecret   = "development-insecure-secret-change-me"
	DefaultJWTIssuer   = "study-habit-api"
	DefaultJWTAudience = "authenticated"
	DefaultJWTTTL      = 24 * time.Hour
	DefaultCORSOrigin  = "*"
	DefaultLogLevel    = "info"
)

var (
	ErrUnknownDriver = errors.New("unknown database driver")
	ErrMissingSecret = errors.New("jwt secret must not be empty")
)

// Default returns a Config populated with the defaults.
func Default() Config {
	return Config{
		Addr:        DefaultAddr,
		DBDriver:    DefaultDBDriver,
		DatabaseURL: DefaultDatabaseURL,
		JWTSecret:   DefaultJWTSecret,
		JWTIssuer:   DefaultJWTIssuer,
		JWTAudience: DefaultJWTAudience,
		JWTTTL:      DefaultJWTTTL,
		CORSOrigin:  DefaultCORSOrigin,
		LogLevel:    DefaultLogLevel,
	}
}

// Validate reports the first problem with c.
func (c Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return ErrUnknownDriver
	}
	if c.JWTSecret == "" {
		return ErrMissingSecret
	}
	return nil
}
