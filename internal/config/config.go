// Package config defines the service configuration and its defaults.
package config

import "time"

// Config contains process configuration shared by the API server and the
// seed importer.
type Config struct {
	// Addr configures the HTTP listen address, e.g. ":8000".
	Addr string `koanf:"addr"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// DBDriver selects the storage engine: sqlite, postgres or mysql.
	DBDriver string `koanf:"db_driver"`

	// DBDSN is a file path for sqlite, a connection string otherwise.
	DBDSN string `koanf:"db_dsn"`

	// CORSAllowedOrigins lists browser origins allowed to call the API.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// AdminPassword is used for a profile created without one. There is no
	// built-in fallback.
	AdminPassword string `koanf:"admin_password"`

	// AuthEnabled requires a bearer token on write routes.
	AuthEnabled bool `koanf:"auth_enabled"`

	JWTSecret string        `koanf:"jwt_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`

	// LoginMaxAttempts failed logins per client are allowed within LoginLockout.
	LoginMaxAttempts int           `koanf:"login_max_attempts"`
	LoginLockout     time.Duration `koanf:"login_lockout"`

	// TrustProxyHeaders takes the client address from X-Forwarded-For or
	// X-Real-IP. Leave it off unless a proxy in front overwrites them.
	TrustProxyHeaders bool `koanf:"trust_proxy_headers"`

	// RevalidationURL is POSTed to after every successful write. Empty disables it.
	RevalidationURL    string `koanf:"revalidation_url"`
	RevalidationSecret string `koanf:"revalidation_secret"`

	// SeedPath is the default seed document for the importer.
	SeedPath string `koanf:"seed_path"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		Addr:     ":8000",
		LogLevel: "info",
		DBDriver: "sqlite",
		DBDSN:    "portfolio.db",
		CORSAllowedOrigins: []string{
			"http://localhost:5173",
			"http://localhost:5174",
			"http://localhost:3000",
			"http://127.0.0.1:5173",
			"http://127.0.0.1:5174",
		},
		TokenTTL:         24 * time.Hour,
		LoginMaxAttempts: 5,
		LoginLockout:     15 * time.Minute,
		SeedPath:         "db.json",
	}
}
