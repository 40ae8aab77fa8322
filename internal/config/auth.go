package config

// AuthConfig controls the optional bearer-token check on mutating
// routes. The orchestration service usually runs on a private network
// behind the platform's identity layer, so auth is off by default; when
// enabled, the secret must match the one the identity layer signs with.
type AuthConfig struct {
	Enabled   bool
	JWTSecret string
}

// LoadAuthConfig reads AUTH_ENABLED and JWT_SECRET. Enabling auth
// without a secret is a startup error.
func LoadAuthConfig() AuthConfig {
	cfg := AuthConfig{
		Enabled:   envBool("AUTH_ENABLED", false),
		JWTSecret: envStr("JWT_SECRET", ""),
	}
	if cfg.Enabled && cfg.JWTSecret == "" {
		cfg.JWTSecret = must("JWT_SECRET")
	}
	return cfg
}
