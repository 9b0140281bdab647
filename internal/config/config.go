package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config aggregates all runtime settings.
type Config struct {
	App      AppConfig
	HTTP     HTTPConfig
	Database DatabaseConfig `envPrefix:"DB_"`
	Redis    RedisConfig    `envPrefix:"REDIS_"`
	Token    TokenConfig    `envPrefix:"JWT_"`
	Security SecurityConfig
	Google   GoogleProviderConfig `envPrefix:"GOOGLE_"`
}

type AppConfig struct {
	Environment string `env:"NODE_ENV" envDefault:"development"`
	ClientURL   string `env:"CLIENT_URL" envDefault:"http://localhost:5173"`
}

// IsDevelopment reports whether development-only behaviour (request logging,
// error stacks in responses) is enabled.
func (c AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

type HTTPConfig struct {
	Host              string        `env:"HOST" envDefault:"0.0.0.0"`
	Port              int           `env:"PORT" envDefault:"3001"`
	BodyLimitBytes    int64         `env:"BODY_LIMIT_BYTES" envDefault:"10485760"`
	ReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"5s"`
	RequestTimeout    time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

type DatabaseConfig struct {
	URL            string        `env:"URL,expand" envDefault:"${DATABASE_URL}"`
	MaxConns       int32         `env:"MAX_CONNS" envDefault:"10"`
	MinConns       int32         `env:"MIN_CONNS" envDefault:"1"`
	ConnectTimeout time.Duration `env:"CONNECT_TIMEOUT" envDefault:"10s"`
	RunMigrations  bool          `env:"RUN_MIGRATIONS" envDefault:"true"`
}

// RedisConfig is optional; an empty Addr disables Redis-backed features.
type RedisConfig struct {
	Addr      string `env:"ADDR"`
	Password  string `env:"PASSWORD"`
	DB        int    `env:"DB" envDefault:"0"`
	EnableTLS bool   `env:"ENABLE_TLS" envDefault:"false"`
	Namespace string `env:"NAMESPACE" envDefault:"academic"`
}

// Enabled reports whether a Redis address was configured.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

type TokenConfig struct {
	Secret    string        `env:"SECRET"`
	Issuer    string        `env:"ISSUER" envDefault:"academic-tracker"`
	ExpiresIn time.Duration `env:"EXPIRES_IN" envDefault:"168h"`
}

type SecurityConfig struct {
	BcryptCost        int    `env:"BCRYPT_COST" envDefault:"10"`
	PasswordMinLength int    `env:"PASSWORD_MIN_LENGTH" envDefault:"8"`
	LoginRateLimit    int    `env:"LOGIN_RATE_LIMIT" envDefault:"20"`
	OAuthStateSecret  string `env:"OAUTH_STATE_SECRET"`
}

type GoogleProviderConfig struct {
	Enabled      bool   `env:"ENABLED" envDefault:"false"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"`
}

const minSecretLength = 16

// Load parses environment variables into Config and performs validation.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements that struct tags cannot express.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if len(c.Token.Secret) < minSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minSecretLength)
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.HTTP.BodyLimitBytes <= 0 {
		return fmt.Errorf("BODY_LIMIT_BYTES must be positive")
	}

	if c.Google.Enabled {
		if c.Google.ClientID == "" || c.Google.ClientSecret == "" || c.Google.RedirectURL == "" {
			return fmt.Errorf("google oauth requires CLIENT_ID, CLIENT_SECRET, and REDIRECT_URL")
		}
		if c.Security.OAuthStateSecret == "" {
			return fmt.Errorf("OAUTH_STATE_SECRET is required when Google sign-in is enabled")
		}
	}

	return nil
}
