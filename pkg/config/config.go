package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// FailurePolicy controls what happens when a message write fails.
type FailurePolicy string

const (
	// PolicySilent logs the failure and leaves the caller unaware.
	PolicySilent FailurePolicy = "silent"
	// PolicySurface reports the failure to the caller and to the notifier.
	PolicySurface FailurePolicy = "surface"
)

const (
	StoreMemory    = "memory"
	StoreFirestore = "firestore"
	StorePostgres  = "postgres"

	AuthLocal    = "local"
	AuthFirebase = "firebase"

	PasswordPlaintext = "plaintext"
	PasswordBcrypt    = "bcrypt"
)

type Config struct {
	Env             string        `env:"APP_ENV" env-default:"dev"`
	Port            string        `env:"PORT" env-default:"8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"30s"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" env-separator:"," env-default:"*"`

	StoreDriver string `env:"STORE_DRIVER" env-default:"memory"`
	DatabaseDSN string `env:"DATABASE_DSN"`

	GoogleProjectID     string `env:"GOOGLE_PROJECT_ID"`
	FirebaseCredentials string `env:"FIREBASE_CREDENTIALS"`
	PubSubTopic         string `env:"PUBSUB_TOPIC" env-default:"chattrix-events"`

	AuthProvider    string        `env:"AUTH_PROVIDER" env-default:"local"`
	JWTSecret       string        `env:"JWT_SECRET" env-default:"your-secret-key-change-in-production"`
	JWTAccessExpiry time.Duration `env:"JWT_ACCESS_EXPIRY" env-default:"24h"`

	DeliveryFailurePolicy FailurePolicy `env:"DELIVERY_FAILURE_POLICY" env-default:"silent"`
	ScheduleCatchUp       bool          `env:"SCHEDULE_CATCH_UP" env-default:"false"`
	RoomPasswordMode      string        `env:"ROOM_PASSWORD_MODE" env-default:"plaintext"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" env-default:"2"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" env-default:"5"`
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects unknown enum values and missing settings the selected drivers need.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreMemory:
	case StoreFirestore:
		if c.GoogleProjectID == "" {
			return fmt.Errorf("GOOGLE_PROJECT_ID is required for the firestore store")
		}
	case StorePostgres:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("DATABASE_DSN is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.AuthProvider {
	case AuthLocal, AuthFirebase:
	default:
		return fmt.Errorf("unknown AUTH_PROVIDER %q", c.AuthProvider)
	}

	switch c.DeliveryFailurePolicy {
	case PolicySilent, PolicySurface:
	default:
		return fmt.Errorf("unknown DELIVERY_FAILURE_POLICY %q", c.DeliveryFailurePolicy)
	}

	switch c.RoomPasswordMode {
	case PasswordPlaintext, PasswordBcrypt:
	default:
		return fmt.Errorf("unknown ROOM_PASSWORD_MODE %q", c.RoomPasswordMode)
	}

	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit must be positive")
	}
	return nil
}

// UsesFirebase reports whether any component needs a Firebase app.
func (c *Config) UsesFirebase() bool {
	return c.StoreDriver == StoreFirestore || c.AuthProvider == AuthFirebase || c.FirebaseCredentials != ""
}
