package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/prockx/storefront/pkg/config"
)

type ServiceConfig struct {
	config.Config

	AdminEmail string
	ClientURL  string

	StripeSecretKey string
	PaymentCurrency string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	CORSOrigins   []string
	CSRFEnabled   bool
	CookieSecure  bool
	AuthRateLimit int
	APIRateLimit  int
}

// PaymentsEnabled reports whether card checkouts open a hosted session.
func (c ServiceConfig) PaymentsEnabled() bool { return c.StripeSecretKey != "" }

func (c ServiceConfig) SearchEnabled() bool { return c.ESURL != "" }

// FromEnv reads the service configuration without enforcing required keys.
func FromEnv() ServiceConfig {
	base := config.Load()

	clientURL := config.EnvDefault("CLIENT_URL", "http://localhost:5173")
	origins := config.CSV(os.Getenv("CORS_ORIGINS"))
	if len(origins) == 0 {
		origins = []string{clientURL}
	}

	return ServiceConfig{
		Config: base,

		AdminEmail: os.Getenv("ADMIN_EMAIL"),
		ClientURL:  clientURL,

		StripeSecretKey: os.Getenv("STRIPE_SECRET_KEY"),
		PaymentCurrency: config.EnvDefault("PAYMENT_CURRENCY", "kzt"),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		ESIndex:    config.EnvDefault("ES_INDEX", "products"),

		CORSOrigins:   origins,
		CSRFEnabled:   config.EnvBoolDefault("CSRF_ENABLED", false),
		CookieSecure:  config.EnvBoolDefault("COOKIE_SECURE", true),
		AuthRateLimit: config.EnvIntDefault("AUTH_RATE_LIMIT", 15),
		APIRateLimit:  config.EnvIntDefault("API_RATE_LIMIT", 100),
	}
}

func Load() ServiceConfig {
	if err := godotenv.Load(".env"); err != nil {
		slog.Info("no .env file, using process environment", "error", err)
	}

	cfg := FromEnv()

	config.MustOneOf(cfg.DatabaseDriver, "DATABASE_DRIVER", "postgres", "sqlite")
	if cfg.DatabaseDriver == "postgres" {
		config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	}
	config.MustNonEmptyBytes(cfg.JWTAccessSecret, "JWT_SECRET")
	config.MustNonEmptyBytes(cfg.JWTRefreshSecret, "JWT_REFRESH_SECRET")

	return cfg
}
