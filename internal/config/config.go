package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string

	APIBaseURL    string
	JWTSecret     string
	SessionSecret string
	StripeKey     string
	ReturnURL     string
	CORSOrigins   []string

	Storage StorageConfig
}

type StorageConfig struct {
	Driver         string // redis | scylla | memory
	RedisHost      string
	RedisPassword  string
	ScyllaHosts    []string
	ScyllaKeyspace string
	CartTTL        time.Duration
	AttemptTTL     time.Duration
	ActiveOrderTTL time.Duration
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Load charge le .env (optionnel) puis lit la configuration depuis l'environnement
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  Aucun fichier .env trouvé — on continue avec les variables d'environnement du système")
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("API_BASE_URL", "http://localhost:5000/api")
	v.SetDefault("CART_STORAGE", "redis")
	v.SetDefault("REDIS_HOST", "localhost:6379")
	v.SetDefault("SCYLLA_KEYSPACE", "storefront")
	v.SetDefault("CART_TTL", "720h")
	v.SetDefault("CHECKOUT_ATTEMPT_TTL", "24h")
	v.SetDefault("ACTIVE_ORDERS_TTL", "15s")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("PAYMENT_RETURN_URL", "http://localhost:5173/checkout/complete")

	cfg := &Config{
		Port:          v.GetString("PORT"),
		Environment:   v.GetString("ENVIRONMENT"),
		LogLevel:      v.GetString("LOG_LEVEL"),
		APIBaseURL:    strings.TrimSuffix(v.GetString("API_BASE_URL"), "/"),
		JWTSecret:     v.GetString("JWT_SECRET"),
		SessionSecret: v.GetString("SESSION_SECRET"),
		StripeKey:     v.GetString("STRIPE_SECRET_KEY"),
		ReturnURL:     v.GetString("PAYMENT_RETURN_URL"),
		CORSOrigins:   splitList(v.GetString("CORS_ORIGINS")),
		Storage: StorageConfig{
			Driver:         strings.ToLower(v.GetString("CART_STORAGE")),
			RedisHost:      v.GetString("REDIS_HOST"),
			RedisPassword:  v.GetString("REDIS_PASSWORD"),
			ScyllaHosts:    splitList(v.GetString("SCYLLA_HOSTS")),
			ScyllaKeyspace: v.GetString("SCYLLA_KEYSPACE"),
			CartTTL:        v.GetDuration("CART_TTL"),
			AttemptTTL:     v.GetDuration("CHECKOUT_ATTEMPT_TTL"),
			ActiveOrderTTL: v.GetDuration("ACTIVE_ORDERS_TTL"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	if c.StripeKey == "" {
		return fmt.Errorf("STRIPE_SECRET_KEY is required")
	}
	switch c.Storage.Driver {
	case "redis", "memory":
	case "scylla":
		if len(c.Storage.ScyllaHosts) == 0 {
			return fmt.Errorf("SCYLLA_HOSTS is required when CART_STORAGE=scylla")
		}
	default:
		return fmt.Errorf("unknown CART_STORAGE %q", c.Storage.Driver)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
