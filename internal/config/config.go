package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	DBSource            string
	Port                string
	Env                 string
	StripeSecretKey     string
	StripeWebhookSecret string
	SendGridAPIKey      string
	FromEmail           string
	FallbackEmail       string
	InvoiceDir          string
	JWTSecret           string
	CheckoutSuccessURL  string
	CheckoutCancelURL   string
}

func Load() (*Config, error) {
	// Optional .env for local development; deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		DBSource:            os.Getenv("DB_SOURCE"),
		Port:                getEnv("SERVER_PORT", "8080"),
		Env:                 getEnv("ENVIRONMENT", "development"),
		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		SendGridAPIKey:      os.Getenv("SENDGRID_API_KEY"),
		FromEmail:           getEnv("FROM_EMAIL", "billing@storefront.local"),
		FallbackEmail:       getEnv("FALLBACK_EMAIL", "test@example.com"),
		InvoiceDir:          getEnv("INVOICE_DIR", "invoices"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		CheckoutSuccessURL:  getEnv("CHECKOUT_SUCCESS_URL", "http://localhost:8080/docs"),
		CheckoutCancelURL:   getEnv("CHECKOUT_CANCEL_URL", "http://localhost:8080/docs"),
	}

	if cfg.DBSource == "" {
		return nil, fmt.Errorf("DB_SOURCE environment variable is required")
	}
	if cfg.StripeSecretKey == "" {
		return nil, fmt.Errorf("STRIPE_SECRET_KEY environment variable is required")
	}
	if cfg.StripeWebhookSecret == "" {
		return nil, fmt.Errorf("STRIPE_WEBHOOK_SECRET environment variable is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
