package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/ecomops/storefront/internal/api"
	"github.com/ecomops/storefront/internal/auth"
	"github.com/ecomops/storefront/internal/config"
	"github.com/ecomops/storefront/internal/fulfill"
	"github.com/ecomops/storefront/internal/gateway"
	"github.com/ecomops/storefront/internal/invoice"
	"github.com/ecomops/storefront/internal/mailer"
	"github.com/ecomops/storefront/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	db, err := store.New(cfg.DBSource)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize Layers
	stripeGateway := gateway.New(gateway.Config{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		SuccessURL:    cfg.CheckoutSuccessURL,
		CancelURL:     cfg.CheckoutCancelURL,
	})
	renderer := invoice.NewPDFRenderer(cfg.InvoiceDir)
	dispatcher := mailer.NewSendGridDispatcher(cfg.SendGridAPIKey, cfg.FromEmail, logger)
	workflow := fulfill.NewWorkflow(stripeGateway, renderer, dispatcher, db, logger, cfg.FallbackEmail)
	issuer := auth.NewIssuer(cfg.JWTSecret, 24*time.Hour)

	handler := api.NewHandler(db, db, stripeGateway, workflow, issuer, logger)
	router := api.NewRouter(handler)

	log.Printf("Server starting on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		log.Fatal(err)
	}
}
