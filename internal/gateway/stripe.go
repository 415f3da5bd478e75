// Package gateway adapts the Stripe API: hosted checkout session creation
// and webhook signature verification. All provider state lives with Stripe;
// nothing is persisted locally here.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/ecomops/storefront/internal/models"
)

var (
	// ErrSignatureInvalid covers a bad MAC, a malformed signature header,
	// and an unparseable payload. The boundary maps it to HTTP 400.
	ErrSignatureInvalid = errors.New("webhook signature invalid")

	// ErrGateway covers provider-side checkout session rejection.
	ErrGateway = errors.New("checkout session creation failed")
)

// Config holds the injected Stripe credentials and redirect targets.
// The API key is scoped to this adapter rather than set process-globally.
type Config struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
}

type StripeGateway struct {
	api           *client.API
	webhookSecret string
	successURL    string
	cancelURL     string
}

func New(cfg Config) *StripeGateway {
	return NewWithBackends(cfg, nil)
}

// NewWithBackends allows pointing the adapter at a non-default backend,
// used by tests to stand up a local provider.
func NewWithBackends(cfg Config, backends *stripe.Backends) *StripeGateway {
	api := &client.API{}
	api.Init(cfg.SecretKey, backends)
	return &StripeGateway{
		api:           api,
		webhookSecret: cfg.WebhookSecret,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
	}
}

// CreateCheckout builds a single-item, single-quantity, payment-mode
// checkout session in USD and returns the provider-hosted URL.
func (g *StripeGateway) CreateCheckout(ctx context.Context, item *models.Product, payerEmail string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(g.successURL),
		CancelURL:  stripe.String(g.cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(string(stripe.CurrencyUSD)),
					UnitAmount: stripe.Int64(models.AmountToMinor(item.Price)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(item.Name),
						Description: stripe.String(item.Description),
					},
				},
			},
		},
	}
	if payerEmail != "" {
		params.CustomerEmail = stripe.String(payerEmail)
	}
	params.Context = ctx

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGateway, err)
	}
	return sess.URL, nil
}

// VerifyAndParse recomputes the HMAC over the raw body with the shared
// signing secret (constant-time compare inside the stripe SDK) and only
// then parses the payload. An unverified payload is never trusted, not
// even partially.
func (g *StripeGateway) VerifyAndParse(payload []byte, sigHeader string) (*models.PaymentEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	pe := &models.PaymentEvent{Kind: string(event.Type)}
	if pe.Kind != models.EventKindCompleted {
		return pe, nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	pe.SessionID = session.ID
	pe.AmountMinor = session.AmountTotal
	if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
		pe.PayerEmail = session.CustomerDetails.Email
	} else {
		pe.PayerEmail = session.CustomerEmail
	}
	return pe, nil
}
