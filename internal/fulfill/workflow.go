// Package fulfill orchestrates the payment-completion pipeline: verify the
// inbound webhook, render an invoice, dispatch the notification email.
//
// Only signature verification can fail the request. Everything after it is
// best-effort: render and dispatch failures are logged and swallowed so the
// provider never retries a webhook over a business-side hiccup.
package fulfill

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"github.com/ecomops/storefront/internal/models"
)

var (
	webhooksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_webhooks_total",
		Help: "Webhook deliveries processed, labeled by outcome",
	}, []string{"outcome"})

	renderFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_invoice_render_failures_total",
		Help: "Invoice documents that could not be produced",
	})

	dispatchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_notification_dispatch_failures_total",
		Help: "Notification emails that could not be delivered",
	})
)

// Verifier authenticates a raw webhook payload and parses it into a
// PaymentEvent. It must never trust an unverified payload.
type Verifier interface {
	VerifyAndParse(payload []byte, sigHeader string) (*models.PaymentEvent, error)
}

// Renderer produces the invoice document for a completed payment.
type Renderer interface {
	Render(sessionID string, amount decimal.Decimal) (string, error)
}

// Dispatcher delivers a notification email, optionally with an attachment.
type Dispatcher interface {
	Send(ctx context.Context, req models.NotificationRequest) error
}

// SessionStore deduplicates webhook deliveries by session id. The provider
// retries on non-2xx acknowledgments, so redeliveries are expected.
type SessionStore interface {
	MarkSessionProcessed(ctx context.Context, sessionID string) (alreadyProcessed bool, err error)
}

// Outcome is the terminal state of one webhook run. All outcomes are
// acknowledged with success; only a verification failure is not.
type Outcome string

const (
	OutcomeIgnored   Outcome = "ignored"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeFulfilled Outcome = "fulfilled"
)

type Workflow struct {
	verifier      Verifier
	renderer      Renderer
	dispatcher    Dispatcher
	sessions      SessionStore
	logger        *slog.Logger
	fallbackEmail string
}

func NewWorkflow(v Verifier, r Renderer, d Dispatcher, s SessionStore, logger *slog.Logger, fallbackEmail string) *Workflow {
	return &Workflow{
		verifier:      v,
		renderer:      r,
		dispatcher:    d,
		sessions:      s,
		logger:        logger,
		fallbackEmail: fallbackEmail,
	}
}

// Process runs one webhook delivery through the pipeline. The returned
// error is non-nil only when signature verification fails; every other
// failure is absorbed and the outcome is still acknowledged.
func (w *Workflow) Process(ctx context.Context, payload []byte, sigHeader string) (Outcome, error) {
	event, err := w.verifier.VerifyAndParse(payload, sigHeader)
	if err != nil {
		webhooksTotal.WithLabelValues("rejected").Inc()
		return "", err
	}

	if event.Kind != models.EventKindCompleted {
		webhooksTotal.WithLabelValues(string(OutcomeIgnored)).Inc()
		w.logger.Info("webhook ignored", slog.String("kind", event.Kind))
		return OutcomeIgnored, nil
	}

	already, err := w.sessions.MarkSessionProcessed(ctx, event.SessionID)
	if err != nil {
		// Fail open: acknowledgment must not depend on store health. Worst
		// case a redelivery produces a duplicate invoice email.
		w.logger.Error("session dedup check failed",
			slog.String("session_id", event.SessionID),
			slog.String("error", err.Error()))
	} else if already {
		webhooksTotal.WithLabelValues(string(OutcomeDuplicate)).Inc()
		w.logger.Info("webhook redelivery skipped",
			slog.String("session_id", event.SessionID))
		return OutcomeDuplicate, nil
	}

	amount := models.MinorToAmount(event.AmountMinor)
	payerEmail := event.PayerEmail
	if payerEmail == "" {
		payerEmail = w.fallbackEmail
	}

	w.logger.Info("payment completed",
		slog.String("session_id", event.SessionID),
		slog.String("amount", amount.StringFixed(2)),
		slog.String("payer_email", payerEmail))

	path, err := w.renderer.Render(event.SessionID, amount)
	if err != nil {
		renderFailures.Inc()
		w.logger.Error("invoice render failed",
			slog.String("session_id", event.SessionID),
			slog.String("error", err.Error()))
		path = ""
	}

	req := models.NotificationRequest{
		To:             payerEmail,
		Subject:        "Invoice - Payment Successful",
		HTMLBody:       invoiceBody(event.SessionID, amount),
		AttachmentPath: path,
	}
	if err := w.dispatcher.Send(ctx, req); err != nil {
		dispatchFailures.Inc()
		w.logger.Error("notification dispatch failed",
			slog.String("session_id", event.SessionID),
			slog.String("to", payerEmail),
			slog.String("error", err.Error()))
	}

	webhooksTotal.WithLabelValues(string(OutcomeFulfilled)).Inc()
	return OutcomeFulfilled, nil
}

func invoiceBody(sessionID string, amount decimal.Decimal) string {
	return "<h3>Thank you for your payment!</h3>" +
		"<p>Session ID: " + sessionID + "</p>" +
		"<p>Amount Paid: " + amount.StringFixed(2) + " USD</p>"
}
