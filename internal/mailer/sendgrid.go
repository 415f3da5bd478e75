// Package mailer delivers notification emails through SendGrid.
package mailer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/ecomops/storefront/internal/models"
)

// ErrDispatch covers transport-level failures (auth, rate limit, network).
// Callers treat it as non-fatal to payment acknowledgment.
var ErrDispatch = errors.New("notification dispatch failed")

const (
	attachmentName = "invoice.pdf"
	attachmentType = "application/pdf"
)

type SendGridDispatcher struct {
	client    *sendgrid.Client
	fromEmail string
	logger    *slog.Logger
}

func NewSendGridDispatcher(apiKey, fromEmail string, logger *slog.Logger) *SendGridDispatcher {
	return &SendGridDispatcher{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: fromEmail,
		logger:    logger,
	}
}

// Send delivers the notification. An absent or unreadable attachment never
// blocks delivery; the mail simply goes out without it.
func (d *SendGridDispatcher) Send(ctx context.Context, req models.NotificationRequest) error {
	message := d.buildMessage(req)

	resp, err := d.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDispatch, err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: sendgrid returned status %d", ErrDispatch, resp.StatusCode)
	}

	d.logger.Info("notification delivered",
		slog.String("to", req.To),
		slog.Int("status", resp.StatusCode))
	return nil
}

func (d *SendGridDispatcher) buildMessage(req models.NotificationRequest) *mail.SGMailV3 {
	from := mail.NewEmail("", d.fromEmail)
	to := mail.NewEmail("", req.To)
	message := mail.NewSingleEmail(from, req.Subject, to, " ", req.HTMLBody)

	if req.AttachmentPath != "" {
		data, err := os.ReadFile(req.AttachmentPath)
		if err != nil {
			d.logger.Error("attachment unreadable, sending without it",
				slog.String("path", req.AttachmentPath),
				slog.String("error", err.Error()))
			return message
		}
		attachment := mail.NewAttachment()
		attachment.SetContent(base64.StdEncoding.EncodeToString(data))
		attachment.SetType(attachmentType)
		attachment.SetFilename(attachmentName)
		attachment.SetDisposition("attachment")
		message.AddAttachment(attachment)
	}
	return message
}
