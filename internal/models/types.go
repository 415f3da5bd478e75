package models

import "github.com/shopspring/decimal"

// UserType enumerates the two roles the API distinguishes.
type UserType string

const (
	UserTypeAdmin  UserType = "admin"
	UserTypeNormal UserType = "normal"
)

// User is a registered account. PasswordHash is never serialized.
type User struct {
	ID           int64    `json:"id"`
	FirstName    string   `json:"first_name"`
	LastName     string   `json:"last_name"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"-"`
	UserType     UserType `json:"user_type"`
}

// Product is a catalog item. Price is a positive decimal amount in USD;
// the gateway converts it to integer minor units at checkout time.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Price       decimal.Decimal `json:"price"`
}

// EventKindCompleted is the only webhook event kind acted upon; all other
// kinds are accepted and ignored.
const EventKindCompleted = "checkout.session.completed"

// PaymentEvent is a verified webhook notification from the payment provider.
// AmountMinor is in minor currency units (cents); PayerEmail may be empty.
type PaymentEvent struct {
	Kind        string
	SessionID   string
	AmountMinor int64
	PayerEmail  string
}

// Invoice records a rendered payment document. Created once per event,
// never mutated.
type Invoice struct {
	SessionID string          `json:"session_id"`
	Amount    decimal.Decimal `json:"amount"`
	Path      string          `json:"path"`
}

// NotificationRequest is a write-once email delivery order. AttachmentPath
// is optional; an unreadable path downgrades to a mail without attachment.
type NotificationRequest struct {
	To             string
	Subject        string
	HTMLBody       string
	AttachmentPath string
}

// CreateUserRequest is the registration payload.
type CreateUserRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// LoginRequest is the credential payload for token issuance.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries an issued bearer token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// ProductRequest is the create/update payload for catalog items.
type ProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Price       decimal.Decimal `json:"price"`
}

// MinorToAmount converts provider minor units to a major-unit decimal
// amount, exactly (9999 -> 99.99).
func MinorToAmount(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// AmountToMinor converts a major-unit decimal price to integer minor
// units, rounding half away from zero (99.99 -> 9999).
func AmountToMinor(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
