// internal/models/models.go
package models

import (
	"time"
)

// Profile is keyed by the Telegram user id. Name stays nil until the user answers.
type Profile struct {
	TelegramID int64     `json:"tg_user_id"`
	Name       *string   `json:"user_name"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Payment is keyed by the Stripe checkout session id.
type Payment struct {
	PaymentID        string    `json:"payment_id"`
	TelegramID       *int64    `json:"customer_telegram_id"`
	TelegramUsername *string   `json:"customer_telegram_username"`
	Status           string    `json:"payment_status"`
	Amount           int64     `json:"payment_amount"`
	Currency         string    `json:"payment_currency"`
	DiscountPercent  *int      `json:"discount_percent"`
	Email            *string   `json:"email"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type ConversationState int

const (
	StateIdle ConversationState = iota
	StateName
	StateButton
)

func (s ConversationState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateName:
		return "name"
	case StateButton:
		return "button"
	default:
		return "unknown"
	}
}

// Session is the per-user conversation state. It is never written to Postgres.
type Session struct {
	TelegramID        int64             `json:"telegram_id"`
	State             ConversationState `json:"state"`
	CheckoutSessionID string            `json:"checkout_session_id,omitempty"`
	UpdatedAt         time.Time         `json:"updated_at"`
}
