// internal/payment/stripe.go
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"subscription-bot/config"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/checkout/session"
	"github.com/stripe/stripe-go/v72/webhook"
)

const (
	PlanBasic   = "subscribe_15"
	PlanPremium = "subscribe_30"

	MetadataTelegramUserID   = "telegram_user_id"
	MetadataTelegramUsername = "telegram_username"
)

var (
	ErrUnknownPlan      = errors.New("unknown subscription plan")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidPayload   = errors.New("invalid payload")
)

// checkoutAPI is satisfied by session.Client.
type checkoutAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type CheckoutRequest struct {
	Plan      string
	ExpiresAt time.Time
	Metadata  map[string]string
}

type CheckoutSession struct {
	ID  string
	URL string
}

type StripeClient struct {
	sessions      checkoutAPI
	webhookSecret string
	currency      string
	prices        map[string]string
	successURL    string
	cancelURL     string
}

func NewStripeClient(cfg config.StripeConfig, baseURL string) (*StripeClient, error) {
	successURL, err := url.JoinPath(baseURL, "success_payment")
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	cancelURL, err := url.JoinPath(baseURL, "cancel_payment")
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	return &StripeClient{
		sessions:      session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: cfg.APIKey},
		webhookSecret: cfg.WebhookSecret,
		currency:      cfg.Currency,
		prices: map[string]string{
			PlanBasic:   cfg.Price15,
			PlanPremium: cfg.Price30,
		},
		successURL: successURL,
		cancelURL:  cancelURL,
	}, nil
}

func (s *StripeClient) PriceID(plan string) (string, bool) {
	price, ok := s.prices[plan]
	return price, ok
}

// CreateCheckoutSession creates a hosted subscription checkout. Errors are returned as-is
// to the caller; nothing is retried.
func (s *StripeClient) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	priceID, ok := s.PriceID(req.Plan)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlan, req.Plan)
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{
			"card",
		}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		Mode:                stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:          stripe.String(s.successURL),
		CancelURL:           stripe.String(s.cancelURL),
		ExpiresAt:           stripe.Int64(req.ExpiresAt.Unix()),
		AllowPromotionCodes: stripe.Bool(true),
	}
	params.Context = ctx
	params.AddExtra("currency", s.currency)
	for key, value := range req.Metadata {
		params.AddMetadata(key, value)
	}

	sess, err := s.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// VerifyWebhookSignature checks the Stripe-Signature header against the raw body.
func (s *StripeClient) VerifyWebhookSignature(payload []byte, sig string) (stripe.Event, error) {
	if s.webhookSecret == "" {
		return stripe.Event{}, fmt.Errorf("webhook secret is not configured")
	}
	if sig == "" {
		return stripe.Event{}, fmt.Errorf("%w: missing Stripe-Signature header", ErrInvalidSignature)
	}

	event, err := webhook.ConstructEvent(payload, sig, s.webhookSecret)
	if err != nil {
		if isSignatureError(err) {
			return stripe.Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return event, nil
}

func isSignatureError(err error) bool {
	switch err {
	case webhook.ErrInvalidHeader, webhook.ErrNoValidSignature, webhook.ErrNotSigned, webhook.ErrTooOld:
		return true
	}
	return false
}
