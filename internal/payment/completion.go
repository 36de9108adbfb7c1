package payment

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"subscription-bot/internal/models"

	"github.com/stripe/stripe-go/v72"
)

const EventCheckoutSessionCompleted = "checkout.session.completed"

// CompletedCheckout turns a checkout.session.completed event into a payment record.
// Other event types return nil and no error.
func CompletedCheckout(event stripe.Event) (*models.Payment, error) {
	if event.Type != EventCheckoutSessionCompleted {
		return nil, nil
	}
	if event.Data == nil {
		return nil, fmt.Errorf("%w: event %s has no data", ErrInvalidPayload, event.ID)
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if sess.ID == "" {
		return nil, fmt.Errorf("%w: checkout session without id", ErrInvalidPayload)
	}

	return PaymentFromSession(&sess), nil
}

func PaymentFromSession(sess *stripe.CheckoutSession) *models.Payment {
	payment := &models.Payment{
		PaymentID: sess.ID,
		Status:    string(sess.PaymentStatus),
		Amount:    sess.AmountTotal,
		Currency:  string(sess.Currency),
		Email:     sessionEmail(sess),
	}

	if raw, ok := sess.Metadata[MetadataTelegramUserID]; ok {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			payment.TelegramID = &id
		}
	}
	if username, ok := sess.Metadata[MetadataTelegramUsername]; ok {
		payment.TelegramUsername = &username
	}

	if sess.TotalDetails != nil {
		payment.DiscountPercent = DiscountPercent(sess.TotalDetails.AmountDiscount, sess.AmountSubtotal)
	}

	return payment
}

// DiscountPercent returns round(discount/subtotal*100), or nil when there is no
// discount or the subtotal is zero.
func DiscountPercent(discount, subtotal int64) *int {
	if discount <= 0 || subtotal <= 0 {
		return nil
	}
	percent := int(math.Round(float64(discount) / float64(subtotal) * 100))
	if percent > 100 {
		percent = 100
	}
	return &percent
}

func sessionEmail(sess *stripe.CheckoutSession) *string {
	if sess.CustomerEmail != "" {
		email := sess.CustomerEmail
		return &email
	}
	if sess.CustomerDetails != nil && sess.CustomerDetails.Email != "" {
		email := sess.CustomerDetails.Email
		return &email
	}
	return nil
}
