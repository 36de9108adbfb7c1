package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"subscription-bot/internal/metrics"
	"subscription-bot/internal/payment"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/labstack/echo/v4"
)

type page struct {
	Title string
}

func (s *Server) handleIndex(c echo.Context) error {
	return c.Render(http.StatusOK, "index.html", page{Title: "Subscription bot"})
}

func (s *Server) handleSuccessPage(c echo.Context) error {
	return c.Render(http.StatusOK, "success_payment.html", page{Title: "Payment successful"})
}

func (s *Server) handleCancelPage(c echo.Context) error {
	return c.Render(http.StatusOK, "cancel_payment.html", page{Title: "Payment cancelled"})
}

func (s *Server) handleHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := s.deps.Health.Ping(ctx); err != nil {
		s.logger.Errorw("Health check failed", "error", err)
		return c.String(http.StatusServiceUnavailable, "Unavailable")
	}
	return c.String(http.StatusOK, "OK")
}

func (s *Server) handleStripeWebhook(c echo.Context) error {
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		s.logger.Errorw("Failed to read webhook body", "error", err)
		metrics.RecordWebhook("", "invalid_payload")
		return c.String(http.StatusBadRequest, "Invalid payload")
	}

	event, err := s.deps.Verifier.VerifyWebhookSignature(payload, c.Request().Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			s.logger.Errorw("Invalid signature", "error", err)
			metrics.RecordWebhook("", "invalid_signature")
			return c.String(http.StatusBadRequest, "Invalid signature")
		}
		s.logger.Errorw("Invalid payload", "error", err)
		metrics.RecordWebhook("", "invalid_payload")
		return c.String(http.StatusBadRequest, "Invalid payload")
	}

	s.logger.Infow("Webhook event received", "type", event.Type, "event_id", event.ID)

	record, err := payment.CompletedCheckout(event)
	if err != nil {
		s.logger.Errorw("Failed to parse checkout session", "error", err, "event_id", event.ID)
		metrics.RecordWebhook(event.Type, "invalid_payload")
		return c.String(http.StatusBadRequest, "Invalid payload")
	}
	if record == nil {
		metrics.RecordWebhook(event.Type, "ignored")
		return c.NoContent(http.StatusOK)
	}

	// A store failure is logged and acknowledged anyway; Stripe will not redeliver.
	if err := s.deps.Payments.UpsertPayment(c.Request().Context(), record); err != nil {
		s.logger.Errorw("Error saving payment", "error", err, "payment_id", record.PaymentID)
		metrics.RecordWebhook(event.Type, "store_failed")
		return c.NoContent(http.StatusOK)
	}

	s.logger.Infow("Payment data saved",
		"payment_id", record.PaymentID,
		"status", record.Status,
		"amount", record.Amount,
		"currency", record.Currency)
	metrics.RecordWebhook(event.Type, "recorded")
	return c.NoContent(http.StatusOK)
}

func (s *Server) handleTelegramWebhook(c echo.Context) error {
	var update tgbotapi.Update
	if err := json.NewDecoder(c.Request().Body).Decode(&update); err != nil {
		s.logger.Errorw("Failed to decode Telegram update", "error", err)
		return c.String(http.StatusBadRequest, "Bad Request")
	}

	if err := s.dispatch(c.Request().Context(), update); err != nil {
		metrics.RecordDispatchError()
		s.logger.Errorw("Failed to process update", "error", err, "update_id", update.UpdateID)
	}

	return c.String(http.StatusOK, "OK")
}

// dispatch turns a panic in the conversation into an error so the webhook still answers 200.
func (s *Server) dispatch(ctx context.Context, update tgbotapi.Update) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing update: %v", r)
		}
	}()
	return s.deps.Dispatcher.Dispatch(ctx, update)
}
