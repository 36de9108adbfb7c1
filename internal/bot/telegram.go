package bot

import (
	"context"
	"fmt"
	"time"

	"subscription-bot/internal/metrics"
	"subscription-bot/internal/models"
	"subscription-bot/internal/payment"
	"subscription-bot/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// telegramAPI is the subset of *tgbotapi.BotAPI the bot uses.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetWebhookInfo() (tgbotapi.WebhookInfo, error)
}

type ProfileStore interface {
	UpsertProfile(ctx context.Context, telegramID int64) error
	UpsertProfileName(ctx context.Context, telegramID int64, name string) error
}

type CheckoutCreator interface {
	CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error)
}

type TelegramBot struct {
	api      telegramAPI
	profiles ProfileStore
	checkout CheckoutCreator
	sessions SessionStore
	logger   *logger.Logger
	now      func() time.Time
}

func NewTelegramBot(token string, profiles ProfileStore, checkout CheckoutCreator, sessions SessionStore, logger *logger.Logger) (*TelegramBot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	logger.Infow("Authorized on Telegram", "username", api.Self.UserName)

	return newTelegramBot(api, profiles, checkout, sessions, logger), nil
}

func newTelegramBot(api telegramAPI, profiles ProfileStore, checkout CheckoutCreator, sessions SessionStore, logger *logger.Logger) *TelegramBot {
	return &TelegramBot{
		api:      api,
		profiles: profiles,
		checkout: checkout,
		sessions: sessions,
		logger:   logger.With("component", "telegram"),
		now:      time.Now,
	}
}

// EnsureWebhook registers webhookURL with Telegram unless it is already the current one.
func (t *TelegramBot) EnsureWebhook(webhookURL string, maxConnections int) error {
	info, err := t.api.GetWebhookInfo()
	if err != nil {
		return fmt.Errorf("failed to get webhook info: %w", err)
	}

	if info.URL == webhookURL {
		t.logger.Infow("Telegram webhook already registered", "url", webhookURL)
		return nil
	}

	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return fmt.Errorf("failed to build webhook config: %w", err)
	}
	wh.MaxConnections = maxConnections

	if _, err := t.api.Request(wh); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}

	t.logger.Infow("Telegram webhook registered", "url", webhookURL, "previous", info.URL)
	return nil
}

// Dispatch runs one update through the conversation. The session only advances when
// every effect succeeded.
func (t *TelegramBot) Dispatch(ctx context.Context, update tgbotapi.Update) error {
	ev := EventFromUpdate(update, t.now())
	metrics.RecordUpdate(ev.Kind.String())

	if ev.Kind == EventIgnored {
		t.logger.Debugw("Ignoring update", "update_id", update.UpdateID)
		return nil
	}

	session, exists, err := t.sessions.Get(ctx, ev.UserID)
	if err != nil {
		return err
	}
	if !exists {
		session = models.Session{TelegramID: ev.UserID, State: models.StateIdle}
	}

	next, effects := Step(session.State, ev)

	t.logger.Infow("Handling update",
		"update_id", update.UpdateID,
		"user_id", ev.UserID,
		"event", ev.Kind.String(),
		"state", session.State.String(),
		"next_state", next.String())

	checkoutID := session.CheckoutSessionID
	if ev.Kind == EventStart {
		checkoutID = ""
	}

	for _, effect := range effects {
		id, err := t.apply(ctx, effect)
		if err != nil {
			return err
		}
		if id != "" {
			checkoutID = id
		}
	}

	if next == models.StateIdle {
		if exists {
			return t.sessions.Delete(ctx, ev.UserID)
		}
		return nil
	}

	if exists && next == session.State && checkoutID == session.CheckoutSessionID {
		return nil
	}

	session.State = next
	session.CheckoutSessionID = checkoutID
	session.UpdatedAt = ev.At
	return t.sessions.Save(ctx, session)
}

// apply executes a single effect. It returns the checkout session id when one was created.
func (t *TelegramBot) apply(ctx context.Context, effect Effect) (string, error) {
	switch e := effect.(type) {
	case UpsertProfile:
		if e.Name == nil {
			return "", t.profiles.UpsertProfile(ctx, e.UserID)
		}
		t.logger.Infow("User provided name", "user_id", e.UserID)
		return "", t.profiles.UpsertProfileName(ctx, e.UserID, *e.Name)

	case SendText:
		msg := tgbotapi.NewMessage(e.ChatID, e.Text)
		if e.PlanButtons {
			msg.ReplyMarkup = planKeyboard()
		}
		if _, err := t.api.Send(msg); err != nil {
			return "", fmt.Errorf("failed to send message: %w", err)
		}
		return "", nil

	case AnswerCallback:
		if _, err := t.api.Request(tgbotapi.NewCallback(e.CallbackID, "")); err != nil {
			return "", fmt.Errorf("failed to answer callback: %w", err)
		}
		return "", nil

	case StartCheckout:
		return t.startCheckout(ctx, e)
	}

	return "", fmt.Errorf("unknown effect %T", effect)
}

func (t *TelegramBot) startCheckout(ctx context.Context, e StartCheckout) (string, error) {
	t.logger.Infow("User selected subscription plan", "metadata", e.Metadata, "plan", e.Plan)

	sess, err := t.checkout.CreateCheckoutSession(ctx, payment.CheckoutRequest{
		Plan:      e.Plan,
		ExpiresAt: e.ExpiresAt,
		Metadata:  e.Metadata,
	})
	metrics.RecordCheckout(e.Plan, err)
	if err != nil {
		return "", err
	}

	text := fmt.Sprintf(textCheckoutLink, sess.URL)

	var msg tgbotapi.Chattable = tgbotapi.NewMessage(e.ChatID, text)
	if e.MessageID != 0 {
		msg = tgbotapi.NewEditMessageText(e.ChatID, e.MessageID, text)
	}
	if _, err := t.api.Send(msg); err != nil {
		return "", fmt.Errorf("failed to send checkout link: %w", err)
	}

	t.logger.Infow("Checkout session created", "session_id", sess.ID, "plan", e.Plan)
	return sess.ID, nil
}

func planKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("15 EUR subscription", payment.PlanBasic),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("30 EUR subscription", payment.PlanPremium),
		),
	)
}
