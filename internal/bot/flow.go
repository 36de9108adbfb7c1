package bot

import (
	"strconv"
	"time"

	"subscription-bot/internal/models"
	"subscription-bot/internal/payment"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const checkoutTTL = 24 * time.Hour

const (
	textAskName      = "Hello! What is your name?"
	textChoosePlan   = "Choose a subscription plan:"
	textCheckoutLink = "Follow the link to complete the payment: %s"
	textCancelled    = "Okay, you can come back later :)"
)

type EventKind int

const (
	EventIgnored EventKind = iota
	EventStart
	EventCancel
	EventCommand
	EventText
	EventCallback
	// EventOther is a message without text, such as a sticker or a photo.
	EventOther
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventCancel:
		return "cancel"
	case EventCommand:
		return "command"
	case EventText:
		return "text"
	case EventCallback:
		return "callback"
	case EventOther:
		return "other"
	default:
		return "ignored"
	}
}

// Event is the part of a Telegram update the conversation cares about.
type Event struct {
	Kind       EventKind
	UserID     int64
	Username   string
	ChatID     int64
	MessageID  int
	Text       string
	CallbackID string
	Data       string
	At         time.Time
}

// EventFromUpdate classifies an update. Updates without a sender are ignored.
// Telegram never delivers an empty text message, so a message with no text carries
// some other content.
func EventFromUpdate(update tgbotapi.Update, at time.Time) Event {
	switch {
	case update.Message != nil && update.Message.From != nil:
		msg := update.Message
		ev := Event{
			Kind:      EventText,
			UserID:    msg.From.ID,
			Username:  msg.From.UserName,
			MessageID: msg.MessageID,
			Text:      msg.Text,
			At:        at,
		}
		if msg.Chat != nil {
			ev.ChatID = msg.Chat.ID
		}
		if msg.Text == "" {
			ev.Kind = EventOther
		} else if msg.IsCommand() {
			switch msg.Command() {
			case "start":
				ev.Kind = EventStart
			case "cancel":
				ev.Kind = EventCancel
			default:
				ev.Kind = EventCommand
			}
		}
		return ev

	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		query := update.CallbackQuery
		ev := Event{
			Kind:       EventCallback,
			UserID:     query.From.ID,
			Username:   query.From.UserName,
			CallbackID: query.ID,
			Data:       query.Data,
			At:         at,
		}
		if query.Message != nil {
			ev.MessageID = query.Message.MessageID
			if query.Message.Chat != nil {
				ev.ChatID = query.Message.Chat.ID
			}
		}
		return ev
	}

	return Event{Kind: EventIgnored, At: at}
}

// Effect is a side effect requested by Step. TelegramBot executes them in order.
type Effect interface {
	isEffect()
}

type UpsertProfile struct {
	UserID int64
	Name   *string
}

type SendText struct {
	ChatID      int64
	Text        string
	PlanButtons bool
}

type AnswerCallback struct {
	CallbackID string
}

type StartCheckout struct {
	ChatID    int64
	MessageID int
	Plan      string
	ExpiresAt time.Time
	Metadata  map[string]string
}

func (UpsertProfile) isEffect()  {}
func (SendText) isEffect()       {}
func (AnswerCallback) isEffect() {}
func (StartCheckout) isEffect()  {}

// Step is the conversation transition function. It has no side effects of its own.
func Step(state models.ConversationState, ev Event) (models.ConversationState, []Effect) {
	switch ev.Kind {
	case EventStart:
		return models.StateName, []Effect{
			UpsertProfile{UserID: ev.UserID},
			SendText{ChatID: ev.ChatID, Text: textAskName},
		}

	case EventCancel:
		if state == models.StateIdle {
			return state, nil
		}
		return models.StateIdle, []Effect{
			SendText{ChatID: ev.ChatID, Text: textCancelled},
		}

	case EventText:
		if state != models.StateName {
			return state, nil
		}
		name := ev.Text
		return models.StateButton, []Effect{
			UpsertProfile{UserID: ev.UserID, Name: &name},
			SendText{ChatID: ev.ChatID, Text: textChoosePlan, PlanButtons: true},
		}

	case EventCallback:
		answer := AnswerCallback{CallbackID: ev.CallbackID}
		// Inline-mode callbacks have no chat to send the checkout link to.
		if state != models.StateButton || !isPlan(ev.Data) || ev.ChatID == 0 {
			return state, []Effect{answer}
		}
		return state, []Effect{
			answer,
			StartCheckout{
				ChatID:    ev.ChatID,
				MessageID: ev.MessageID,
				Plan:      ev.Data,
				ExpiresAt: ev.At.Add(checkoutTTL),
				Metadata: map[string]string{
					payment.MetadataTelegramUserID:   strconv.FormatInt(ev.UserID, 10),
					payment.MetadataTelegramUsername: ev.Username,
				},
			},
		}
	}

	return state, nil
}

func isPlan(data string) bool {
	return data == payment.PlanBasic || data == payment.PlanPremium
}
