package bot

import (
	"testing"
	"time"

	"subscription-bot/internal/models"
	"subscription-bot/internal/payment"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var eventTime = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

func commandMessage(userID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 10,
		From:      &tgbotapi.User{ID: userID, UserName: "olena"},
		Chat:      &tgbotapi.Chat{ID: userID},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
	}
}

func textMessage(userID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 11,
		From:      &tgbotapi.User{ID: userID, UserName: "olena"},
		Chat:      &tgbotapi.Chat{ID: userID},
		Text:      text,
	}
}

func stickerMessage(userID int64) *tgbotapi.Message {
	return &tgbotapi.Message{
		MessageID: 13,
		From:      &tgbotapi.User{ID: userID, UserName: "olena"},
		Chat:      &tgbotapi.Chat{ID: userID},
		Sticker:   &tgbotapi.Sticker{FileID: "sticker-1"},
	}
}

func callbackQuery(userID int64, data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		From:    &tgbotapi.User{ID: userID, UserName: "olena"},
		Message: &tgbotapi.Message{MessageID: 12, Chat: &tgbotapi.Chat{ID: userID}},
		Data:    data,
	}
}

func TestEventFromUpdate(t *testing.T) {
	tests := []struct {
		name     string
		update   tgbotapi.Update
		expected EventKind
	}{
		{name: "start", update: tgbotapi.Update{Message: commandMessage(1, "/start")}, expected: EventStart},
		{name: "start with bot mention", update: tgbotapi.Update{Message: commandMessage(1, "/start@sub_bot")}, expected: EventStart},
		{name: "cancel", update: tgbotapi.Update{Message: commandMessage(1, "/cancel")}, expected: EventCancel},
		{name: "other command", update: tgbotapi.Update{Message: commandMessage(1, "/help")}, expected: EventCommand},
		{name: "text", update: tgbotapi.Update{Message: textMessage(1, "Olena")}, expected: EventText},
		{name: "callback", update: tgbotapi.Update{CallbackQuery: callbackQuery(1, payment.PlanBasic)}, expected: EventCallback},
		{name: "sticker", update: tgbotapi.Update{Message: stickerMessage(1)}, expected: EventOther},
		{name: "photo", update: tgbotapi.Update{Message: &tgbotapi.Message{
			From:  &tgbotapi.User{ID: 1},
			Chat:  &tgbotapi.Chat{ID: 1},
			Photo: []tgbotapi.PhotoSize{{FileID: "photo-1"}},
		}}, expected: EventOther},
		{name: "edited message", update: tgbotapi.Update{EditedMessage: textMessage(1, "x")}, expected: EventIgnored},
		{name: "channel post without sender", update: tgbotapi.Update{Message: &tgbotapi.Message{Text: "x"}}, expected: EventIgnored},
		{name: "empty update", update: tgbotapi.Update{UpdateID: 5}, expected: EventIgnored},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ev := EventFromUpdate(test.update, eventTime)
			assert.Equal(t, test.expected, ev.Kind)
			assert.Equal(t, eventTime, ev.At)
		})
	}
}

func TestEventFromUpdate_CallbackFields(t *testing.T) {
	ev := EventFromUpdate(tgbotapi.Update{CallbackQuery: callbackQuery(42, payment.PlanPremium)}, eventTime)

	assert.Equal(t, int64(42), ev.UserID)
	assert.Equal(t, int64(42), ev.ChatID)
	assert.Equal(t, "olena", ev.Username)
	assert.Equal(t, 12, ev.MessageID)
	assert.Equal(t, "cb-1", ev.CallbackID)
	assert.Equal(t, payment.PlanPremium, ev.Data)
}

func TestStep_StartFromAnyState(t *testing.T) {
	for _, state := range []models.ConversationState{models.StateIdle, models.StateName, models.StateButton} {
		t.Run(state.String(), func(t *testing.T) {
			next, effects := Step(state, Event{Kind: EventStart, UserID: 42, ChatID: 42})

			assert.Equal(t, models.StateName, next)
			require.Len(t, effects, 2)
			assert.Equal(t, UpsertProfile{UserID: 42}, effects[0])
			assert.Equal(t, SendText{ChatID: 42, Text: textAskName}, effects[1])
		})
	}
}

func TestStep_NameAcceptsAnyText(t *testing.T) {
	for _, text := range []string{"Olena", "", "  spaced  ", "😀"} {
		t.Run(text, func(t *testing.T) {
			next, effects := Step(models.StateName, Event{Kind: EventText, UserID: 42, ChatID: 42, Text: text})

			assert.Equal(t, models.StateButton, next)
			require.Len(t, effects, 2)

			upsert, ok := effects[0].(UpsertProfile)
			require.True(t, ok)
			require.NotNil(t, upsert.Name)
			assert.Equal(t, text, *upsert.Name)
			assert.Equal(t, SendText{ChatID: 42, Text: textChoosePlan, PlanButtons: true}, effects[1])
		})
	}
}

func TestStep_TextOutsideNameIsIgnored(t *testing.T) {
	for _, state := range []models.ConversationState{models.StateIdle, models.StateButton} {
		next, effects := Step(state, Event{Kind: EventText, Text: "hello"})
		assert.Equal(t, state, next)
		assert.Empty(t, effects)
	}
}

func TestStep_PlanSelection(t *testing.T) {
	for _, plan := range []string{payment.PlanBasic, payment.PlanPremium} {
		t.Run(plan, func(t *testing.T) {
			ev := Event{
				Kind:       EventCallback,
				UserID:     42,
				Username:   "olena",
				ChatID:     42,
				MessageID:  12,
				CallbackID: "cb-1",
				Data:       plan,
				At:         eventTime,
			}

			next, effects := Step(models.StateButton, ev)

			assert.Equal(t, models.StateButton, next)
			require.Len(t, effects, 2)
			assert.Equal(t, AnswerCallback{CallbackID: "cb-1"}, effects[0])

			checkout, ok := effects[1].(StartCheckout)
			require.True(t, ok)
			assert.Equal(t, plan, checkout.Plan)
			assert.Equal(t, eventTime.Add(24*time.Hour), checkout.ExpiresAt)
			assert.Equal(t, map[string]string{
				payment.MetadataTelegramUserID:   "42",
				payment.MetadataTelegramUsername: "olena",
			}, checkout.Metadata)
			assert.Equal(t, 12, checkout.MessageID)
		})
	}
}

func TestStep_CallbackWithoutCheckout(t *testing.T) {
	tests := []struct {
		name  string
		state models.ConversationState
		data  string
	}{
		{name: "unknown plan", state: models.StateButton, data: "subscribe_99"},
		{name: "idle", state: models.StateIdle, data: payment.PlanBasic},
		{name: "waiting for name", state: models.StateName, data: payment.PlanBasic},
		{name: "inline callback without chat", state: models.StateButton, data: payment.PlanBasic},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			next, effects := Step(test.state, Event{Kind: EventCallback, CallbackID: "cb", Data: test.data})
			assert.Equal(t, test.state, next)
			assert.Equal(t, []Effect{AnswerCallback{CallbackID: "cb"}}, effects)
		})
	}
}

func TestStep_Cancel(t *testing.T) {
	for _, state := range []models.ConversationState{models.StateName, models.StateButton} {
		t.Run(state.String(), func(t *testing.T) {
			next, effects := Step(state, Event{Kind: EventCancel, ChatID: 42})

			assert.Equal(t, models.StateIdle, next)
			assert.Equal(t, []Effect{SendText{ChatID: 42, Text: textCancelled}}, effects)
			for _, effect := range effects {
				_, isUpsert := effect.(UpsertProfile)
				assert.False(t, isUpsert)
			}
		})
	}

	next, effects := Step(models.StateIdle, Event{Kind: EventCancel})
	assert.Equal(t, models.StateIdle, next)
	assert.Empty(t, effects)
}

func TestStep_NonTextMessagesIgnored(t *testing.T) {
	for _, state := range []models.ConversationState{models.StateIdle, models.StateName, models.StateButton} {
		t.Run(state.String(), func(t *testing.T) {
			next, effects := Step(state, Event{Kind: EventOther, UserID: 42, ChatID: 42})
			assert.Equal(t, state, next)
			assert.Empty(t, effects)
		})
	}
}

func TestStep_OtherCommandsIgnored(t *testing.T) {
	next, effects := Step(models.StateName, Event{Kind: EventCommand, Text: "/help"})
	assert.Equal(t, models.StateName, next)
	assert.Empty(t, effects)
}
