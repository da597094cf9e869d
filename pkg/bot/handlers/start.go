package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/sprachninja/pkg/bot/onboarding"
	"github.com/smith3v/sprachninja/pkg/logger"
	"github.com/smith3v/sprachninja/pkg/store"
	"github.com/smith3v/sprachninja/pkg/ui"
)

func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil || update.Message.From == nil || update.Message.Chat.ID == 0 {
		logger.Error("invalid update in HandleStart")
		return
	}
	chatID := update.Message.Chat.ID

	profile, err := h.app.Users.Current(ctx)
	if err != nil {
		logger.Error("failed to load user profile", "user_id", update.Message.From.ID, "error", err)
		h.send(ctx, b, chatID, "Failed to start onboarding. Please try again later.", nil)
		return
	}
	if profile != nil {
		h.send(ctx, b, chatID, fmt.Sprintf(
			"Willkommen zurück, %s! Your level is %s.\nSend /practice to continue or /help for all commands.",
			profile.DisplayName,
			profile.ProficiencyLevel,
		), nil)
		return
	}

	h.pending.Start(update.Message.From.ID, chatID, h.now().UTC(), onboarding.NameTimeout)
	h.send(ctx, b, chatID, "Welcome to SprachNinja! What should I call you?", nil)
}

// captureName finishes the name step of onboarding. It reports false when
// the chat was not asked for a name.
func (h *Handlers) captureName(ctx context.Context, b *bot.Bot, update *models.Update) bool {
	msg := update.Message
	if !h.pending.Awaiting(msg.From.ID, msg.Chat.ID, h.now().UTC()) {
		return false
	}

	profile, err := h.app.Users.Upsert(ctx, msg.Text, store.DefaultLevel)
	if errors.Is(err, store.ErrBlankDisplayName) {
		h.send(ctx, b, msg.Chat.ID, "Please send a name that is not blank.", nil)
		return true
	}
	if err != nil {
		logger.Error("failed to save user profile", "user_id", msg.From.ID, "error", err)
		h.send(ctx, b, msg.Chat.ID, "Failed to save your profile. Please try again later.", nil)
		return true
	}
	h.pending.Consume(msg.From.ID, msg.Chat.ID, h.now().UTC())
	logger.Info("user onboarded", "user_id", msg.From.ID, "level", profile.ProficiencyLevel)

	text, keyboard, err := ui.RenderLevelPicker(h.app.Curriculum.SubLevels(), profile.ProficiencyLevel)
	if err != nil {
		logger.Error("failed to render level picker", "error", err)
		return true
	}
	h.send(ctx, b, msg.Chat.ID, fmt.Sprintf("Nice to meet you, %s!\n%s", profile.DisplayName, text), keyboard)
	return true
}
