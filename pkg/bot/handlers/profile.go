package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/sprachninja/pkg/logger"
	"github.com/smith3v/sprachninja/pkg/tips"
	"github.com/smith3v/sprachninja/pkg/ui"
)

const missingProfileText = "Profile not found. Send /start to create it."

func (h *Handlers) HandleProfile(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil || update.Message.Chat.ID == 0 {
		logger.Error("invalid update in HandleProfile")
		return
	}
	chatID := update.Message.Chat.ID

	profile, err := h.app.Users.Current(ctx)
	if err != nil {
		logger.Error("failed to load user profile", "error", err)
		h.send(ctx, b, chatID, "Failed to load your profile. Please try again later.", nil)
		return
	}
	if profile == nil {
		h.send(ctx, b, chatID, missingProfileText, nil)
		return
	}

	stats, err := h.app.Stats.Get(ctx, profile.ProficiencyLevel)
	if err != nil {
		logger.Error("failed to load level stats", "level", profile.ProficiencyLevel, "error", err)
		h.send(ctx, b, chatID, "Failed to load your profile. Please try again later.", nil)
		return
	}
	correct, wrong := 0, 0
	if stats != nil {
		correct, wrong = stats.Correct, stats.Wrong
	}
	h.send(ctx, b, chatID, ui.RenderProfile(profile.DisplayName, profile.ProficiencyLevel, correct, wrong), nil)
}

func (h *Handlers) HandleLevel(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil || update.Message.Chat.ID == 0 {
		logger.Error("invalid update in HandleLevel")
		return
	}
	chatID := update.Message.Chat.ID

	profile, err := h.app.Users.Current(ctx)
	if err != nil {
		logger.Error("failed to load user profile", "error", err)
		h.send(ctx, b, chatID, "Failed to load your profile. Please try again later.", nil)
		return
	}
	if profile == nil {
		h.send(ctx, b, chatID, missingProfileText, nil)
		return
	}

	text, keyboard, err := ui.RenderLevelPicker(h.app.Curriculum.SubLevels(), profile.ProficiencyLevel)
	if err != nil {
		logger.Error("failed to render level picker", "error", err)
		return
	}
	h.send(ctx, b, chatID, text, keyboard)
}

func (h *Handlers) HandleLevelCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.CallbackQuery == nil {
		logger.Error("invalid update in HandleLevelCallback")
		return
	}
	query := update.CallbackQuery

	level, err := ui.ParseLevelCallback(query.Data)
	if err != nil || !h.app.Curriculum.HasLevel(level) {
		logger.Error("invalid level callback", "data", query.Data, "error", err)
		answerCallback(ctx, b, query.ID, "Unknown level")
		return
	}
	msg, ok := callbackMessage(query)
	if !ok {
		logger.Error("callback query message is inaccessible", "user_id", query.From.ID)
		answerCallback(ctx, b, query.ID, "Message is not available")
		return
	}

	updated, err := h.app.Users.SetLevel(ctx, level)
	if err != nil {
		logger.Error("failed to update level", "level", level, "error", err)
		answerCallback(ctx, b, query.ID, "Failed to save the level")
		return
	}
	if !updated {
		answerCallback(ctx, b, query.ID, "Send /start first")
		return
	}
	answerCallback(ctx, b, query.ID, "")
	logger.Info("level changed", "user_id", query.From.ID, "level", level)

	h.edit(ctx, b, msg.Chat.ID, msg.ID, fmt.Sprintf("Level set to %s ✅\nSend /practice to start.", level), &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{},
	})
}

// HandleTip sends a placeholder first and replaces it once the tip is known.
func (h *Handlers) HandleTip(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil || update.Message.Chat.ID == 0 {
		logger.Error("invalid update in HandleTip")
		return
	}
	chatID := update.Message.Chat.ID

	profile, err := h.app.Users.Current(ctx)
	if err != nil {
		logger.Error("failed to load user profile", "error", err)
		h.send(ctx, b, chatID, "Failed to load your profile. Please try again later.", nil)
		return
	}
	if profile == nil {
		h.send(ctx, b, chatID, missingProfileText, nil)
		return
	}

	placeholder := h.send(ctx, b, chatID, tips.LoadingText, nil)
	tip := h.app.Tips.GetTip(ctx, profile.ProficiencyLevel)
	if placeholder == nil {
		h.send(ctx, b, chatID, tip, nil)
		return
	}
	h.edit(ctx, b, chatID, placeholder.ID, tip, nil)
}

// HandleAPIKey stores the key and deletes the message that carried it.
func (h *Handlers) HandleAPIKey(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil || update.Message.Chat.ID == 0 {
		logger.Error("invalid update in HandleAPIKey")
		return
	}
	msg := update.Message

	key := commandArgument(msg.Text)
	if key == "" {
		h.send(ctx, b, msg.Chat.ID, "Usage: /apikey <key>", nil)
		return
	}
	if _, err := b.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
	}); err != nil {
		logger.Warn("failed to delete api key message", "chat_id", msg.Chat.ID, "error", err)
	}

	current := h.app.Settings.Settings()
	current.APIKey = key
	saved, err := h.app.Settings.Save(current)
	if err != nil {
		logger.Error("failed to save settings", "error", err)
		h.send(ctx, b, msg.Chat.ID, "Failed to save the API key. Please try again later.", nil)
		return
	}
	h.send(ctx, b, msg.Chat.ID, "API key saved.\n"+ui.RenderSettings(saved), nil)
}

// HandleModel sets the model name, or shows the settings when no name is given.
func (h *Handlers) HandleModel(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil || update.Message.Chat.ID == 0 {
		logger.Error("invalid update in HandleModel")
		return
	}
	chatID := update.Message.Chat.ID

	name := commandArgument(update.Message.Text)
	current := h.app.Settings.Settings()
	if name == "" {
		h.send(ctx, b, chatID, ui.RenderSettings(current)+"\nUsage: /model <name>", nil)
		return
	}

	current.ModelName = name
	saved, err := h.app.Settings.Save(current)
	if err != nil {
		logger.Error("failed to save settings", "error", err)
		h.send(ctx, b, chatID, "Failed to save the model. Please try again later.", nil)
		return
	}
	h.send(ctx, b, chatID, "Model saved.\n"+ui.RenderSettings(saved), nil)
}

// commandArgument returns the text after the leading command.
func commandArgument(text string) string {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return ""
	}
	return strings.Join(fields[1:], " ")
}
