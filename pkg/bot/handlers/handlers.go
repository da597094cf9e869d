// Package handlers serves the Telegram surface of the trainer: onboarding,
// practice sessions, profile and settings commands.
package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/sprachninja/pkg/app"
	"github.com/smith3v/sprachninja/pkg/bot/onboarding"
	"github.com/smith3v/sprachninja/pkg/logger"
	"github.com/smith3v/sprachninja/pkg/ui"
)

const helpText = "Commands:\n" +
	"/start - create your profile\n" +
	"/practice - practice vocabulary, grammar or translation\n" +
	"/profile - show your level and score\n" +
	"/level - change your German level\n" +
	"/tip - today's learning tip\n" +
	"/apikey <key> - set the Gemini API key\n" +
	"/model <name> - set the Gemini model\n" +
	"/help - show this message"

type Handlers struct {
	app     *app.App
	pending *onboarding.Manager
	ownerID int64
	now     func() time.Time
	chats   chatLocks
}

// chatLocks serialises practice updates per chat, so one answer is never
// checked twice by concurrent handlers.
type chatLocks struct {
	mu    sync.Mutex
	locks map[int64]*chatLock
}

type chatLock struct {
	mu   sync.Mutex
	refs int
}

// lock blocks until chatID is free and returns the matching unlock.
func (c *chatLocks) lock(chatID int64) func() {
	c.mu.Lock()
	if c.locks == nil {
		c.locks = make(map[int64]*chatLock)
	}
	l, ok := c.locks[chatID]
	if !ok {
		l = &chatLock{}
		c.locks[chatID] = l
	}
	l.refs++
	c.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		c.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, chatID)
		}
		c.mu.Unlock()
	}
}

type Option func(*Handlers)

// WithOwner restricts the bot to a single Telegram user.
func WithOwner(userID int64) Option {
	return func(h *Handlers) {
		h.ownerID = userID
	}
}

func WithClock(now func() time.Time) Option {
	return func(h *Handlers) {
		h.now = now
	}
}

func New(a *app.App, pending *onboarding.Manager, opts ...Option) *Handlers {
	h := &Handlers{
		app:     a,
		pending: pending,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.pending == nil {
		h.pending = onboarding.NewManager(h.now)
	}
	return h
}

// Register attaches every command and callback handler to b. The default
// handler is passed to bot.New via bot.WithDefaultHandler(h.Default).
func (h *Handlers) Register(b *bot.Bot) {
	b.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, h.guard(h.HandleStart))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/practice", bot.MatchTypeExact, h.guard(h.HandlePractice))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/profile", bot.MatchTypeExact, h.guard(h.HandleProfile))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/level", bot.MatchTypeExact, h.guard(h.HandleLevel))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/tip", bot.MatchTypeExact, h.guard(h.HandleTip))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/apikey", bot.MatchTypePrefix, h.guard(h.HandleAPIKey))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/model", bot.MatchTypePrefix, h.guard(h.HandleModel))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, h.guard(h.HandleHelp))
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, ui.PracticePrefix, bot.MatchTypePrefix, h.guard(h.HandlePracticeCallback))
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, ui.LevelPrefix, bot.MatchTypePrefix, h.guard(h.HandleLevelCallback))
}

// Default handles free text: a pending onboarding name, otherwise an answer
// to the active question.
func (h *Handlers) Default(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.guard(h.handleText)(ctx, b, update)
}

func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil || update.Message.Chat.ID == 0 {
		logger.Error("invalid update in HandleHelp")
		return
	}
	h.send(ctx, b, update.Message.Chat.ID, helpText, nil)
}

func (h *Handlers) guard(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update == nil {
			logger.Error("received nil update")
			return
		}
		if h.ownerID == 0 {
			next(ctx, b, update)
			return
		}
		userID := senderID(update)
		if userID == h.ownerID {
			next(ctx, b, update)
			return
		}
		logger.Warn("rejected update from foreign user", "user_id", userID)
		switch {
		case update.CallbackQuery != nil:
			answerCallback(ctx, b, update.CallbackQuery.ID, "This bot is private.")
		case update.Message != nil && update.Message.Chat.ID != 0:
			h.send(ctx, b, update.Message.Chat.ID, "This bot is private.", nil)
		}
	}
}

func senderID(update *models.Update) int64 {
	switch {
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID
	case update.CallbackQuery != nil:
		return update.CallbackQuery.From.ID
	default:
		return 0
	}
}

func (h *Handlers) send(ctx context.Context, b *bot.Bot, chatID int64, text string, keyboard *models.InlineKeyboardMarkup) *models.Message {
	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}
	msg, err := b.SendMessage(ctx, params)
	if err != nil {
		logger.Error("failed to send message", "chat_id", chatID, "error", err)
		return nil
	}
	return msg
}

func (h *Handlers) edit(ctx context.Context, b *bot.Bot, chatID int64, messageID int, text string, keyboard *models.InlineKeyboardMarkup) {
	params := &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      text,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}
	if _, err := b.EditMessageText(ctx, params); err != nil {
		logger.Error("failed to edit message", "chat_id", chatID, "message_id", messageID, "error", err)
	}
}

func answerCallback(ctx context.Context, b *bot.Bot, callbackID, text string) {
	if callbackID == "" {
		return
	}
	if _, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	}); err != nil {
		logger.Debug("failed to answer callback query", "error", err)
	}
}

// callbackMessage returns the message a callback button belongs to.
func callbackMessage(query *models.CallbackQuery) (*models.Message, bool) {
	if query == nil {
		return nil, false
	}
	message := query.Message
	if message.Type != models.MaybeInaccessibleMessageTypeMessage || message.Message == nil {
		return nil, false
	}
	if message.Message.Chat.ID == 0 {
		return nil, false
	}
	return message.Message, true
}
