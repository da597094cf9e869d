package handlers

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/sprachninja/pkg/db"
	"github.com/smith3v/sprachninja/pkg/logger"
	"github.com/smith3v/sprachninja/pkg/practice"
	"github.com/smith3v/sprachninja/pkg/ui"
	"gorm.io/datatypes"
)

const noActiveQuestionText = "There is no open question. Send /practice to start."

func (h *Handlers) HandlePractice(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil || update.Message.Chat.ID == 0 {
		logger.Error("invalid update in HandlePractice")
		return
	}
	text, keyboard, err := ui.RenderModeMenu()
	if err != nil {
		logger.Error("failed to render practice menu", "error", err)
		return
	}
	h.send(ctx, b, update.Message.Chat.ID, text, keyboard)
}

func (h *Handlers) HandlePracticeCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.CallbackQuery == nil {
		logger.Error("invalid update in HandlePracticeCallback")
		return
	}
	query := update.CallbackQuery

	action, err := ui.ParseCallbackData(query.Data)
	if err != nil {
		logger.Error("failed to parse practice callback", "data", query.Data, "error", err)
		answerCallback(ctx, b, query.ID, "Unknown command")
		return
	}
	msg, ok := callbackMessage(query)
	if !ok {
		logger.Error("callback query message is inaccessible", "user_id", query.From.ID)
		answerCallback(ctx, b, query.ID, "Message is not available")
		return
	}

	unlock := h.chats.lock(msg.Chat.ID)
	defer unlock()

	switch action.Op {
	case ui.OpMode:
		answerCallback(ctx, b, query.ID, "")
		h.loadQuestion(ctx, b, msg, query.From.ID, action.Type)
	case ui.OpNext, ui.OpRetry:
		row, err := h.app.Sessions.Load(ctx, msg.Chat.ID, h.now().UTC())
		if err != nil {
			logger.Error("failed to load practice session", "chat_id", msg.Chat.ID, "error", err)
			answerCallback(ctx, b, query.ID, "Failed to load the session")
			return
		}
		answerCallback(ctx, b, query.ID, "")
		if row == nil {
			text, keyboard, err := ui.RenderModeMenu()
			if err != nil {
				logger.Error("failed to render practice menu", "error", err)
				return
			}
			h.edit(ctx, b, msg.Chat.ID, msg.ID, text, keyboard)
			return
		}
		h.loadQuestion(ctx, b, msg, query.From.ID, practice.QuestionType(row.QuestionType))
	case ui.OpAnswer:
		h.answerOption(ctx, b, query, msg, action.Index)
	}
}

// loadQuestion turns msg into a fresh question of qtype.
func (h *Handlers) loadQuestion(ctx context.Context, b *bot.Bot, msg *models.Message, userID int64, qtype practice.QuestionType) {
	session, err := h.app.NewSession(qtype)
	if err != nil {
		logger.Error("failed to start practice session", "type", qtype, "error", err)
		return
	}
	h.render(ctx, b, msg.Chat.ID, msg.ID, session.View())

	view := session.LoadNextQuestion(ctx)
	h.save(ctx, msg.Chat.ID, userID, msg.ID, view)
	h.render(ctx, b, msg.Chat.ID, msg.ID, view)
}

func (h *Handlers) answerOption(ctx context.Context, b *bot.Bot, query *models.CallbackQuery, msg *models.Message, index int) {
	session, row, err := h.restore(ctx, msg.Chat.ID)
	if err != nil {
		logger.Error("failed to restore practice session", "chat_id", msg.Chat.ID, "error", err)
		answerCallback(ctx, b, query.ID, "Failed to load the session")
		return
	}
	if session == nil || row.MessageID != msg.ID {
		answerCallback(ctx, b, query.ID, "This question is no longer active")
		return
	}
	if !session.View().CanCheck() {
		answerCallback(ctx, b, query.ID, "Already answered")
		return
	}
	question, _ := session.View().Question()
	if index >= len(question.Options) {
		answerCallback(ctx, b, query.ID, "Unknown option")
		return
	}
	answerCallback(ctx, b, query.ID, "")

	view := session.CheckAnswer(ctx, question.Options[index])
	h.save(ctx, msg.Chat.ID, query.From.ID, msg.ID, view)
	h.render(ctx, b, msg.Chat.ID, msg.ID, view)
}

func (h *Handlers) handleText(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil || update.Message.From == nil || update.Message.Chat.ID == 0 {
		logger.Error("invalid update in default handler")
		return
	}
	msg := update.Message
	if strings.HasPrefix(msg.Text, "/") {
		h.send(ctx, b, msg.Chat.ID, helpText, nil)
		return
	}
	if h.captureName(ctx, b, update) {
		return
	}
	if strings.TrimSpace(msg.Text) == "" {
		h.send(ctx, b, msg.Chat.ID, helpText, nil)
		return
	}

	unlock := h.chats.lock(msg.Chat.ID)
	defer unlock()

	session, _, err := h.restore(ctx, msg.Chat.ID)
	if err != nil {
		logger.Error("failed to restore practice session", "chat_id", msg.Chat.ID, "error", err)
		h.send(ctx, b, msg.Chat.ID, "Failed to load your question. Please try again later.", nil)
		return
	}
	if session == nil || !session.View().CanCheck() {
		h.send(ctx, b, msg.Chat.ID, noActiveQuestionText, nil)
		return
	}

	question, _ := session.View().Question()
	if question.QuestionType != practice.TranslateENDE {
		view := session.CheckAnswer(ctx, msg.Text)
		text, keyboard, err := ui.RenderPractice(view)
		if err != nil {
			logger.Error("failed to render practice view", "error", err)
			return
		}
		sent := h.send(ctx, b, msg.Chat.ID, text, keyboard)
		h.save(ctx, msg.Chat.ID, msg.From.ID, messageID(sent), view)
		return
	}

	checking := session.View()
	checking.Feedback = practice.CheckingFeedback
	text, keyboard, err := ui.RenderPractice(checking)
	if err != nil {
		logger.Error("failed to render practice view", "error", err)
		return
	}
	sent := h.send(ctx, b, msg.Chat.ID, text, keyboard)

	view := session.CheckAnswer(ctx, msg.Text)
	h.save(ctx, msg.Chat.ID, msg.From.ID, messageID(sent), view)
	if sent == nil {
		return
	}
	h.render(ctx, b, msg.Chat.ID, sent.ID, view)
}

// restore rebuilds the session stored for chatID. It returns a nil session
// when the chat has no question to answer.
func (h *Handlers) restore(ctx context.Context, chatID int64) (*practice.Session, *db.PracticeSession, error) {
	row, err := h.app.Sessions.Load(ctx, chatID, h.now().UTC())
	if err != nil || row == nil {
		return nil, row, err
	}
	var question practice.PracticeQuestion
	if len(row.Question) > 0 {
		if err := json.Unmarshal(row.Question, &question); err != nil {
			return nil, row, err
		}
	}
	if question.QuestionText == "" {
		return nil, row, nil
	}
	session, err := practice.RestoreSession(practice.QuestionType(row.QuestionType), h.app.PracticeDeps(), question, practice.ParseValidationState(row.Validation), row.Feedback)
	if err != nil {
		return nil, row, err
	}
	return session, row, nil
}

func (h *Handlers) save(ctx context.Context, chatID, userID int64, messageID int, view practice.View) {
	question, _ := view.Question()
	payload, err := json.Marshal(question)
	if err != nil {
		logger.Error("failed to encode practice question", "chat_id", chatID, "error", err)
		return
	}
	row := &db.PracticeSession{
		ChatID:         chatID,
		UserID:         userID,
		QuestionType:   string(view.Type),
		Question:       datatypes.JSON(payload),
		Validation:     string(view.Validation),
		Feedback:       view.Feedback,
		MessageID:      messageID,
		LastActivityAt: h.now().UTC(),
	}
	if err := h.app.Sessions.Upsert(ctx, row); err != nil {
		logger.Error("failed to save practice session", "chat_id", chatID, "error", err)
	}
}

func (h *Handlers) render(ctx context.Context, b *bot.Bot, chatID int64, messageID int, view practice.View) {
	text, keyboard, err := ui.RenderPractice(view)
	if err != nil {
		logger.Error("failed to render practice view", "error", err)
		return
	}
	h.edit(ctx, b, chatID, messageID, text, keyboard)
}

func messageID(msg *models.Message) int {
	if msg == nil {
		return 0
	}
	return msg.ID
}
