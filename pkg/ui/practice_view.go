package ui

import (
	"fmt"
	"strings"

	"github.com/go-telegram/bot/models"
	"github.com/smith3v/sprachninja/pkg/practice"
	"github.com/smith3v/sprachninja/pkg/settings"
)

const AnswerPrompt = "Reply with your answer."

func RenderModeMenu() (string, *models.InlineKeyboardMarkup, error) {
	row := make([]models.InlineKeyboardButton, 0, len(practice.QuestionTypes()))
	for _, qtype := range practice.QuestionTypes() {
		data, err := BuildModeCallback(qtype)
		if err != nil {
			return "", nil, err
		}
		row = append(row, models.InlineKeyboardButton{Text: qtype.Label(), CallbackData: data})
	}
	text := "Choose a practice mode:\n- Vocabulary: pick the right word\n- Grammar: fill in the blank\n- Translate: English to German"
	return text, &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{row}}, nil
}

// RenderPractice renders one state of a practice session.
func RenderPractice(view practice.View) (string, *models.InlineKeyboardMarkup, error) {
	switch state := view.State.(type) {
	case practice.Loading:
		return fmt.Sprintf("%s\nGenerating a question...", view.Type.Label()), emptyKeyboard(), nil
	case practice.Failed:
		retryData, err := BuildRetryCallback()
		if err != nil {
			return "", nil, err
		}
		text := fmt.Sprintf("%s\n⚠️ %s", view.Type.Label(), state.Message)
		return text, &models.InlineKeyboardMarkup{
			InlineKeyboard: [][]models.InlineKeyboardButton{
				{{Text: "Try again", CallbackData: retryData}},
			},
		}, nil
	case practice.Ready:
		return renderQuestion(view, state.Question)
	default:
		return "", nil, fmt.Errorf("unknown question state %T", view.State)
	}
}

func renderQuestion(view practice.View, question practice.PracticeQuestion) (string, *models.InlineKeyboardMarkup, error) {
	var sb strings.Builder
	sb.WriteString(view.Type.Label())
	sb.WriteString("\n\n")
	sb.WriteString(question.QuestionText)

	nextData, err := BuildNextCallback()
	if err != nil {
		return "", nil, err
	}

	switch view.Validation {
	case practice.Correct:
		fmt.Fprintf(&sb, "\n\n✅ %s", view.Feedback)
		return sb.String(), nextKeyboard(nextData), nil
	case practice.Incorrect:
		fmt.Fprintf(&sb, "\n\n❌ %s", view.Feedback)
		return sb.String(), nextKeyboard(nextData), nil
	}

	if view.Feedback == practice.CheckingFeedback {
		sb.WriteString("\n\n")
		sb.WriteString(practice.CheckingFeedback)
		return sb.String(), emptyKeyboard(), nil
	}

	if question.QuestionType == practice.MultipleChoiceWord {
		rows := make([][]models.InlineKeyboardButton, 0, len(question.Options)+1)
		for i, option := range question.Options {
			data, err := BuildAnswerCallback(i)
			if err != nil {
				return "", nil, err
			}
			rows = append(rows, []models.InlineKeyboardButton{{Text: option, CallbackData: data}})
		}
		rows = append(rows, []models.InlineKeyboardButton{{Text: "Skip", CallbackData: nextData}})
		return sb.String(), &models.InlineKeyboardMarkup{InlineKeyboard: rows}, nil
	}

	sb.WriteString("\n\n")
	sb.WriteString(AnswerPrompt)
	return sb.String(), &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "Skip", CallbackData: nextData}},
		},
	}, nil
}

// RenderLevelPicker lays out levels two per row and marks current.
func RenderLevelPicker(levels []string, current string) (string, *models.InlineKeyboardMarkup, error) {
	rows := [][]models.InlineKeyboardButton{}
	row := []models.InlineKeyboardButton{}
	for _, level := range levels {
		data, err := BuildLevelCallback(level)
		if err != nil {
			return "", nil, err
		}
		label := level
		if level == current {
			label = level + " ✅"
		}
		row = append(row, models.InlineKeyboardButton{Text: label, CallbackData: data})
		if len(row) == 2 {
			rows = append(rows, row)
			row = []models.InlineKeyboardButton{}
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	text := "Choose your German level:"
	if current != "" {
		text = fmt.Sprintf("Choose your German level:\nCurrent level: %s", current)
	}
	return text, &models.InlineKeyboardMarkup{InlineKeyboard: rows}, nil
}

func RenderProfile(name, level string, correct, wrong int) string {
	return fmt.Sprintf(
		"Profile\n- Name: %s\n- Level: %s\n- Correct at this level: %d\n- Wrong at this level: %d",
		name,
		level,
		correct,
		wrong,
	)
}

func RenderSettings(current settings.AppSettings) string {
	return fmt.Sprintf("Settings\n- API key: %s\n- Model: %s", maskKey(current.APIKey), current.ModelName)
}

func maskKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return "not set"
	}
	if len(key) <= 4 {
		return "set"
	}
	return "…" + key[len(key)-4:]
}

func nextKeyboard(nextData string) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: "Next question", CallbackData: nextData}},
		},
	}
}

func emptyKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{},
	}
}
