// Package practice generates German practice questions through Gemini and
// checks the learner's answers.
package practice

import (
	"errors"
	"fmt"
	"strings"
)

type QuestionType string

const (
	MultipleChoiceWord QuestionType = "MULTIPLE_CHOICE_WORD"
	FillInTheBlank     QuestionType = "FILL_IN_THE_BLANK"
	TranslateENDE      QuestionType = "TRANSLATE_EN_DE"
)

// MultipleChoiceOptions is the number of options of a multiple-choice question.
const MultipleChoiceOptions = 3

var ErrUnsupportedQuestionType = errors.New("unsupported question type")

// QuestionTypes lists the supported types in menu order.
func QuestionTypes() []QuestionType {
	return []QuestionType{MultipleChoiceWord, FillInTheBlank, TranslateENDE}
}

func (t QuestionType) Valid() bool {
	switch t {
	case MultipleChoiceWord, FillInTheBlank, TranslateENDE:
		return true
	}
	return false
}

// Label is the short name shown to learners.
func (t QuestionType) Label() string {
	switch t {
	case MultipleChoiceWord:
		return "Vocabulary"
	case FillInTheBlank:
		return "Grammar"
	case TranslateENDE:
		return "Translate"
	default:
		return string(t)
	}
}

func ParseQuestionType(value string) (QuestionType, error) {
	t := QuestionType(strings.ToUpper(strings.TrimSpace(value)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedQuestionType, value)
	}
	return t, nil
}

type PracticeQuestion struct {
	QuestionText  string       `json:"questionText"`
	CorrectAnswer string       `json:"correctAnswer"`
	QuestionType  QuestionType `json:"questionType"`
	Options       []string     `json:"options,omitempty"`
}

type TranslationValidationResult struct {
	IsCorrect bool   `json:"isCorrect"`
	Feedback  string `json:"feedback"`
}
