package practice

import (
	"context"
	"errors"

	"github.com/smith3v/sprachninja/pkg/gemini"
	"github.com/smith3v/sprachninja/pkg/logger"
	"github.com/smith3v/sprachninja/pkg/settings"
)

var ErrMissingAPIKey = errors.New("Gemini API key is not set. Please set it in the settings.")

const (
	questionDecodeMessage   = "Failed to parse the question from the API response."
	validationDecodeMessage = "Failed to parse the validation from the API response."
)

var errNoValidation = errors.New("The API did not return any validation content.")

// reportedError shows message to the learner while keeping cause reachable
// through errors.Is.
type reportedError struct {
	message string
	cause   error
}

func (e *reportedError) Error() string { return e.message }

func (e *reportedError) Unwrap() error { return e.cause }

// TextGenerator sends one prompt to a model and returns the raw response.
type TextGenerator interface {
	GenerateContent(ctx context.Context, model, apiKey string, req gemini.GenerateContentRequest) (*gemini.GenerateContentResponse, error)
}

// SettingsSource supplies the credentials for each call.
type SettingsSource interface {
	Settings() settings.AppSettings
}

// GeminiGenerator produces questions and translation verdicts through
// Gemini. Credentials are read on every call so settings changes apply
// immediately.
type GeminiGenerator struct {
	client   TextGenerator
	settings SettingsSource
}

func NewGeminiGenerator(client TextGenerator, source SettingsSource) *GeminiGenerator {
	return &GeminiGenerator{client: client, settings: source}
}

func (g *GeminiGenerator) GenerateQuestion(ctx context.Context, level, topic string, qtype QuestionType, recent []string) (*PracticeQuestion, error) {
	creds := g.settings.Settings()
	if !creds.HasAPIKey() {
		return nil, ErrMissingAPIKey
	}

	prompt, err := BuildPrompt(level, topic, qtype, recent)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.GenerateContent(ctx, creds.ModelName, creds.APIKey, gemini.TextRequest(prompt))
	if err != nil {
		logger.Error("question generation request failed", "model", creds.ModelName, "type", qtype, "error", err)
		return nil, err
	}
	raw, ok := resp.FirstText()
	if !ok {
		err := gemini.NoCandidate(resp)
		logger.Error("question generation returned no content", "model", creds.ModelName, "error", err)
		return nil, err
	}

	cleaned := ExtractJSON(raw)
	question, err := DecodeQuestion(cleaned)
	if err != nil {
		logger.Error("failed to decode generated question", "error", err, "cleaned", cleaned)
		return nil, &reportedError{message: questionDecodeMessage, cause: err}
	}
	return question, nil
}

func (g *GeminiGenerator) ValidateTranslation(ctx context.Context, original, expected, answer string) (*TranslationValidationResult, error) {
	creds := g.settings.Settings()
	if !creds.HasAPIKey() {
		return nil, ErrMissingAPIKey
	}

	prompt := BuildValidationPrompt(original, expected, answer)
	resp, err := g.client.GenerateContent(ctx, creds.ModelName, creds.APIKey, gemini.TextRequest(prompt))
	if err != nil {
		logger.Error("translation validation request failed", "model", creds.ModelName, "error", err)
		return nil, err
	}
	raw, ok := resp.FirstText()
	if !ok {
		return nil, errNoValidation
	}

	cleaned := ExtractJSON(raw)
	result, err := DecodeValidation(cleaned)
	if err != nil {
		logger.Error("failed to decode translation verdict", "error", err, "cleaned", cleaned)
		return nil, &reportedError{message: validationDecodeMessage, cause: err}
	}
	return result, nil
}
