package practice

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var ErrDecode = errors.New("model output does not match the expected shape")

const questionSchema = `{
  "type": "object",
  "properties": {
    "questionText": {"type": "string", "minLength": 1},
    "correctAnswer": {"type": "string", "minLength": 1},
    "questionType": {"type": "string", "minLength": 1},
    "options": {
      "type": ["array", "null"],
      "items": {"type": "string"}
    }
  },
  "required": ["questionText", "correctAnswer", "questionType"]
}`

const validationSchema = `{
  "type": "object",
  "properties": {
    "isCorrect": {"type": "boolean"},
    "feedback": {"type": "string"}
  },
  "required": ["isCorrect", "feedback"]
}`

var (
	questionSchemaLoader   = gojsonschema.NewStringLoader(questionSchema)
	validationSchemaLoader = gojsonschema.NewStringLoader(validationSchema)
)

// ExtractJSON cuts raw down to the span from its first '{' to its last '}'.
// Text without such a span is returned unchanged.
func ExtractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end <= start {
		return raw
	}
	return raw[start : end+1]
}

// DecodeQuestion parses cleaned model output into a question. Multiple-choice
// questions must offer exactly three options, one equal to the answer. Other
// types keep whatever options they carry, and an unknown questionType is kept
// as is.
func DecodeQuestion(cleaned string) (*PracticeQuestion, error) {
	if err := validateAgainst(questionSchemaLoader, cleaned); err != nil {
		return nil, err
	}
	var q PracticeQuestion
	if err := json.Unmarshal([]byte(cleaned), &q); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if q.QuestionType == MultipleChoiceWord {
		if len(q.Options) != MultipleChoiceOptions {
			return nil, fmt.Errorf("%w: multiple choice needs %d options, got %d", ErrDecode, MultipleChoiceOptions, len(q.Options))
		}
		if !containsFold(q.Options, q.CorrectAnswer) {
			return nil, fmt.Errorf("%w: options do not contain the correct answer", ErrDecode)
		}
	}
	return &q, nil
}

func DecodeValidation(cleaned string) (*TranslationValidationResult, error) {
	if err := validateAgainst(validationSchemaLoader, cleaned); err != nil {
		return nil, err
	}
	var result TranslationValidationResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return &result, nil
}

func validateAgainst(schema gojsonschema.JSONLoader, document string) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewStringLoader(document))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if result.Valid() {
		return nil
	}
	messages := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		messages = append(messages, e.String())
	}
	return fmt.Errorf("%w: %s", ErrDecode, strings.Join(messages, "; "))
}

func containsFold(values []string, target string) bool {
	target = strings.TrimSpace(target)
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), target) {
			return true
		}
	}
	return false
}
