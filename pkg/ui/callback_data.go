package ui

import (
	"errors"
	"strconv"
	"strings"

	"github.com/smith3v/sprachninja/pkg/practice"
)

const (
	PracticePrefix     = "p:"
	LevelPrefix        = "l:"
	MaxCallbackDataLen = 64
)

type Operation string

const (
	OpMode   Operation = "mode"
	OpAnswer Operation = "ans"
	OpNext   Operation = "next"
	OpRetry  Operation = "retry"
)

// Action is a decoded practice callback. Type is set for OpMode, Index for
// OpAnswer.
type Action struct {
	Op    Operation
	Type  practice.QuestionType
	Index int
}

var (
	errInvalidPrefix       = errors.New("invalid callback prefix")
	errInvalidAction       = errors.New("invalid callback action")
	errInvalidOperation    = errors.New("invalid callback operation")
	errInvalidValue        = errors.New("invalid callback value")
	errCallbackDataTooLong = errors.New("callback data too long")
)

func BuildModeCallback(qtype practice.QuestionType) (string, error) {
	if !qtype.Valid() {
		return "", errInvalidValue
	}
	return validateCallbackData(PracticePrefix + string(OpMode) + ":" + string(qtype))
}

func BuildAnswerCallback(index int) (string, error) {
	if index < 0 || index >= practice.MultipleChoiceOptions {
		return "", errInvalidValue
	}
	return validateCallbackData(PracticePrefix + string(OpAnswer) + ":" + strconv.Itoa(index))
}

func BuildNextCallback() (string, error) {
	return validateCallbackData(PracticePrefix + string(OpNext))
}

func BuildRetryCallback() (string, error) {
	return validateCallbackData(PracticePrefix + string(OpRetry))
}

func BuildLevelCallback(level string) (string, error) {
	level = strings.TrimSpace(level)
	if level == "" || strings.Contains(level, ":") {
		return "", errInvalidValue
	}
	return validateCallbackData(LevelPrefix + level)
}

func ParseCallbackData(data string) (Action, error) {
	if data == "" {
		return Action{}, errInvalidAction
	}
	if len(data) > MaxCallbackDataLen {
		return Action{}, errCallbackDataTooLong
	}
	if !strings.HasPrefix(data, PracticePrefix) {
		return Action{}, errInvalidPrefix
	}

	parts := strings.Split(data, ":")
	switch len(parts) {
	case 2:
		switch Operation(parts[1]) {
		case OpNext:
			return Action{Op: OpNext}, nil
		case OpRetry:
			return Action{Op: OpRetry}, nil
		default:
			return Action{}, errInvalidOperation
		}
	case 3:
		switch Operation(parts[1]) {
		case OpMode:
			qtype, err := practice.ParseQuestionType(parts[2])
			if err != nil || string(qtype) != parts[2] {
				return Action{}, errInvalidValue
			}
			return Action{Op: OpMode, Type: qtype}, nil
		case OpAnswer:
			if !isASCIIUnsignedInt(parts[2]) {
				return Action{}, errInvalidValue
			}
			index, err := strconv.Atoi(parts[2])
			if err != nil || index >= practice.MultipleChoiceOptions {
				return Action{}, errInvalidValue
			}
			return Action{Op: OpAnswer, Index: index}, nil
		default:
			return Action{}, errInvalidOperation
		}
	default:
		return Action{}, errInvalidAction
	}
}

// ParseLevelCallback returns the level encoded by BuildLevelCallback.
func ParseLevelCallback(data string) (string, error) {
	if len(data) > MaxCallbackDataLen {
		return "", errCallbackDataTooLong
	}
	if !strings.HasPrefix(data, LevelPrefix) {
		return "", errInvalidPrefix
	}
	level := strings.TrimPrefix(data, LevelPrefix)
	if level == "" || strings.Contains(level, ":") {
		return "", errInvalidValue
	}
	return level, nil
}

func validateCallbackData(data string) (string, error) {
	if data == "" {
		return "", errInvalidAction
	}
	if len(data) > MaxCallbackDataLen {
		return "", errCallbackDataTooLong
	}
	return data, nil
}

func isASCIIUnsignedInt(value string) bool {
	if value == "" {
		return false
	}
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return false
		}
	}
	return true
}
