package practice

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/smith3v/sprachninja/pkg/db"
	"github.com/smith3v/sprachninja/pkg/logger"
	"github.com/smith3v/sprachninja/pkg/observe"
)

const (
	CorrectFeedback       = "Correct!"
	CheckingFeedback      = "Checking..."
	CheckFailedFeedback   = "Error checking answer. Please try again."
	ProfileMissingMessage = "User profile not found."
)

type ProfileSource interface {
	Current(ctx context.Context) (*db.UserProfile, error)
}

type History interface {
	RecentTexts(ctx context.Context, level string) ([]string, error)
	Record(ctx context.Context, questionText, level string) error
}

type StatsRecorder interface {
	IncrementCorrect(ctx context.Context, level string) error
	IncrementWrong(ctx context.Context, level string) error
}

type TopicSource interface {
	TopicsFor(level string) []string
}

type Generator interface {
	GenerateQuestion(ctx context.Context, level, topic string, qtype QuestionType, recent []string) (*PracticeQuestion, error)
	ValidateTranslation(ctx context.Context, original, expected, answer string) (*TranslationValidationResult, error)
}

type Deps struct {
	Profiles  ProfileSource
	History   History
	Stats     StatsRecorder
	Topics    TopicSource
	Generator Generator
	// Pick returns a uniform index in [0, n). Defaults to math/rand/v2.
	Pick func(n int) int
}

// Session drives one practice surface: it loads questions of a single type
// and validates answers against the current question. A newer
// LoadNextQuestion overwrites whatever an older one is still computing.
type Session struct {
	qtype QuestionType
	deps  Deps

	mu         sync.Mutex
	state      QuestionState
	validation ValidationState
	feedback   string
	subject    *observe.Subject[View]
}

func NewSession(qtype QuestionType, deps Deps) (*Session, error) {
	if !qtype.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedQuestionType, qtype)
	}
	if deps.Pick == nil {
		deps.Pick = rand.IntN
	}
	s := &Session{
		qtype:      qtype,
		deps:       deps,
		state:      Loading{},
		validation: Unchecked,
	}
	s.subject = observe.NewSubjectWith(s.viewLocked())
	return s, nil
}

// RestoreSession rebuilds a session of type qtype around a question loaded
// earlier. The question's own type only decides how answers are checked.
func RestoreSession(qtype QuestionType, deps Deps, question PracticeQuestion, validation ValidationState, feedback string) (*Session, error) {
	s, err := NewSession(qtype, deps)
	if err != nil {
		return nil, err
	}
	s.state = Ready{Question: question}
	s.validation = validation
	s.feedback = feedback
	s.subject.Publish(s.viewLocked())
	return s, nil
}

func (s *Session) Type() QuestionType {
	return s.qtype
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Observe streams every view change, starting with the current view.
func (s *Session) Observe() *observe.Subscription[View] {
	return s.subject.Subscribe()
}

// LoadNextQuestion clears the previous answer and generates a new question.
// Failures end in a Failed state; nothing is retried.
func (s *Session) LoadNextQuestion(ctx context.Context) View {
	s.update(func() {
		s.state = Loading{}
		s.validation = Unchecked
		s.feedback = ""
	})

	state := s.generate(ctx)

	var view View
	s.update(func() {
		s.state = state.state
		view = s.viewLocked()
	})

	if ready, ok := state.state.(Ready); ok {
		if err := s.deps.History.Record(ctx, ready.Question.QuestionText, state.level); err != nil {
			logger.Error("failed to record recent question", "level", state.level, "error", err)
		}
	}
	return view
}

type generated struct {
	state QuestionState
	level string
}

func (s *Session) generate(ctx context.Context) generated {
	profile, err := s.deps.Profiles.Current(ctx)
	if err != nil {
		logger.Error("failed to load user profile", "error", err)
		return generated{state: Failed{Message: err.Error()}}
	}
	if profile == nil {
		return generated{state: Failed{Message: ProfileMissingMessage}}
	}
	level := profile.ProficiencyLevel

	recent, err := s.deps.History.RecentTexts(ctx, level)
	if err != nil {
		logger.Error("failed to load recent questions", "level", level, "error", err)
		return generated{state: Failed{Message: err.Error()}, level: level}
	}

	topics := s.deps.Topics.TopicsFor(level)
	if len(topics) == 0 {
		return generated{state: Failed{Message: fmt.Sprintf("Could not find topics for level %s.", level)}, level: level}
	}
	topic := topics[s.deps.Pick(len(topics))]

	question, err := s.deps.Generator.GenerateQuestion(ctx, level, topic, s.qtype, recent)
	if err != nil {
		return generated{state: Failed{Message: err.Error()}, level: level}
	}
	logger.Debug("question generated", "level", level, "topic", topic, "type", s.qtype)
	return generated{state: Ready{Question: *question}, level: level}
}

// CheckAnswer validates answer against the current question. Blank answers,
// missing questions and already validated questions are ignored.
func (s *Session) CheckAnswer(ctx context.Context, answer string) View {
	answer = strings.TrimSpace(answer)

	s.mu.Lock()
	ready, ok := s.state.(Ready)
	if !ok || answer == "" || s.validation != Unchecked {
		view := s.viewLocked()
		s.mu.Unlock()
		return view
	}
	question := ready.Question

	// Every type but translation, including unknown ones, is an exact match.
	if question.QuestionType != TranslateENDE {
		correct := strings.EqualFold(answer, question.CorrectAnswer)
		s.validation = verdict(correct)
		if correct {
			s.feedback = CorrectFeedback
		} else {
			s.feedback = "Correct answer: " + question.CorrectAnswer
		}
		view := s.viewLocked()
		s.subject.Publish(view)
		s.mu.Unlock()

		s.recordResult(ctx, correct)
		return view
	}

	s.feedback = CheckingFeedback
	s.subject.Publish(s.viewLocked())
	s.mu.Unlock()

	result, err := s.deps.Generator.ValidateTranslation(ctx, question.QuestionText, question.CorrectAnswer, answer)

	var view View
	if err != nil {
		logger.Error("translation validation failed", "error", err)
		s.update(func() {
			s.validation = Incorrect
			s.feedback = CheckFailedFeedback
			view = s.viewLocked()
		})
		return view
	}

	s.update(func() {
		s.validation = verdict(result.IsCorrect)
		s.feedback = result.Feedback
		view = s.viewLocked()
	})
	s.recordResult(ctx, result.IsCorrect)
	return view
}

// recordResult counts the answer against the level the learner has now,
// which may differ from the level the question was generated for.
func (s *Session) recordResult(ctx context.Context, correct bool) {
	profile, err := s.deps.Profiles.Current(ctx)
	if err != nil {
		logger.Error("failed to load user profile for stats", "error", err)
		return
	}
	if profile == nil {
		return
	}
	if correct {
		err = s.deps.Stats.IncrementCorrect(ctx, profile.ProficiencyLevel)
	} else {
		err = s.deps.Stats.IncrementWrong(ctx, profile.ProficiencyLevel)
	}
	if err != nil {
		logger.Error("failed to update level stats", "level", profile.ProficiencyLevel, "error", err)
	}
}

func (s *Session) update(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
	s.subject.Publish(s.viewLocked())
}

func (s *Session) viewLocked() View {
	return View{
		Type:       s.qtype,
		State:      s.state,
		Validation: s.validation,
		Feedback:   s.feedback,
	}
}

func verdict(correct bool) ValidationState {
	if correct {
		return Correct
	}
	return Incorrect
}
