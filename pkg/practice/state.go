package practice

// QuestionState is one of Loading, Ready or Failed.
type QuestionState interface {
	isQuestionState()
}

type Loading struct{}

type Ready struct {
	Question PracticeQuestion
}

type Failed struct {
	Message string
}

func (Loading) isQuestionState() {}
func (Ready) isQuestionState()   {}
func (Failed) isQuestionState()  {}

type ValidationState string

const (
	Unchecked ValidationState = "UNCHECKED"
	Correct   ValidationState = "CORRECT"
	Incorrect ValidationState = "INCORRECT"
)

func ParseValidationState(value string) ValidationState {
	switch ValidationState(value) {
	case Correct:
		return Correct
	case Incorrect:
		return Incorrect
	default:
		return Unchecked
	}
}

// View is everything a surface needs to render a practice session.
type View struct {
	Type       QuestionType
	State      QuestionState
	Validation ValidationState
	Feedback   string
}

// Question returns the question of a Ready view.
func (v View) Question() (PracticeQuestion, bool) {
	ready, ok := v.State.(Ready)
	if !ok {
		return PracticeQuestion{}, false
	}
	return ready.Question, true
}

// CanCheck reports whether an answer may be submitted.
func (v View) CanCheck() bool {
	_, ok := v.State.(Ready)
	return ok && v.Validation == Unchecked
}
