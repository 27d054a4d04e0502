package quiz

import (
	"strings"

	"github.com/gokatarajesh/trivia-quiz/internal/opentdb"
)

// Difficulty as accepted by the question endpoint.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Difficulties lists the intake choices in display order.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// ParseDifficulty accepts exactly one of the known values.
func ParseDifficulty(s string) (Difficulty, bool) {
	for _, d := range Difficulties {
		if string(d) == s {
			return d, true
		}
	}
	return "", false
}

// Category is an Open Trivia DB category offered on the intake form.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Categories lists the intake choices in display order.
var Categories = []Category{
	{ID: 9, Name: "General Knowledge"},
	{ID: 17, Name: "Science & Nature"},
	{ID: 23, Name: "History"},
	{ID: 21, Name: "Sports"},
}

func LookupCategory(id int) (Category, bool) {
	for _, c := range Categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// Selection is what the player chose on the intake form. It does not change
// for the lifetime of a session.
type Selection struct {
	Name       string     `json:"name"`
	CategoryID int        `json:"category_id"`
	Difficulty Difficulty `json:"difficulty"`
}

// Validate checks every field is present and known.
func (s Selection) Validate() error {
	if strings.TrimSpace(s.Name) == "" || s.CategoryID == 0 || s.Difficulty == "" {
		return &ValidationError{Message: MsgAllFieldsRequired}
	}
	if _, ok := LookupCategory(s.CategoryID); !ok {
		return &ValidationError{Field: "category", Message: "unknown category"}
	}
	if _, ok := ParseDifficulty(string(s.Difficulty)); !ok {
		return &ValidationError{Field: "difficulty", Message: "unknown difficulty"}
	}
	return nil
}

// SessionContext is everything the engine needs from the session controller.
type SessionContext struct {
	Selection Selection
	Token     string
}

// Question is one fetched multiple-choice question. Text fields may carry
// HTML entities and light formatting markup from the remote service.
type Question struct {
	Text             string
	CorrectAnswer    string
	IncorrectAnswers []string
	Category         string
	Difficulty       string
}

func questionFromRaw(raw opentdb.RawQuestion) Question {
	incorrect := make([]string, len(raw.IncorrectAnswers))
	copy(incorrect, raw.IncorrectAnswers)
	return Question{
		Text:             raw.Question,
		CorrectAnswer:    raw.CorrectAnswer,
		IncorrectAnswers: incorrect,
		Category:         raw.Category,
		Difficulty:       raw.Difficulty,
	}
}

// Choices returns the displayed answers in order.
func (q Question) Choices() []string {
	return OrderAnswers(q.CorrectAnswer, q.IncorrectAnswers)
}

// Phase of the quiz state machine.
type Phase string

const (
	PhaseLoading       Phase = "loading"
	PhaseAnswering     Phase = "answering"
	PhaseShowingResult Phase = "showing_result"
	PhaseGameOver      Phase = "game_over"
	PhaseError         Phase = "error"
)

// Result describes the last submitted answer.
type Result struct {
	Selected      string `json:"selected"`
	Correct       bool   `json:"correct"`
	CorrectAnswer string `json:"correct_answer"`
}

// View is a snapshot of the engine for rendering.
type View struct {
	Phase      Phase    `json:"phase"`
	Name       string   `json:"name"`
	Question   string   `json:"question,omitempty"`
	Choices    []string `json:"choices,omitempty"`
	Selected   string   `json:"selected,omitempty"`
	Result     *Result  `json:"result,omitempty"`
	WrongCount int      `json:"wrong_count"`
	MaxWrong   int      `json:"max_wrong"`
	Error      string   `json:"error,omitempty"`
	Validation string   `json:"validation,omitempty"`
	Round      uint64   `json:"round"`
}
