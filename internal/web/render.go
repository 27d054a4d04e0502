package web

import (
	"embed"
	"fmt"
	"html/template"
	"strconv"

	"github.com/microcosm-cc/bluemonday"

	"github.com/gokatarajesh/trivia-quiz/internal/quiz"
	"github.com/gokatarajesh/trivia-quiz/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

func parsePages() *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/*.html"))
}

// newPolicy allows the inline formatting the question service uses and
// nothing else. Entities survive; scripts, handlers and links do not.
func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("b", "i", "em", "strong", "u", "sub", "sup", "br", "code")
	return p
}

type option struct {
	Value    string
	Label    string
	Selected bool
}

type choice struct {
	ID      string
	Value   string
	Label   template.HTML
	Checked bool
}

type resultPage struct {
	Correct       bool
	CorrectAnswer template.HTML
}

type quizPage struct {
	Phase      string
	Name       string
	Question   template.HTML
	Choices    []choice
	Result     *resultPage
	WrongCount int
	MaxWrong   int
	Error      string
	Validation string
}

type pageData struct {
	Stage        string
	TokenError   string
	Form         session.Form
	FormError    string
	Categories   []option
	Difficulties []option
	Quiz         *quizPage
	AutoRefresh  bool
}

// trusted sanitizes text from the question service and marks the result as
// safe for the template.
func (h *Handlers) trusted(s string) template.HTML {
	return template.HTML(h.policy.Sanitize(s))
}

func (h *Handlers) buildPage(v session.View) pageData {
	data := pageData{
		Stage:       string(v.Stage),
		TokenError:  v.TokenError,
		Form:        v.Form,
		FormError:   v.FormError,
		AutoRefresh: v.Stage == session.StageTokenPending,
	}

	for _, c := range quiz.Categories {
		value := strconv.Itoa(c.ID)
		data.Categories = append(data.Categories, option{Value: value, Label: c.Name, Selected: value == v.Form.Category})
	}
	for _, d := range quiz.Difficulties {
		data.Difficulties = append(data.Difficulties, option{Value: string(d), Label: string(d), Selected: string(d) == v.Form.Difficulty})
	}

	if v.Quiz == nil {
		return data
	}
	q := v.Quiz
	page := &quizPage{
		Phase:      string(q.Phase),
		Name:       q.Name,
		Question:   h.trusted(q.Question),
		WrongCount: q.WrongCount,
		MaxWrong:   q.MaxWrong,
		Error:      q.Error,
		Validation: q.Validation,
	}
	for i, answer := range q.Choices {
		page.Choices = append(page.Choices, choice{
			ID:      fmt.Sprintf("answer-%d", i),
			Value:   answer,
			Label:   h.trusted(answer),
			Checked: answer == q.Selected,
		})
	}
	if q.Result != nil {
		page.Result = &resultPage{
			Correct:       q.Result.Correct,
			CorrectAnswer: h.trusted(q.Result.CorrectAnswer),
		}
	}
	data.Quiz = page
	data.AutoRefresh = q.Phase == quiz.PhaseLoading
	return data
}
