package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/trivia-quiz/internal/opentdb"
	"github.com/gokatarajesh/trivia-quiz/internal/quiz"
	"github.com/gokatarajesh/trivia-quiz/internal/session"
	"github.com/gokatarajesh/trivia-quiz/internal/throttle"
)

type stubTokens struct {
	mu   sync.Mutex
	errs []error
}

func (s *stubTokens) RequestToken(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return "", err
	}
	return "abc", nil
}

type stubQuestions struct {
	mu      sync.Mutex
	queries []opentdb.Query
}

func (s *stubQuestions) FetchQuestion(_ context.Context, q opentdb.Query) (opentdb.RawQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
	return opentdb.RawQuestion{
		Question:         "What is 2 &amp; 2?",
		CorrectAnswer:    "4",
		IncorrectAnswers: []string{"3", "5", "22"},
	}, nil
}

func newController(t *testing.T, tokens *stubTokens, questions *stubQuestions) *session.Controller {
	t.Helper()
	ctrl := session.NewController(context.Background(), session.Deps{
		Tokens:    tokens,
		Questions: questions,
		Engine:    quiz.Options{Throttle: throttle.New(0, nil, nil)},
	}, zerolog.Nop())
	t.Cleanup(ctrl.Close)
	return ctrl
}

func runScript(t *testing.T, ctrl *session.Controller, script ...string) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out bytes.Buffer
	in := strings.NewReader(strings.Join(script, "\n") + "\n")
	require.NoError(t, Run(ctx, ctrl, in, &out))
	return out.String()
}

func TestRunFullRound(t *testing.T) {
	questions := &stubQuestions{}
	ctrl := newController(t, &stubTokens{}, questions)

	out := runScript(t, ctrl,
		"Ada", "1", "1",
		"C", "",
		"A", "",
		"A", "",
		"A",
		"n",
	)

	assert.Contains(t, out, "What is 2 & 2?")
	assert.Contains(t, out, "A. 22\nB. 3\nC. 4\nD. 5")
	assert.Contains(t, out, "Ada, you got it right!")
	assert.Contains(t, out, "Ada, you got it wrong.")
	assert.Contains(t, out, "Correct answer: 4")
	assert.Contains(t, out, "Wrong answers: 2/3")
	assert.Contains(t, out, "Ada, game over! You got 3 wrong answers.")
	assert.Contains(t, out, "Bye!")

	questions.mu.Lock()
	defer questions.mu.Unlock()
	require.Len(t, questions.queries, 4)
	assert.Equal(t, opentdb.Query{Category: 9, Difficulty: "easy", Token: "abc"}, questions.queries[0])
}

func TestRunValidationMessages(t *testing.T) {
	ctrl := newController(t, &stubTokens{}, &stubQuestions{})

	out := runScript(t, ctrl,
		"Ada", "", "hard",
		"Ada", "17", "hard",
		"",
		"q",
	)

	assert.Contains(t, out, quiz.MsgAllFieldsRequired)
	assert.Contains(t, out, quiz.MsgSelectAnswer)
	assert.Contains(t, out, "Bye!")
	assert.Equal(t, quiz.PhaseAnswering, ctrl.View().Quiz.Phase)
}

func TestRunRetriesToken(t *testing.T) {
	ctrl := newController(t, &stubTokens{errs: []error{errors.New("boom")}}, &stubQuestions{})

	out := runScript(t, ctrl, "y", "q")

	assert.Contains(t, out, "Could not get an API token: boom")
	assert.Contains(t, out, "First Name: ")
	assert.Equal(t, session.StageIntake, ctrl.View().Stage)
}

func TestRunEndOfInput(t *testing.T) {
	ctrl := newController(t, &stubTokens{}, &stubQuestions{})

	var out bytes.Buffer
	require.NoError(t, Run(context.Background(), ctrl, strings.NewReader(""), &out))
	assert.Contains(t, out.String(), "Bye!")
}

func TestMenuValues(t *testing.T) {
	assert.Equal(t, "9", categoryValue("1"))
	assert.Equal(t, "21", categoryValue("4"))
	assert.Equal(t, "23", categoryValue("23"))
	assert.Equal(t, "", categoryValue("99"))
	assert.Equal(t, "", categoryValue("science"))

	assert.Equal(t, "easy", difficultyValue("1"))
	assert.Equal(t, "hard", difficultyValue("HARD"))
	assert.Equal(t, "", difficultyValue("7"))
	assert.Equal(t, "", difficultyValue("extreme"))
}
