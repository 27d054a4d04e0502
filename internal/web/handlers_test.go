package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
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
	httperrors "github.com/gokatarajesh/trivia-quiz/pkg/http/errors"
	ws "github.com/gokatarajesh/trivia-quiz/pkg/http/ws"
)

type stubTokens struct {
	block chan struct{}
}

func (s *stubTokens) RequestToken(ctx context.Context) (string, error) {
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "abc", nil
}

type stubQuestions struct {
	mu       sync.Mutex
	question opentdb.RawQuestion
}

func (s *stubQuestions) FetchQuestion(context.Context, opentdb.Query) (opentdb.RawQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.question, nil
}

var plainQuestion = opentdb.RawQuestion{
	Question:         "2+2?",
	CorrectAnswer:    "4",
	IncorrectAnswers: []string{"3", "5", "22"},
}

type testEnv struct {
	server   *httptest.Server
	client   *http.Client
	sessions *session.Manager
}

func newTestEnv(t *testing.T, tokens *stubTokens, question opentdb.RawQuestion) *testEnv {
	t.Helper()

	sessions := session.NewManager(context.Background(), session.Deps{
		Tokens:    tokens,
		Questions: &stubQuestions{question: question},
		Engine:    quiz.Options{Throttle: throttle.New(0, nil, nil)},
	}, session.ManagerOptions{}, zerolog.Nop())
	t.Cleanup(sessions.CloseAll)

	signer := session.NewCookieSigner([]byte("test-secret"), time.Hour, "trivia-quiz")
	hub := ws.NewHub(zerolog.Nop())
	t.Cleanup(hub.CloseAll)

	handlers := NewHandlers(sessions, signer, hub, Options{}, zerolog.Nop())
	mux := http.NewServeMux()
	handlers.Register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testEnv{
		server:   srv,
		client:   &http.Client{Jar: jar, Timeout: 5 * time.Second},
		sessions: sessions,
	}
}

func (e *testEnv) getSession(t *testing.T) sessionResponse {
	t.Helper()
	resp, err := e.client.Get(e.server.URL + "/v1/session")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body sessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func (e *testEnv) waitForStage(t *testing.T, stage session.Stage) sessionResponse {
	t.Helper()
	var body sessionResponse
	require.Eventually(t, func() bool {
		body = e.getSession(t)
		return body.Session.Stage == stage
	}, 2*time.Second, 10*time.Millisecond)
	return body
}

func (e *testEnv) waitForPhase(t *testing.T, phase quiz.Phase) sessionResponse {
	t.Helper()
	var body sessionResponse
	require.Eventually(t, func() bool {
		body = e.getSession(t)
		return body.Session.Quiz != nil && body.Session.Quiz.Phase == phase
	}, 2*time.Second, 10*time.Millisecond)
	return body
}

func (e *testEnv) post(t *testing.T, action, body string) *http.Response {
	t.Helper()
	resp, err := e.client.Post(e.server.URL+"/v1/session/"+action, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeError(t *testing.T, resp *http.Response) httperrors.ErrorResponse {
	t.Helper()
	var body httperrors.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func (e *testEnv) page(t *testing.T) string {
	t.Helper()
	resp, err := e.client.Get(e.server.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func TestSessionAPIFlow(t *testing.T) {
	env := newTestEnv(t, &stubTokens{}, plainQuestion)

	intake := env.waitForStage(t, session.StageIntake)
	assert.NotEmpty(t, intake.SessionID)
	assert.Len(t, intake.Categories, 4)
	assert.Equal(t, quiz.Difficulties, intake.Difficulties)

	resp := env.post(t, ActionStart, `{}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	errBody := decodeError(t, resp)
	assert.Equal(t, httperrors.ErrCodeValidationFailed, errBody.Error)
	assert.Equal(t, quiz.MsgAllFieldsRequired, errBody.Message)

	resp = env.post(t, ActionStart, `{"first_name":"Ada","category":"9","difficulty":"easy"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	answering := env.waitForPhase(t, quiz.PhaseAnswering)
	assert.Equal(t, intake.SessionID, answering.SessionID)
	assert.Equal(t, []string{"22", "3", "4", "5"}, answering.Session.Quiz.Choices)

	resp = env.post(t, ActionSubmit, ``)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	errBody = decodeError(t, resp)
	assert.Equal(t, quiz.MsgSelectAnswer, errBody.Message)
	assert.Equal(t, "answer", errBody.Field)

	resp = env.post(t, ActionSubmit, `{"answer":"4"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body sessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotNil(t, body.Session.Quiz)
	assert.Equal(t, quiz.PhaseShowingResult, body.Session.Quiz.Phase)
	require.NotNil(t, body.Session.Quiz.Result)
	assert.True(t, body.Session.Quiz.Result.Correct)

	resp = env.post(t, ActionPlayAgain, ``)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, httperrors.ErrCodeInvalidPhase, decodeError(t, resp).Error)

	resp = env.post(t, ActionStart, `{"first_name":"Bob","category":"9","difficulty":"easy"}`)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, httperrors.ErrCodeAlreadyStarted, decodeError(t, resp).Error)

	resp = env.post(t, ActionNext, ``)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	env.waitForPhase(t, quiz.PhaseAnswering)
}

func TestSessionAPIErrors(t *testing.T) {
	env := newTestEnv(t, &stubTokens{}, plainQuestion)

	resp := env.post(t, ActionNext, ``)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, httperrors.ErrCodeSessionNotFound, decodeError(t, resp).Error)

	env.waitForStage(t, session.StageIntake)

	resp = env.post(t, "dance", ``)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, httperrors.ErrCodeUnknownAction, decodeError(t, resp).Error)

	resp = env.post(t, ActionNext, ``)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, httperrors.ErrCodeNotStarted, decodeError(t, resp).Error)

	resp = env.post(t, ActionRetryToken, ``)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, httperrors.ErrCodeTokenUnavailable, decodeError(t, resp).Error)

	resp = env.post(t, ActionStart, `{"first_name":`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, httperrors.ErrCodeInvalidRequest, decodeError(t, resp).Error)
}

func TestDeleteSessionStartsOver(t *testing.T) {
	env := newTestEnv(t, &stubTokens{}, plainQuestion)
	first := env.waitForStage(t, session.StageIntake)

	req, err := http.NewRequest(http.MethodDelete, env.server.URL+"/v1/session", nil)
	require.NoError(t, err)
	resp, err := env.client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 0, env.sessions.Len())

	second := env.getSession(t)
	assert.NotEqual(t, first.SessionID, second.SessionID)
}

func TestPageShowsTokenLoading(t *testing.T) {
	tokens := &stubTokens{block: make(chan struct{})}
	env := newTestEnv(t, tokens, plainQuestion)

	body := env.page(t)
	assert.Contains(t, body, "Loading API token...")
	assert.Contains(t, body, `http-equiv="refresh"`)

	close(tokens.block)
	require.Eventually(t, func() bool {
		return strings.Contains(env.page(t), "Welcome to the Trivia Quiz!")
	}, 2*time.Second, 10*time.Millisecond)

	body = env.page(t)
	assert.Contains(t, body, "General Knowledge")
	assert.Contains(t, body, "Science &amp; Nature")
	assert.Contains(t, body, `<option value="hard">hard</option>`)
}

func TestPageActionsRedirect(t *testing.T) {
	env := newTestEnv(t, &stubTokens{}, opentdb.RawQuestion{
		Question:         `<script>alert(1)</script><b>Bold</b> &amp; co?`,
		CorrectAnswer:    `<i>yes</i>`,
		IncorrectAnswers: []string{"no", "maybe", "never"},
	})
	require.Eventually(t, func() bool {
		return strings.Contains(env.page(t), "Welcome to the Trivia Quiz!")
	}, 2*time.Second, 10*time.Millisecond)

	noRedirect := &http.Client{
		Jar:     env.client.Jar,
		Timeout: 5 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := noRedirect.PostForm(env.server.URL+"/actions/start", url.Values{
		"first_name": {"Ada"},
		"category":   {""},
		"difficulty": {"easy"},
	})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	assert.Contains(t, env.page(t), quiz.MsgAllFieldsRequired)

	resp, err = noRedirect.PostForm(env.server.URL+"/actions/start", url.Values{
		"first_name": {"Ada"},
		"category":   {"23"},
		"difficulty": {"easy"},
	})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	var body string
	require.Eventually(t, func() bool {
		body = env.page(t)
		return strings.Contains(body, "Bold")
	}, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, body, "<b>Bold</b> &amp; co?")
	assert.Contains(t, body, "<i>yes</i>")
	assert.NotContains(t, body, "<script>")

	resp, err = noRedirect.PostForm(env.server.URL+"/actions/submit", url.Values{"answer": {"no"}})
	require.NoError(t, err)
	resp.Body.Close()

	body = env.page(t)
	assert.Contains(t, body, "Ada, you got it wrong.")
	assert.Contains(t, body, "Correct answer: <span><i>yes</i></span>")
	assert.Contains(t, body, "Wrong answers: 1/3")
}

func TestPageActionUnknown(t *testing.T) {
	env := newTestEnv(t, &stubTokens{}, plainQuestion)
	env.waitForStage(t, session.StageIntake)

	resp, err := env.client.PostForm(env.server.URL+"/actions/dance", url.Values{})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
