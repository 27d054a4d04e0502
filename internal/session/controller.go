package session

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/trivia-quiz/internal/quiz"
)

// Stage is the top-level screen of a session.
type Stage string

const (
	StageTokenPending Stage = "token_pending"
	StageTokenFailed  Stage = "token_failed"
	StageIntake       Stage = "intake"
	StageQuiz         Stage = "quiz"
)

var (
	ErrAlreadyStarted    = errors.New("quiz already started")
	ErrNotStarted        = errors.New("quiz not started")
	ErrTokenUnavailable  = errors.New("access token not available yet")
	ErrTokenNotRetryable = errors.New("token retry only allowed after a failure")
)

// TokenSource issues the per-session access token.
type TokenSource interface {
	RequestToken(ctx context.Context) (string, error)
}

// Deps are shared by every controller.
type Deps struct {
	Tokens    TokenSource
	Questions quiz.Source
	Engine    quiz.Options
}

// Form is the raw intake form.
type Form struct {
	FirstName  string `json:"first_name"`
	Category   string `json:"category"`
	Difficulty string `json:"difficulty"`
}

// Selection validates the form. Any empty field yields the single
// "All fields are required!" message.
func (f Form) Selection() (quiz.Selection, error) {
	name := strings.TrimSpace(f.FirstName)
	if name == "" || f.Category == "" || f.Difficulty == "" {
		return quiz.Selection{}, &quiz.ValidationError{Message: quiz.MsgAllFieldsRequired}
	}
	categoryID, err := strconv.Atoi(f.Category)
	if err != nil {
		return quiz.Selection{}, &quiz.ValidationError{Field: "category", Message: "unknown category"}
	}
	sel := quiz.Selection{
		Name:       name,
		CategoryID: categoryID,
		Difficulty: quiz.Difficulty(f.Difficulty),
	}
	if err := sel.Validate(); err != nil {
		return quiz.Selection{}, err
	}
	return sel, nil
}

// View is what a front-end needs to draw the session.
type View struct {
	Stage      Stage      `json:"stage"`
	TokenError string     `json:"token_error,omitempty"`
	Form       Form       `json:"form"`
	FormError  string     `json:"form_error,omitempty"`
	Quiz       *quiz.View `json:"quiz,omitempty"`
}

// Controller owns the token and the player's selection, and switches from
// the intake form to the quiz exactly once.
type Controller struct {
	mu     sync.Mutex
	pubMu  sync.Mutex // orders snapshots with their delivery
	ctx    context.Context
	cancel context.CancelFunc
	deps   Deps
	base   zerolog.Logger
	logger zerolog.Logger

	token     string
	tokenErr  string
	acquiring bool
	form      Form
	formErr   string
	selection *quiz.Selection
	engine    *quiz.Engine
	observers map[int]func(View)
	nextObsID int
	closed    bool
}

func NewController(ctx context.Context, deps Deps, logger zerolog.Logger) *Controller {
	ctrlCtx, cancel := context.WithCancel(ctx)
	return &Controller{
		ctx:       ctrlCtx,
		cancel:    cancel,
		deps:      deps,
		base:      logger,
		logger:    logger.With().Str("component", "session").Logger(),
		observers: make(map[int]func(View)),
	}
}

// AcquireToken fetches the access token once. A cached token is returned
// without a network call. Failures are logged and leave the session in the
// token_failed stage until RetryToken.
func (c *Controller) AcquireToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.token != "" {
		token := c.token
		c.mu.Unlock()
		return token, nil
	}
	if c.acquiring {
		c.mu.Unlock()
		return "", ErrTokenUnavailable
	}
	c.acquiring = true
	c.tokenErr = ""
	c.mu.Unlock()
	c.publish()

	token, err := c.deps.Tokens.RequestToken(ctx)

	c.mu.Lock()
	c.acquiring = false
	if err != nil {
		c.tokenErr = err.Error()
		c.mu.Unlock()
		c.logger.Error().Err(err).Msg("token error")
		c.publish()
		return "", err
	}
	c.token = token
	c.mu.Unlock()
	c.logger.Debug().Msg("access token acquired")
	c.publish()
	return token, nil
}

// RetryToken repeats a failed token request.
func (c *Controller) RetryToken(ctx context.Context) error {
	c.mu.Lock()
	failed := c.token == "" && c.tokenErr != "" && !c.acquiring
	c.mu.Unlock()
	if !failed {
		return ErrTokenNotRetryable
	}
	_, err := c.AcquireToken(ctx)
	return err
}

// Submit validates the intake form and starts the quiz.
func (c *Controller) Submit(form Form) (quiz.Selection, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return quiz.Selection{}, quiz.ErrClosed
	}
	if c.selection != nil {
		c.mu.Unlock()
		return quiz.Selection{}, ErrAlreadyStarted
	}
	if c.token == "" {
		c.mu.Unlock()
		return quiz.Selection{}, ErrTokenUnavailable
	}

	c.form = form
	sel, err := form.Selection()
	if err != nil {
		c.formErr = err.Error()
		c.mu.Unlock()
		c.publish()
		return quiz.Selection{}, err
	}
	c.formErr = ""
	c.selection = &sel
	c.engine = quiz.NewEngine(c.ctx, quiz.SessionContext{Selection: sel, Token: c.token}, c.deps.Questions, c.deps.Engine, c.base)
	engine := c.engine
	c.mu.Unlock()

	c.logger.Info().
		Str("player", sel.Name).
		Int("category", sel.CategoryID).
		Str("difficulty", string(sel.Difficulty)).
		Msg("quiz started")

	engine.Subscribe(func(quiz.View) { c.publish() })
	engine.Start()
	return sel, nil
}

func (c *Controller) activeEngine() (*quiz.Engine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.engine == nil {
		return nil, ErrNotStarted
	}
	return c.engine, nil
}

func (c *Controller) Select(answer string) error {
	e, err := c.activeEngine()
	if err != nil {
		return err
	}
	return e.Select(answer)
}

func (c *Controller) SubmitAnswer() error {
	e, err := c.activeEngine()
	if err != nil {
		return err
	}
	return e.SubmitAnswer()
}

func (c *Controller) Next() error {
	e, err := c.activeEngine()
	if err != nil {
		return err
	}
	return e.Next()
}

func (c *Controller) PlayAgain() error {
	e, err := c.activeEngine()
	if err != nil {
		return err
	}
	return e.PlayAgain()
}

func (c *Controller) Retry() error {
	e, err := c.activeEngine()
	if err != nil {
		return err
	}
	return e.Retry()
}

// View returns the current screen.
func (c *Controller) View() View {
	c.mu.Lock()
	v := View{Form: c.form, FormError: c.formErr}
	switch {
	case c.selection != nil:
		v.Stage = StageQuiz
	case c.token != "":
		v.Stage = StageIntake
	case c.tokenErr != "" && !c.acquiring:
		v.Stage = StageTokenFailed
		v.TokenError = c.tokenErr
	default:
		v.Stage = StageTokenPending
	}
	engine := c.engine
	c.mu.Unlock()

	if engine != nil {
		qv := engine.View()
		v.Quiz = &qv
	}
	return v
}

// Subscribe registers fn for every change of the session or its quiz.
// Snapshots are delivered one at a time in the order they were taken; fn
// must not call back into the controller.
func (c *Controller) Subscribe(fn func(View)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextObsID
	c.nextObsID++
	c.observers[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.observers, id)
	}
}

func (c *Controller) publish() {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()

	c.mu.Lock()
	observers := make([]func(View), 0, len(c.observers))
	for _, fn := range c.observers {
		observers = append(observers, fn)
	}
	c.mu.Unlock()
	if len(observers) == 0 {
		return
	}

	v := c.View()
	for _, fn := range observers {
		fn(v)
	}
}

// Close stops the quiz and any pending requests.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	engine := c.engine
	c.observers = make(map[int]func(View))
	c.mu.Unlock()

	c.cancel()
	if engine != nil {
		engine.Close()
	}
}
