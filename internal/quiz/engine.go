package quiz

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/trivia-quiz/internal/opentdb"
	"github.com/gokatarajesh/trivia-quiz/internal/throttle"
)

// DefaultMaxWrong ends a round on the third wrong answer.
const DefaultMaxWrong = 3

// Source fetches one question at a time.
type Source interface {
	FetchQuestion(ctx context.Context, q opentdb.Query) (opentdb.RawQuestion, error)
}

// Options tunes an Engine. Zero values pick the defaults.
type Options struct {
	Throttle *throttle.Throttle
	MaxWrong int
	Metrics  *Metrics
}

// Engine drives one question at a time through
// Loading -> Answering -> ShowingResult -> Loading ... -> GameOver, with Error
// reachable from Loading. All methods are safe for concurrent use; the
// throttle wait and the network call run on their own goroutine without
// holding the engine lock.
type Engine struct {
	mu       sync.Mutex
	session  SessionContext
	source   Source
	throttle *throttle.Throttle
	maxWrong int
	metrics  *Metrics
	logger   zerolog.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	closed   bool
	inflight sync.WaitGroup

	question   *Question
	choices    []string
	selected   string
	showResult bool
	lastResult *Result
	wrongCount int
	errMsg     string
	validation string
	loading    bool
	round      uint64

	observers map[int]func(View)
	nextObs   int
}

// NewEngine builds an engine for one session. It does nothing until Start.
func NewEngine(ctx context.Context, session SessionContext, source Source, opts Options, logger zerolog.Logger) *Engine {
	if opts.Throttle == nil {
		opts.Throttle = throttle.New(throttle.DefaultInterval, nil, nil)
	}
	if opts.MaxWrong <= 0 {
		opts.MaxWrong = DefaultMaxWrong
	}
	engineCtx, cancel := context.WithCancel(ctx)
	return &Engine{
		session:   session,
		source:    source,
		throttle:  opts.Throttle,
		maxWrong:  opts.MaxWrong,
		metrics:   opts.Metrics,
		logger:    logger.With().Str("component", "quiz_engine").Str("player", session.Selection.Name).Logger(),
		ctx:       engineCtx,
		cancel:    cancel,
		observers: make(map[int]func(View)),
	}
}

// Start begins loading the first question.
func (e *Engine) Start() {
	e.mu.Lock()
	e.ensureLoadingLocked()
	e.unlockAndPublish()
}

// Subscribe registers fn to receive a snapshot after every state change. The
// returned func removes it.
func (e *Engine) Subscribe(fn func(View)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextObs
	e.nextObs++
	e.observers[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.observers, id)
	}
}

// View returns the current snapshot.
func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewLocked()
}

// Select records the player's pick without submitting it.
func (e *Engine) Select(answer string) error {
	e.mu.Lock()
	if phase := e.phaseLocked(); phase != PhaseAnswering {
		e.mu.Unlock()
		return wrongPhase("select", phase)
	}
	if !contains(e.choices, answer) {
		e.mu.Unlock()
		return &ValidationError{Field: "answer", Message: "unknown answer"}
	}
	e.selected = answer
	e.validation = ""
	e.unlockAndPublish()
	return nil
}

// SubmitAnswer scores the selected answer. Without a selection the phase is
// kept and a validation message is shown instead.
func (e *Engine) SubmitAnswer() error {
	e.mu.Lock()
	if phase := e.phaseLocked(); phase != PhaseAnswering {
		e.mu.Unlock()
		return wrongPhase("submit", phase)
	}
	if e.selected == "" {
		e.validation = MsgSelectAnswer
		e.unlockAndPublish()
		return &ValidationError{Field: "answer", Message: MsgSelectAnswer}
	}

	correct := e.selected == e.question.CorrectAnswer
	if !correct {
		e.wrongCount++
	}
	e.showResult = true
	e.validation = ""
	e.lastResult = &Result{
		Selected:      e.selected,
		Correct:       correct,
		CorrectAnswer: e.question.CorrectAnswer,
	}
	e.metrics.answer(correct)

	if e.wrongCount >= e.maxWrong {
		e.metrics.roundFinished()
		e.logger.Info().Uint64("round", e.round).Int("wrong", e.wrongCount).Msg("round over")
	}
	e.unlockAndPublish()
	return nil
}

// Next drops the answered question and loads another. Once the wrong answer
// limit is reached it does nothing; PlayAgain is the only way on.
func (e *Engine) Next() error {
	e.mu.Lock()
	if e.wrongCount >= e.maxWrong {
		e.mu.Unlock()
		return nil
	}
	if phase := e.phaseLocked(); phase != PhaseShowingResult {
		e.mu.Unlock()
		return wrongPhase("next", phase)
	}
	e.clearQuestionLocked()
	e.ensureLoadingLocked()
	e.unlockAndPublish()
	return nil
}

// PlayAgain starts a new round with the same selection.
func (e *Engine) PlayAgain() error {
	e.mu.Lock()
	if phase := e.phaseLocked(); phase != PhaseGameOver {
		e.mu.Unlock()
		return wrongPhase("play again", phase)
	}
	e.wrongCount = 0
	e.round++
	e.clearQuestionLocked()
	e.ensureLoadingLocked()
	e.logger.Info().Uint64("round", e.round).Msg("new round")
	e.unlockAndPublish()
	return nil
}

// Retry clears a fetch error and tries again, still subject to the throttle.
func (e *Engine) Retry() error {
	e.mu.Lock()
	if phase := e.phaseLocked(); phase != PhaseError {
		e.mu.Unlock()
		return wrongPhase("retry", phase)
	}
	e.errMsg = ""
	e.ensureLoadingLocked()
	e.unlockAndPublish()
	return nil
}

// Close cancels any in-flight fetch and waits for it to unwind. Late
// responses are discarded.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.observers = make(map[int]func(View))
	e.mu.Unlock()

	e.cancel()
	e.inflight.Wait()

	// the token dies with the session
	if err := e.throttle.Forget(context.Background(), e.session.Token); err != nil {
		e.logger.Warn().Err(err).Msg("forget throttle entry failed")
	}
}

func (e *Engine) clearQuestionLocked() {
	e.question = nil
	e.choices = nil
	e.selected = ""
	e.showResult = false
	e.lastResult = nil
	e.validation = ""
	e.errMsg = ""
}

// ensureLoadingLocked starts a fetch when no question is held, none is
// running and no error is on screen.
func (e *Engine) ensureLoadingLocked() {
	if e.closed || e.loading || e.question != nil || e.errMsg != "" {
		return
	}
	e.loading = true
	e.inflight.Add(1)
	go e.fetch(e.round)
}

func (e *Engine) fetch(round uint64) {
	defer e.inflight.Done()

	token := e.session.Token
	waited, err := e.throttle.Wait(e.ctx, token)
	if err != nil {
		if e.ctx.Err() != nil {
			return
		}
		e.logger.Warn().Err(err).Msg("throttle store unavailable, fetching without spacing")
	}
	e.metrics.waited(waited)
	if _, err := e.throttle.Mark(e.ctx, token); err != nil {
		e.logger.Warn().Err(err).Msg("record request time failed")
	}

	raw, err := e.source.FetchQuestion(e.ctx, opentdb.Query{
		Category:   e.session.Selection.CategoryID,
		Difficulty: string(e.session.Selection.Difficulty),
		Token:      token,
	})

	e.mu.Lock()
	// Only Close makes a response stale: PlayAgain needs GameOver, which is
	// never reached while a fetch is in flight.
	if e.closed {
		e.loading = false
		e.mu.Unlock()
		e.metrics.fetch("stale")
		e.logger.Debug().Uint64("round", round).Msg("discarding stale question response")
		return
	}
	e.loading = false
	e.metrics.fetch(fetchOutcome(err))
	if err != nil {
		e.errMsg = FetchErrorMessage(err)
		e.logger.Warn().Err(err).Dur("waited", waited).Msg("question fetch failed")
	} else {
		q := questionFromRaw(raw)
		e.question = &q
		e.choices = q.Choices()
		e.logger.Debug().Dur("waited", waited).Msg("question loaded")
	}
	e.unlockAndPublish()
}

func (e *Engine) phaseLocked() Phase {
	switch {
	case e.errMsg != "":
		return PhaseError
	case e.loading || e.question == nil:
		return PhaseLoading
	case e.wrongCount >= e.maxWrong:
		return PhaseGameOver
	case e.showResult:
		return PhaseShowingResult
	default:
		return PhaseAnswering
	}
}

func (e *Engine) viewLocked() View {
	v := View{
		Phase:      e.phaseLocked(),
		Name:       e.session.Selection.Name,
		WrongCount: e.wrongCount,
		MaxWrong:   e.maxWrong,
		Round:      e.round,
	}
	switch v.Phase {
	case PhaseError:
		v.Error = e.errMsg
	case PhaseAnswering:
		v.Question = e.question.Text
		v.Choices = append([]string(nil), e.choices...)
		v.Selected = e.selected
		v.Validation = e.validation
	case PhaseShowingResult, PhaseGameOver:
		v.Question = e.question.Text
		v.Choices = append([]string(nil), e.choices...)
		v.Selected = e.selected
		if e.lastResult != nil {
			r := *e.lastResult
			v.Result = &r
		}
	}
	return v
}

// unlockAndPublish releases e.mu and hands the new snapshot to observers.
func (e *Engine) unlockAndPublish() {
	view := e.viewLocked()
	observers := make([]func(View), 0, len(e.observers))
	for _, fn := range e.observers {
		observers = append(observers, fn)
	}
	e.mu.Unlock()

	for _, fn := range observers {
		fn(view)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
