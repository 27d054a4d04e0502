package quiz

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the engine's prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	fetches      *prometheus.CounterVec
	throttleWait prometheus.Histogram
	answers      *prometheus.CounterVec
	rounds       prometheus.Counter
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trivia_question_fetches_total",
			Help: "Question fetches by outcome.",
		}, []string{"outcome"}),
		throttleWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trivia_throttle_wait_seconds",
			Help:    "Time a question fetch spent waiting for the request spacing.",
			Buckets: []float64{0, 0.5, 1, 2.5, 5, 7.5, 10},
		}),
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trivia_answers_total",
			Help: "Submitted answers by result.",
		}, []string{"result"}),
		rounds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trivia_rounds_finished_total",
			Help: "Rounds ended by reaching the wrong answer limit.",
		}),
	}
	reg.MustRegister(m.fetches, m.throttleWait, m.answers, m.rounds)
	return m
}

func (m *Metrics) fetch(outcome string) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(outcome).Inc()
}

func (m *Metrics) waited(d time.Duration) {
	if m == nil {
		return
	}
	m.throttleWait.Observe(d.Seconds())
}

func (m *Metrics) answer(correct bool) {
	if m == nil {
		return
	}
	result := "wrong"
	if correct {
		result = "right"
	}
	m.answers.WithLabelValues(result).Inc()
}

func (m *Metrics) roundFinished() {
	if m == nil {
		return
	}
	m.rounds.Inc()
}
