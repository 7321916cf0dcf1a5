package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"matchmaking_server/apperrors"
	"matchmaking_server/models"
)

// Metrics are the service counters exported on /metrics. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Proposals     *prometheus.CounterVec
	Transitions   *prometheus.CounterVec
	ChatMessages  *prometheus.CounterVec
	AlarmDuration prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Proposals: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "matchmaking",
			Name:      "proposals_total",
			Help:      "Match proposals by outcome.",
		}, []string{"outcome"}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "matchmaking",
			Name:      "match_transitions_total",
			Help:      "Match status transitions by target status and outcome.",
		}, []string{"to", "outcome"}),
		ChatMessages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "matchmaking",
			Name:      "chat_messages_total",
			Help:      "Chat send attempts by outcome.",
		}, []string{"outcome"}),
		AlarmDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "matchmaking",
			Name:      "alarm_count_seconds",
			Help:      "Time spent recomputing alarm counters.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// outcome labels an error by its domain code ("ok" on success).
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(apperrors.CodeOf(err))
}

func (m *Metrics) proposal(err error) {
	if m == nil {
		return
	}
	m.Proposals.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) transition(to models.MatchStatus, err error) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(string(to), outcome(err)).Inc()
}

func (m *Metrics) chat(err error) {
	if m == nil {
		return
	}
	m.ChatMessages.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) alarm(start time.Time) {
	if m == nil {
		return
	}
	m.AlarmDuration.Observe(time.Since(start).Seconds())
}
