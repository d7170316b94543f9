package challenge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var ticksRun = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "steward_challenge_ticks_total",
	Help: "Number of compliance polling ticks",
}, []string{"status"})

var tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "steward_challenge_tick_duration_seconds",
	Help:    "Duration of a compliance polling tick",
	Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
})

var transitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "steward_challenge_transitions_total",
	Help: "Number of ladder transitions by action",
}, []string{"action"})

var activitiesObserved = promauto.NewCounter(prometheus.CounterOpts{
	Name: "steward_challenge_activities_total",
	Help: "Number of qualifying posts observed",
})

var sideEffectFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "steward_challenge_side_effect_failures_total",
	Help: "Number of failed notifications and role mutations",
}, []string{"effect"})

var persistFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "steward_challenge_persist_failures_total",
	Help: "Number of compliance records that could not be written",
})

var trackedMembers = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "steward_challenge_tracked_members",
	Help: "Number of members holding the tracked role at the last tick",
})
