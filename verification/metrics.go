package verification

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var openTickets = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "steward_verification_open_tickets",
	Help: "Number of open verification tickets at the last count",
})

var remindersSent = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "steward_verification_reminders_total",
	Help: "Number of reminders posted to the reminder channel, by kind",
}, []string{"kind"})

var ticketsReminded = promauto.NewCounter(prometheus.CounterOpts{
	Name: "steward_verification_inactive_tickets_total",
	Help: "Number of inactive tickets listed in reminders",
})

var ticketsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "steward_verification_tickets_skipped_total",
	Help: "Number of tickets skipped by the inactivity check, by reason",
}, []string{"reason"})

var checkmarksAdded = promauto.NewCounter(prometheus.CounterOpts{
	Name: "steward_verification_checkmarks_total",
	Help: "Number of tickets marked as handled on a reminder",
})
