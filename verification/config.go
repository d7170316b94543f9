package verification

import "time"

// Config contains the settings of the verification ticket reminders.
type Config struct {
	// CategoryID is the channel category holding the tickets.
	CategoryID string `json:"category_id" yaml:"category_id"`

	// ReminderChannelID receives the reminders.
	ReminderChannelID string `json:"reminder_channel_id" yaml:"reminder_channel_id"`

	// NameContains selects ticket channels by a case-insensitive substring of their name.
	NameContains string `json:"name_contains" yaml:"name_contains"`

	// DailySchedule is the cron spec of the open ticket count.
	DailySchedule string `json:"daily_schedule" yaml:"daily_schedule"`

	// InactivitySchedule is the cron spec of the inactive ticket check.
	InactivitySchedule string `json:"inactivity_schedule" yaml:"inactivity_schedule"`

	// TimeZone is the location the schedules are evaluated in.
	TimeZone string `json:"time_zone" yaml:"time_zone"`

	// Cooldown is the minimum time between two reminders of the same ticket.
	Cooldown time.Duration `json:"cooldown" yaml:"cooldown"`

	// HistoryLimit is how many recent messages of a ticket are inspected.
	HistoryLimit int `json:"history_limit" yaml:"history_limit"`

	// MaxBotMessages is the largest number of bot messages a ticket may have and still count as untouched.
	MaxBotMessages int `json:"max_bot_messages" yaml:"max_bot_messages"`
}

// NewConfig creates and returns a new Config instance with default settings.
func NewConfig() *Config {
	return &Config{
		NameContains:       "verification",
		DailySchedule:      "0 9 * * *",
		InactivitySchedule: "@every 20m",
		TimeZone:           "America/New_York",
		Cooldown:           24 * time.Hour,
		HistoryLimit:       10,
		MaxBotMessages:     2,
	}
}
