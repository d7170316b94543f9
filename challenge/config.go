package challenge

import "time"

// Config contains the settings of the image challenge.
type Config struct {
	// RoleID is the tracked role granted on opt-in and revoked on elimination.
	RoleID string `json:"role_id" yaml:"role_id"`

	// ChannelID is the channel where qualifying images are posted.
	ChannelID string `json:"channel_id" yaml:"channel_id"`

	// OptInMessageID is the message members react to in order to join.
	OptInMessageID string `json:"opt_in_message_id" yaml:"opt_in_message_id"`

	// OptInEmoji restricts opt-in to one emoji. Empty accepts any reaction.
	OptInEmoji string `json:"opt_in_emoji" yaml:"opt_in_emoji"`

	// OperatorChannelID receives alerts that need a human, such as failed role revocations.
	OperatorChannelID string `json:"operator_channel_id" yaml:"operator_channel_id"`

	// TimeLimit is how long a member may go without posting before a strike.
	TimeLimit time.Duration `json:"time_limit" yaml:"time_limit"`

	// Schedule is the cron spec of the polling task.
	Schedule string `json:"schedule" yaml:"schedule"`

	// Enabled is the toggle state at startup.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// AckEmoji is added to qualifying posts. Empty disables the reaction.
	AckEmoji string `json:"ack_emoji" yaml:"ack_emoji"`
}

// NewConfig creates and returns a new Config instance with default settings.
func NewConfig() *Config {
	return &Config{
		TimeLimit:  24 * time.Hour,
		Schedule:   "@every 1m",
		Enabled:    true,
		OptInEmoji: "✅",
		AckEmoji:   "🔥",
	}
}
