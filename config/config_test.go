package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "steward.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewConfig(t *testing.T) {
	config := NewConfig()

	assert.Equal(t, []string{"Mod", "Mini Mod"}, config.ModeratorRoles)
	assert.Equal(t, 24*time.Hour, config.Challenge.TimeLimit)
	assert.Equal(t, "@every 1m", config.Challenge.Schedule)
	assert.Equal(t, "America/New_York", config.Verification.TimeZone)
	assert.Equal(t, ";help", config.Discord.HelpCommand)
	assert.False(t, config.JailEnabled())
	assert.False(t, config.VerificationEnabled())
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
discord:
  guild_id: "1000"
challenge:
  role_id: "2000"
  channel_id: "3000"
  opt_in_message_id: "4000"
  time_limit: 40s
verification:
  category_id: "5000"
  reminder_channel_id: "6000"
  cooldown: 12h
moderator_roles:
  - Admin
jail_role_id: "7000"
data_dir: /var/lib/steward
`)

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "1000", config.Discord.GuildID)
	assert.Equal(t, ";help", config.Discord.HelpCommand, "absent keys keep their default")
	assert.Equal(t, "2000", config.Challenge.RoleID)
	assert.Equal(t, 40*time.Second, config.Challenge.TimeLimit)
	assert.Equal(t, "@every 1m", config.Challenge.Schedule)
	assert.True(t, config.Challenge.Enabled)
	assert.Equal(t, 12*time.Hour, config.Verification.Cooldown)
	assert.Equal(t, 10, config.Verification.HistoryLimit)
	assert.Equal(t, []string{"Admin"}, config.ModeratorRoles)
	assert.True(t, config.JailEnabled())
	assert.True(t, config.VerificationEnabled())
	assert.Equal(t, filepath.Join("/var/lib/steward", "shahada_counts.json"), config.DataFile("shahada_counts.json"))
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "challenge: [unterminated"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "challenge:\n  time_limit: soon\n"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		config := NewConfig()
		config.Discord.Token = "token"
		config.Discord.GuildID = "1000"
		config.Challenge.RoleID = "2000"
		config.Challenge.ChannelID = "3000"
		config.Challenge.OperatorChannelID = "4000"
		return config
	}

	tests := []struct {
		name    string
		modify  func(c *Config)
		message string
	}{
		{
			name: "valid",
		},
		{
			name:    "missing token",
			modify:  func(c *Config) { c.Discord.Token = "" },
			message: "discord.token",
		},
		{
			name:    "missing role",
			modify:  func(c *Config) { c.Challenge.RoleID = "" },
			message: "challenge.role_id",
		},
		{
			name:    "missing operator channel",
			modify:  func(c *Config) { c.Challenge.OperatorChannelID = "" },
			message: "challenge.operator_channel_id",
		},
		{
			name:    "non-positive time limit",
			modify:  func(c *Config) { c.Challenge.TimeLimit = 0 },
			message: "challenge.time_limit",
		},
		{
			name:    "no moderator roles",
			modify:  func(c *Config) { c.ModeratorRoles = nil },
			message: "moderator_roles",
		},
		{
			name: "verification without reminder channel",
			modify: func(c *Config) {
				c.Verification.CategoryID = "5000"
			},
			message: "verification.reminder_channel_id",
		},
		{
			name: "unknown time zone",
			modify: func(c *Config) {
				c.Verification.CategoryID = "5000"
				c.Verification.ReminderChannelID = "6000"
				c.Verification.TimeZone = "Mars/Olympus_Mons"
			},
			message: "verification.time_zone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid()
			if tt.modify != nil {
				tt.modify(config)
			}

			err := config.Validate()

			if tt.message == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.ErrorContains(t, err, tt.message)
		})
	}
}
