package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stewardbot/steward/challenge"
	"github.com/stewardbot/steward/discord"
	"github.com/stewardbot/steward/verification"
)

// ErrInvalidConfig is wrapped by every error Validate returns.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the whole bot configuration, read from a YAML file.
type Config struct {
	Discord      *discord.Config      `json:"discord" yaml:"discord"`
	Challenge    *challenge.Config    `json:"challenge" yaml:"challenge"`
	Verification *verification.Config `json:"verification" yaml:"verification"`

	// ModeratorRoles lists the role names allowed to run moderator commands.
	ModeratorRoles []string `json:"moderator_roles" yaml:"moderator_roles"`

	// JailRoleID is the role given to jailed members. Empty disables the jail commands.
	JailRoleID string `json:"jail_role_id" yaml:"jail_role_id"`

	// DatabaseURL locates the SQLite database of the challenge records.
	DatabaseURL string `json:"database_url" yaml:"database_url"`

	// DataDir holds the JSON files of the shahada counter, the jail and the reminders.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// MetricsListen is the address of the Prometheus endpoint. Empty disables it.
	MetricsListen string `json:"metrics_listen" yaml:"metrics_listen"`
}

// NewConfig creates and returns a new Config instance with default settings.
func NewConfig() *Config {
	return &Config{
		Discord:        discord.NewConfig(),
		Challenge:      challenge.NewConfig(),
		Verification:   verification.NewConfig(),
		ModeratorRoles: []string{"Mod", "Mini Mod"},
		DatabaseURL:    "sqlite://data/steward.sqlite",
		DataDir:        "data",
		MetricsListen:  ":2112",
	}
}

// Load reads the YAML file at path over the defaults. Keys absent from the file keep their default value.
func Load(path string) (*Config, error) {
	config := NewConfig()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(b, config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return config, nil
}

// Validate checks that the settings required to run are present.
func (c *Config) Validate() error {
	var errs []error
	require := func(value, name string) {
		if value == "" {
			errs = append(errs, fmt.Errorf("%w: %s is required", ErrInvalidConfig, name))
		}
	}

	require(c.Discord.Token, "discord.token")
	require(c.Discord.GuildID, "discord.guild_id")
	require(c.Challenge.RoleID, "challenge.role_id")
	require(c.Challenge.ChannelID, "challenge.channel_id")
	require(c.Challenge.OperatorChannelID, "challenge.operator_channel_id")
	require(c.Challenge.Schedule, "challenge.schedule")
	require(c.DatabaseURL, "database_url")
	require(c.DataDir, "data_dir")

	if c.Challenge.TimeLimit <= 0 {
		errs = append(errs, fmt.Errorf("%w: challenge.time_limit must be positive", ErrInvalidConfig))
	}
	if len(c.ModeratorRoles) == 0 {
		errs = append(errs, fmt.Errorf("%w: moderator_roles must not be empty", ErrInvalidConfig))
	}

	if c.VerificationEnabled() {
		require(c.Verification.ReminderChannelID, "verification.reminder_channel_id")
		if _, err := time.LoadLocation(c.Verification.TimeZone); err != nil {
			errs = append(errs, fmt.Errorf("%w: verification.time_zone: %w", ErrInvalidConfig, err))
		}
		if c.Verification.Cooldown <= 0 {
			errs = append(errs, fmt.Errorf("%w: verification.cooldown must be positive", ErrInvalidConfig))
		}
	}

	return errors.Join(errs...)
}

// VerificationEnabled tells if the verification reminders are configured.
func (c *Config) VerificationEnabled() bool {
	return c.Verification.CategoryID != ""
}

// JailEnabled tells if the jail commands are configured.
func (c *Config) JailEnabled() bool {
	return c.JailRoleID != ""
}

// DataFile returns the location of a JSON file in DataDir.
func (c *Config) DataFile(name string) string {
	return filepath.Join(c.DataDir, name)
}
