package jail

import "errors"

var (
	// ErrNoJailRole is returned when the configured jail role does not exist in the guild.
	ErrNoJailRole = errors.New("jail role does not exist")

	// ErrBotCannotManageRoles is returned when the bot lacks the Manage Roles permission.
	ErrBotCannotManageRoles = errors.New("bot cannot manage roles")

	// ErrBotBelowTarget is returned when the member's highest role is not below the bot's.
	ErrBotBelowTarget = errors.New("member's highest role is above or equal to the bot's")

	// ErrAuthorBelowTarget is returned when the member's highest role is not below the author's.
	ErrAuthorBelowTarget = errors.New("member's highest role is above or equal to the author's")

	// ErrAlreadyJailed is returned when jailing a member who holds the jail role.
	ErrAlreadyJailed = errors.New("member is already jailed")

	// ErrNotJailed is returned when releasing a member who does not hold the jail role.
	ErrNotJailed = errors.New("member is not jailed")
)
