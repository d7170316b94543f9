package jail

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/oklahomer/go-kasumi/logger"
	"github.com/oklahomer/go-sarah/v4"

	"github.com/stewardbot/steward/discord"
)

var (
	jailPattern   = regexp.MustCompile(`^;jail\b`)
	unjailPattern = regexp.MustCompile(`^;unjail\b`)
)

// Commands exposes the Warden to moderators.
type Commands struct {
	warden         *Warden
	checker        discord.RoleNameChecker
	moderatorRoles []string
}

// NewCommands creates Commands.
func NewCommands(warden *Warden, checker discord.RoleNameChecker, moderatorRoles []string) *Commands {
	return &Commands{
		warden:         warden,
		checker:        checker,
		moderatorRoles: moderatorRoles,
	}
}

// Props returns the command properties to register with sarah.RegisterCommandProps.
func (c *Commands) Props() []*sarah.CommandProps {
	return []*sarah.CommandProps{
		sarah.NewCommandPropsBuilder().
			BotType(discord.DISCORD).
			Identifier("jail").
			MatchPattern(jailPattern).
			Func(c.jail).
			Instruction("Input ;jail @member [reason] to jail a member.").
			MustBuild(),

		sarah.NewCommandPropsBuilder().
			BotType(discord.DISCORD).
			Identifier("unjail").
			MatchPattern(unjailPattern).
			Func(c.unjail).
			Instruction("Input ;unjail @member to release a member and restore their roles.").
			MustBuild(),
	}
}

// parseTarget authorizes the author and splits the arguments into the member and the rest.
// A non-nil response means the command must stop and reply with it.
func (c *Commands) parseTarget(ctx context.Context, input sarah.Input, pattern *regexp.Regexp) (string, string, *sarah.CommandResponse, error) {
	ok, err := discord.Authorize(ctx, c.checker, input, c.moderatorRoles)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to check moderator roles: %w", err)
	}
	if !ok {
		res, err := discord.NewResponse(input, discord.NoPermissionMessage)
		return "", "", res, err
	}

	args := strings.Fields(sarah.StripMessage(pattern, input.Message()))
	if len(args) == 0 {
		res, err := discord.NewResponse(input, "Please mention a member to jail/unjail.")
		return "", "", res, err
	}

	userID, ok := discord.ParseUserMention(args[0])
	if !ok {
		res, err := discord.NewResponse(input, "Please specify a valid member.")
		return "", "", res, err
	}
	return userID, strings.Join(args[1:], " "), nil, nil
}

func (c *Commands) jail(ctx context.Context, input sarah.Input) (*sarah.CommandResponse, error) {
	userID, reason, res, err := c.parseTarget(ctx, input, jailPattern)
	if res != nil || err != nil {
		return res, err
	}

	msg := input.(*discord.Input)
	err = c.warden.Jail(ctx, msg.AuthorID(), msg.RoleIDs(), userID)
	if err != nil {
		return discord.NewResponse(input, errorMessage(userID, err, "jailing"))
	}

	if reason != "" {
		return discord.NewResponse(input, fmt.Sprintf("%s has been jailed for: %s", discord.Mention(userID), reason))
	}
	return discord.NewResponse(input, fmt.Sprintf("%s has been jailed.", discord.Mention(userID)))
}

func (c *Commands) unjail(ctx context.Context, input sarah.Input) (*sarah.CommandResponse, error) {
	userID, _, res, err := c.parseTarget(ctx, input, unjailPattern)
	if res != nil || err != nil {
		return res, err
	}

	if _, err := c.warden.Release(ctx, userID); err != nil {
		return discord.NewResponse(input, errorMessage(userID, err, "releasing"))
	}
	return discord.NewResponse(input, fmt.Sprintf("%s has been released from jail.", discord.Mention(userID)))
}

func errorMessage(userID string, err error, doing string) string {
	switch {
	case errors.Is(err, ErrNoJailRole):
		return "Error: The jail role doesn't exist in this server."

	case errors.Is(err, ErrBotCannotManageRoles):
		return "Error: I don't have permission to manage roles."

	case errors.Is(err, ErrBotBelowTarget):
		return "Error: I can't jail this member because their highest role is above or equal to my highest role."

	case errors.Is(err, ErrAuthorBelowTarget):
		return "Error: You can't jail someone with a higher or equal role than yourself."

	case errors.Is(err, ErrAlreadyJailed):
		return fmt.Sprintf("%s is already jailed.", discord.Mention(userID))

	case errors.Is(err, ErrNotJailed):
		return fmt.Sprintf("%s is not currently jailed.", discord.Mention(userID))

	case errors.Is(err, discord.ErrTargetNotFound):
		return "Please specify a valid member."

	case errors.Is(err, discord.ErrPermissionDenied):
		return "I don't have permission to modify this member's roles."

	default:
		logger.Errorf("Failed %s %s: %+v", doing, userID, err)
		return fmt.Sprintf("An error occurred while %s the member: %s", doing, err.Error())
	}
}
