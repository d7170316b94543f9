package challenge

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/oklahomer/go-kasumi/logger"
	"github.com/oklahomer/go-sarah/v4"

	"github.com/stewardbot/steward/discord"
)

// Guild is the subset of discord.Guild the challenge commands use.
type Guild interface {
	discord.RoleNameChecker
	React(ctx context.Context, channelID, messageID, emoji string) error
	SendChannel(ctx context.Context, channelID, content string) (*discordgo.Message, error)
}

var challengePattern = regexp.MustCompile(`^;challenge\b`)

var statsPattern = regexp.MustCompile(`^;stats\b`)

// Commands exposes the Service through go-sarah commands.
type Commands struct {
	svc            *Service
	config         *Config
	guild          Guild
	moderatorRoles []string
}

// NewCommands creates Commands. moderatorRoles lists the role names allowed to run operator subcommands.
func NewCommands(svc *Service, config *Config, guild Guild, moderatorRoles []string) *Commands {
	return &Commands{
		svc:            svc,
		config:         config,
		guild:          guild,
		moderatorRoles: moderatorRoles,
	}
}

// Props returns the command properties to register with sarah.RegisterCommandProps.
func (c *Commands) Props() []*sarah.CommandProps {
	return []*sarah.CommandProps{
		sarah.NewCommandPropsBuilder().
			BotType(discord.DISCORD).
			Identifier("challenge").
			MatchPattern(challengePattern).
			Func(c.handleChallenge).
			Instruction("Input ;challenge enable|disable|reset|status|timelimit <duration>|complete @member <module> to operate the image challenge.").
			MustBuild(),

		sarah.NewCommandPropsBuilder().
			BotType(discord.DISCORD).
			Identifier("stats").
			MatchPattern(statsPattern).
			Func(c.handleStats).
			Instruction("Input ;stats [@member] to see challenge stats.").
			MustBuild(),

		sarah.NewCommandPropsBuilder().
			BotType(discord.DISCORD).
			Identifier("challenge_image").
			MatchFunc(c.isQualifyingPost).
			Func(c.handleImage).
			Instruction("Post an image in the challenge channel to keep your streak.").
			MustBuild(),

		sarah.NewCommandPropsBuilder().
			BotType(discord.DISCORD).
			Identifier("challenge_opt_in").
			MatchFunc(c.isOptIn).
			Func(c.handleOptIn).
			Instruction("React to the sign-up message to join the challenge.").
			MustBuild(),
	}
}

func (c *Commands) isQualifyingPost(input sarah.Input) bool {
	msg, ok := input.(*discord.Input)
	if !ok || msg.Event == nil {
		return false
	}
	return msg.Event.ChannelID == c.config.ChannelID &&
		msg.ImageCount() > 0 &&
		slices.Contains(msg.RoleIDs(), c.config.RoleID)
}

func (c *Commands) isOptIn(input sarah.Input) bool {
	r, ok := input.(*discord.ReactionInput)
	if !ok || r.MessageID != c.config.OptInMessageID {
		return false
	}
	return c.config.OptInEmoji == "" || r.Emoji == c.config.OptInEmoji
}

// handleImage counts one qualifying post per message regardless of the number of attached images.
func (c *Commands) handleImage(ctx context.Context, input sarah.Input) (*sarah.CommandResponse, error) {
	msg := input.(*discord.Input)
	userID := msg.AuthorID()

	r, err := c.svc.ReportActivity(ctx, userID, msg.SentAt())
	if err != nil {
		logger.Errorf("Failed to record the challenge post of %s: %+v", userID, err)
		c.alert(ctx, &Alert{Kind: AlertPersistFailed, UserID: userID, Err: err})
	} else {
		logger.Debugf("Challenge post by %s: streak %d, total %d", userID, r.StreakCount, r.TotalImages)
	}

	if c.config.AckEmoji != "" && msg.Event != nil {
		if err := c.guild.React(ctx, msg.Event.ChannelID, msg.Event.ID, c.config.AckEmoji); err != nil {
			logger.Warnf("Failed to acknowledge the challenge post of %s: %+v", userID, err)
		}
	}

	return nil, nil
}

func (c *Commands) handleOptIn(ctx context.Context, input sarah.Input) (*sarah.CommandResponse, error) {
	reaction := input.(*discord.ReactionInput)

	_, err := c.svc.OnOptIn(ctx, reaction.UserID)
	switch {
	case err == nil:
		logger.Infof("%s joined the challenge", reaction.UserID)

	case errors.Is(err, ErrDisabled):
		logger.Infof("Ignoring opt-in of %s while the challenge is disabled", reaction.UserID)

	case errors.Is(err, ErrPersist):
		logger.Errorf("Failed to save the opt-in of %s: %+v", reaction.UserID, err)
		c.alert(ctx, &Alert{Kind: AlertPersistFailed, UserID: reaction.UserID, Err: err})

	case errors.Is(err, discord.ErrPermissionDenied):
		logger.Errorf("Not allowed to grant the challenge role to %s: %+v", reaction.UserID, err)
		c.alert(ctx, &Alert{Kind: AlertGrantFailed, UserID: reaction.UserID, Err: err})

	default:
		logger.Errorf("Failed to admit %s to the challenge: %+v", reaction.UserID, err)

	}

	return nil, nil
}

func (c *Commands) handleChallenge(ctx context.Context, input sarah.Input) (*sarah.CommandResponse, error) {
	ok, err := discord.Authorize(ctx, c.guild, input, c.moderatorRoles)
	if err != nil {
		return nil, fmt.Errorf("failed to check moderator roles: %w", err)
	}
	if !ok {
		return discord.NewResponse(input, discord.NoPermissionMessage)
	}

	args := strings.Fields(sarah.StripMessage(challengePattern, input.Message()))
	if len(args) == 0 {
		return discord.NewResponse(input, "Usage: ;challenge enable|disable|reset|status|timelimit <duration>|complete @member <module>")
	}

	switch strings.ToLower(args[0]) {
	case "enable":
		c.svc.Enable()
		return discord.NewResponse(input, "The challenge is enabled.")

	case "disable":
		c.svc.Disable()
		return discord.NewResponse(input, "The challenge is disabled. Posts are still counted but nobody will be warned or removed.")

	case "status":
		return discord.NewResponse(input, formatStatus(c.svc.Status()))

	case "reset":
		reset, alerts, err := c.svc.ForceReset(ctx)
		if err != nil {
			return nil, err
		}
		for _, a := range alerts {
			c.alert(ctx, a)
		}
		msg := fmt.Sprintf("Challenge reset: %d members lost the role and had their records cleared.", reset)
		if len(alerts) > 0 {
			msg += fmt.Sprintf(" %d problems were reported in %s.", len(alerts), discord.ChannelMention(c.config.OperatorChannelID))
		}
		return discord.NewResponse(input, msg)

	case "timelimit":
		if len(args) < 2 {
			return discord.NewResponse(input, "Usage: ;challenge timelimit <duration>, e.g. 24h or 90m")
		}
		d, err := time.ParseDuration(args[1])
		if err == nil {
			err = c.svc.SetTimeLimit(d)
		}
		if err != nil {
			return discord.NewResponse(input, fmt.Sprintf("Invalid time limit %q.", args[1]))
		}
		return discord.NewResponse(input, fmt.Sprintf("The time limit is now %s.", FormatDuration(d)))

	case "complete":
		if len(args) < 3 {
			return discord.NewResponse(input, "Usage: ;challenge complete @member <module>")
		}
		userID, ok := discord.ParseUserMention(args[1])
		if !ok {
			return discord.NewResponse(input, "Please specify a valid member.")
		}
		module := strings.Join(args[2:], " ")
		_, added, err := c.svc.CompleteModule(ctx, userID, module)
		if err != nil {
			return nil, err
		}
		if !added {
			return discord.NewResponse(input, fmt.Sprintf("%s already completed %s.", discord.Mention(userID), module))
		}
		return discord.NewResponse(input, fmt.Sprintf("%s completed %s.", discord.Mention(userID), module))

	default:
		return discord.NewResponse(input, fmt.Sprintf("Unknown subcommand %q.", args[0]))
	}
}

func (c *Commands) handleStats(_ context.Context, input sarah.Input) (*sarah.CommandResponse, error) {
	msg, ok := input.(*discord.Input)
	if !ok {
		return nil, nil
	}

	userID := msg.AuthorID()
	if arg := strings.TrimSpace(sarah.StripMessage(statsPattern, input.Message())); arg != "" {
		id, ok := discord.ParseUserMention(arg)
		if !ok {
			return discord.NewResponse(input, "Please specify a valid member.")
		}
		userID = id
	}

	r, ok := c.svc.Record(userID)
	if !ok {
		return discord.NewResponse(input, fmt.Sprintf("%s has no challenge record yet.", discord.Mention(userID)))
	}
	return discord.NewResponse(input, formatRecord(r))
}

func (c *Commands) alert(ctx context.Context, a *Alert) {
	if c.config.OperatorChannelID == "" {
		return
	}
	if _, err := c.guild.SendChannel(ctx, c.config.OperatorChannelID, a.String()); err != nil {
		logger.Errorf("Failed to post alert to the operator channel: %+v", err)
	}
}

func formatStatus(s Status) string {
	state := "disabled"
	if s.Enabled {
		state = "enabled"
	}

	lines := []string{
		fmt.Sprintf("The challenge is **%s**.", state),
		fmt.Sprintf("Time limit: %s", FormatDuration(s.TimeLimit)),
		fmt.Sprintf("Check schedule: `%s`", s.Schedule),
		fmt.Sprintf("Records: %d (%d warned, %d eliminated)", s.Records, s.Warned, s.Eliminated),
	}
	if s.RevocationPending > 0 {
		lines = append(lines, fmt.Sprintf("Roles still to be removed by hand: %d", s.RevocationPending))
	}
	return strings.Join(lines, "\n")
}

func formatRecord(r *Record) string {
	lastPost := "never"
	if r.LastActivityAt != nil {
		lastPost = fmt.Sprintf("<t:%d:R>", r.LastActivityAt.Unix())
	}

	modules := "none"
	if len(r.CompletedModules) > 0 {
		modules = strings.Join(r.CompletedModules, ", ")
	}

	return strings.Join([]string{
		fmt.Sprintf("**Challenge stats for %s**", discord.Mention(r.UserID)),
		fmt.Sprintf("Status: %s", r.State()),
		fmt.Sprintf("Streak: %d", r.StreakCount),
		fmt.Sprintf("Total images: %d", r.TotalImages),
		fmt.Sprintf("Last image: %s", lastPost),
		fmt.Sprintf("Completed modules: %s", modules),
	}, "\n")
}
