package shahada

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/oklahomer/go-kasumi/logger"
	"github.com/oklahomer/go-sarah/v4"

	"github.com/stewardbot/steward/discord"
)

var (
	counterPattern = regexp.MustCompile(`^;shahadacounter\b`)
	removePattern  = regexp.MustCompile(`^;removeshahada\b`)
	listPattern    = regexp.MustCompile(`^;listshahadas\b`)
)

// Commands exposes the Counter to moderators.
type Commands struct {
	counter        *Counter
	checker        discord.RoleNameChecker
	moderatorRoles []string
}

// NewCommands creates Commands.
func NewCommands(counter *Counter, checker discord.RoleNameChecker, moderatorRoles []string) *Commands {
	return &Commands{
		counter:        counter,
		checker:        checker,
		moderatorRoles: moderatorRoles,
	}
}

// Props returns the command properties to register with sarah.RegisterCommandProps.
func (c *Commands) Props() []*sarah.CommandProps {
	return []*sarah.CommandProps{
		sarah.NewCommandPropsBuilder().
			BotType(discord.DISCORD).
			Identifier("shahadacounter").
			MatchPattern(counterPattern).
			Func(c.moderated(counterPattern, c.count)).
			Instruction("Input ;shahadacounter @member to count a shahada, or ;shahadacounter <number> to set the counter.").
			MustBuild(),

		sarah.NewCommandPropsBuilder().
			BotType(discord.DISCORD).
			Identifier("removeshahada").
			MatchPattern(removePattern).
			Func(c.moderated(removePattern, c.remove)).
			Instruction("Input ;removeshahada @member to remove a counted shahada.").
			MustBuild(),

		sarah.NewCommandPropsBuilder().
			BotType(discord.DISCORD).
			Identifier("listshahadas").
			MatchPattern(listPattern).
			Func(c.moderated(listPattern, c.list)).
			Instruction("Input ;listshahadas to list the counted members.").
			MustBuild(),
	}
}

type handler func(ctx context.Context, input sarah.Input, args string) (*sarah.CommandResponse, error)

func (c *Commands) moderated(pattern *regexp.Regexp, fnc handler) func(context.Context, sarah.Input) (*sarah.CommandResponse, error) {
	return func(ctx context.Context, input sarah.Input) (*sarah.CommandResponse, error) {
		ok, err := discord.Authorize(ctx, c.checker, input, c.moderatorRoles)
		if err != nil {
			return nil, fmt.Errorf("failed to check moderator roles: %w", err)
		}
		if !ok {
			return discord.NewResponse(input, discord.NoPermissionMessage)
		}

		args := strings.TrimSpace(sarah.StripMessage(pattern, input.Message()))
		return fnc(ctx, input, args)
	}
}

func (c *Commands) count(_ context.Context, input sarah.Input, args string) (*sarah.CommandResponse, error) {
	if args == "" {
		return discord.NewResponse(input, "Please provide either a member or a number to set the counter.")
	}

	if n, err := strconv.Atoi(args); err == nil {
		if _, err := c.counter.Set(n); err != nil {
			return nil, err
		}
		logger.Infof("Shahada counter set to %d", n)
		return discord.NewResponse(input, fmt.Sprintf("Shahada counter has been set to %d", n))
	}

	userID, ok := discord.ParseUserMention(args)
	if !ok {
		return discord.NewResponse(input, "Please provide a valid member or number.")
	}

	state, err := c.counter.Add(userID)
	if errors.Is(err, ErrAlreadyRecorded) {
		return discord.NewResponse(input, fmt.Sprintf("%s has already taken their shahada!", discord.Mention(userID)))
	}
	if err != nil {
		return nil, err
	}
	return discord.NewResponse(input, fmt.Sprintf("%s has taken their shahada. Total count: %d! Alhamdulillah!", discord.Mention(userID), state.Total))
}

func (c *Commands) remove(_ context.Context, input sarah.Input, args string) (*sarah.CommandResponse, error) {
	if args == "" {
		return discord.NewResponse(input, "Please mention a member to track/remove their shahada.")
	}

	userID, ok := discord.ParseUserMention(args)
	if !ok {
		return discord.NewResponse(input, "Please specify a valid member.")
	}

	state, err := c.counter.Remove(userID)
	switch {
	case err == nil:
		return discord.NewResponse(input, fmt.Sprintf("Removed shahada count for %s. New total count: %d", discord.Mention(userID), state.Total))

	case errors.Is(err, ErrNotRecorded):
		return discord.NewResponse(input, fmt.Sprintf("%s has not taken shahada yet.", discord.Mention(userID)))

	case errors.Is(err, ErrNothingToRemove):
		return discord.NewResponse(input, "There are no shahada counts to remove.")

	default:
		return nil, err
	}
}

func (c *Commands) list(_ context.Context, input sarah.Input, _ string) (*sarah.CommandResponse, error) {
	state, err := c.counter.State()
	if err != nil {
		return nil, err
	}

	if len(state.Members) == 0 {
		return discord.NewResponse(input, "No shahadas have been recorded yet.")
	}

	var b strings.Builder
	b.WriteString("Members who have taken shahada:\n")
	for _, id := range state.Members {
		b.WriteString("• " + discord.Mention(id) + "\n")
	}
	b.WriteString(fmt.Sprintf("\nTotal count: %d", state.Total))
	return discord.NewResponse(input, b.String())
}
