package verification

import (
	"context"
	"regexp"

	"github.com/oklahomer/go-kasumi/logger"
	"github.com/oklahomer/go-sarah/v4"

	"github.com/stewardbot/steward/discord"
)

var channelMentionPattern = regexp.MustCompile(`<#(\d+)>`)

// Commands handles replies to reminders.
type Commands struct {
	reminder *Reminder
	config   *Config
}

// NewCommands creates Commands.
func NewCommands(reminder *Reminder, config *Config) *Commands {
	return &Commands{
		reminder: reminder,
		config:   config,
	}
}

// Props returns the command properties to register with sarah.RegisterCommandProps.
// Register them after the prefix commands, since the reply handler matches any reply in the reminder channel.
func (c *Commands) Props() []*sarah.CommandProps {
	return []*sarah.CommandProps{
		sarah.NewCommandPropsBuilder().
			BotType(discord.DISCORD).
			Identifier("verification_checkmark").
			MatchFunc(c.isReminderReply).
			Func(c.checkmark).
			Instruction("Reply to a ticket reminder mentioning a ticket channel to mark it as handled.").
			MustBuild(),
	}
}

func (c *Commands) isReminderReply(input sarah.Input) bool {
	msg, ok := input.(*discord.Input)
	if !ok || msg.Event == nil {
		return false
	}
	return msg.Event.ChannelID == c.config.ReminderChannelID &&
		msg.ReferencedMessageID() != "" &&
		channelMentionPattern.MatchString(msg.Message())
}

func (c *Commands) checkmark(ctx context.Context, input sarah.Input) (*sarah.CommandResponse, error) {
	msg := input.(*discord.Input)
	ticketID := channelMentionPattern.FindStringSubmatch(msg.Message())[1]

	marked, err := c.reminder.MarkHandled(ctx, msg.Event.ChannelID, msg.ReferencedMessageID(), ticketID)
	if err != nil {
		logger.Errorf("Failed to mark ticket %s as handled: %+v", ticketID, err)
		return nil, nil
	}
	if marked {
		logger.Infof("Ticket %s marked as handled by %s", ticketID, msg.AuthorID())
	}
	return nil, nil
}
