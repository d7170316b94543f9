package verification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/oklahomer/go-kasumi/logger"

	"github.com/stewardbot/steward/discord"
)

// ReminderHeader starts every inactive ticket reminder. The reply handler relies on it to recognize reminders.
const ReminderHeader = "The following verification tickets has not messaged or been messaged:"

// Ledger maps a ticket channel ID to the unix time, in seconds, of its last reminder.
type Ledger map[string]float64

// Store loads and atomically updates the Ledger. *store.JSONFile[Ledger] satisfies this interface.
type Store interface {
	Load() (Ledger, error)
	Update(fn func(*Ledger) error) (Ledger, error)
}

// Guild is the subset of discord.Guild the reminders use.
type Guild interface {
	SelfID() string
	ChannelsInCategory(ctx context.Context, categoryID string) ([]*discordgo.Channel, error)
	RecentMessages(ctx context.Context, channelID string, limit int) ([]*discordgo.Message, error)
	Message(ctx context.Context, channelID, messageID string) (*discordgo.Message, error)
	EditMessage(ctx context.Context, channelID, messageID, content string) error
}

// Reminder finds open and inactive verification tickets.
type Reminder struct {
	config *Config
	guild  Guild
	store  Store
}

// NewReminder creates a Reminder.
func NewReminder(config *Config, guild Guild, store Store) *Reminder {
	return &Reminder{
		config: config,
		guild:  guild,
		store:  store,
	}
}

// tickets returns the channels of the category whose name matches NameContains.
func (r *Reminder) tickets(ctx context.Context) ([]*discordgo.Channel, error) {
	channels, err := r.guild.ChannelsInCategory(ctx, r.config.CategoryID)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(r.config.NameContains)
	var tickets []*discordgo.Channel
	for _, ch := range channels {
		if strings.Contains(strings.ToLower(ch.Name), needle) {
			tickets = append(tickets, ch)
		}
	}
	return tickets, nil
}

// CountOpen returns the number of open tickets.
func (r *Reminder) CountOpen(ctx context.Context) (int, error) {
	tickets, err := r.tickets(ctx)
	if err != nil {
		return 0, err
	}
	openTickets.Set(float64(len(tickets)))
	return len(tickets), nil
}

// DailyMessage builds the open ticket count reminder. It returns an empty string when there is nothing open.
func (r *Reminder) DailyMessage(ctx context.Context) (string, error) {
	n, err := r.CountOpen(ctx)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	return fmt.Sprintf("There are currently %d open verification tickets that need your assistance!", n), nil
}

// FindInactive returns the tickets that nobody but the bot has written in, skipping those reminded within the cooldown.
// The returned tickets are stamped in the ledger with now.
func (r *Reminder) FindInactive(ctx context.Context, now time.Time) ([]*discordgo.Channel, error) {
	tickets, err := r.tickets(ctx)
	if err != nil {
		return nil, err
	}

	ledger, err := r.store.Load()
	if err != nil {
		return nil, err
	}

	var inactive []*discordgo.Channel
	for _, ch := range tickets {
		if last, ok := ledger[ch.ID]; ok && now.Sub(fromUnix(last)) < r.config.Cooldown {
			ticketsSkipped.WithLabelValues("cooldown").Inc()
			continue
		}

		msgs, err := r.guild.RecentMessages(ctx, ch.ID, r.config.HistoryLimit)
		if errors.Is(err, discord.ErrPermissionDenied) {
			ticketsSkipped.WithLabelValues("forbidden").Inc()
			logger.Debugf("Skipping unreadable ticket %s: %+v", ch.ID, err)
			continue
		}
		if err != nil {
			ticketsSkipped.WithLabelValues("error").Inc()
			logger.Warnf("Failed to read ticket %s: %+v", ch.ID, err)
			continue
		}

		if r.untouched(msgs) {
			inactive = append(inactive, ch)
		}
	}

	stamp := toUnix(now)
	_, err = r.store.Update(func(l *Ledger) error {
		if *l == nil {
			*l = Ledger{}
		}
		for _, ch := range inactive {
			(*l)[ch.ID] = stamp
		}
		return nil
	})
	if err != nil {
		return inactive, fmt.Errorf("failed to save the reminder ledger: %w", err)
	}
	return inactive, nil
}

// untouched tells if the messages exist and were all written by the bot, which wrote no more than MaxBotMessages.
func (r *Reminder) untouched(msgs []*discordgo.Message) bool {
	if len(msgs) == 0 {
		return false
	}

	selfID := r.guild.SelfID()
	for _, m := range msgs {
		if m.Author == nil || m.Author.ID != selfID {
			return false
		}
	}
	return len(msgs) <= r.config.MaxBotMessages
}

// InactiveMessage builds the reminder listing the given tickets.
func InactiveMessage(tickets []*discordgo.Channel) string {
	var b strings.Builder
	b.WriteString(ReminderHeader + "\n")
	for _, ch := range tickets {
		b.WriteString("• " + discord.ChannelMention(ch.ID) + "\n")
	}
	return b.String()
}

// MarkHandled edits the reminder so that the line of the ticket gets a checkmark.
// It reports false when the message is not a reminder or does not list the ticket unchecked.
func (r *Reminder) MarkHandled(ctx context.Context, channelID, reminderID, ticketID string) (bool, error) {
	reminder, err := r.guild.Message(ctx, channelID, reminderID)
	if err != nil {
		return false, err
	}
	if !strings.HasPrefix(reminder.Content, ReminderHeader) {
		return false, nil
	}

	content, ok := checkTicket(reminder.Content, ticketID)
	if !ok {
		return false, nil
	}

	if err := r.guild.EditMessage(ctx, channelID, reminderID, content); err != nil {
		return false, err
	}
	checkmarksAdded.Inc()
	return true, nil
}

func checkTicket(content, ticketID string) (string, bool) {
	line := "• " + discord.ChannelMention(ticketID)
	lines := strings.Split(content, "\n")
	for i, l := range lines {
		if l == line {
			lines[i] = line + " ✅"
			return strings.Join(lines, "\n"), true
		}
	}
	return content, false
}

func toUnix(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func fromUnix(sec float64) time.Time {
	return time.Unix(0, int64(sec*float64(time.Second)))
}
