package verification

import (
	"context"
	"time"

	"github.com/oklahomer/go-kasumi/logger"
	"github.com/oklahomer/go-sarah/v4"

	"github.com/stewardbot/steward/discord"
)

// NewDailyTaskProps builds the task that posts the number of open tickets.
func NewDailyTaskProps(reminder *Reminder, config *Config) *sarah.ScheduledTaskProps {
	return sarah.NewScheduledTaskPropsBuilder().
		BotType(discord.DISCORD).
		Identifier("verification_daily_count").
		Schedule(config.DailySchedule).
		DefaultDestination(discord.ChannelID(config.ReminderChannelID)).
		Func(func(ctx context.Context) ([]*sarah.ScheduledTaskResult, error) {
			return runDaily(ctx, reminder)
		}).
		MustBuild()
}

// NewInactivityTaskProps builds the task that lists tickets nobody has written in.
func NewInactivityTaskProps(reminder *Reminder, config *Config) *sarah.ScheduledTaskProps {
	return sarah.NewScheduledTaskPropsBuilder().
		BotType(discord.DISCORD).
		Identifier("verification_inactivity").
		Schedule(config.InactivitySchedule).
		DefaultDestination(discord.ChannelID(config.ReminderChannelID)).
		Func(func(ctx context.Context) ([]*sarah.ScheduledTaskResult, error) {
			return runInactivity(ctx, reminder, time.Now())
		}).
		MustBuild()
}

func runDaily(ctx context.Context, reminder *Reminder) ([]*sarah.ScheduledTaskResult, error) {
	msg, err := reminder.DailyMessage(ctx)
	if err != nil {
		logger.Errorf("Failed to count verification tickets: %+v", err)
		return nil, nil
	}
	if msg == "" {
		return nil, nil
	}

	remindersSent.WithLabelValues("daily").Inc()
	return []*sarah.ScheduledTaskResult{{Content: msg}}, nil
}

func runInactivity(ctx context.Context, reminder *Reminder, now time.Time) ([]*sarah.ScheduledTaskResult, error) {
	inactive, err := reminder.FindInactive(ctx, now)
	if err != nil {
		logger.Errorf("Inactive ticket check failed: %+v", err)
	}
	if len(inactive) == 0 {
		return nil, nil
	}

	remindersSent.WithLabelValues("inactivity").Inc()
	ticketsReminded.Add(float64(len(inactive)))
	return []*sarah.ScheduledTaskResult{{Content: InactiveMessage(inactive)}}, nil
}
