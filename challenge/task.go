package challenge

import (
	"context"
	"time"

	"github.com/oklahomer/go-kasumi/logger"
	"github.com/oklahomer/go-sarah/v4"

	"github.com/stewardbot/steward/discord"
)

// NewScheduledTaskProps builds the polling task that ticks the Service on the configured schedule.
// Alerts raised during a tick are posted to the operator channel.
func NewScheduledTaskProps(svc *Service, config *Config) *sarah.ScheduledTaskProps {
	return sarah.NewScheduledTaskPropsBuilder().
		BotType(discord.DISCORD).
		Identifier("challenge_compliance").
		Schedule(config.Schedule).
		DefaultDestination(discord.ChannelID(config.OperatorChannelID)).
		Func(func(ctx context.Context) ([]*sarah.ScheduledTaskResult, error) {
			return runTick(ctx, svc, time.Now())
		}).
		MustBuild()
}

func runTick(ctx context.Context, svc *Service, now time.Time) ([]*sarah.ScheduledTaskResult, error) {
	alerts, err := svc.Tick(ctx, now)
	if err != nil {
		logger.Errorf("Compliance tick ended early: %+v", err)
	}

	results := make([]*sarah.ScheduledTaskResult, 0, len(alerts))
	for _, a := range alerts {
		results = append(results, &sarah.ScheduledTaskResult{Content: a.String()})
	}
	return results, nil
}
