package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/oklahomer/go-kasumi/logger"
	"github.com/oklahomer/go-sarah/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stewardbot/steward/challenge"
	"github.com/stewardbot/steward/config"
	"github.com/stewardbot/steward/discord"
	"github.com/stewardbot/steward/jail"
	"github.com/stewardbot/steward/shahada"
	"github.com/stewardbot/steward/store"
	"github.com/stewardbot/steward/verification"
)

const (
	shahadaFile  = "shahada_counts.json"
	jailFile     = "jailed_members.json"
	reminderFile = "reminded_tickets.json"
)

// serve wires every component to one Discord session and blocks until a shutdown signal arrives.
func serve(parent context.Context, cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	session, err := discord.NewSession(cfg.Discord)
	if err != nil {
		return err
	}

	guild := discord.NewGuild(session, cfg.Discord.GuildID)
	session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		guild.SetSelfID(r.User.ID)
		logger.Infof("Connected as %s.", r.User.Username)
	})

	adapter, err := discord.NewAdapter(cfg.Discord, discord.WithSession(session))
	if err != nil {
		return fmt.Errorf("failed to create adapter: %w", err)
	}

	storage := sarah.NewUserContextStorage(sarah.NewCacheConfig())
	sarah.RegisterBot(sarah.NewBot(adapter, sarah.BotWithStorage(storage)))

	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Errorf("Failed to close database: %+v", err)
		}
	}()

	svc, err := challenge.NewService(ctx, cfg.Challenge, db, guild, guild)
	if err != nil {
		return fmt.Errorf("failed to load challenge records: %w", err)
	}

	for _, props := range challenge.NewCommands(svc, cfg.Challenge, guild, cfg.ModeratorRoles).Props() {
		sarah.RegisterCommandProps(props)
	}
	sarah.RegisterScheduledTaskProps(challenge.NewScheduledTaskProps(svc, cfg.Challenge))

	counter := shahada.NewCounter(store.NewJSONFile[shahada.State](cfg.DataFile(shahadaFile)))
	for _, props := range shahada.NewCommands(counter, guild, cfg.ModeratorRoles).Props() {
		sarah.RegisterCommandProps(props)
	}

	if cfg.JailEnabled() {
		warden := jail.NewWarden(guild, store.NewJSONFile[jail.Snapshots](cfg.DataFile(jailFile)), cfg.JailRoleID)
		for _, props := range jail.NewCommands(warden, guild, cfg.ModeratorRoles).Props() {
			sarah.RegisterCommandProps(props)
		}
	} else {
		logger.Warnf("jail_role_id is not configured. Jail commands are disabled.")
	}

	// The reply matcher accepts any text, so it goes after the prefixed commands.
	if cfg.VerificationEnabled() {
		reminder := verification.NewReminder(cfg.Verification, guild, store.NewJSONFile[verification.Ledger](cfg.DataFile(reminderFile)))
		for _, props := range verification.NewCommands(reminder, cfg.Verification).Props() {
			sarah.RegisterCommandProps(props)
		}
		sarah.RegisterScheduledTaskProps(verification.NewDailyTaskProps(reminder, cfg.Verification))
		sarah.RegisterScheduledTaskProps(verification.NewInactivityTaskProps(reminder, cfg.Verification))
	} else {
		logger.Warnf("verification.category_id is not configured. Ticket reminders are disabled.")
	}

	if cfg.MetricsListen != "" {
		go func() {
			if err := runMetrics(cfg.MetricsListen); err != nil {
				logger.Errorf("Metrics endpoint stopped: %+v", err)
			}
		}()
	}

	runnerConfig := sarah.NewConfig()
	runnerConfig.TimeZone = cfg.Verification.TimeZone
	if err := sarah.Run(ctx, runnerConfig); err != nil {
		return fmt.Errorf("failed to run: %w", err)
	}

	logger.Infof("Bot is running. Press Ctrl+C to stop.")
	<-ctx.Done()
	logger.Infof("Shutting down...")

	return nil
}

func runMetrics(listen string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	err := http.ListenAndServe(listen, mux)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
