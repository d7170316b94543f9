// Command steward runs the moderation bot of a single Discord guild.
//
// Usage:
//
//	export DISCORD_TOKEN="your-bot-token"
//	steward --config steward.yaml run
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	"github.com/oklahomer/go-kasumi/logger"
	cli "github.com/urfave/cli/v2"

	"github.com/stewardbot/steward/config"
)

func main() {
	if err := run(os.Args); err != nil {
		logger.Errorf("exiting: %+v", err)
		os.Exit(-1)
	}
}

func run(args []string) error {
	app := cli.App{
		Name:    "steward",
		Usage:   "moderation bot for a single Discord guild",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "path to the YAML configuration file",
			Value:   "steward.yaml",
			EnvVars: []string{"STEWARD_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "token",
			Usage:   "Discord bot token",
			EnvVars: []string{"DISCORD_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "location of the challenge record database",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.StringFlag{
			Name:    "data-dir",
			Usage:   "directory holding the JSON data files",
			EnvVars: []string{"STEWARD_DATA_DIR"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			EnvVars: []string{"STEWARD_METRICS_LISTEN"},
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
		checkCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "connect to Discord and serve the guild",
	Action: func(cctx *cli.Context) error {
		cfg, err := loadConfig(cctx)
		if err != nil {
			return err
		}
		return serve(cctx.Context, cfg)
	},
}

var checkCmd = &cli.Command{
	Name:  "check",
	Usage: "validate the configuration and exit",
	Action: func(cctx *cli.Context) error {
		cfg, err := loadConfig(cctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cctx.App.Writer, "configuration is valid: guild %s\n", cfg.Discord.GuildID)
		return nil
	},
}

// loadConfig reads the configuration file and applies the flags over it.
// A missing file is accepted when --config was not given explicitly.
func loadConfig(cctx *cli.Context) (*config.Config, error) {
	path := cctx.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) || cctx.IsSet("config") {
			return nil, err
		}
		logger.Warnf("Configuration file %s is not found. Using defaults.", path)
		cfg = config.NewConfig()
	}

	if v := cctx.String("token"); v != "" {
		cfg.Discord.Token = v
	}
	if v := cctx.String("database-url"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := cctx.String("data-dir"); v != "" {
		cfg.DataDir = v
	}
	if cctx.IsSet("metrics-listen") {
		cfg.MetricsListen = cctx.String("metrics-listen")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
