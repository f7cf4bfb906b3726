// Command intramuralsctl runs offline maintenance against the record store
// and drives simulations against a running API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/okian/intramurals/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		os.Stderr.WriteString("intramuralsctl: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "intramuralsctl",
		Usage: "manage an intramurals competition",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to a YAML configuration file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "debug, info, warn or error",
			},
			&cli.BoolFlag{
				Name:  "log-json",
				Usage: "emit JSON logs",
			},
		},
		Before: func(c *cli.Context) error {
			if err := logger.Init(logger.WithWriter(c.App.ErrWriter), logger.WithJSON(c.Bool("log-json"))); err != nil {
				return err
			}
			return logger.SetLevelString(c.String("log-level"))
		},
		Commands: []*cli.Command{
			leaderboardCommand(),
			recomputeCommand(),
			seedCommand(),
			importCommand(),
			exportCommand(),
			templateCommand(),
			chartCommand(),
			simulateCommand(),
		},
	}
}
