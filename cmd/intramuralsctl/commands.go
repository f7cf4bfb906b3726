package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/okian/intramurals/internal/adapters/chart"
	"github.com/okian/intramurals/internal/adapters/repository"
	"github.com/okian/intramurals/internal/adapters/sheets"
	app "github.com/okian/intramurals/internal/app"
	"github.com/okian/intramurals/internal/config"
	"github.com/okian/intramurals/internal/seed"
	"github.com/okian/intramurals/internal/simulate"
	"github.com/okian/intramurals/pkg/logger"
)

const outputPermission = 0o644

// withService opens the configured store, starts a service over it and
// runs fn. The service is stopped and the store closed afterwards.
func withService(c *cli.Context, fn func(ctx context.Context, svc *app.Service) error) error {
	if path := c.String("config"); path != "" {
		if err := os.Setenv(config.FileEnv, path); err != nil {
			return err
		}
	}
	ctx := c.Context
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	baseline, err := cfg.Baseline()
	if err != nil {
		return err
	}

	target := cfg.SQLitePath
	if cfg.StoreDriver == config.StorePostgres {
		target = cfg.PostgresDSN
	}
	store, err := repository.Open(ctx, cfg.StoreDriver, target)
	if err != nil {
		return err
	}
	defer store.Close()

	svc := app.New(store,
		app.WithLogger(logger.Named("ctl")),
		app.WithFacilitator(cfg.FacilitatorTeamID),
		app.WithBaseline(baseline),
		app.WithNotificationLimit(cfg.NotificationLimit),
	)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop(context.Background())

	return fn(ctx, svc)
}

func leaderboardCommand() *cli.Command {
	return &cli.Command{
		Name:  "leaderboard",
		Usage: "print the current standings",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print JSON instead of a table"},
		},
		Action: func(c *cli.Context) error {
			return withService(c, func(ctx context.Context, svc *app.Service) error {
				board, err := svc.Leaderboard(ctx)
				if err != nil {
					return err
				}
				if c.Bool("json") {
					enc := json.NewEncoder(c.App.Writer)
					enc.SetIndent("", "  ")
					return enc.Encode(board)
				}
				tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "RANK\tTEAM\tNAME\tSCORE\t1ST\t2ND\t3RD\tMERITS\tDEMERITS")
				for _, t := range board {
					st := t.PlacementStats
					fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\n",
						t.Rank, t.ID, t.Name, t.Score, st.First, st.Second, st.Third, st.Merits, st.Demerits)
				}
				return tw.Flush()
			})
		},
	}
}

func recomputeCommand() *cli.Command {
	return &cli.Command{
		Name:  "recompute",
		Usage: "reload every record from the store and rebuild the standings",
		Action: func(c *cli.Context) error {
			return withService(c, func(ctx context.Context, svc *app.Service) error {
				if err := svc.Recompute(ctx); err != nil {
					return err
				}
				stats := svc.GetStats()
				fmt.Fprintf(c.App.Writer, "recomputed %v teams (%v ranked) across %v events\n",
					stats["teams"], stats["rankedTeams"], stats["events"])
				return nil
			})
		},
	}
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "load a YAML fixture into an empty store",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true, Usage: "fixture path"},
		},
		Action: func(c *cli.Context) error {
			fx, err := seed.Load(c.String("file"))
			if err != nil {
				return err
			}
			return withService(c, func(ctx context.Context, svc *app.Service) error {
				sum, err := seed.Apply(ctx, svc, fx)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "seeded %d teams, %d events, %d results, %d logs\n",
					sum.Teams, sum.Events, sum.Results, sum.Logs)
				return nil
			})
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "submit an event's results from an xlsx scoresheet",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "event", Aliases: []string{"e"}, Required: true, Usage: "event id"},
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true, Usage: "scoresheet path"},
		},
		Action: func(c *cli.Context) error {
			data, err := os.ReadFile(c.String("file"))
			if err != nil {
				return err
			}
			results, err := sheets.ParseResults(data)
			if err != nil {
				return err
			}
			return withService(c, func(ctx context.Context, svc *app.Service) error {
				ev, err := svc.SubmitEventResults(ctx, c.String("event"), results)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "imported %d results for %s\n", len(ev.Results), ev.Name)
				return nil
			})
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "write the standings workbook",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "standings.xlsx", Usage: "output path"},
		},
		Action: func(c *cli.Context) error {
			return withService(c, func(ctx context.Context, svc *app.Service) error {
				board, err := svc.Leaderboard(ctx)
				if err != nil {
					return err
				}
				events, err := svc.Events(ctx)
				if err != nil {
					return err
				}
				data, err := sheets.ExportStandings(board, events)
				if err != nil {
					return err
				}
				return writeOutput(c, c.String("out"), data)
			})
		},
	}
}

func templateCommand() *cli.Command {
	return &cli.Command{
		Name:  "template",
		Usage: "write a blank scoresheet for an event",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "event", Aliases: []string{"e"}, Required: true, Usage: "event id"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output path (default <event>-scoresheet.xlsx)"},
		},
		Action: func(c *cli.Context) error {
			return withService(c, func(ctx context.Context, svc *app.Service) error {
				ev, err := svc.Event(ctx, c.String("event"))
				if err != nil {
					return err
				}
				board, err := svc.Leaderboard(ctx)
				if err != nil {
					return err
				}
				ids := make([]string, len(board))
				for i, t := range board {
					ids[i] = t.ID
				}
				data, err := sheets.Template(ev, ids)
				if err != nil {
					return err
				}
				out := c.String("out")
				if out == "" {
					out = ev.ID + "-scoresheet.xlsx"
				}
				return writeOutput(c, out, data)
			})
		},
	}
}

func chartCommand() *cli.Command {
	return &cli.Command{
		Name:  "chart",
		Usage: "render a team's daily score history as PNG",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "team", Aliases: []string{"t"}, Required: true, Usage: "team id"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output path (default <team>.png)"},
		},
		Action: func(c *cli.Context) error {
			return withService(c, func(ctx context.Context, svc *app.Service) error {
				team, err := svc.Team(ctx, c.String("team"))
				if err != nil {
					return err
				}
				png, err := chart.History(team.Name, team.ProgressHistory, chart.DefaultPalette)
				if err != nil {
					return err
				}
				out := c.String("out")
				if out == "" {
					out = team.ID + ".png"
				}
				return writeOutput(c, out, png)
			})
		},
	}
}

func simulateCommand() *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "drive a running API with a generated competition and verify the standings",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:9080", Usage: "base URL of the service"},
			&cli.IntFlag{Name: "teams", Value: simulate.DefaultTeams, Usage: "number of teams"},
			&cli.IntFlag{Name: "events", Value: simulate.DefaultEvents, Usage: "number of events"},
			&cli.IntFlag{Name: "logs", Value: simulate.DefaultLogs, Usage: "number of standing merits and demerits"},
			&cli.IntFlag{Name: "workers", Value: simulate.DefaultWorkers, Usage: "concurrent workers"},
			&cli.DurationFlag{Name: "timeout", Value: simulate.DefaultTimeout, Usage: "HTTP request timeout"},
			&cli.IntFlag{Name: "retries", Value: simulate.DefaultRetries, Usage: "retries per request"},
			&cli.Uint64Flag{Name: "seed", Usage: "faker seed (default: clock)"},
			&cli.TimestampFlag{Name: "start", Layout: "2006-01-02", Usage: "first event day"},
			&cli.StringFlag{Name: "facilitator", Value: simulate.DefaultFacilitator, Usage: "unranked team id"},
			&cli.BoolFlag{Name: "verbose", Usage: "log every retry"},
		},
		Action: func(c *cli.Context) error {
			cfg := simulate.Config{
				BaseURL:     c.String("url"),
				Teams:       c.Int("teams"),
				Events:      c.Int("events"),
				Logs:        c.Int("logs"),
				Workers:     c.Int("workers"),
				Timeout:     c.Duration("timeout"),
				Retries:     c.Int("retries"),
				Seed:        c.Uint64("seed"),
				Facilitator: c.String("facilitator"),
				Verbose:     c.Bool("verbose"),
			}
			if start := c.Timestamp("start"); start != nil {
				cfg.Start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
			}
			stats, err := simulate.Run(c.Context, cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "%d teams, %d events, %d logs in %s; leader %s with %d; %d checks passed\n",
				stats.TeamsCreated, stats.EventsCreated, stats.LogsAdded, stats.Duration().Round(time.Millisecond),
				stats.TopTeam, stats.TopScore, stats.Checks)
			return nil
		},
	}
}

func writeOutput(c *cli.Context, path string, data []byte) error {
	if err := os.WriteFile(path, data, outputPermission); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "wrote %s (%d bytes)\n", path, len(data))
	return nil
}
