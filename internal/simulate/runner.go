package simulate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/intramurals/internal/domain/model"
	"github.com/okian/intramurals/pkg/logger"
)

// Run executes a complete simulation against cfg.BaseURL: it registers
// teams, schedules and scores events, issues standing point logs, and then
// verifies the leaderboard and every team history.
func Run(ctx context.Context, cfg Config) (*Stats, error) {
	cfg.defaults()
	log := logger.Get().Named("simulate")
	client := NewClient(cfg, log)
	stats := &Stats{StartTime: time.Now()}
	defer func() { stats.EndTime = time.Now() }()

	log.Info(ctx, "starting simulation",
		logger.String("url", cfg.BaseURL),
		logger.Int("teams", cfg.Teams),
		logger.Int("events", cfg.Events),
		logger.Int("logs", cfg.Logs),
		logger.Int("workers", cfg.Workers),
		logger.Any("seed", cfg.Seed))

	if err := checkServiceHealth(ctx, client); err != nil {
		return stats, err
	}

	gen := NewGenerator(cfg.Seed, cfg.Start)
	teams := gen.Teams(cfg.Teams)
	ids := make([]string, len(teams))
	for i, t := range teams {
		ids[i] = t.ID
	}

	n, err := forEach(ctx, cfg.Workers, teams, func(ctx context.Context, t TeamSpec) error {
		_, err := client.Do(ctx, http.MethodPost, "/teams", t)
		return err
	})
	stats.TeamsCreated = n
	if err != nil {
		return stats, fmt.Errorf("create teams: %w", err)
	}
	log.Info(ctx, "teams created", logger.Int("count", n))

	if cfg.Facilitator != "" {
		_, err := client.Do(ctx, http.MethodPost, "/teams", TeamSpec{ID: cfg.Facilitator, Name: "Facilitators"})
		if err != nil && !isStatus(err, http.StatusConflict) {
			return stats, fmt.Errorf("create facilitator: %w", err)
		}
	}

	events := gen.Events(cfg.Events)
	n, err = forEach(ctx, cfg.Workers, events, func(ctx context.Context, ev EventSpec) error {
		_, err := client.Do(ctx, http.MethodPost, "/events", ev)
		return err
	})
	stats.EventsCreated = n
	if err != nil {
		return stats, fmt.Errorf("create events: %w", err)
	}
	log.Info(ctx, "events created", logger.Int("count", n))

	scoresheets := make([]scoresheet, len(events))
	for i, ev := range events {
		scoresheets[i] = scoresheet{eventID: ev.ID, results: gen.Results(ev, ids)}
	}
	n, err = forEach(ctx, cfg.Workers, scoresheets, func(ctx context.Context, s scoresheet) error {
		body := map[string][]model.EventResult{"results": s.results}
		_, err := client.Do(ctx, http.MethodPut, "/events/"+s.eventID+"/results", body)
		return err
	})
	stats.ResultsSubmitted = n
	stats.RequestsFailed += len(events) - n
	if err != nil {
		log.Warn(ctx, "some results were rejected", logger.Error(err))
	}

	logs := gen.Logs(cfg.Logs, ids)
	n, err = forEach(ctx, cfg.Workers, logs, func(ctx context.Context, l LogSpec) error {
		_, err := client.Do(ctx, http.MethodPost, "/teams/"+l.TeamID+"/logs", l)
		return err
	})
	stats.LogsAdded = n
	stats.RequestsFailed += len(logs) - n
	if err != nil {
		log.Warn(ctx, "some point logs were rejected", logger.Error(err))
	}

	if err := verifyResults(ctx, client, cfg, stats); err != nil {
		return stats, err
	}

	displayFinalStats(ctx, log, stats)
	return stats, nil
}

type scoresheet struct {
	eventID string
	results []model.EventResult
}

// checkServiceHealth fails fast when the API is unreachable.
func checkServiceHealth(ctx context.Context, client *Client) error {
	res, err := client.Get(ctx, "/healthz")
	if err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}
	if status := res.Body.Get("status").String(); status != "" && status != "ok" {
		return fmt.Errorf("service is not healthy: %s", status)
	}
	return nil
}

// forEach runs fn over items with a bounded worker pool and returns how
// many calls succeeded together with the joined failures.
func forEach[T any](ctx context.Context, workers int, items []T, fn func(context.Context, T) error) (int, error) {
	var (
		ok   int64
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)

	ch := make(chan T, workers*WorkerChannelMultiplier)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range ch {
				if err := fn(ctx, item); err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
					continue
				}
				atomic.AddInt64(&ok, 1)
			}
		}()
	}

feed:
	for _, item := range items {
		select {
		case <-ctx.Done():
			break feed
		case ch <- item:
		}
	}
	close(ch)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return int(ok), errors.Join(errs...)
}

func isStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == status
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	log.Info(ctx, "simulation completed",
		logger.Duration("duration", time.Since(stats.StartTime)),
		logger.Int("teams", stats.TeamsCreated),
		logger.Int("events", stats.EventsCreated),
		logger.Int("results", stats.ResultsSubmitted),
		logger.Int("logs", stats.LogsAdded),
		logger.Int("failed", stats.RequestsFailed),
		logger.Int("ranked", stats.RankedTeams),
		logger.String("leader", stats.TopTeam),
		logger.Int("leaderScore", stats.TopScore),
		logger.Int("checks", stats.Checks))
}
