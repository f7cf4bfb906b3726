// Package simulate drives a running intramurals API with a generated
// competition and checks the published standings for consistency.
package simulate

import (
	"errors"
	"time"
)

// Default scenario sizes.
const (
	DefaultTeams       = 6
	DefaultEvents      = 8
	DefaultLogs        = 20
	DefaultWorkers     = 4
	DefaultTimeout     = 10 * time.Second
	DefaultRetries     = 3
	DefaultFacilitator = "facilitators"

	WorkerChannelMultiplier = 2
)

// ErrInconsistent is returned when the published standings break an invariant.
var ErrInconsistent = errors.New("simulate: inconsistent standings")

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL     string        // Base URL of the service
	Teams       int           // Number of competing teams
	Events      int           // Number of events to schedule and score
	Logs        int           // Number of standing merits and demerits
	Workers     int           // Number of concurrent workers
	Timeout     time.Duration // HTTP request timeout
	Retries     int           // Retry budget per request
	Seed        uint64        // Faker seed; zero picks one from the clock
	Start       time.Time     // First event day
	Facilitator string        // Unranked team id; empty skips it
	Verbose     bool          // Log every request
}

func (c *Config) defaults() {
	if c.Teams <= 0 {
		c.Teams = DefaultTeams
	}
	if c.Events < 0 {
		c.Events = 0
	}
	if c.Logs < 0 {
		c.Logs = 0
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	if c.Seed == 0 {
		c.Seed = uint64(time.Now().UnixNano())
	}
	if c.Start.IsZero() {
		c.Start = time.Date(2025, 4, 28, 0, 0, 0, 0, time.UTC)
	}
}

// Stats summarizes a run.
type Stats struct {
	StartTime        time.Time
	EndTime          time.Time
	TeamsCreated     int
	EventsCreated    int
	ResultsSubmitted int
	LogsAdded        int
	RequestsFailed   int
	RankedTeams      int
	TopTeam          string
	TopScore         int
	Checks           int
}

// Duration reports how long the run took.
func (s *Stats) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}
