package loadgen

import (
	"runtime"
	"time"
)

// Config holds configuration for a simulation run.
type Config struct {
	Players    int           // distinct identities
	Rounds     int           // submissions per player, sequential
	Workers    int           // players driven at once
	MaxScore   uint64        // scores are drawn from [1, MaxScore]
	GameNames  []string      // names are drawn from this list
	Seed       uint64        // makes identities and scores reproducible
	Timeout    time.Duration // settlement timeout per submission
	Poll       time.Duration // settlement poll interval
	TopCount   int           // table entries fetched for verification
	OutputFile string        // optional JSON dump of the plan
}

// DefaultConfig returns a small run suitable for a local ledger.
func DefaultConfig() Config {
	return Config{
		Players:   50,
		Rounds:    3,
		Workers:   runtime.NumCPU() * workerMultiplier,
		MaxScore:  10_000,
		GameNames: []string{"Chess", "Go", "Tetris", "Snake", "Pong"},
		Seed:      1,
		Timeout:   2 * time.Minute,
		Poll:      250 * time.Millisecond,
		TopCount:  100,
	}
}

const workerMultiplier = 2

func (c *Config) normalize() {
	d := DefaultConfig()
	if c.Players <= 0 {
		c.Players = d.Players
	}
	if c.Rounds <= 0 {
		c.Rounds = d.Rounds
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.MaxScore == 0 {
		c.MaxScore = d.MaxScore
	}
	if len(c.GameNames) == 0 {
		c.GameNames = d.GameNames
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.Poll <= 0 {
		c.Poll = d.Poll
	}
	if c.TopCount <= 0 {
		c.TopCount = d.TopCount
	}
}
