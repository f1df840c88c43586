package service

import (
	"time"

	"github.com/Kre8ivTech/client-portal-sub002/internal/capacity"
)

// Config carries the tunables the estimators need. It is built once from
// process configuration and never read from the environment here.
type Config struct {
	DefaultRateCents       int64
	LookaheadDays          int
	AvailabilityWindowDays int
	HistoryMinSamples      int
	RecomputeConcurrency   int
	AITimeout              time.Duration
	Location               *time.Location
}

func DefaultConfig() Config {
	return Config{
		DefaultRateCents:       15000,
		LookaheadDays:          45,
		AvailabilityWindowDays: 14,
		HistoryMinSamples:      5,
		RecomputeConcurrency:   4,
		AITimeout:              10 * time.Second,
		Location:               time.UTC,
	}
}

// withDefaults fills zero values so a partially populated Config still works.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DefaultRateCents <= 0 {
		c.DefaultRateCents = d.DefaultRateCents
	}
	if c.LookaheadDays <= 0 {
		c.LookaheadDays = d.LookaheadDays
	}
	if c.LookaheadDays > capacity.MaxHorizonDays {
		c.LookaheadDays = capacity.MaxHorizonDays
	}
	if c.AvailabilityWindowDays <= 0 {
		c.AvailabilityWindowDays = d.AvailabilityWindowDays
	}
	if c.HistoryMinSamples <= 0 {
		c.HistoryMinSamples = d.HistoryMinSamples
	}
	if c.RecomputeConcurrency <= 0 {
		c.RecomputeConcurrency = d.RecomputeConcurrency
	}
	if c.AITimeout <= 0 {
		c.AITimeout = d.AITimeout
	}
	if c.Location == nil {
		c.Location = d.Location
	}
	return c
}

func (c Config) clock(now func() time.Time) time.Time {
	if now == nil {
		return time.Now().In(c.Location)
	}
	return now().In(c.Location)
}
