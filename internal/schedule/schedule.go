// Package schedule re-fetches prayer times when the calendar day rolls over,
// since a record only describes the day it was fetched for.
package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DailySpec runs one minute past local midnight.
const DailySpec = "1 0 * * *"

// Reloader re-fetches the current city.
type Reloader interface {
	Reload()
}

// Scheduler owns a cron runner with the daily reload job.
type Scheduler struct {
	cron     *cron.Cron
	reloader Reloader
	spec     cron.Schedule
	log      zerolog.Logger
}

// Option configures a Scheduler.
type Option func(*config)

type config struct {
	spec string
	loc  *time.Location
	log  zerolog.Logger
}

// WithSpec replaces DailySpec with another five-field cron expression.
func WithSpec(spec string) Option {
	return func(c *config) { c.spec = spec }
}

// WithLocation sets the time zone the spec is evaluated in. Default is
// time.Local.
func WithLocation(loc *time.Location) Option {
	return func(c *config) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithLogger sets the scheduler logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) { c.log = l }
}

// New registers the reload job. It does not start running until Start.
func New(r Reloader, opts ...Option) (*Scheduler, error) {
	cfg := config{spec: DailySpec, loc: time.Local, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	spec, err := cron.ParseStandard(cfg.spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", cfg.spec, err)
	}

	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(cfg.loc),
			cron.WithLogger(cronLogger{cfg.log}),
			cron.WithChain(cron.Recover(cronLogger{cfg.log}), cron.SkipIfStillRunning(cronLogger{cfg.log})),
		),
		reloader: r,
		spec:     spec,
		log:      cfg.log,
	}
	s.cron.Schedule(spec, cron.FuncJob(s.run))
	return s, nil
}

func (s *Scheduler) run() {
	s.log.Info().Msg("day rolled over, reloading prayer times")
	s.reloader.Reload()
}

// Next reports when the reload job fires after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.spec.Next(t)
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
