// Package daemon runs the overdue sweep on a cron schedule.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/felixgeelhaar/pacer/pkg/application"
)

// Sweeper recovers overdue work across the workspace.
type Sweeper interface {
	Sweep(ctx context.Context) (*application.SweepReport, error)
}

// Daemon triggers a Sweeper on a five-field cron spec or a descriptor such as
// "@hourly". A sweep still running when the next tick fires is skipped.
type Daemon struct {
	log     *slog.Logger
	sweeper Sweeper
	spec    string
	loc     *time.Location
	sched   cron.Schedule

	// OnReport, when set, receives every finished sweep.
	OnReport func(*application.SweepReport)
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// New validates spec and builds a daemon. A nil loc means UTC.
func New(sweeper Sweeper, spec string, loc *time.Location, log *slog.Logger) (*Daemon, error) {
	spec = strings.TrimSpace(spec)
	sched, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid sweep spec %q: %w", spec, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = slog.Default()
	}
	return &Daemon{log: log, sweeper: sweeper, spec: spec, loc: loc, sched: sched}, nil
}

// Next returns the first tick after t.
func (d *Daemon) Next(t time.Time) time.Time {
	return d.sched.Next(t.In(d.loc))
}

// Run blocks until ctx is cancelled, sweeping on every tick. In-flight
// sweeps finish before Run returns.
func (d *Daemon) Run(ctx context.Context) error {
	logger := cronLogger{d.log}
	c := cron.New(
		cron.WithParser(parser),
		cron.WithLocation(d.loc),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(d.spec, func() { _, _ = d.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("register sweep: %w", err)
	}
	c.Start()
	d.log.Info("daemon started", "spec", d.spec, "tz", d.loc.String(), "next", d.Next(time.Now()))

	<-ctx.Done()
	<-c.Stop().Done()
	d.log.Info("daemon stopped")
	return nil
}

// RunOnce performs a single sweep.
func (d *Daemon) RunOnce(ctx context.Context) (*application.SweepReport, error) {
	started := time.Now()
	report, err := d.sweeper.Sweep(ctx)
	if err != nil {
		d.log.Error("overdue sweep failed", "error", err)
		return nil, err
	}
	d.log.Info("overdue sweep done",
		"goals", len(report.Goals), "failed", report.Failed, "took", time.Since(started).Round(time.Millisecond))
	if d.OnReport != nil {
		d.OnReport(report)
	}
	return report, nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
