// Package scheduler runs the daemon's timed jobs: arming and disarming
// protection on a cron schedule, the sensor watchdog and incident digests.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/manav03panchal/bikeguard/internal/config"
	"github.com/manav03panchal/bikeguard/internal/logging"
)

// specParser accepts five-field specs, six-field specs with seconds, and
// descriptors such as @daily.
var specParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ParseSpec validates a schedule expression.
func ParseSpec(spec string) (cron.Schedule, error) {
	sched, err := specParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return sched, nil
}

// Toggler is what the arm/disarm jobs drive.
type Toggler interface {
	Activate()
	Deactivate()
}

// Scheduler manages scheduled jobs using cron.
type Scheduler struct {
	cron      *cron.Cron
	guard     Toggler
	lastCheck time.Time
	mu        sync.Mutex
	watchdog  *Watchdog
	summary   *SummaryGenerator
}

// NewScheduler creates a scheduler driving g.
func NewScheduler(g Toggler) *Scheduler {
	return &Scheduler{
		cron:  cron.New(cron.WithParser(specParser)),
		guard: g,
	}
}

// SetWatchdog sets the sensor watchdog run every minute.
func (s *Scheduler) SetWatchdog(w *Watchdog) {
	s.watchdog = w
}

// SetSummaryGenerator sets the digest sender.
func (s *Scheduler) SetSummaryGenerator(g *SummaryGenerator) {
	s.summary = g
}

// Configure registers the arm, disarm and summary jobs named in cfg. Empty
// specs are skipped.
func (s *Scheduler) Configure(cfg config.ScheduleConfig) error {
	if cfg.ArmAt != "" {
		if _, err := s.AddJob(cfg.ArmAt, s.arm); err != nil {
			return fmt.Errorf("arm_at: %w", err)
		}
	}
	if cfg.DisarmAt != "" {
		if _, err := s.AddJob(cfg.DisarmAt, s.disarm); err != nil {
			return fmt.Errorf("disarm_at: %w", err)
		}
	}
	if cfg.SummaryAt != "" && s.summary != nil {
		if _, err := s.AddJob(cfg.SummaryAt, s.summary.Send); err != nil {
			return fmt.Errorf("summary_at: %w", err)
		}
	}
	return nil
}

func (s *Scheduler) arm() {
	logging.Info("scheduled arm", logging.KeyComponent, "scheduler")
	s.guard.Activate()
}

func (s *Scheduler) disarm() {
	logging.Info("scheduled disarm", logging.KeyComponent, "scheduler")
	s.guard.Deactivate()
}

// Start starts the scheduler with all configured jobs.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	s.lastCheck = time.Now()
	s.mu.Unlock()

	if _, err := s.cron.AddFunc("@every 1m", s.runMinuteChecks); err != nil {
		return fmt.Errorf("failed to add minute checks: %w", err)
	}

	s.cron.Start()
	logging.DebugLog("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	logging.DebugLog("scheduler stopped")
}

// runMinuteChecks runs checks that need to happen every minute.
func (s *Scheduler) runMinuteChecks() {
	s.mu.Lock()
	elapsed := time.Since(s.lastCheck)
	s.lastCheck = time.Now()
	s.mu.Unlock()

	// Skip if the machine was asleep.
	if elapsed > time.Hour {
		logging.DebugLog("skipping stale checks", "slept", elapsed.Round(time.Second))
		return
	}

	if s.watchdog != nil {
		s.watchdog.Check()
	}
}

// AddJob adds a custom job to the scheduler.
func (s *Scheduler) AddJob(spec string, job func()) (cron.EntryID, error) {
	if _, err := ParseSpec(spec); err != nil {
		return 0, err
	}
	return s.cron.AddFunc(spec, job)
}

// RemoveJob removes a job from the scheduler.
func (s *Scheduler) RemoveJob(id cron.EntryID) {
	s.cron.Remove(id)
}

// Entries returns all scheduled entries.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

// NextRun returns the next scheduled run time for any job.
func (s *Scheduler) NextRun() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}

	next := entries[0].Next
	for _, e := range entries[1:] {
		if e.Next.Before(next) {
			next = e.Next
		}
	}
	return next
}

// NextArm returns when spec next fires after from, or the zero time for an
// empty or invalid spec.
func NextArm(spec string, from time.Time) time.Time {
	if spec == "" {
		return time.Time{}
	}
	sched, err := ParseSpec(spec)
	if err != nil {
		return time.Time{}
	}
	return sched.Next(from)
}
