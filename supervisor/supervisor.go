package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/xraph/jobcore/command"
	"github.com/xraph/jobcore/handler"
	"github.com/xraph/jobcore/job"
)

const (
	// DefaultSchedule runs a sweep every minute.
	DefaultSchedule = "@every 1m"
	// DefaultStaleAfter is how long a processing job may go without an
	// update before it is failed.
	DefaultStaleAfter = 30 * time.Minute
)

// Lister finds stale processing jobs.
type Lister interface {
	ListStaleJobs(ctx context.Context, threshold time.Duration) ([]*job.Job, error)
}

// Dispatcher applies commands.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd command.Command) (handler.Result, error)
}

// cronParser supports standard 5-field cron and descriptors like "@every 30s".
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithSchedule sets the cron expression for sweeps.
func WithSchedule(expr string) Option {
	return func(s *Supervisor) { s.schedule = expr }
}

// WithStaleAfter sets the inactivity threshold.
func WithStaleAfter(d time.Duration) Option {
	return func(s *Supervisor) {
		if d > 0 {
			s.staleAfter = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Supervisor) { s.logger = l }
}

// Supervisor periodically fails stale jobs.
type Supervisor struct {
	lister     Lister
	dispatcher Dispatcher
	schedule   string
	staleAfter time.Duration
	logger     *slog.Logger

	mu   sync.Mutex
	cron *cronlib.Cron
}

// New creates a Supervisor.
func New(l Lister, d Dispatcher, opts ...Option) *Supervisor {
	s := &Supervisor{
		lister:     l,
		dispatcher: d,
		schedule:   DefaultSchedule,
		staleAfter: DefaultStaleAfter,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start schedules the sweep. It returns an error if the schedule does not
// parse or the supervisor is already running.
func (s *Supervisor) Start(ctx context.Context) error {
	sched, err := cronParser.Parse(s.schedule)
	if err != nil {
		return fmt.Errorf("supervisor: parse schedule %q: %w", s.schedule, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return fmt.Errorf("supervisor: already started")
	}

	c := cronlib.New(cronlib.WithChain(cronlib.SkipIfStillRunning(cronlib.DiscardLogger)))
	c.Schedule(sched, cronlib.FuncJob(func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Warn("stale job sweep failed", slog.String("error", err.Error()))
		}
	}))
	c.Start()
	s.cron = c

	s.logger.Info("supervisor started",
		slog.String("schedule", s.schedule),
		slog.Duration("stale_after", s.staleAfter),
	)
	return nil
}

// Stop halts scheduling and waits for a running sweep to finish or ctx
// to expire.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		s.logger.Info("supervisor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the supervisor and blocks until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	return s.Stop(stopCtx)
}

// Sweep fails every stale processing job once and returns how many
// were failed. A job that finished between listing and dispatch is
// skipped by the handler.
func (s *Supervisor) Sweep(ctx context.Context) (int, error) {
	stale, err := s.lister.ListStaleJobs(ctx, s.staleAfter)
	if err != nil {
		return 0, fmt.Errorf("supervisor: list stale jobs: %w", err)
	}

	failed := 0
	for _, j := range stale {
		idle := time.Since(j.UpdatedAt).Truncate(time.Second)
		res, err := s.dispatcher.Dispatch(ctx, &command.FailJobByCorrelation{
			CorrelationID: j.CorrelationID,
			ErrorMessage:  fmt.Sprintf("stalled: no progress for %s", idle),
		})
		if err != nil {
			s.logger.Warn("fail stale job",
				slog.String("job_id", j.ID.String()),
				slog.String("error", err.Error()),
			)
			continue
		}
		if res == handler.ResultApplied {
			failed++
			s.logger.Info("failed stale job",
				slog.String("job_id", j.ID.String()),
				slog.String("correlation_id", j.CorrelationID),
				slog.Duration("idle", idle),
			)
		}
	}
	return failed, nil
}
