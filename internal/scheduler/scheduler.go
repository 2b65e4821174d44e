// Package scheduler periodically re-syncs the project cache with the remote
// while someone is signed in.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/research-hub/internal/metrics"
	"github.com/GoSim-25-26J-441/research-hub/internal/store"
)

const runTimeout = time.Minute

// Syncer reloads the project list. *store.ProjectStore satisfies it.
type Syncer interface {
	FetchProjects(ctx context.Context) error
}

// Identity tells whether a user is signed in. *store.AuthStore satisfies it.
type Identity interface {
	State() store.AuthState
}

type Scheduler struct {
	cron     *cron.Cron
	syncer   Syncer
	identity Identity
	log      *zap.Logger
	metrics  *metrics.Metrics
}

type Option func(*Scheduler)

func WithLogger(l *zap.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// New registers the re-sync job on schedule, a standard five-field cron
// expression or a descriptor such as "@every 5m". Runs never overlap.
func New(schedule string, syncer Syncer, identity Identity, opts ...Option) (*Scheduler, error) {
	s := &Scheduler{syncer: syncer, identity: identity, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	logger := cronLogger{s.log.Sugar()}
	s.cron = cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := s.cron.AddFunc(schedule, func() { _ = s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", schedule, err)
	}
	return s, nil
}

// RunOnce re-fetches the projects if a user is signed in.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if !s.identity.State().SignedIn() {
		s.count("skipped")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	start := time.Now()
	if err := s.syncer.FetchProjects(ctx); err != nil {
		s.count("error")
		s.log.Warn("project re-sync failed", zap.Error(err), zap.Duration("took", time.Since(start)))
		return err
	}
	s.count("ok")
	s.log.Debug("project re-sync done", zap.Duration("took", time.Since(start)))
	return nil
}

func (s *Scheduler) count(result string) {
	if s.metrics != nil {
		s.metrics.SyncRuns.WithLabelValues(result).Inc()
	}
}

// Start runs the job in the background.
func (s *Scheduler) Start() {
	s.log.Info("sync scheduler started")
	s.cron.Start()
}

// Stop stops scheduling and returns a context that is done once a running
// job has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
