package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mimir-aip/attrition-risk/pkg/logging"
	"github.com/mimir-aip/attrition-risk/pkg/pipeline"
)

// ErrRunInProgress is returned by Trigger while a retraining run is active
var ErrRunInProgress = errors.New("retraining already in progress")

// Runner executes one training run
type Runner interface {
	Run(ctx context.Context, dataPath string) (*pipeline.Report, error)
}

// Reloader swaps a freshly persisted model into service
type Reloader interface {
	Reload() error
}

// Service retrains the model on a cron schedule and reloads the
// prediction service after each successful run
type Service struct {
	schedule cron.Schedule
	spec     string
	dataPath string
	runner   Runner
	reloader Reloader
	logger   *logging.Logger
	cron     *cron.Cron

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewService creates a scheduler for a standard five-field cron expression
func NewService(spec, dataPath string, runner Runner, reloader Reloader, logger *logging.Logger) (*Service, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}
	if logger == nil {
		logger = logging.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		schedule: schedule,
		spec:     spec,
		dataPath: dataPath,
		runner:   runner,
		reloader: reloader,
		logger:   logger.With(logging.Component("scheduler")),
		cron:     cron.New(),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start starts the scheduler
func (s *Service) Start() {
	s.cron.Schedule(s.schedule, cron.FuncJob(func() {
		if err := s.Trigger(); err != nil && !errors.Is(err, ErrRunInProgress) {
			s.logger.Error("scheduled retraining failed", err)
		}
	}))
	s.cron.Start()
	s.logger.Info("retraining scheduler started",
		logging.String("schedule", s.spec),
		logging.String("next_run", s.NextRun(time.Now()).Format(time.RFC3339)),
	)
}

// Stop cancels any active run and waits for it to return
func (s *Service) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("retraining scheduler stopped")
}

// NextRun returns the next activation after t
func (s *Service) NextRun(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// Trigger runs one retraining immediately. Overlapping runs are skipped
// with ErrRunInProgress.
func (s *Service) Trigger() error {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("skipping retraining, previous run still active")
		return ErrRunInProgress
	}
	defer s.running.Store(false)

	s.logger.Info("retraining started", logging.String("data_path", s.dataPath))
	report, err := s.runner.Run(s.ctx, s.dataPath)
	if err != nil {
		return err
	}
	if err := s.reloader.Reload(); err != nil {
		return fmt.Errorf("failed to reload model after run %s: %w", report.Run.ID, err)
	}
	s.logger.Info("retraining completed",
		logging.String("run_id", report.Run.ID),
		logging.String("model", report.Run.BestModel),
	)
	return nil
}
