package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/ticketdesk/internal/config"
)

// MaintenanceAnnouncer publishes due notices for maintenance windows opening soon.
type MaintenanceAnnouncer interface {
	AnnounceUpcomingMaintenance(ctx context.Context, window time.Duration) (int, error)
}

// MaintenanceScheduler runs the maintenance-due sweep on a cron schedule.
type MaintenanceScheduler struct {
	announcer MaintenanceAnnouncer
	window    time.Duration
	spec      string
	cron      *cron.Cron
	logger    *zap.Logger

	mu      sync.Mutex
	rootCtx context.Context
}

// NewMaintenanceScheduler validates the schedule and builds a scheduler.
// Specs use the five-field cron syntax or descriptors such as @hourly.
func NewMaintenanceScheduler(cfg config.SchedulerConfig, announcer MaintenanceAnnouncer, logger *zap.Logger) (*MaintenanceScheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(cfg.MaintenanceDueSpec); err != nil {
		return nil, fmt.Errorf("invalid maintenance schedule %q: %w", cfg.MaintenanceDueSpec, err)
	}
	window := cfg.MaintenanceDueWindow()
	if window <= 0 {
		window = time.Hour
	}
	return &MaintenanceScheduler{
		announcer: announcer,
		window:    window,
		spec:      cfg.MaintenanceDueSpec,
		cron:      cron.New(cron.WithParser(parser), cron.WithLocation(time.UTC)),
		logger:    logger,
		rootCtx:   context.Background(),
	}, nil
}

// Run schedules the sweep and blocks until ctx is cancelled.
func (s *MaintenanceScheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.rootCtx = ctx
	s.mu.Unlock()

	if _, err := s.cron.AddFunc(s.spec, func() { s.Sweep() }); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("maintenance scheduler started", zap.String("spec", s.spec), zap.Duration("window", s.window))

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("maintenance scheduler stopped")
	return nil
}

// Sweep runs one announcement pass and returns how many tasks were announced.
func (s *MaintenanceScheduler) Sweep() int {
	s.mu.Lock()
	ctx := s.rootCtx
	s.mu.Unlock()

	count, err := s.announcer.AnnounceUpcomingMaintenance(ctx, s.window)
	if err != nil {
		s.logger.Warn("maintenance sweep failed", zap.Error(err))
		return 0
	}
	if count > 0 {
		s.logger.Info("maintenance windows announced", zap.Int("count", count))
	}
	return count
}
