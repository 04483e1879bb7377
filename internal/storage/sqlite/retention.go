package sqlite

import (
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"

	"github.com/ilias-t/griblet/pkg/logger"
)

// RetentionSweeper periodically deletes catalog records past their maximum
// age, together with their source files and cache artifacts.
type RetentionSweeper struct {
	storage  *RecordStorage
	clock    clockwork.Clock
	maxAge   time.Duration
	schedule string
	cron     *cron.Cron
	logger   *logger.Logger
}

// NewRetentionSweeper creates a sweeper over the given catalog
func NewRetentionSweeper(storage *RecordStorage, clock clockwork.Clock, schedule string, maxAge time.Duration, log *logger.Logger) *RetentionSweeper {
	return &RetentionSweeper{
		storage:  storage,
		clock:    clock,
		maxAge:   maxAge,
		schedule: schedule,
		logger:   log.Named("retention-sweeper"),
	}
}

// Start schedules the sweep according to the configured cron expression
func (s *RetentionSweeper) Start() error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.schedule, func() { s.Sweep() }); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("Retention sweep scheduled",
		logger.String("schedule", s.schedule),
		logger.Duration("max_age", s.maxAge))
	return nil
}

// Stop cancels the scheduled sweeps
func (s *RetentionSweeper) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Sweep removes expired records and their files. File removal is best
// effort: a file that cannot be deleted does not resurrect the record.
func (s *RetentionSweeper) Sweep() int {
	cutoff := s.clock.Now().Add(-s.maxAge)
	expired, err := s.storage.DeleteOlderThan(cutoff)
	if err != nil {
		s.logger.Error("Retention sweep failed", logger.Error(err))
		return 0
	}

	for _, record := range expired {
		for _, path := range []string{record.SourcePath, record.CachePath} {
			if path == "" {
				continue
			}
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				s.logger.Warn("Failed to remove expired file",
					logger.String("path", path),
					logger.Error(err))
			}
		}
	}

	if len(expired) > 0 {
		s.logger.Info("Retention sweep completed",
			logger.Int("records_removed", len(expired)),
			logger.Time("cutoff", cutoff))
	}
	return len(expired)
}
