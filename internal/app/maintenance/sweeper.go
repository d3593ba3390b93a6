package maintenance

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/vitalboard/server/internal/records"
	"github.com/vitalboard/server/pkg/logger"
	"github.com/vitalboard/server/pkg/metrics"
)

const (
	defaultSchedule = "@hourly"
	recordPrefix    = "users/"
)

// recordSuffix matches the store-assigned part of a record path so the
// email portion can be recovered for grouping.
var recordSuffix = regexp.MustCompile(`-[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.json$`)

// Sweeper periodically scans the record store for emails that have
// accumulated more than one physical record. The store cannot prevent
// the duplicate race, so the sweep makes the degraded state visible
// through the duplicate gauge and the log.
type Sweeper struct {
	store    records.Store
	cron     *cron.Cron
	schedule string
	log      *zap.Logger
}

// Option customises the Sweeper.
type Option func(*Sweeper)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(s *Sweeper) {
		if c != nil {
			s.cron = c
		}
	}
}

// WithSchedule overrides the cron specification for the duplicate sweep.
func WithSchedule(spec string) Option {
	return func(s *Sweeper) {
		if spec != "" {
			s.schedule = spec
		}
	}
}

// NewSweeper constructs a Sweeper with sensible defaults.
func NewSweeper(store records.Store, opts ...Option) (*Sweeper, error) {
	if store == nil {
		return nil, fmt.Errorf("maintenance: record store is required")
	}

	sweeper := &Sweeper{
		store:    store,
		schedule: defaultSchedule,
		log:      logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(sweeper)
	}

	if sweeper.cron == nil {
		sweeper.cron = cron.New()
	}

	return sweeper, nil
}

// Start registers the sweep job and launches the scheduler.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := s.Sweep(ctx); err != nil {
			s.log.Error("duplicate sweep failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("maintenance: schedule sweep: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Sweep scans all user records once and updates the duplicate gauge.
func (s *Sweeper) Sweep(ctx context.Context) error {
	refs, err := s.store.Find(ctx, recordPrefix)
	if err != nil {
		return fmt.Errorf("maintenance: list records: %w", err)
	}

	perEmail := make(map[string]int)
	for _, ref := range refs {
		perEmail[groupKey(ref.Path)]++
	}

	duplicates := 0
	for key, count := range perEmail {
		if count > 1 {
			duplicates++
			s.log.Warn("email has multiple records",
				zap.String("prefix", key),
				zap.Int("count", count),
			)
		}
	}

	metrics.DuplicateUserRecords.Set(float64(duplicates))
	s.log.Debug("duplicate sweep complete",
		zap.Int("records", len(refs)),
		zap.Int("duplicate_emails", duplicates),
	)

	return nil
}

func groupKey(path string) string {
	return recordSuffix.ReplaceAllString(path, "")
}
