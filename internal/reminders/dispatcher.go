// Package reminders advances the reminder schedule carried on invitation
// rows. It maintains the metadata the clients read; actual delivery of
// reminder messages happens elsewhere on the platform.
package reminders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/courtlink/playerfinder/internal/finder"
	"github.com/courtlink/playerfinder/internal/models"
	"github.com/courtlink/playerfinder/internal/tracker"
	"github.com/courtlink/playerfinder/pkg/logger"
	"github.com/courtlink/playerfinder/pkg/metrics"
)

const (
	defaultSchedule        = "@every 1m"
	defaultIntervalMinutes = 720
)

// Option customises the Dispatcher.
type Option func(*Dispatcher)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(d *Dispatcher) {
		if c != nil {
			d.cron = c
		}
	}
}

// WithNow overrides the clock used for due-date comparisons.
func WithNow(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// WithSchedule overrides the cron specification for the reminder sweep.
func WithSchedule(spec string) Option {
	return func(d *Dispatcher) {
		if spec != "" {
			d.schedule = spec
		}
	}
}

// Dispatcher periodically sweeps pending invitations whose next reminder has
// come due and advances their schedule.
type Dispatcher struct {
	db       *gorm.DB
	cron     *cron.Cron
	schedule string
	now      func() time.Time
	log      *zap.Logger
}

// NewDispatcher constructs a Dispatcher with sensible defaults.
func NewDispatcher(db *gorm.DB, opts ...Option) (*Dispatcher, error) {
	if db == nil {
		return nil, errors.New("reminders: database handle is required")
	}

	dispatcher := &Dispatcher{
		db:       db,
		schedule: defaultSchedule,
		now:      time.Now,
		log:      logger.WithModule("reminders"),
	}

	for _, opt := range opts {
		opt(dispatcher)
	}

	if dispatcher.cron == nil {
		dispatcher.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return dispatcher, nil
}

// Start registers the sweep with the cron scheduler and launches it.
func (d *Dispatcher) Start() error {
	if _, err := d.cron.AddFunc(d.schedule, func() {
		if _, err := d.Sweep(context.Background()); err != nil {
			d.log.Warn("reminder sweep failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	d.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (d *Dispatcher) Stop() {
	ctx := d.cron.Stop()
	<-ctx.Done()
}

// Sweep advances every due reminder once. Only PENDING rows are considered;
// an invitee who already answered needs no nudging. Row-level failures are
// collected so one bad row cannot stall the rest of the sweep.
func (d *Dispatcher) Sweep(ctx context.Context) (int, error) {
	now := d.now()

	var rows []models.Invitation
	err := d.db.WithContext(ctx).
		Where("status = ? AND next_reminder_at IS NOT NULL AND next_reminder_at <= ?",
			string(finder.StatusPending), now).
		Find(&rows).Error
	if err != nil {
		return 0, fmt.Errorf("reminders: load due rows: %w", err)
	}

	var errs error
	advanced := 0
	for i := range rows {
		if err := d.advance(ctx, &rows[i], now); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("invitation %s: %w", rows[i].ID, err))
			continue
		}
		advanced++
	}

	if advanced > 0 {
		d.log.Info("reminders advanced", zap.Int("count", advanced))
	}
	return advanced, errs
}

func (d *Dispatcher) advance(ctx context.Context, row *models.Invitation, now time.Time) error {
	interval := defaultIntervalMinutes
	if len(row.ReminderPolicy) > 0 {
		var policy tracker.ReminderPolicy
		if err := json.Unmarshal(row.ReminderPolicy, &policy); err != nil {
			return fmt.Errorf("decode reminder policy: %w", err)
		}
		if policy.IntervalMinutes > 0 {
			interval = policy.IntervalMinutes
		}
	}

	next := now.Add(time.Duration(interval) * time.Minute)
	err := d.db.WithContext(ctx).Model(row).Updates(map[string]any{
		"last_reminder_sent_at": now,
		"next_reminder_at":      next,
	}).Error
	if err != nil {
		return err
	}

	metrics.RemindersAdvanced.Inc()
	return nil
}
