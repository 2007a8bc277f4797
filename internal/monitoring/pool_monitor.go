package monitoring

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const pingTimeout = 5 * time.Second

// Pool is the part of a connection pool the monitor inspects.
type Pool interface {
	PingContext(ctx context.Context) error
	Stats() sql.DBStats
}

// PoolReport is the outcome of one monitor tick.
type PoolReport struct {
	Stats     sql.DBStats
	PingErr   error
	NewWaits  int64
	CheckedAt time.Time
}

// PoolMonitor periodically pings the database and logs pool statistics.
type PoolMonitor struct {
	pool     Pool
	schedule string
	cron     *cron.Cron

	mu        sync.Mutex
	lastWaits int64
}

// NewPoolMonitor creates a monitor that runs on a cron schedule such as
// "@every 1m" or "*/5 * * * *".
func NewPoolMonitor(pool Pool, schedule string) (*PoolMonitor, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid monitor schedule %q: %w", schedule, err)
	}
	return &PoolMonitor{
		pool:     pool,
		schedule: schedule,
		cron:     cron.New(),
	}, nil
}

// Start registers the check and starts the cron scheduler in the background.
func (m *PoolMonitor) Start() error {
	if _, err := m.cron.AddFunc(m.schedule, func() { m.Check(context.Background()) }); err != nil {
		return fmt.Errorf("failed to schedule pool monitor: %w", err)
	}
	log.Info().Str("schedule", m.schedule).Msg("Starting database pool monitor...")
	m.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for a running check to finish.
func (m *PoolMonitor) Stop() {
	<-m.cron.Stop().Done()
	log.Info().Msg("Stopped database pool monitor.")
}

// Check pings the pool once and logs its statistics. Connection waits that
// accumulated since the previous check are reported as a warning.
func (m *PoolMonitor) Check(ctx context.Context) PoolReport {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	report := PoolReport{CheckedAt: time.Now().UTC()}
	report.PingErr = m.pool.PingContext(ctx)
	report.Stats = m.pool.Stats()

	m.mu.Lock()
	report.NewWaits = report.Stats.WaitCount - m.lastWaits
	m.lastWaits = report.Stats.WaitCount
	m.mu.Unlock()

	if report.PingErr != nil {
		log.Error().Err(report.PingErr).Msg("PoolMonitor: Database ping failed")
	}

	event := log.Debug()
	if report.NewWaits > 0 {
		event = log.Warn()
	}
	event.
		Int("open", report.Stats.OpenConnections).
		Int("in_use", report.Stats.InUse).
		Int("idle", report.Stats.Idle).
		Int("max_open", report.Stats.MaxOpenConnections).
		Int64("new_waits", report.NewWaits).
		Dur("wait_duration", report.Stats.WaitDuration).
		Msg("PoolMonitor: Connection pool stats")

	return report
}
