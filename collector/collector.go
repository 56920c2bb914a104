// Package collector periodically drops idle form sessions and reports the
// submission counters.
package collector

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vainnor/fatigue-report/types"
)

// Sweeper drops sessions that have been idle too long and returns how many
type Sweeper interface {
	SweepSessions() int
}

// StatsSource reports the counters logged after each sweep
type StatsSource interface {
	Stats() types.SubmissionStats
}

type Collector struct {
	sweeper Sweeper
	stats   StatsSource
	logger  *zap.Logger
	now     func() time.Time

	// Totals across runs
	runs    int64
	expired int64
}

func NewCollector(sweeper Sweeper, stats StatsSource, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		sweeper: sweeper,
		stats:   stats,
		logger:  logger,
		now:     time.Now,
	}
}

// Collect runs one sweep and logs the current counters
func (c *Collector) Collect() int {
	n := c.sweeper.SweepSessions()
	c.runs++
	c.expired += int64(n)

	fields := []zap.Field{
		zap.Int("expired", n),
		zap.Int64("expired_total", c.expired),
		zap.Int64("runs", c.runs),
	}
	if c.stats != nil {
		s := c.stats.Stats()
		fields = append(fields,
			zap.Int64("submissions", s.Submissions),
			zap.Int64("duplicates", s.Duplicates),
			zap.Int64("failures", s.Failures),
			zap.Int64("failed_logins", s.FailedLogins),
			zap.Duration("uptime", c.now().Sub(s.StartTime).Round(time.Second)),
		)
	}

	if n > 0 {
		c.logger.Info("session sweep", fields...)
	} else {
		c.logger.Debug("session sweep", fields...)
	}
	return n
}

// Run sweeps every interval until the context is cancelled
func (c *Collector) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.logger.Info("starting session collector", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Collect()
		}
	}
}
