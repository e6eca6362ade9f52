package host

import (
	"context"
	"fmt"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/stellarlinkco/toolsdk/pkg/plugin"
)

// UsageFlushPluginName is the lifecycle plugin persisting tool usage on a
// schedule.
const UsageFlushPluginName = "usage-flush"

type flusher interface {
	Flush(ctx context.Context) error
}

// usageFlush writes the conversation's usage counters to the store on a cron
// schedule.
type usageFlush struct {
	schedule string
	target   flusher
	logger   zerolog.Logger

	mu   sync.Mutex
	cron *rcron.Cron
	runs int
}

var _ plugin.LifecyclePlugin = (*usageFlush)(nil)

func newUsageFlush(schedule string, target flusher, logger zerolog.Logger) *usageFlush {
	return &usageFlush{
		schedule: schedule,
		target:   target,
		logger:   logger.With().Str("component", "usage-flush").Logger(),
	}
}

func (f *usageFlush) Name() string { return UsageFlushPluginName }

func (f *usageFlush) Start(context.Context) error {
	c := rcron.New()
	if _, err := c.AddFunc(f.schedule, f.flush); err != nil {
		return fmt.Errorf("schedule %q: %w", f.schedule, err)
	}
	f.mu.Lock()
	f.cron = c
	f.mu.Unlock()
	c.Start()
	f.logger.Debug().Str("schedule", f.schedule).Msg("started")
	return nil
}

func (f *usageFlush) Stop(ctx context.Context) error {
	f.mu.Lock()
	c := f.cron
	f.cron = nil
	f.mu.Unlock()
	if c == nil {
		return nil
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		f.logger.Warn().Msg("stop timeout waiting for running flush")
	}
	return nil
}

func (f *usageFlush) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := f.target.Flush(ctx); err != nil {
		f.logger.Warn().Err(err).Msg("flush failed")
		return
	}
	f.mu.Lock()
	f.runs++
	f.mu.Unlock()
}
