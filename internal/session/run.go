package session

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// RunOptions configure the periodic driver.
type RunOptions struct {
	Interval time.Duration
	// Reacquire re-steals the slot on ticks that find the session
	// Disconnected.
	Reacquire bool
}

// Run ticks SaveCycle every interval until ctx is done, then runs a final
// cycle so pending edits reach disk or the remote.
func (s *Session) Run(ctx context.Context, opts RunOptions) error {
	if opts.Interval <= 0 {
		return fmt.Errorf("run interval must be positive, got %s", opts.Interval)
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc("@every "+opts.Interval.String(), func() { s.tick(ctx, opts.Reacquire) }); err != nil {
		return fmt.Errorf("scheduling save cycle: %w", err)
	}
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()

	final := context.WithoutCancel(ctx)
	if _, err := s.SaveCycle(final); err != nil {
		s.logger.WarnContext(final, "sync_final_cycle_failed", "error", err.Error())
	}
	return nil
}

func (s *Session) tick(ctx context.Context, reacquire bool) {
	if ctx.Err() != nil {
		return
	}
	if reacquire && s.State() == Disconnected {
		if err := s.Steal(ctx); err != nil {
			s.logger.WarnContext(ctx, "sync_reacquire_failed", "error", err.Error())
		}
	}
	out, err := s.SaveCycle(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "sync_cycle_failed", "error", err.Error())
		return
	}
	s.logger.DebugContext(ctx, "sync_cycle", "outcome", out.String())
}
