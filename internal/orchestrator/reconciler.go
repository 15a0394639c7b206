package orchestrator

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/botdock/botdock/internal"
)

// sweepConcurrency caps how many containers are sampled at once during a
// reconciliation sweep.
const sweepConcurrency = 8

// Reconciler periodically samples resource usage for every bot recorded as
// RUNNING with a live container and appends a status history row per bot.
// It never mutates a bot's primary state; it only augments the history
// used for uptime and utilization analytics.
type Reconciler struct {
	store    Store
	runtime  Runtime
	interval time.Duration
}

// NewReconciler creates a reconciler sampling at the given interval. A
// non-positive interval falls back to internal.DefaultReconcileInterval.
func NewReconciler(store Store, runtime Runtime, interval time.Duration) *Reconciler {
	if interval <= 0 {
		interval = internal.DefaultReconcileInterval
	}
	return &Reconciler{store: store, runtime: runtime, interval: interval}
}

// Run samples on every tick until the context is canceled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep samples every running bot once. Per-bot failures are isolated: a
// failed stats call or history append for one bot never aborts the sweep
// for the others.
func (r *Reconciler) Sweep(ctx context.Context) {
	bots, err := r.store.ListBots(ctx)
	if err != nil {
		log.Warnf("reconciler: failed to list bots: %v", err)
		return
	}

	g := new(errgroup.Group)
	g.SetLimit(sweepConcurrency)

	for _, bot := range bots {
		if bot.Status != internal.StatusRunning || bot.ContainerID == "" {
			continue
		}
		g.Go(func() error {
			r.sample(ctx, bot)
			return nil
		})
	}

	_ = g.Wait()
}

func (r *Reconciler) sample(ctx context.Context, bot internal.Bot) {
	// A container torn down mid-sweep fails soft here: stats come back
	// absent and the sample is recorded without usage values.
	var cpu, mem *float64
	if stats, ok := r.runtime.ContainerStats(ctx, bot.ContainerID); ok {
		cpu = &stats.CPUPercent
		mem = &stats.MemoryUsageMB
	}

	if err := r.store.AppendStatusHistory(ctx, bot.ID, bot.Status, cpu, mem); err != nil {
		log.WithField("bot", bot.ID).Warnf("reconciler: failed to append usage sample: %v", err)
	}
}
