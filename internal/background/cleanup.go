package background

import (
	"context"
	"log/slog"
	"time"
)

// Pruner is any in-memory store that can drop expired entries and
// report how many it removed. Redis-backed stores expire keys on their
// own and never register here.
type Pruner interface {
	PruneExpired() int
}

// CleanupManager periodically sweeps the in-memory stores so expired
// rate-limit windows and abandoned MFA challenges do not accumulate in
// long-running single-instance deployments.
type CleanupManager struct {
	pruners  map[string]Pruner
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(logger *slog.Logger, interval time.Duration) *CleanupManager {
	return &CleanupManager{
		pruners:  make(map[string]Pruner),
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Register adds a store to the sweep. Call before Start.
func (cm *CleanupManager) Register(name string, pruner Pruner) {
	cm.pruners[name] = pruner
}

// Start begins the periodic cleanup task. Blocks until Stop or context
// cancellation; run it in its own goroutine.
func (cm *CleanupManager) Start(ctx context.Context) {
	if len(cm.pruners) == 0 {
		cm.logger.Info("cleanup manager idle, no in-memory stores registered")
		return
	}

	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cm.runCleanup()
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup() {
	for name, pruner := range cm.pruners {
		if removed := pruner.PruneExpired(); removed > 0 {
			cm.logger.Info("pruned expired entries",
				slog.String("store", name),
				slog.Int("removed", removed))
		}
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
