package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/taskdeck/backend/domain"
	"github.com/taskdeck/backend/internal/infrastructure/localcache"
	taskUC "github.com/taskdeck/backend/usecase/task"
)

// ConnectionHealth abstracts the connection monitor.
type ConnectionHealth interface {
	IsOnline() bool
}

// ImporterConfig controls the import retry schedule.
type ImporterConfig struct {
	Interval time.Duration
}

// Importer drains locally cached task lists into the remote store. A
// user becomes eligible on their first authenticated session; while the
// backend is offline the drain is retried on a cron schedule. Malformed
// cached entries are dropped individually by the task use case.
type Importer struct {
	cache   *localcache.Store
	tasks   *taskUC.UseCase
	monitor ConnectionHealth
	logger  *zap.Logger
	cron    *cron.Cron
	cfg     ImporterConfig

	mu      sync.Mutex
	pending map[string]struct{}
}

func NewImporter(cache *localcache.Store, tasks *taskUC.UseCase, monitor ConnectionHealth, logger *zap.Logger, cfg ImporterConfig) *Importer {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	imp := &Importer{
		cache:   cache,
		tasks:   tasks,
		monitor: monitor,
		logger:  logger,
		cfg:     cfg,
		cron:    cron.New(cron.WithSeconds()),
		pending: make(map[string]struct{}),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = imp.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		imp.DrainPending(ctx)
	})

	return imp
}

// Start launches the retry scheduler.
func (imp *Importer) Start() {
	if imp == nil || imp.cron == nil {
		return
	}
	imp.cron.Start()
	imp.logger.Info("import scheduler started")
}

// Stop gracefully stops the scheduler.
func (imp *Importer) Stop(ctx context.Context) {
	if imp == nil || imp.cron == nil {
		return
	}
	stopCtx := imp.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	imp.logger.Info("import scheduler stopped")
}

// HandleSessionEvent marks the user eligible for import on sign-in and
// attempts the drain immediately.
func (imp *Importer) HandleSessionEvent(event domain.SessionEvent) {
	if event.Session == nil || event.UserID == "" {
		return
	}
	imp.mu.Lock()
	imp.pending[event.UserID] = struct{}{}
	imp.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), imp.cfg.Interval)
	defer cancel()
	imp.DrainPending(ctx)
}

// DrainPending imports the cached list of every eligible user. A remote
// failure leaves the user pending for the next scheduled attempt.
func (imp *Importer) DrainPending(ctx context.Context) {
	if imp.monitor != nil && !imp.monitor.IsOnline() {
		imp.logger.Debug("skipping cache import (offline)")
		return
	}

	imp.mu.Lock()
	users := make([]string, 0, len(imp.pending))
	for userID := range imp.pending {
		users = append(users, userID)
	}
	imp.mu.Unlock()

	for _, userID := range users {
		if err := imp.drainUser(ctx, userID); err != nil {
			imp.logger.Warn("cache import failed, will retry",
				zap.String("user_id", userID), zap.Error(err))
			continue
		}
		imp.mu.Lock()
		delete(imp.pending, userID)
		imp.mu.Unlock()
	}
}

func (imp *Importer) drainUser(ctx context.Context, userID string) error {
	entries, err := imp.cache.CachedTasks(userID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	imported, dropped, err := imp.tasks.ImportCached(ctx, userID, entries)
	if err != nil {
		// keep only the entries the aborted run did not reach
		if consumed := imported + dropped; consumed > 0 && consumed < len(entries) {
			_ = imp.cache.SaveCachedTasks(userID, entries[consumed:])
		}
		return err
	}

	imp.logger.Info("cached tasks imported",
		zap.String("user_id", userID),
		zap.Int("imported", imported),
		zap.Int("dropped", dropped))

	return imp.cache.ClearCachedTasks(userID)
}
