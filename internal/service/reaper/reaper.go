// Package reaper permanently removes trashed entries whose retention
// window has elapsed, deleting both the store record and the on-disk
// artifact.
package reaper

import (
	"context"
	"log/slog"
	"time"

	"filevault/internal/config"
	"filevault/internal/domain/models"
	"filevault/internal/domain/repositories"
	"filevault/internal/domain/services"
	"filevault/internal/service/hierarchy"
	"filevault/internal/storage"
)

// Config holds the dependencies of the reaper.
type Config struct {
	Entries  repositories.EntryRepository
	Files    storage.Backend
	Resolver services.PathResolver
	Locks    *hierarchy.EntryLocks // shared with the hierarchy service
	Interval time.Duration
	Clock    func() time.Time
	Logger   *slog.Logger
}

// Reaper scans for expired trash on a fixed interval.
type Reaper struct {
	entries  repositories.EntryRepository
	files    storage.Backend
	resolver services.PathResolver
	locks    *hierarchy.EntryLocks
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// New creates a reaper.
func New(cfg Config) *Reaper {
	r := &Reaper{
		entries:  cfg.Entries,
		files:    cfg.Files,
		resolver: cfg.Resolver,
		locks:    cfg.Locks,
		interval: cfg.Interval,
		now:      cfg.Clock,
		logger:   cfg.Logger,
	}
	if r.resolver == nil {
		r.resolver = hierarchy.NewPathResolver(cfg.Entries)
	}
	if r.locks == nil {
		r.locks = hierarchy.NewEntryLocks()
	}
	if r.interval == 0 {
		r.interval = config.DefaultReaperInterval
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Run reaps on the configured interval until the context is cancelled.
// Intended to run as its own goroutine next to the HTTP server.
func (r *Reaper) Run(ctx context.Context) {
	r.logger.Info("trash reaper started", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("trash reaper stopped")
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single reaping pass and returns how many entries
// were permanently deleted. Per-entry failures are logged and skipped
// so one bad entry cannot block the rest of the batch; running twice
// over the same expired set is a no-op the second time.
func (r *Reaper) RunOnce(ctx context.Context) int {
	now := r.now()
	expired, err := r.entries.ListExpired(ctx, now)
	if err != nil {
		r.logger.Error("reaper: list expired entries", "error", err)
		return 0
	}
	if len(expired) == 0 {
		return 0
	}

	r.logger.Info("reaping expired trash", "candidates", len(expired))

	reaped := 0
	for _, entry := range expired {
		if err := r.reapOne(ctx, entry, now); err != nil {
			r.logger.Error("reaper: skipping entry",
				"id", entry.ID.Hex(),
				"name", entry.Name,
				"error", err,
			)
			continue
		}
		reaped++
	}

	r.logger.Info("reaping pass finished", "reaped", reaped)
	return reaped
}

// reapOne removes one expired entry. The per-entry lock is shared with
// the hierarchy service, so a concurrent restore either completes
// before the reap (and the re-check below skips the entry) or waits
// until the entry is fully gone.
func (r *Reaper) reapOne(ctx context.Context, entry models.Entry, now time.Time) error {
	unlock := r.locks.Lock(entry.ID)
	defer unlock()

	// Re-read under the lock: the entry may have been restored, or
	// already deleted while reaping its trashed ancestor.
	current, err := r.entries.GetByID(ctx, entry.ID)
	if err != nil {
		return nil // already gone, nothing to do
	}
	if !current.IsTrash || current.ExpiryTime == nil || current.ExpiryTime.After(now) {
		return nil // restored since the scan
	}

	path, err := r.resolver.Resolve(ctx, current)
	if err == nil {
		// Remove ignores missing artifacts: a descendant's bytes may
		// already be gone with its reaped ancestor's directory.
		if err := r.files.Remove(path); err != nil {
			return err
		}
	} else {
		// An unresolvable path (reaped parent, corrupt chain) leaves no
		// artifact to delete; still drop the record.
		r.logger.Debug("reaper: path unresolvable, deleting record only",
			"id", current.ID.Hex(),
			"error", err,
		)
	}

	if err := r.entries.Delete(ctx, current.ID); err != nil {
		return err
	}

	r.logger.Info("entry reaped",
		"id", current.ID.Hex(),
		"name", current.Name,
		"type", current.Type,
	)
	return nil
}
