// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// PurgeStale deletes files in the recent-uploads directory last modified
// more than maxAgeDays ago and returns how many were removed. A file that
// cannot be deleted is logged and skipped. Concurrent calls are serialized.
func (r *Resolver) PurgeStale(ctx context.Context, maxAgeDays int) (int, error) {
	if maxAgeDays < 0 {
		return 0, fmt.Errorf("purge: max age must not be negative, got %d", maxAgeDays)
	}

	r.purgeMu.Lock()
	defer r.purgeMu.Unlock()

	dir := r.dirs.RecentUploads
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("purge: read %s: %w", dir, err)
	}

	cutoff := time.Now().AddDate(0, 0, -maxAgeDays)
	var removed []string
	for _, e := range entries {
		if ctx.Err() != nil {
			break
		}
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Deleted by someone else between listing and stat.
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if err := os.Remove(p); err != nil {
			r.log.Warn("purge: delete failed", "path", p, "error", err)
			continue
		}
		removed = append(removed, p)
	}

	if len(removed) > 0 {
		if r.cache != nil {
			r.cache.Clear(ctx)
		}
		if r.mappings != nil {
			if _, err := r.mappings.DeleteByPaths(ctx, removed); err != nil {
				r.log.Warn("purge: mapping cleanup failed", "error", err)
			}
		}
	}
	r.log.Info("stale assets purged", "dir", dir, "deleted", len(removed), "max_age_days", maxAgeDays)
	return len(removed), ctx.Err()
}

// Purger runs PurgeStale on a fixed interval. Run it from exactly one
// goroutine; that goroutine is the scheduler that keeps sweeps from
// overlapping.
type Purger struct {
	resolver   *Resolver
	interval   time.Duration
	maxAgeDays int
}

// NewPurger creates a periodic purge job.
func NewPurger(r *Resolver, interval time.Duration, maxAgeDays int) *Purger {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Purger{resolver: r, interval: interval, maxAgeDays: maxAgeDays}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (p *Purger) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if _, err := p.resolver.PurgeStale(ctx, p.maxAgeDays); err != nil && ctx.Err() == nil {
			p.resolver.log.Error("scheduled purge failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
