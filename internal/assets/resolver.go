// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package assets resolves template image variables to uploaded files.
//
// Resolution walks an ordered table of strategies, from the candidates the
// caller supplied, through recorded upload mappings, to scans of the storage
// directories, and stops at the first match. Failures are reported as
// structured results; Resolve never returns an error.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Strategy names reported in Result.Strategy.
const (
	StrategyExactExplicit  = "exact-explicit"
	StrategyPrefixExplicit = "prefix-explicit"
	StrategyMapping        = "mapping"
	StrategyCache          = "cache"
	StrategyScopedScan     = "scoped-scan"
	StrategyExhaustiveScan = "exhaustive-scan"
)

// Result is the outcome of one resolution.
type Result struct {
	Found        bool   `json:"found"`
	Path         string `json:"imagePath,omitempty"`
	Filename     string `json:"filename,omitempty"`
	Strategy     string `json:"strategy,omitempty"`
	Error        string `json:"error,omitempty"`
	VariableName string `json:"variableName,omitempty"`
}

// NotFoundError formats the message of a failed resolution.
func NotFoundError(variableName, value string) string {
	return fmt.Sprintf("Image not found for variable %q with value %q", variableName, value)
}

// MappingStore persists variable-to-file mappings recorded at upload time.
type MappingStore interface {
	// FindPath returns the recorded path, or "" if there is none.
	FindPath(ctx context.Context, variableName, value string) (string, error)
	// DeleteByPaths drops mappings pointing at removed files.
	DeleteByPaths(ctx context.Context, paths []string) (int, error)
}

// ResultCache remembers directory-scan hits between requests.
type ResultCache interface {
	Get(ctx context.Context, variableName, value string) (string, bool)
	Set(ctx context.Context, variableName, value, path string)
	Clear(ctx context.Context)
}

// query is the input every strategy sees.
type query struct {
	variableName string
	value        string
	prefix       string
	explicit     []string
}

// strategy is one row of the resolution table.
type strategy struct {
	name string
	find func(ctx context.Context, q query) (string, bool)
}

// Resolver locates image assets. It is safe for concurrent use; only
// PurgeStale mutates the filesystem and it serializes itself.
type Resolver struct {
	dirs     Dirs
	mappings MappingStore
	cache    ResultCache
	log      *slog.Logger

	strategies []strategy
	purgeMu    sync.Mutex
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for scan and purge failures.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.log = l }
}

// WithMappings enables the recorded-mapping strategy.
func WithMappings(m MappingStore) Option {
	return func(r *Resolver) { r.mappings = m }
}

// WithCache enables caching of exhaustive-scan hits. The cache is consulted
// only after the recent-uploads scan, so a fresh upload always wins over a
// cached older file.
func WithCache(c ResultCache) Option {
	return func(r *Resolver) { r.cache = c }
}

// NewResolver creates the configured directories once and returns a
// Resolver scanning them. Later out-of-band deletion of a directory is
// tolerated; it is then treated as empty.
func NewResolver(dirs Dirs, opts ...Option) (*Resolver, error) {
	if err := EnsureDirs(dirs); err != nil {
		return nil, err
	}
	r := &Resolver{dirs: dirs, log: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	r.strategies = []strategy{
		{StrategyExactExplicit, r.exactExplicit},
		{StrategyPrefixExplicit, r.prefixExplicit},
		{StrategyMapping, r.recordedMapping},
		{StrategyScopedScan, r.scopedScan},
		{StrategyCache, r.cachedScan},
		{StrategyExhaustiveScan, r.exhaustiveScan},
	}
	return r, nil
}

// Dirs returns the directories the resolver scans.
func (r *Resolver) Dirs() Dirs {
	return r.dirs
}

// Resolve finds the asset for variableName/value. explicit holds paths or
// URLs supplied by the current request and takes precedence over anything
// on disk.
func (r *Resolver) Resolve(ctx context.Context, variableName, value string, explicit []string) Result {
	q := query{
		variableName: variableName,
		value:        value,
		prefix:       variablePrefix(variableName),
		explicit:     explicit,
	}
	for _, s := range r.strategies {
		if ctx.Err() != nil {
			break
		}
		p, ok := s.find(ctx, q)
		if !ok {
			continue
		}
		if r.cache != nil && s.name == StrategyExhaustiveScan {
			r.cache.Set(ctx, variableName, value, p)
		}
		r.log.Debug("asset resolved", "variable", variableName, "strategy", s.name, "path", p)
		return Result{Found: true, Path: p, Filename: Filename(p), Strategy: s.name}
	}
	return Result{
		Found:        false,
		Error:        NotFoundError(variableName, value),
		VariableName: variableName,
	}
}

func (r *Resolver) exactExplicit(_ context.Context, q query) (string, bool) {
	for _, c := range q.explicit {
		name := Filename(c)
		if !IsImageFile(name) {
			continue
		}
		if name == q.value || BaseFilename(name) == q.value {
			return c, true
		}
	}
	return "", false
}

func (r *Resolver) prefixExplicit(_ context.Context, q query) (string, bool) {
	for _, c := range q.explicit {
		name := Filename(c)
		if IsImageFile(name) && hasVariablePrefix(name, q.prefix) {
			return c, true
		}
	}
	return "", false
}

func (r *Resolver) recordedMapping(ctx context.Context, q query) (string, bool) {
	if r.mappings == nil {
		return "", false
	}
	p, err := r.mappings.FindPath(ctx, q.variableName, q.value)
	if err != nil {
		r.log.Warn("asset mapping lookup failed", "variable", q.variableName, "error", err)
		return "", false
	}
	if p == "" || !imageExists(p) {
		return "", false
	}
	return p, true
}

// cachedScan stands in for the exhaustive scan when an earlier one already
// found the file.
func (r *Resolver) cachedScan(ctx context.Context, q query) (string, bool) {
	if r.cache == nil {
		return "", false
	}
	p, ok := r.cache.Get(ctx, q.variableName, q.value)
	if !ok || !imageExists(p) {
		return "", false
	}
	return p, true
}

// scopedScan looks only at the recent-uploads directory, where the
// customization form stores files for the current story.
func (r *Resolver) scopedScan(_ context.Context, q query) (string, bool) {
	return r.scan(r.dirs.RecentUploads, func(name string) bool {
		return name == q.value ||
			hasVariablePrefix(name, q.prefix) ||
			BaseFilename(name) == q.value
	})
}

// exhaustiveScan walks every storage directory in fixed order.
func (r *Resolver) exhaustiveScan(ctx context.Context, q query) (string, bool) {
	for _, dir := range r.dirs.Ordered() {
		if ctx.Err() != nil {
			return "", false
		}
		p, ok := r.scan(dir, func(name string) bool {
			return name == q.value || hasVariablePrefix(name, q.prefix)
		})
		if ok {
			return p, true
		}
	}
	return "", false
}

// scan returns the first image file in dir, in listing order, accepted by
// match. A missing directory is empty; any other listing error is logged
// and treated as no match.
func (r *Resolver) scan(dir string, match func(name string) bool) (string, bool) {
	if dir == "" {
		return "", false
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			r.log.Warn("asset directory scan failed", "dir", dir, "error", err)
		}
		return "", false
	}
	for _, e := range entries {
		if e.IsDir() || !IsImageFile(e.Name()) {
			continue
		}
		if match(e.Name()) {
			return filepath.Join(dir, e.Name()), true
		}
	}
	return "", false
}

// imageExists reports whether p is an existing regular file with an image
// extension.
func imageExists(p string) bool {
	if !IsImageFile(p) {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
