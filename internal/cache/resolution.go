// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// resolution.go remembers where a directory scan found the image for a
// variable/value pair, so repeated renders of the same story skip the scan.
// Entries are only hints: the resolver re-checks the file before use.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// resolutionKeyPrefix is the Valkey key prefix for resolved asset paths.
	resolutionKeyPrefix = "asset:"

	// DefaultResolutionTTL is how long a resolved path stays cached.
	DefaultResolutionTTL = 30 * time.Minute
)

// ResolutionCache stores resolved asset paths in Valkey.
type ResolutionCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

// NewResolutionCache creates a cache backed by the given Valkey client.
// Cache errors are logged to log, or to slog.Default() when log is nil.
func NewResolutionCache(client *redis.Client, ttl time.Duration, log *slog.Logger) *ResolutionCache {
	if ttl == 0 {
		ttl = DefaultResolutionTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &ResolutionCache{client: client, ttl: ttl, log: log}
}

// ResolutionKey returns the Valkey key for a variable/value pair.
func ResolutionKey(variableName, value string) string {
	return resolutionKeyPrefix + variableName + "|" + value
}

// Get returns the cached path, or false on a miss or error.
func (rc *ResolutionCache) Get(ctx context.Context, variableName, value string) (string, bool) {
	p, err := rc.client.Get(ctx, ResolutionKey(variableName, value)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		rc.log.Warn("resolution cache get error", "variable", variableName, "error", err)
		return "", false
	}
	rc.log.Debug("resolution cache hit", "variable", variableName)
	return p, true
}

// Set stores a resolved path with the configured TTL.
func (rc *ResolutionCache) Set(ctx context.Context, variableName, value, path string) {
	if err := rc.client.Set(ctx, ResolutionKey(variableName, value), path, rc.ttl).Err(); err != nil {
		rc.log.Warn("resolution cache set error", "variable", variableName, "error", err)
	}
}

// Clear removes every cached resolution by scanning for the prefix.
// Called after a purge, since any cached path may point at a deleted file.
func (rc *ResolutionCache) Clear(ctx context.Context) {
	var cursor uint64
	var deleted int
	for {
		keys, nextCursor, err := rc.client.Scan(ctx, cursor, resolutionKeyPrefix+"*", 100).Result()
		if err != nil {
			rc.log.Warn("resolution cache scan error", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := rc.client.Del(ctx, keys...).Err(); err != nil {
				rc.log.Warn("resolution cache bulk delete error", "error", err)
			}
			deleted += len(keys)
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		rc.log.Info("resolution cache cleared", "deleted", deleted)
	}
}
