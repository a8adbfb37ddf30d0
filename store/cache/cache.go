// Package cache implements the cache-aside layer for the bundle scoring
// engine: normalized keys, TTL routing by key pattern, tag-based bulk
// invalidation, transparent compression of large payloads, and running
// metrics.
//
// The layer is safe to operate against an unavailable backend. Every read,
// write and delete degrades to a miss or no-op instead of returning an
// error; the single exception is the factory call inside GetOrSet, whose
// failure propagates because there is no cached value to fall back to.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"
)

const (
	// tagSetPrefix is the namespace for tag membership sets.
	tagSetPrefix = "cache_tag:"
	// tagSetTTL bounds how long tag membership sets live, independent of
	// their member keys' own TTLs.
	tagSetTTL = 24 * time.Hour
	// defaultCompressionThreshold is the serialized size above which
	// payloads are compressed.
	defaultCompressionThreshold = 10 * 1024
	// defaultKeyPrefix is the key namespace for all cache entries.
	defaultKeyPrefix = "kct"
)

// Entry wraps every stored value. It is owned exclusively by the cache
// layer; callers never see it.
type Entry struct {
	Data       []byte   `json:"data"`
	Timestamp  int64    `json:"timestamp"`
	Version    string   `json:"version,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Compressed bool     `json:"compressed"`
}

// SetOptions controls a single Set call. The zero value routes TTL by key
// pattern, compresses only above the size threshold, and registers no tags.
type SetOptions struct {
	TTL      time.Duration
	Compress bool
	Tags     []string
	Version  string
}

// Config configures a Cache.
type Config struct {
	// KeyPrefix is the namespace prepended to every key (default "kct").
	KeyPrefix string
	// CompressionThreshold is the serialized size in bytes above which
	// payloads are compressed (default 10 KB).
	CompressionThreshold int
	// Compressor is the compression strategy (default gzip).
	Compressor Compressor
}

// Cache is the cache-aside layer over a Backend.
type Cache struct {
	backend    Backend
	prefix     string
	threshold  int
	compressor Compressor
	metrics    *Metrics
	logger     *slog.Logger
}

// New creates a Cache over the given backend.
func New(backend Backend, config *Config) *Cache {
	if config == nil {
		config = &Config{}
	}
	prefix := config.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	threshold := config.CompressionThreshold
	if threshold <= 0 {
		threshold = defaultCompressionThreshold
	}
	compressor := config.Compressor
	if compressor == nil {
		compressor = GzipCompressor{}
	}
	return &Cache{
		backend:    backend,
		prefix:     prefix,
		threshold:  threshold,
		compressor: compressor,
		metrics:    NewMetrics(),
		logger:     slog.Default(),
	}
}

// keySanitizer substitutes characters the backend key syntax forbids.
var keySanitizer = strings.NewReplacer(" ", "_", "\n", "_", "\r", "_", "\t", "_")

// NormalizeKey prefixes and sanitizes a caller-supplied key.
func (c *Cache) NormalizeKey(key string) string {
	return c.prefix + ":" + keySanitizer.Replace(key)
}

func (c *Cache) tagSetKey(tag string) string {
	return tagSetPrefix + keySanitizer.Replace(tag)
}

// Get fetches a key and unmarshals it into dest. It returns false on miss,
// on deserialization failure, and on any backend error.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	start := time.Now()
	fullKey := c.NormalizeKey(key)

	raw, err := c.backend.Get(ctx, fullKey)
	if err != nil {
		if err == ErrNotFound {
			c.metrics.RecordMiss(time.Since(start))
			c.logger.Debug("cache miss", "cache_key", fullKey)
			return false
		}
		c.metrics.RecordError()
		c.logger.Error("cache get failed", "cache_key", fullKey, "error", err)
		return false
	}

	// Failures past this point surface as misses: the lookup happened, it
	// just yielded nothing usable. They also count as errors.
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.metrics.RecordError()
		c.metrics.RecordMiss(time.Since(start))
		c.logger.Error("cache entry corrupt", "cache_key", fullKey, "error", err)
		return false
	}

	payload := entry.Data
	if entry.Compressed {
		payload, err = c.compressor.Decompress(payload)
		if err != nil {
			c.metrics.RecordError()
			c.metrics.RecordMiss(time.Since(start))
			c.logger.Error("cache decompress failed", "cache_key", fullKey, "error", err)
			return false
		}
	}

	if err := json.Unmarshal(payload, dest); err != nil {
		c.metrics.RecordError()
		c.metrics.RecordMiss(time.Since(start))
		c.logger.Error("cache payload unmarshal failed", "cache_key", fullKey, "error", err)
		return false
	}

	c.metrics.RecordHit(time.Since(start))
	c.logger.Debug("cache hit", "cache_key", fullKey)
	return true
}

// Set stores a value under key. The effective TTL comes from opts.TTL when
// supplied, otherwise from the routing table keyed on the raw key. Returns
// false on backend failure; never returns an error.
func (c *Cache) Set(ctx context.Context, key string, value any, opts *SetOptions) bool {
	start := time.Now()
	if opts == nil {
		opts = &SetOptions{}
	}
	fullKey := c.NormalizeKey(key)

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = ResolveTTL(key)
	}

	payload, err := json.Marshal(value)
	if err != nil {
		c.metrics.RecordError()
		c.logger.Error("cache value marshal failed", "cache_key", fullKey, "error", err)
		return false
	}

	entry := Entry{
		Data:      payload,
		Timestamp: time.Now().UnixMilli(),
		Version:   opts.Version,
		Tags:      opts.Tags,
	}
	if len(payload) > c.threshold || opts.Compress {
		compressed, err := c.compressor.Compress(payload)
		if err != nil {
			c.logger.Warn("cache compress failed, storing uncompressed", "cache_key", fullKey, "error", err)
		} else {
			entry.Data = compressed
			entry.Compressed = true
		}
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		c.metrics.RecordError()
		c.logger.Error("cache entry marshal failed", "cache_key", fullKey, "error", err)
		return false
	}

	if err := c.backend.Set(ctx, fullKey, raw, ttl); err != nil {
		c.metrics.RecordError()
		c.logger.Error("cache set failed", "cache_key", fullKey, "error", err)
		return false
	}

	// Tag bookkeeping is best-effort: a failed registration never fails
	// the write it annotates.
	for _, tag := range opts.Tags {
		tagKey := c.tagSetKey(tag)
		if err := c.backend.SAdd(ctx, tagKey, fullKey); err != nil {
			c.logger.Warn("cache tag registration failed", "tag", tag, "cache_key", fullKey, "error", err)
			continue
		}
		if err := c.backend.Expire(ctx, tagKey, tagSetTTL); err != nil {
			c.logger.Warn("cache tag expire failed", "tag", tag, "error", err)
		}
	}

	c.metrics.RecordSet(time.Since(start))
	c.logger.Debug("cache set", "cache_key", fullKey, "ttl", ttl, "compressed", entry.Compressed)
	return true
}

// Delete removes a key and scrubs it from any tag sets it belongs to.
// Tag scrubbing is best-effort.
func (c *Cache) Delete(ctx context.Context, key string) bool {
	start := time.Now()
	fullKey := c.NormalizeKey(key)

	// Read the entry first so its tag memberships can be scrubbed.
	var tags []string
	if raw, err := c.backend.Get(ctx, fullKey); err == nil {
		var entry Entry
		if err := json.Unmarshal(raw, &entry); err == nil {
			tags = entry.Tags
		}
	}

	if _, err := c.backend.Del(ctx, fullKey); err != nil {
		c.metrics.RecordError()
		c.logger.Error("cache delete failed", "cache_key", fullKey, "error", err)
		return false
	}

	for _, tag := range tags {
		if err := c.backend.SRem(ctx, c.tagSetKey(tag), fullKey); err != nil {
			c.logger.Warn("cache tag scrub failed", "tag", tag, "cache_key", fullKey, "error", err)
		}
	}

	c.metrics.RecordDelete(time.Since(start))
	return true
}

// InvalidateByTags deletes every key registered under each tag, then the tag
// sets themselves. Returns the total number of member keys removed. Absent
// tags are no-ops.
func (c *Cache) InvalidateByTags(ctx context.Context, tags []string) int64 {
	var total int64
	for _, tag := range tags {
		tagKey := c.tagSetKey(tag)
		members, err := c.backend.SMembers(ctx, tagKey)
		if err != nil {
			c.metrics.RecordError()
			c.logger.Error("cache tag members lookup failed", "tag", tag, "error", err)
			continue
		}
		if len(members) > 0 {
			removed, err := c.backend.Del(ctx, members...)
			if err != nil {
				c.metrics.RecordError()
				c.logger.Error("cache tag invalidation failed", "tag", tag, "error", err)
				continue
			}
			total += removed
		}
		if _, err := c.backend.Del(ctx, tagKey); err != nil {
			c.logger.Warn("cache tag set delete failed", "tag", tag, "error", err)
		}
	}
	if total > 0 {
		c.logger.Debug("cache invalidated by tags", "tags", tags, "removed", total)
	}
	return total
}

// InvalidateByPattern scans the normalized namespace for keys matching the
// wildcard pattern and bulk-deletes them. Returns the number of keys removed.
func (c *Cache) InvalidateByPattern(ctx context.Context, pattern string) int64 {
	fullPattern := c.NormalizeKey(pattern)
	keys, err := c.backend.ScanKeys(ctx, fullPattern)
	if err != nil {
		c.metrics.RecordError()
		c.logger.Error("cache pattern scan failed", "pattern", fullPattern, "error", err)
		return 0
	}
	if len(keys) == 0 {
		return 0
	}
	removed, err := c.backend.Del(ctx, keys...)
	if err != nil {
		c.metrics.RecordError()
		c.logger.Error("cache pattern delete failed", "pattern", fullPattern, "error", err)
		return 0
	}
	c.logger.Debug("cache invalidated by pattern", "pattern", fullPattern, "removed", removed)
	return removed
}

// Factory computes a value on cache miss.
type Factory func(ctx context.Context) (any, error)

// GetOrSet implements the cache-aside pattern: on miss it invokes factory,
// stores the result, and unmarshals it into dest. A factory error propagates
// to the caller; this is the only path where a failure inside the cache
// layer is not swallowed.
func (c *Cache) GetOrSet(ctx context.Context, key string, dest any, factory Factory, opts *SetOptions) error {
	if c.Get(ctx, key, dest) {
		return nil
	}

	value, err := factory(ctx)
	if err != nil {
		return err
	}

	c.Set(ctx, key, value, opts)

	// Round-trip through JSON so dest sees exactly what a later Get would.
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, dest)
}

// Metrics returns a snapshot of the running counters.
func (c *Cache) Metrics() MetricsSnapshot {
	return c.metrics.Snapshot()
}

// ResetMetrics zeroes the running counters.
func (c *Cache) ResetMetrics() {
	c.metrics.Reset()
}

// HealthInfo reports backend connectivity, key count and current metrics.
type HealthInfo struct {
	Status      string          `json:"status"`
	PingLatency time.Duration   `json:"ping_latency_ns"`
	KeyCount    int64           `json:"key_count"`
	Metrics     MetricsSnapshot `json:"metrics"`
}

// GetHealthInfo pings the backend and reports health.
func (c *Cache) GetHealthInfo(ctx context.Context) HealthInfo {
	info := HealthInfo{Status: "healthy", Metrics: c.metrics.Snapshot()}

	start := time.Now()
	if err := c.backend.Ping(ctx); err != nil {
		info.Status = "unavailable"
		return info
	}
	info.PingLatency = time.Since(start)

	if count, err := c.backend.KeyCount(ctx); err == nil {
		info.KeyCount = count
	}
	return info
}

// Clear removes every key in the cache namespace, including tag sets.
// Returns the number of keys removed.
func (c *Cache) Clear(ctx context.Context) int64 {
	var total int64
	for _, pattern := range []string{c.prefix + ":*", tagSetPrefix + "*"} {
		keys, err := c.backend.ScanKeys(ctx, pattern)
		if err != nil {
			c.metrics.RecordError()
			c.logger.Error("cache clear scan failed", "pattern", pattern, "error", err)
			continue
		}
		if len(keys) == 0 {
			continue
		}
		removed, err := c.backend.Del(ctx, keys...)
		if err != nil {
			c.metrics.RecordError()
			c.logger.Error("cache clear delete failed", "pattern", pattern, "error", err)
			continue
		}
		total += removed
	}
	return total
}

// Close closes the backend connection.
func (c *Cache) Close() error {
	return c.backend.Close()
}
