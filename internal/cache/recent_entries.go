package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/guestbook/internal/model"
)

const (
	recentKey = "guestbook:entries:recent"
	lastIDKey = "guestbook:entries:last_id"
)

// pushScript prepends entries whose id is above the stored high-water mark,
// then trims the list and moves the mark. ARGV = size, id1, json1, id2, json2 ...
// with ids ascending.
var pushScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[2]) or '0'
local last = tonumber(raw)
local size = tonumber(ARGV[1])
local pushed = 0
for i = 2, #ARGV, 2 do
  local id = tonumber(ARGV[i])
  if id > last then
    redis.call('LPUSH', KEYS[1], ARGV[i + 1])
    last = id
    raw = ARGV[i]
    pushed = pushed + 1
  end
end
redis.call('LTRIM', KEYS[1], 0, size - 1)
redis.call('SET', KEYS[2], raw)
return pushed
`)

// RecentEntries keeps the newest guestbook entries in a capped Redis list,
// newest at the head. It is a read accelerator only; the database stays the
// source of truth.
type RecentEntries struct {
	client *redis.Client
	size   int

	hits   atomic.Int64
	misses atomic.Int64
}

// NewRecentEntries builds a cache holding at most size entries.
func NewRecentEntries(client *redis.Client, size int) *RecentEntries {
	if size <= 0 {
		size = 100
	}
	return &RecentEntries{client: client, size: size}
}

// Size is the maximum number of cached entries.
func (c *RecentEntries) Size() int { return c.size }

// Push adds entries not yet seen by the cache. Entries at or below the
// high-water mark are skipped, so repeated pushes are harmless.
func (c *RecentEntries) Push(ctx context.Context, entries ...*model.Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	sorted := append([]*model.Entry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	args := make([]interface{}, 0, 1+2*len(sorted))
	args = append(args, c.size)
	for _, e := range sorted {
		payload, err := json.Marshal(e)
		if err != nil {
			return 0, err
		}
		args = append(args, e.ID, payload)
	}
	n, err := pushScript.Run(ctx, c.client, []string{recentKey, lastIDKey}, args...).Int()
	if err != nil {
		return 0, fmt.Errorf("push recent entries: %w", err)
	}
	return n, nil
}

// Replace drops the cached list and stores entries (newest first) instead.
func (c *RecentEntries) Replace(ctx context.Context, entries []*model.Entry) error {
	if len(entries) > c.size {
		entries = entries[:c.size]
	}
	payloads := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		payload, err := json.Marshal(e)
		if err != nil {
			return err
		}
		payloads = append(payloads, payload)
	}

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, recentKey, lastIDKey)
		if len(payloads) > 0 {
			pipe.RPush(ctx, recentKey, payloads...)
			pipe.Set(ctx, lastIDKey, entries[0].ID, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace recent entries: %w", err)
	}
	return nil
}

// Recent returns the n newest cached entries, newest first. ok is false
// (a miss) when the cache cannot answer for the whole request: it is empty,
// or it is full and holds fewer than n entries. A list shorter than the cap
// already holds every entry in the table.
func (c *RecentEntries) Recent(ctx context.Context, n int) (entries []*model.Entry, ok bool, err error) {
	if n <= 0 {
		return []*model.Entry{}, true, nil
	}
	vals, err := c.client.LRange(ctx, recentKey, 0, int64(min(n, c.size)-1)).Result()
	if err != nil {
		return nil, false, fmt.Errorf("read recent entries: %w", err)
	}
	if len(vals) == 0 || (len(vals) < n && len(vals) >= c.size) {
		c.misses.Add(1)
		return nil, false, nil
	}

	entries = make([]*model.Entry, 0, len(vals))
	for _, v := range vals {
		var e model.Entry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			return nil, false, fmt.Errorf("decode cached entry: %w", err)
		}
		entries = append(entries, &e)
	}
	c.hits.Add(1)
	return entries, true, nil
}

// IDs lists the cached entry ids, newest first. It does not touch the
// hit/miss counters.
func (c *RecentEntries) IDs(ctx context.Context) ([]uint64, error) {
	vals, err := c.client.LRange(ctx, recentKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read recent ids: %w", err)
	}
	out := make([]uint64, 0, len(vals))
	for _, v := range vals {
		var e struct {
			ID uint64 `json:"id"`
		}
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			return nil, fmt.Errorf("decode cached entry: %w", err)
		}
		out = append(out, e.ID)
	}
	return out, nil
}

// LastID is the highest entry id the cache has seen, 0 when empty.
func (c *RecentEntries) LastID(ctx context.Context) (uint64, error) {
	v, err := c.client.Get(ctx, lastIDKey).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(v, 10, 64)
}

// Counters reports cache hits and misses since start or the last reset.
func (c *RecentEntries) Counters() Counters {
	return Counters{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// ResetCounters clears recorded hit/miss counters.
func (c *RecentEntries) ResetCounters() {
	c.hits.Store(0)
	c.misses.Store(0)
}

// Counters summarises cache reads.
type Counters struct {
	Hits   int64
	Misses int64
}
