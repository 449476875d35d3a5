// Package cache provides an optional, best-effort rank-list cache over
// go-redis/redis/v8, in the cache-aside shape of the teacher's
// internal/cache/valkey.go (there repointed from submission results to
// rank lists).
//
// Unlike the teacher's NewValkeyClient, a connection failure at startup
// here is non-fatal: the cache is never load-bearing for correctness (the
// job store is the system of record), only a latency optimization for the
// ranklist endpoint, so the service disables caching and keeps serving
// requests rather than refusing to start.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type RankList struct {
	client *redis.Client
}

// Dial connects to addr. If the ping fails, it returns (nil, err) — the
// caller is expected to log and continue with a nil *RankList, under which
// Get/Set/InvalidateAll/Close are all safe no-ops.
func Dial(addr, password string) (*RankList, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: 0})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: connect to %s: %w", addr, err)
	}
	return &RankList{client: client}, nil
}

func key(contestID int, scoring, tieBreaker string) string {
	return fmt.Sprintf("ranklist:%d:%s:%s", contestID, scoring, tieBreaker)
}

// Get returns the cached rows for the given scope, if present.
func (r *RankList) Get(ctx context.Context, contestID int, scoring, tieBreaker string, out any) bool {
	if r == nil {
		return false
	}
	data, err := r.client.Get(ctx, key(contestID, scoring, tieBreaker)).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

// Set stores rows for 30 seconds — long enough to absorb a burst of
// leaderboard refreshes, short enough that a rerun's effect on standings
// becomes visible quickly.
func (r *RankList) Set(ctx context.Context, contestID int, scoring, tieBreaker string, rows any) {
	if r == nil {
		return
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return
	}
	_ = r.client.Set(ctx, key(contestID, scoring, tieBreaker), data, 30*time.Second).Err()
}

// InvalidateAll drops every cached rank list. Called whenever a job is
// appended or replaced, since any submission can change any contest's
// standings (global re-scoring, see internal/ranking).
func (r *RankList) InvalidateAll(ctx context.Context) {
	if r == nil {
		return
	}
	iter := r.client.Scan(ctx, 0, "ranklist:*", 0).Iterator()
	for iter.Next(ctx) {
		_ = r.client.Del(ctx, iter.Val()).Err()
	}
}

func (r *RankList) Close() error {
	if r == nil {
		return nil
	}
	return r.client.Close()
}
