// Package bench drives a cache with a synthetic Zipf workload whose entries
// have random sizes.
package bench

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/sizecache/cache"
	"github.com/IvanBrykalov/sizecache/internal/config"
	"github.com/IvanBrykalov/sizecache/internal/util"
	"github.com/IvanBrykalov/sizecache/policy/twoq"
)

// Cache is the cache shape exercised by the benchmark: string keys, byte
// slices sized by their length, no context.
type Cache = cache.Cache[string, []byte, struct{}]

// NewCache builds a Synced cache (Shards == 0) or a Sharded one from cfg.
// Entry size is len(value).
func NewCache(cfg config.Cache, m cache.Metrics, log *zap.Logger) (Cache, error) {
	opt := cache.Options[string, []byte, struct{}]{
		SizeOf:  func(_ string, v []byte) int64 { return int64(len(v)) },
		Shards:  cfg.Shards,
		Metrics: m,
		Logger:  log,
	}

	switch cfg.Policy {
	case "", "lru":
		// nil => LRU by default
	case "2q":
		// Each shard gets its own policy instance, so split the probation
		// budget the same way the size budget is split.
		n := int64(1)
		if cfg.Shards > 0 {
			n = min(int64(util.NextPow2(uint64(cfg.Shards))), util.MaxShards)
			if cfg.MaxSize > 0 {
				n = min(n, int64(util.PrevPow2(uint64(cfg.MaxSize))))
			}
		}
		probation := int64(float64(cfg.MaxSize)*cfg.ProbationRatio) / n
		opt.Policy = twoq.New[string](probation, max(cfg.Ghosts/int(n), 1))
	default:
		return nil, fmt.Errorf("bench: unknown policy %q (use lru or 2q)", cfg.Policy)
	}

	if cfg.Shards > 0 {
		return cache.NewSharded(cfg.MaxSize, opt), nil
	}
	return cache.NewSynced(cfg.MaxSize, opt), nil
}

// Report summarizes one run.
type Report struct {
	Ops, Reads, Writes, Hits, Misses uint64

	Elapsed time.Duration
	Stats   cache.Stats

	Len     int
	Size    int64
	MaxSize int64
}

// OpsPerSec returns the throughput of the run.
func (r Report) OpsPerSec() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Ops) / r.Elapsed.Seconds()
}

// HitRate returns hits / reads in percent.
func (r Report) HitRate() float64 {
	if r.Reads == 0 {
		return 0
	}
	return float64(r.Hits) / float64(r.Reads) * 100
}

type counters struct {
	ops, reads, writes, hits, misses atomic.Uint64
}

// Run preloads c, then runs w.Workers goroutines for w.Duration (or until
// ctx is done). Reads use Get and flag hits as utilized; writes store a
// value of random size in [w.MinEntry, w.MaxEntry].
func Run(ctx context.Context, c Cache, w config.Workload, log *zap.Logger) (Report, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if w.Workers <= 0 || w.Keys < 2 || w.MaxEntry < w.MinEntry {
		return Report{}, fmt.Errorf("bench: invalid workload %+v", w)
	}

	// Values are read-only views of one buffer; only their length matters.
	buf := make([]byte, w.MaxEntry)
	pick := func(r *rand.Rand) []byte {
		return buf[:w.MinEntry+r.Int63n(w.MaxEntry-w.MinEntry+1)]
	}

	pr := rand.New(rand.NewSource(w.Seed))
	for i := 0; i < w.Preload; i++ {
		c.SetValue(key(uint64(i)), pick(pr), struct{}{})
	}
	log.Info("bench: preloaded", zap.Int("keys", w.Preload), zap.Int64("size", c.Size()))

	runCtx, cancel := context.WithTimeout(ctx, w.Duration)
	defer cancel()

	var cnt counters
	g, gctx := errgroup.WithContext(runCtx)
	start := time.Now()
	for id := 0; id < w.Workers; id++ {
		g.Go(func() error {
			// rand.Rand is not goroutine-safe: one RNG + Zipf per worker.
			r := rand.New(rand.NewSource(w.Seed + int64(id+1)*9973))
			zipf := rand.NewZipf(r, w.ZipfS, w.ZipfV, w.Keys-1)

			for gctx.Err() == nil {
				cnt.ops.Add(1)
				k := key(zipf.Uint64())
				if r.Intn(100) < w.ReadPct {
					cnt.reads.Add(1)
					if _, ok := c.Get(k); ok {
						cnt.hits.Add(1)
						c.SetAsUtilized(k)
					} else {
						cnt.misses.Add(1)
					}
				} else {
					cnt.writes.Add(1)
					c.SetValue(k, pick(r), struct{}{})
				}
			}
			return nil
		})
	}
	err := g.Wait()
	elapsed := time.Since(start)

	rep := Report{
		Ops:     cnt.ops.Load(),
		Reads:   cnt.reads.Load(),
		Writes:  cnt.writes.Load(),
		Hits:    cnt.hits.Load(),
		Misses:  cnt.misses.Load(),
		Elapsed: elapsed,
		Stats:   c.Stats(),
		Len:     c.Len(),
		Size:    c.Size(),
		MaxSize: c.MaxSize(),
	}
	log.Info("bench: done",
		zap.Uint64("ops", rep.Ops),
		zap.Duration("elapsed", rep.Elapsed),
		zap.Float64("hit_rate", rep.HitRate()),
		zap.Uint64("evictions", rep.Stats.Evictions),
	)
	return rep, err
}

func key(i uint64) string { return "k:" + strconv.FormatUint(i, 10) }
