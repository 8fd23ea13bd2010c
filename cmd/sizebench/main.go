// Command sizebench runs a synthetic workload against the size-bounded cache
// and exposes optional pprof/Prometheus endpoints.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/IvanBrykalov/sizecache/internal/bench"
	"github.com/IvanBrykalov/sizecache/internal/config"
	"github.com/IvanBrykalov/sizecache/internal/logger"
	pmet "github.com/IvanBrykalov/sizecache/metrics/prom"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfgFile string
		ov      config.Config
	)

	cmd := &cobra.Command{
		Use:   "sizebench",
		Short: "Drive a size-bounded LRU cache with a Zipf workload",
		Long: `sizebench preloads a cache, then hammers it with concurrent reads and
writes of randomly sized entries for a fixed duration and prints throughput,
hit rate and eviction counts.

Configuration layers: built-in defaults, --config YAML, SIZECACHE_* env
variables (SIZECACHE_CACHE__MAX_SIZE -> cache.max_size), then flags.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			applyFlags(cmd, cfg, &ov)
			if err := cfg.Validate(); err != nil {
				return err
			}

			log, err := logger.New(cfg.Log)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			undo := zap.ReplaceGlobals(log)
			defer undo()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cmd.OutOrStdout(), cfg, log)
		},
	}

	f := cmd.Flags()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML configuration file (optional)")
	f.Int64Var(&ov.Cache.MaxSize, "max-size", 0, "cache size budget (sum of entry sizes)")
	f.IntVar(&ov.Cache.Shards, "shards", 0, "number of shards (0 = single locked cache)")
	f.StringVar(&ov.Cache.Policy, "policy", "", "eviction policy: lru | 2q")
	f.IntVar(&ov.Workload.Workers, "workers", 0, "number of worker goroutines")
	f.DurationVar(&ov.Workload.Duration, "duration", 0, "benchmark duration")
	f.IntVar(&ov.Workload.ReadPct, "reads", 0, "read percentage [0..100]")
	f.Uint64Var(&ov.Workload.Keys, "keys", 0, "keyspace size")
	f.Int64Var(&ov.Workload.Seed, "seed", 0, "random seed")
	f.IntVar(&ov.Workload.Preload, "preload", 0, "entries written before the timed run")
	f.StringVar(&ov.HTTP.MetricsAddr, "http", "", "serve Prometheus metrics at addr (e.g. :8080)")
	f.StringVar(&ov.HTTP.PprofAddr, "pprof", "", "serve pprof at addr (e.g. :6060)")
	f.StringVar(&ov.Log.Level, "log-level", "", "log level: debug | info | warn | error")
	return cmd
}

// applyFlags copies explicitly set flags over the loaded configuration.
func applyFlags(cmd *cobra.Command, cfg, ov *config.Config) {
	set := cmd.Flags().Changed
	if set("max-size") {
		cfg.Cache.MaxSize = ov.Cache.MaxSize
	}
	if set("shards") {
		cfg.Cache.Shards = ov.Cache.Shards
	}
	if set("policy") {
		cfg.Cache.Policy = ov.Cache.Policy
	}
	if set("workers") {
		cfg.Workload.Workers = ov.Workload.Workers
	}
	if set("duration") {
		cfg.Workload.Duration = ov.Workload.Duration
	}
	if set("reads") {
		cfg.Workload.ReadPct = ov.Workload.ReadPct
	}
	if set("keys") {
		cfg.Workload.Keys = ov.Workload.Keys
	}
	if set("seed") {
		cfg.Workload.Seed = ov.Workload.Seed
	}
	if set("preload") {
		cfg.Workload.Preload = ov.Workload.Preload
	}
	if set("http") {
		cfg.HTTP.MetricsAddr = ov.HTTP.MetricsAddr
	}
	if set("pprof") {
		cfg.HTTP.PprofAddr = ov.HTTP.PprofAddr
	}
	if set("log-level") {
		cfg.Log.Level = ov.Log.Level
	}
}

func run(ctx context.Context, out io.Writer, cfg *config.Config, log *zap.Logger) error {
	// ---- Prometheus metrics (own registry) ----
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := pmet.New(reg, "sizecache", "bench", prometheus.Labels{"policy": cfg.Cache.Policy})

	var servers []*http.Server
	if addr := cfg.HTTP.MetricsAddr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		servers = append(servers, serve(log.Named("metrics"), addr, mux))
	}
	if addr := cfg.HTTP.PprofAddr; addr != "" {
		servers = append(servers, serve(log.Named("pprof"), addr, http.DefaultServeMux))
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, s := range servers {
			_ = s.Shutdown(sctx)
		}
	}()

	// ---- Build cache ----
	c, err := bench.NewCache(cfg.Cache, metrics, log.Named("cache"))
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	// ---- Load generation ----
	rep, err := bench.Run(ctx, c, cfg.Workload, log)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	// ---- Report ----
	w := cfg.Workload
	fmt.Fprintf(out, "policy=%s max-size=%d shards=%d workers=%d keys=%d entry=[%d,%d] dur=%v seed=%d\n",
		cfg.Cache.Policy, cfg.Cache.MaxSize, cfg.Cache.Shards, w.Workers, w.Keys, w.MinEntry, w.MaxEntry, rep.Elapsed, w.Seed)
	fmt.Fprintf(out, "ops=%d (%.0f ops/s)  reads=%d  writes=%d\n",
		rep.Ops, rep.OpsPerSec(), rep.Reads, rep.Writes)
	fmt.Fprintf(out, "hits=%d  misses=%d  hit-rate=%.2f%%\n", rep.Hits, rep.Misses, rep.HitRate())
	fmt.Fprintf(out, "evictions=%d  rejects=%d\n", rep.Stats.Evictions, rep.Stats.Rejects)
	fmt.Fprintf(out, "Len()=%d  Size()=%d / MaxSize()=%d\n", rep.Len, rep.Size, rep.MaxSize)
	return nil
}

// serve starts h on addr in the background and returns the server so the
// caller can shut it down.
func serve(log *zap.Logger, addr string, h http.Handler) *http.Server {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info("serving", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("listener failed", zap.Error(err))
		}
	}()
	return srv
}
