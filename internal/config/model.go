// Package config loads the sizebench configuration.
//
// Layers, lowest precedence first:
//
//  1. Defaults().
//  2. An optional YAML file.
//  3. Environment variables prefixed SIZECACHE_, where "__" maps to "."
//     (e.g. SIZECACHE_CACHE__MAX_SIZE -> cache.max_size). A .env file next
//     to the YAML file (or in the working directory) is read first and
//     never overrides variables already set.
//
// Struct tags use `koanf:"..."`; koanf ignores `yaml` tags.
package config

import (
	"runtime"
	"time"
)

// Cache sizes and shapes the cache under test.
type Cache struct {
	// MaxSize is the total size budget in the same units as entry sizes.
	MaxSize int64 `koanf:"max_size" validate:"gt=0"`

	// Shards: 0 = single Synced cache, >0 = Sharded (rounded to a power of two).
	Shards int `koanf:"shards" validate:"gte=0,lte=256"`

	Policy string `koanf:"policy" validate:"oneof=lru 2q"`

	// ProbationRatio is the share of MaxSize given to 2Q probation.
	ProbationRatio float64 `koanf:"probation_ratio" validate:"gt=0,lte=1"`

	// Ghosts is the number of evicted keys 2Q remembers.
	Ghosts int `koanf:"ghosts" validate:"gte=0"`
}

// Workload describes the synthetic traffic.
type Workload struct {
	Workers  int           `koanf:"workers"  validate:"gt=0"`
	Duration time.Duration `koanf:"duration" validate:"gt=0"`
	ReadPct  int           `koanf:"read_pct" validate:"gte=0,lte=100"`
	Keys     uint64        `koanf:"keys"     validate:"gt=1"`
	ZipfS    float64       `koanf:"zipf_s"   validate:"gt=1"`
	ZipfV    float64       `koanf:"zipf_v"   validate:"gte=1"`

	// Entry sizes are drawn uniformly from [MinEntry, MaxEntry].
	MinEntry int64 `koanf:"min_entry" validate:"gte=0"`
	MaxEntry int64 `koanf:"max_entry" validate:"gtefield=MinEntry"`

	// Preload is the number of keys written before the timed run.
	Preload int   `koanf:"preload" validate:"gte=0"`
	Seed    int64 `koanf:"seed"`
}

// HTTP holds the optional listeners. Empty disables a listener.
type HTTP struct {
	MetricsAddr string `koanf:"metrics_addr" validate:"omitempty,hostname_port"`
	PprofAddr   string `koanf:"pprof_addr"   validate:"omitempty,hostname_port"`
}

// Log configures the process logger.
type Log struct {
	Level   string `koanf:"level" validate:"oneof=debug info warn error"`
	Console bool   `koanf:"console"`

	// File enables a rotated JSON log; MaxSizeMB, MaxBackups and MaxAgeDays
	// apply to it.
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"  validate:"gte=0"`
	MaxBackups int    `koanf:"max_backups"  validate:"gte=0"`
	MaxAgeDays int    `koanf:"max_age_days" validate:"gte=0"`
	Compress   bool   `koanf:"compress"`
}

// Config is the aggregate returned by Load.
type Config struct {
	Cache    Cache    `koanf:"cache"`
	Workload Workload `koanf:"workload"`
	HTTP     HTTP     `koanf:"http"`
	Log      Log      `koanf:"log"`
}

// Defaults returns the configuration used for every key the file and the
// environment leave unset.
func Defaults() Config {
	return Config{
		Cache: Cache{
			MaxSize:        64 << 20,
			Policy:         "lru",
			ProbationRatio: 0.25,
			Ghosts:         65536,
		},
		Workload: Workload{
			Workers:  2 * runtime.GOMAXPROCS(0),
			Duration: 10 * time.Second,
			ReadPct:  80,
			Keys:     1_000_000,
			ZipfS:    1.1,
			ZipfV:    1.0,
			MinEntry: 64,
			MaxEntry: 4096,
			Seed:     1,
		},
		HTTP: HTTP{
			MetricsAddr: ":8080",
		},
		Log: Log{
			Level:      "info",
			Console:    true,
			MaxSizeMB:  50,
			MaxBackups: 7,
			MaxAgeDays: 14,
		},
	}
}
