package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the
// configuration. Pattern: PROMPTPACK_[SECTION]_[KEY]
// (e.g., PROMPTPACK_SCAN_WORKERS).
func ApplyEnvOverrides(cfg *Config) {
	// Paths
	setEnvString(&cfg.Paths.Root, "PROMPTPACK_PATHS_ROOT")
	setEnvString(&cfg.Paths.StateDir, "PROMPTPACK_PATHS_STATE_DIR")

	// Scan
	setEnvInt64(&cfg.Scan.MaxReadBytes, "PROMPTPACK_SCAN_MAX_READ_BYTES")
	setEnvInt(&cfg.Scan.Workers, "PROMPTPACK_SCAN_WORKERS")
	setEnvFloat64(&cfg.Scan.RateLimit, "PROMPTPACK_SCAN_RATE_LIMIT")

	// Budget
	setEnvInt64(&cfg.Budget.MaxContentBytes, "PROMPTPACK_BUDGET_MAX_CONTENT_BYTES")
	setEnvFloat64(&cfg.Budget.ReserveFraction, "PROMPTPACK_BUDGET_RESERVE_FRACTION")

	// Cluster
	setEnvInt(&cfg.Cluster.MaxClusters, "PROMPTPACK_CLUSTER_MAX_CLUSTERS")
	setEnvFloat64(&cfg.Cluster.ImpactThreshold, "PROMPTPACK_CLUSTER_IMPACT_THRESHOLD")

	// Cache
	setEnvInt(&cfg.Cache.Entries, "PROMPTPACK_CACHE_ENTRIES")

	// Database
	setEnvBool(&cfg.DB.Enabled, "PROMPTPACK_DB_ENABLED")
	setEnvString(&cfg.DB.Driver, "PROMPTPACK_DB_DRIVER")
	setEnvString(&cfg.DB.Path, "PROMPTPACK_DB_PATH")
	setEnvDuration(&cfg.DB.BusyTimeout, "PROMPTPACK_DB_BUSY_TIMEOUT")

	// Watch
	setEnvBool(&cfg.Watch.Enabled, "PROMPTPACK_WATCH_ENABLED")
	setEnvDuration(&cfg.Watch.Debounce, "PROMPTPACK_WATCH_DEBOUNCE")

	// UI
	setEnvInt(&cfg.UI.MaxListRows, "PROMPTPACK_UI_MAX_LIST_ROWS")

	// Observability
	setEnvBool(&cfg.Obs.Enabled, "PROMPTPACK_OBSERVABILITY_ENABLED")
	setEnvString(&cfg.Obs.Addr, "PROMPTPACK_OBSERVABILITY_ADDR")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		log.Printf("Applying env override: %s=%s", key, val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = i
		}
	}
}

func setEnvInt64(target *int64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			log.Printf("Applying env override: %s=%s", key, val)
			*target = d
		}
	}
}
