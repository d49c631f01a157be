// Package app wires the analysis engine together: it scans a
// repository root, resolves import tokens into a module graph, and
// serves ranking, clustering and prompt-assembly requests over one
// immutable snapshot at a time.
package app

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"promptpack/internal/core/config"
	"promptpack/internal/core/ports"
	"promptpack/internal/engine/cluster"
	"promptpack/internal/engine/extract"
	"promptpack/internal/engine/graph"
	"promptpack/internal/engine/resolver"
	"promptpack/internal/shared/util"
)

// cacheEntry holds a file's extracted imports keyed by its identity at
// read time. A changed mtime or size invalidates the entry.
type cacheEntry struct {
	modTime   time.Time
	size      int64
	imports   []string
	truncated bool
}

// fileRecord is one analyzed file inside a snapshot.
type fileRecord struct {
	Path      string // slash-relative to the scan root
	Size      int64  // bytes the file contributes to a prompt
	Truncated bool
	Imports   []string
}

// snapshot is the immutable result of one scan. The dendrogram is
// built on first use and cached alongside.
type snapshot struct {
	id    string
	root  string // absolute scan root
	graph *graph.Graph
	index *resolver.Index
	files map[string]fileRecord

	dendroOnce sync.Once
	dendro     *cluster.Dendrogram
}

type App struct {
	Config   *config.Config
	Registry *extract.Registry
	// History is optional; a nil store disables persistence.
	History ports.HistoryStore

	limiter *util.Limiter
	cache   *lru.Cache[string, cacheEntry]

	mu   sync.RWMutex
	snap *snapshot

	// afterFile runs after each analyzed file; used to observe scan
	// progress in tests.
	afterFile func(rel string)
}

func New(cfg *config.Config) (*App, error) {
	cache, err := lru.New[string, cacheEntry](cfg.Cache.Entries)
	if err != nil {
		return nil, err
	}
	return &App{
		Config:   cfg,
		Registry: extract.NewRegistry(),
		limiter:  util.NewLimiter(cfg.Scan.RateLimit, cfg.Scan.Workers),
		cache:    cache,
	}, nil
}

func (a *App) Close(ctx context.Context) error {
	if a == nil || a.History == nil {
		return nil
	}
	return a.History.Close()
}

// Graph returns the module graph of the current snapshot, or nil
// before the first scan completes.
func (a *App) Graph() *graph.Graph {
	snap := a.currentSnapshot()
	if snap == nil {
		return nil
	}
	return snap.graph
}

func (a *App) currentSnapshot() *snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snap
}

func (a *App) setSnapshot(s *snapshot) {
	a.mu.Lock()
	a.snap = s
	a.mu.Unlock()
}

// languageEnabled consults the config's per-language switches; unknown
// languages default to enabled.
func (a *App) languageEnabled(name string) bool {
	settings, ok := a.Config.Languages[name]
	if !ok || settings.Enabled == nil {
		return true
	}
	return *settings.Enabled
}
