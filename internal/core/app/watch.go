package app

import (
	"context"
	"log/slog"
	"sync"

	"promptpack/internal/core/ports"
	"promptpack/internal/core/watcher"
)

// watchService triggers a full rescan whenever the debounced watcher
// reports source changes, and fans the resulting scan summary out to
// subscribers.
type watchService struct {
	app *App
	svc ports.AnalysisService

	mu   sync.Mutex
	subs []func(ports.ScanResult)
}

func (s *analysisService) WatchService() ports.WatchService {
	return &watchService{app: s.app, svc: s}
}

func (w *watchService) Subscribe(handler func(ports.ScanResult)) {
	if handler == nil {
		return
	}
	w.mu.Lock()
	w.subs = append(w.subs, handler)
	w.mu.Unlock()
}

func (w *watchService) Start(ctx context.Context) error {
	cfg := w.app.Config
	wt, err := watcher.NewWatcher(cfg.Watch.Debounce, cfg.Exclude.Dirs, cfg.Exclude.Files, func(paths []string) {
		res, err := w.svc.RunScan(ctx, ports.ScanRequest{Root: cfg.Paths.Root})
		if err != nil {
			slog.Warn("rescan after change failed", "error", err)
			return
		}
		slog.Debug("rescan after change", "changed", len(paths), "modules", res.ModuleCount)
		w.notify(res)
	})
	if err != nil {
		return err
	}
	wt.SetExtensionFilters(w.app.Registry.Extensions())

	if err := wt.Watch([]string{cfg.Paths.Root}); err != nil {
		_ = wt.Close()
		return err
	}

	go func() {
		<-ctx.Done()
		_ = wt.Close()
	}()
	return nil
}

func (w *watchService) notify(res ports.ScanResult) {
	w.mu.Lock()
	subs := make([]func(ports.ScanResult), len(w.subs))
	copy(subs, w.subs)
	w.mu.Unlock()
	for _, fn := range subs {
		fn(res)
	}
}
