package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gobwas/glob"

	"promptpack/internal/core/ports"
	"promptpack/internal/shared/observability"
	"promptpack/internal/shared/util"
)

// collectFiles walks the root and returns slash-relative paths of
// supported source files, honoring the exclude globs.
func (a *App) collectFiles(root string) ([]string, error) {
	dirGlobs, err := compileGlobs(a.Config.Exclude.Dirs)
	if err != nil {
		return nil, fmt.Errorf("invalid exclude dir pattern: %w", err)
	}
	fileGlobs, err := compileGlobs(a.Config.Exclude.Files)
	if err != nil {
		return nil, fmt.Errorf("invalid exclude file pattern: %w", err)
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		base := filepath.Base(path)
		if d.IsDir() {
			if path != root {
				for _, g := range dirGlobs {
					if g.Match(base) {
						return filepath.SkipDir
					}
				}
			}
			return nil
		}

		if !a.Registry.IsSupportedPath(path) {
			return nil
		}
		if lang, ok := a.Registry.LanguageForPath(path); ok && !a.languageEnabled(lang.Name) {
			return nil
		}
		for _, g := range fileGlobs {
			if g.Match(base) {
				return nil
			}
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// compileGlobs normalizes exclude patterns to slash form before
// compiling so Windows-style config entries still match the walked
// slash-relative paths.
func compileGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		p = util.NormalizePatternPath(p)
		if p == "" {
			continue
		}
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// analyzeFiles fans file analysis out over the configured worker
// count. A cancelled context stops as soon as in-flight files finish;
// the bool result reports whether the run was cut short.
func (a *App) analyzeFiles(ctx context.Context, root string, files []string) (map[string]fileRecord, []ports.SkippedFile, bool) {
	var (
		mu      sync.Mutex
		records = make(map[string]fileRecord, len(files))
		skipped []ports.SkippedFile
	)

	jobs := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < a.Config.Scan.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rel := range jobs {
				if ctx.Err() != nil {
					continue
				}
				if err := a.limiter.Wait(ctx, 1); err != nil {
					continue
				}

				rec, skip := a.analyzeFile(root, rel)
				mu.Lock()
				if skip != nil {
					skipped = append(skipped, *skip)
				} else {
					records[rel] = rec
				}
				mu.Unlock()

				if a.afterFile != nil {
					a.afterFile(rel)
				}
			}
		}()
	}

	for _, rel := range files {
		if ctx.Err() != nil {
			break
		}
		jobs <- rel
	}
	close(jobs)
	wg.Wait()

	sort.Slice(skipped, func(i, j int) bool { return skipped[i].Path < skipped[j].Path })
	return records, skipped, ctx.Err() != nil
}

// analyzeFile reads one file (bounded by the configured read limit)
// and extracts its import tokens. Cached results are reused while the
// file's mtime and size are unchanged.
func (a *App) analyzeFile(root, rel string) (fileRecord, *ports.SkippedFile) {
	abs := filepath.Join(root, filepath.FromSlash(rel))

	info, err := os.Stat(abs)
	if err != nil {
		observability.FilesSkippedTotal.WithLabelValues("stat_error").Inc()
		return fileRecord{}, &ports.SkippedFile{Path: rel, Reason: fmt.Sprintf("stat: %v", err)}
	}

	limit := a.Config.Scan.MaxReadBytes
	contentSize := info.Size()
	truncated := contentSize > limit
	if truncated {
		contentSize = limit
	}

	if entry, ok := a.cache.Get(rel); ok {
		if entry.modTime.Equal(info.ModTime()) && entry.size == info.Size() {
			observability.CacheHitsTotal.Inc()
			return fileRecord{
				Path:      rel,
				Size:      contentSize,
				Truncated: entry.truncated,
				Imports:   entry.imports,
			}, nil
		}
	}
	observability.CacheMissesTotal.Inc()

	data, err := a.readBounded(abs)
	if err != nil {
		observability.FilesSkippedTotal.WithLabelValues("read_error").Inc()
		return fileRecord{}, &ports.SkippedFile{Path: rel, Reason: fmt.Sprintf("read: %v", err)}
	}
	if bytes.IndexByte(data, 0) >= 0 {
		observability.FilesSkippedTotal.WithLabelValues("binary").Inc()
		return fileRecord{}, &ports.SkippedFile{Path: rel, Reason: "binary content"}
	}

	start := time.Now()
	imports := a.Registry.Imports(rel, data)
	if lang, ok := a.Registry.LanguageForPath(rel); ok {
		observability.ExtractionDuration.WithLabelValues(lang.Name).Observe(time.Since(start).Seconds())
	}

	a.cache.Add(rel, cacheEntry{
		modTime:   info.ModTime(),
		size:      info.Size(),
		imports:   imports,
		truncated: truncated,
	})

	if truncated {
		slog.Debug("file content truncated at read limit", "path", rel, "limit", limit)
	}

	return fileRecord{
		Path:      rel,
		Size:      int64(len(data)),
		Truncated: truncated,
		Imports:   imports,
	}, nil
}

func (a *App) readBounded(abs string) ([]byte, error) {
	f, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, a.Config.Scan.MaxReadBytes))
}
