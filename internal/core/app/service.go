package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"promptpack/internal/core/errors"
	"promptpack/internal/core/ports"
	"promptpack/internal/data/history"
	"promptpack/internal/engine/cluster"
	"promptpack/internal/engine/graph"
	"promptpack/internal/engine/resolver"
	"promptpack/internal/engine/selector"
	"promptpack/internal/shared/observability"
)

type analysisService struct {
	app *App
}

var _ ports.AnalysisService = (*analysisService)(nil)

func NewAnalysisService(app *App) ports.AnalysisService {
	return &analysisService{app: app}
}

func (a *App) AnalysisService() ports.AnalysisService {
	return NewAnalysisService(a)
}

func (s *analysisService) RunScan(ctx context.Context, req ports.ScanRequest) (ports.ScanResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "analysisService.RunScan", trace.WithAttributes())
	defer span.End()

	if err := ctx.Err(); err != nil {
		return ports.ScanResult{}, err
	}
	if s.app == nil || s.app.Config == nil {
		return ports.ScanResult{}, fmt.Errorf("app with config is required")
	}

	start := time.Now()

	root := strings.TrimSpace(req.Root)
	if root == "" {
		root = s.app.Config.Paths.Root
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return ports.ScanResult{}, errors.AddContext(
			errors.Wrap(err, errors.CodeValidationError, "resolve scan root"),
			errors.CtxPath, root,
		)
	}

	files := req.Paths
	if len(files) == 0 {
		files, err = s.app.collectFiles(absRoot)
		if err != nil {
			return ports.ScanResult{}, errors.AddContext(
				errors.Wrap(err, errors.CodeInternal, "walk scan root"),
				errors.CtxPath, absRoot,
			)
		}
	}

	records, skipped, cancelled := s.app.analyzeFiles(ctx, absRoot, files)

	relPaths := make([]string, 0, len(records))
	for rel := range records {
		relPaths = append(relPaths, rel)
	}
	sort.Strings(relPaths)

	idx := resolver.NewIndex(s.app.Registry, relPaths)
	builder := graph.NewBuilder()
	for _, rel := range relPaths {
		rec := records[rel]
		moduleID := idx.ModuleFor(rel)
		kind := graph.KindFile
		if idx.IsFolderModule(moduleID) {
			kind = graph.KindFolder
		}
		builder.AddModule(&graph.Module{
			ID:    moduleID,
			Kind:  kind,
			Files: []string{rel},
			Size:  rec.Size,
		})
		for _, token := range rec.Imports {
			if to, ok := idx.Resolve(token, rel); ok {
				builder.AddEdge(moduleID, to)
			}
		}
	}
	g := builder.Build()

	snap := &snapshot{
		id:    uuid.NewString(),
		root:  absRoot,
		graph: g,
		index: idx,
		files: records,
	}
	s.app.setSnapshot(snap)

	observability.GraphNodes.Set(float64(g.Len()))
	observability.GraphEdges.Set(float64(len(g.Edges())))
	observability.ScanDuration.Observe(time.Since(start).Seconds())

	if s.app.History != nil {
		if err := s.app.History.RecordRepoSeen(ctx, absRoot); err != nil {
			slog.Warn("failed to record repo in history", "root", absRoot, "error", err)
		}
	}

	status := ports.ScanCompleted
	switch {
	case cancelled:
		status = ports.ScanCancelled
	case len(skipped) > 0:
		status = ports.ScanPartial
	}

	return ports.ScanResult{
		SnapshotID:    snap.id,
		Status:        status,
		FilesAnalyzed: len(records),
		Skipped:       skipped,
		ModuleCount:   g.Len(),
		EdgeCount:     len(g.Edges()),
		Duration:      time.Since(start),
	}, nil
}

func (s *analysisService) RankedModules(ctx context.Context) ([]graph.Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	ranked := snap.graph.Ranked()
	out := make([]graph.Module, 0, len(ranked))
	for _, m := range ranked {
		out = append(out, *m)
	}
	return out, nil
}

func (s *analysisService) Clusters(ctx context.Context, req ports.ClusterRequest) ([]cluster.Summary, error) {
	ctx, span := observability.Tracer.Start(ctx, "analysisService.Clusters")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	summaries := s.summarize(snap, req)

	if s.app.History != nil {
		recs := make([]history.ClusterRecord, 0, len(summaries))
		for _, sum := range summaries {
			recs = append(recs, history.ClusterRecord{
				RepoRoot:        snap.root,
				Name:            sum.Name,
				ModuleKeys:      sum.Modules,
				FileCount:       sum.FileCount,
				AggregateImpact: sum.AggregateImpact,
			})
		}
		if err := s.app.History.RecordClusters(ctx, snap.root, recs); err != nil {
			slog.Warn("failed to record clusters in history", "root", snap.root, "error", err)
		}
	}

	return summaries, nil
}

func (s *analysisService) summarize(snap *snapshot, req ports.ClusterRequest) []cluster.Summary {
	d := s.dendrogram(snap)

	var cuts [][]string
	switch {
	case req.CutHeight > 0:
		cuts = d.CutAtHeight(req.CutHeight)
	case req.MaxClusters > 0:
		cuts = d.CutMaxClusters(req.MaxClusters)
	default:
		cuts = d.CutMaxClusters(s.app.Config.Cluster.MaxClusters)
	}

	return cluster.Summarize(
		snap.graph,
		cuts,
		s.app.Config.Cluster.ImpactThreshold,
		s.app.Config.Cluster.AggregateImpactEnabled(),
	)
}

func (s *analysisService) dendrogram(snap *snapshot) *cluster.Dendrogram {
	snap.dendroOnce.Do(func() {
		start := time.Now()
		snap.dendro = cluster.Build(snap.graph, cluster.Options{
			DisconnectedDistance: s.app.Config.Cluster.DisconnectedDistance,
		})
		observability.ClusteringDuration.Observe(time.Since(start).Seconds())
	})
	return snap.dendro
}

func (s *analysisService) BuildPrompt(ctx context.Context, req ports.PromptRequest) (ports.PromptResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "analysisService.BuildPrompt")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return ports.PromptResult{}, err
	}
	snap, err := s.snapshot()
	if err != nil {
		return ports.PromptResult{}, err
	}

	selection, err := s.selectModules(snap, req)
	if err != nil {
		return ports.PromptResult{}, err
	}

	content, truncated, err := s.assemble(snap, selection)
	if err != nil {
		return ports.PromptResult{}, err
	}

	observability.PromptBytes.Observe(float64(len(content)))

	return ports.PromptResult{
		Selection: selection,
		Content:   content,
		Truncated: truncated,
	}, nil
}

// selectModules resolves the request's selection source: explicit
// module IDs, a named cluster, or the budgeted selector over the
// whole graph.
func (s *analysisService) selectModules(snap *snapshot, req ports.PromptRequest) (selector.Result, error) {
	switch {
	case len(req.ModuleIDs) > 0:
		return s.explicitSelection(snap, req.ModuleIDs)
	case req.Cluster != "":
		summaries := s.summarize(snap, req.Cut)
		for _, sum := range summaries {
			if sum.Name == req.Cluster {
				return s.explicitSelection(snap, sum.Modules)
			}
		}
		return selector.Result{}, errors.AddContext(
			errors.New(errors.CodeNotFound, "cluster not found"),
			errors.CtxModule, req.Cluster,
		)
	default:
		if req.Budget < 0 {
			return selector.Result{}, errors.AddContext(
				errors.New(errors.CodeValidationError, "prompt budget must not be negative"),
				errors.CtxBudget, req.Budget,
			)
		}
		budget := req.Budget
		if budget == 0 {
			budget = s.app.Config.Budget.ContentBudget()
		}
		items := make([]selector.Item, 0, snap.graph.Len())
		for _, m := range snap.graph.Modules() {
			items = append(items, selector.Item{
				ID:    m.ID,
				Size:  m.Size,
				Value: float64(m.Impact),
			})
		}
		start := time.Now()
		res, err := selector.Select(items, budget)
		if err != nil {
			return selector.Result{}, err
		}
		observability.SelectionDuration.WithLabelValues(res.Strategy).Observe(time.Since(start).Seconds())
		return res, nil
	}
}

func (s *analysisService) explicitSelection(snap *snapshot, ids []string) (selector.Result, error) {
	res := selector.Result{Strategy: "explicit"}
	for _, id := range ids {
		m, ok := snap.graph.Module(id)
		if !ok {
			return selector.Result{}, errors.AddContext(
				errors.New(errors.CodeNotFound, "module not in current snapshot"),
				errors.CtxModule, id,
			)
		}
		res.Selected = append(res.Selected, selector.Item{
			ID:    m.ID,
			Size:  m.Size,
			Value: float64(m.Impact),
		})
		res.TotalSize += m.Size
		res.TotalValue += float64(m.Impact)
	}
	return res, nil
}

// assemble concatenates the selected modules' file contents with the
// configured separator framing, re-reading from disk under the same
// read limit the scan used.
func (s *analysisService) assemble(snap *snapshot, selection selector.Result) (string, []string, error) {
	var (
		sb        strings.Builder
		truncated []string
	)

	for _, item := range selection.Selected {
		m, ok := snap.graph.Module(item.ID)
		if !ok {
			continue
		}
		files := append([]string(nil), m.Files...)
		sort.Strings(files)

		for _, rel := range files {
			abs := filepath.Join(snap.root, filepath.FromSlash(rel))
			data, err := s.app.readBounded(abs)
			if err != nil {
				return "", nil, errors.AddContext(
					errors.Wrap(err, errors.CodeInternal, "read module file"),
					errors.CtxPath, rel,
				)
			}
			if rec, ok := snap.files[rel]; ok && rec.Truncated {
				truncated = append(truncated, rel)
			}

			sb.WriteString(s.app.Config.UI.FileSeparator)
			sb.WriteString(rel)
			sb.WriteString("\n")
			sb.Write(data)
			if len(data) > 0 && data[len(data)-1] != '\n' {
				sb.WriteString("\n")
			}
		}
	}

	return sb.String(), truncated, nil
}

func (s *analysisService) snapshot() (*snapshot, error) {
	if s.app == nil {
		return nil, fmt.Errorf("app is required")
	}
	snap := s.app.currentSnapshot()
	if snap == nil {
		return nil, errors.New(errors.CodeNotFound, "no scan snapshot available; run a scan first")
	}
	return snap, nil
}
