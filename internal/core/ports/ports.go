package ports

import (
	"context"
	"time"

	"promptpack/internal/data/history"
	"promptpack/internal/engine/cluster"
	"promptpack/internal/engine/graph"
	"promptpack/internal/engine/selector"
)

// ScanStatus reports how a scan run ended.
type ScanStatus string

const (
	ScanCompleted ScanStatus = "completed"
	ScanPartial   ScanStatus = "partial"
	ScanCancelled ScanStatus = "cancelled"
)

// SkippedFile records a file the scan saw but did not analyze, with a
// human-readable reason (binary content, read failure, over the size
// limit, unsupported extension).
type SkippedFile struct {
	Path   string
	Reason string
}

// ScanRequest defines a scan operation request for driving adapters.
type ScanRequest struct {
	Root string
	// Explicit file list; when empty the root is walked.
	Paths []string
}

// ScanResult summarizes a completed scan operation.
type ScanResult struct {
	SnapshotID    string
	Status        ScanStatus
	FilesAnalyzed int
	Skipped       []SkippedFile
	ModuleCount   int
	EdgeCount     int
	Duration      time.Duration
}

// ClusterRequest selects how the dendrogram is cut.
type ClusterRequest struct {
	MaxClusters int
	// CutHeight takes precedence over MaxClusters when positive.
	CutHeight float64
}

// PromptRequest captures inputs for assembling clipboard content.
// Exactly one selection source applies: explicit module IDs, a cluster
// name, or (when both are empty) the budgeted selector over the whole
// graph.
type PromptRequest struct {
	ModuleIDs []string
	Cluster   string
	// Cut controls how the dendrogram is sliced when Cluster names the
	// selection; the zero value falls back to the configured cut.
	Cut ClusterRequest
	// Budget in bytes for the budgeted selector; zero uses the
	// configured content budget, negative values are rejected.
	Budget int64
}

// PromptResult is the assembled clipboard payload plus the selection
// that produced it.
type PromptResult struct {
	Selection selector.Result
	Content   string
	// Files whose content was cut at the read limit.
	Truncated []string
}

// HistoryStore abstracts cross-session persistence for repos,
// clusters and copy events.
type HistoryStore interface {
	RecordRepoSeen(ctx context.Context, root string) error
	RecordClusters(ctx context.Context, root string, clusters []history.ClusterRecord) error
	RecordCopyEvent(ctx context.Context, root string, paths []string) error
	FilesOftenCopiedTogether(ctx context.Context, root string, selected []string, limit int) ([]history.CoCopy, error)
	HighImpactClusters(ctx context.Context, root string, limit int) ([]history.ClusterRecord, error)
	SimilarClusters(ctx context.Context, root, clusterName string, limit int) ([]history.ClusterRecord, error)
	Close() error
}

// WatchService exposes watch lifecycle and updates for driving adapters.
type WatchService interface {
	Start(ctx context.Context) error
	Subscribe(handler func(ScanResult))
}

// AnalysisService defines the driving-port surface over scan, ranking,
// clustering and prompt-assembly use cases.
type AnalysisService interface {
	RunScan(ctx context.Context, req ScanRequest) (ScanResult, error)
	RankedModules(ctx context.Context) ([]graph.Module, error)
	Clusters(ctx context.Context, req ClusterRequest) ([]cluster.Summary, error)
	BuildPrompt(ctx context.Context, req PromptRequest) (PromptResult, error)
	WatchService() WatchService
}
