package history

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_OpenRejectsBadPaths(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("expected error for empty path")
	}
	if _, err := Open(t.TempDir()); err == nil {
		t.Fatal("expected error for directory path")
	}
}

func TestStore_RecordClustersReplacesLayout(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := []ClusterRecord{
		{Name: "Cluster 1", ModuleKeys: []string{"core", "db"}, FileCount: 12, AggregateImpact: 2.5},
		{Name: "Cluster 2", ModuleKeys: []string{"ui"}, FileCount: 4, AggregateImpact: 0.3},
	}
	if err := store.RecordClusters(ctx, "/repo/alpha", first); err != nil {
		t.Fatalf("record clusters: %v", err)
	}

	replacement := []ClusterRecord{
		{Name: "Cluster 1", ModuleKeys: []string{"core"}, FileCount: 6, AggregateImpact: 1.1},
	}
	if err := store.RecordClusters(ctx, "/repo/alpha", replacement); err != nil {
		t.Fatalf("replace clusters: %v", err)
	}

	got, err := store.HighImpactClusters(ctx, "/repo/alpha", 10)
	if err != nil {
		t.Fatalf("load clusters: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected replacement to drop old rows, got %d clusters", len(got))
	}
	if got[0].Name != "Cluster 1" || got[0].FileCount != 6 {
		t.Fatalf("unexpected cluster row: %+v", got[0])
	}
	if len(got[0].ModuleKeys) != 1 || got[0].ModuleKeys[0] != "core" {
		t.Fatalf("module keys did not roundtrip: %v", got[0].ModuleKeys)
	}
}

func TestStore_HighImpactClustersRanked(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	clusters := []ClusterRecord{
		{Name: "Cluster 1", ModuleKeys: []string{"a"}, FileCount: 1, AggregateImpact: 0.1},
		{Name: "Cluster 2", ModuleKeys: []string{"b"}, FileCount: 2, AggregateImpact: 3.0},
		{Name: "Cluster 3", ModuleKeys: []string{"c"}, FileCount: 3, AggregateImpact: 1.0},
	}
	if err := store.RecordClusters(ctx, "/repo/alpha", clusters); err != nil {
		t.Fatalf("record clusters: %v", err)
	}

	got, err := store.HighImpactClusters(ctx, "/repo/alpha", 2)
	if err != nil {
		t.Fatalf("load clusters: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected limit 2, got %d", len(got))
	}
	if got[0].Name != "Cluster 2" || got[1].Name != "Cluster 3" {
		t.Fatalf("unexpected ranking: %q, %q", got[0].Name, got[1].Name)
	}
}

func TestStore_SimilarClustersExcludesOwnRepo(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.RecordClusters(ctx, "/repo/alpha", []ClusterRecord{
		{Name: "Cluster 1", ModuleKeys: []string{"a"}, FileCount: 1, AggregateImpact: 1.0},
	}); err != nil {
		t.Fatalf("record alpha clusters: %v", err)
	}
	if err := store.RecordClusters(ctx, "/repo/beta", []ClusterRecord{
		{Name: "Cluster 1", ModuleKeys: []string{"x"}, FileCount: 2, AggregateImpact: 2.0},
		{Name: "Cluster 9", ModuleKeys: []string{"y"}, FileCount: 1, AggregateImpact: 0.5},
	}); err != nil {
		t.Fatalf("record beta clusters: %v", err)
	}

	got, err := store.SimilarClusters(ctx, "/repo/alpha", "Cluster 1", 5)
	if err != nil {
		t.Fatalf("similar clusters: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one match from other repos, got %d", len(got))
	}
	if got[0].RepoRoot != "/repo/beta" {
		t.Fatalf("expected match from /repo/beta, got %q", got[0].RepoRoot)
	}
}

func TestStore_CopyEventsFeedRecommendations(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	root := "/repo/alpha"

	pairs := [][]string{
		{"/repo/alpha/core/api.py", "/repo/alpha/core/db.py"},
		{"/repo/alpha/core/api.py", "/repo/alpha/core/db.py"},
		{"/repo/alpha/core/api.py", "/repo/alpha/util/log.py"},
		{"/repo/alpha/main.py"},
	}
	for _, files := range pairs {
		if err := store.RecordCopyEvent(ctx, root, files); err != nil {
			t.Fatalf("record copy event: %v", err)
		}
	}

	got, err := store.FilesOftenCopiedTogether(ctx, root, []string{"/repo/alpha/core/api.py"}, 10)
	if err != nil {
		t.Fatalf("recommendations: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 recommendations, got %+v", got)
	}
	if got[0].RelativePath != "core/db.py" || got[0].Count != 2 {
		t.Fatalf("expected core/db.py with count 2 first, got %+v", got[0])
	}
	if got[1].RelativePath != "util/log.py" || got[1].Count != 1 {
		t.Fatalf("expected util/log.py with count 1, got %+v", got[1])
	}
}

func TestStore_CopyEventsAcceptRepoRelativePaths(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	root := "/repo/alpha"

	pairs := [][]string{
		{"core/api.py", "core/db.py"},
		{"core/api.py", "core/db.py"},
	}
	for _, files := range pairs {
		if err := store.RecordCopyEvent(ctx, root, files); err != nil {
			t.Fatalf("record copy event: %v", err)
		}
	}

	got, err := store.FilesOftenCopiedTogether(ctx, root, []string{"core/api.py"}, 10)
	if err != nil {
		t.Fatalf("recommendations: %v", err)
	}
	if len(got) != 1 || got[0].RelativePath != "core/db.py" || got[0].Count != 2 {
		t.Fatalf("expected core/db.py with count 2, got %+v", got)
	}
}

func TestStore_CopyEventsMixAbsoluteAndRelativePaths(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	root := "/repo/alpha"

	if err := store.RecordCopyEvent(ctx, root, []string{"core/api.py", "core/db.py"}); err != nil {
		t.Fatalf("record relative copy event: %v", err)
	}
	if err := store.RecordCopyEvent(ctx, root, []string{"/repo/alpha/core/api.py", "/repo/alpha/core/db.py"}); err != nil {
		t.Fatalf("record absolute copy event: %v", err)
	}

	got, err := store.FilesOftenCopiedTogether(ctx, root, []string{"/repo/alpha/core/api.py"}, 10)
	if err != nil {
		t.Fatalf("recommendations: %v", err)
	}
	if len(got) != 1 || got[0].RelativePath != "core/db.py" || got[0].Count != 2 {
		t.Fatalf("expected both spellings to count as one file, got %+v", got)
	}
}

func TestStore_CopyEventDropsPathsOutsideRepo(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	err := store.RecordCopyEvent(ctx, "/repo/alpha", []string{
		"/repo/alpha/core/api.py",
		"/elsewhere/secret.py",
		"../sibling/secret.py",
	})
	if err != nil {
		t.Fatalf("record copy event: %v", err)
	}

	got, err := store.FilesOftenCopiedTogether(ctx, "/repo/alpha", nil, 10)
	if err != nil {
		t.Fatalf("recommendations: %v", err)
	}
	for _, rec := range got {
		if strings.Contains(rec.RelativePath, "secret") {
			t.Fatalf("path outside repo leaked into history: %+v", rec)
		}
	}
}

func TestPathHash(t *testing.T) {
	h := PathHash("core/api.py")
	if len(h) != 32 {
		t.Fatalf("expected 32-char hash, got %d chars", len(h))
	}
	if h != PathHash("core/api.py") {
		t.Fatal("hash must be stable")
	}
	if h == PathHash("core/db.py") {
		t.Fatal("distinct paths must not collide")
	}
}
