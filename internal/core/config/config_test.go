package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "promptpack.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	content := `
[paths]
root = "./src"

[scan]
max_read_bytes = 65536
workers = 4

[exclude]
dirs = [".git", "node_modules"]
files = ["*.min.js"]

[budget]
max_content_bytes = 80000
reserve_fraction = 0.2

[cluster]
max_clusters = 6
impact_threshold = 0.05

[db]
enabled = true
path = "state.db"

[watch]
enabled = true
debounce = "1s"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Paths.Root != "./src" {
		t.Errorf("Expected root ./src, got %s", cfg.Paths.Root)
	}
	if cfg.Scan.MaxReadBytes != 65536 {
		t.Errorf("Expected max_read_bytes 65536, got %d", cfg.Scan.MaxReadBytes)
	}
	if cfg.Scan.Workers != 4 {
		t.Errorf("Expected workers 4, got %d", cfg.Scan.Workers)
	}
	if len(cfg.Exclude.Dirs) != 2 {
		t.Errorf("Unexpected exclude dirs: %v", cfg.Exclude.Dirs)
	}
	if cfg.Budget.MaxContentBytes != 80000 {
		t.Errorf("Expected max_content_bytes 80000, got %d", cfg.Budget.MaxContentBytes)
	}
	if cfg.Cluster.MaxClusters != 6 {
		t.Errorf("Expected max_clusters 6, got %d", cfg.Cluster.MaxClusters)
	}
	if !cfg.DB.Enabled || cfg.DB.Path != "state.db" {
		t.Errorf("Unexpected db config: %+v", cfg.DB)
	}
	if cfg.Watch.Debounce != time.Second {
		t.Errorf("Expected debounce 1s, got %v", cfg.Watch.Debounce)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Version != 1 {
		t.Errorf("Expected version 1, got %d", cfg.Version)
	}
	if cfg.Paths.Root != "." {
		t.Errorf("Expected root ., got %s", cfg.Paths.Root)
	}
	if cfg.Scan.MaxReadBytes != 50*1024 {
		t.Errorf("Expected 50KiB read limit, got %d", cfg.Scan.MaxReadBytes)
	}
	if cfg.Budget.MaxContentBytes != 100_000 {
		t.Errorf("Expected default budget, got %d", cfg.Budget.MaxContentBytes)
	}
	if cfg.Cluster.DisconnectedDistance != 1000.0 {
		t.Errorf("Expected disconnected distance 1000, got %v", cfg.Cluster.DisconnectedDistance)
	}
	if !cfg.Cluster.AggregateImpactEnabled() {
		t.Error("Expected aggregate impact enabled by default")
	}
	if cfg.DB.Driver != "sqlite" {
		t.Errorf("Expected sqlite driver, got %s", cfg.DB.Driver)
	}
	if cfg.DB.BusyTimeout != 5*time.Second {
		t.Errorf("Expected 5s busy timeout, got %v", cfg.DB.BusyTimeout)
	}
	if cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("Expected 500ms debounce, got %v", cfg.Watch.Debounce)
	}
	if cfg.Obs.Enabled {
		t.Error("Expected observability server disabled by default")
	}
	if cfg.Obs.Addr != "127.0.0.1:9090" {
		t.Errorf("Expected default observability addr, got %s", cfg.Obs.Addr)
	}
	found := false
	for _, d := range cfg.Exclude.Dirs {
		if d == "node_modules" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected node_modules in default excludes, got %v", cfg.Exclude.Dirs)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "bad version",
			content: "version = 9",
			want:    "unsupported config version",
		},
		{
			name:    "negative read limit",
			content: "[scan]\nmax_read_bytes = -1",
			want:    "scan.max_read_bytes",
		},
		{
			name:    "reserve fraction out of range",
			content: "[budget]\nreserve_fraction = 1.5",
			want:    "budget.reserve_fraction",
		},
		{
			name:    "bad driver",
			content: "[db]\ndriver = \"postgres\"",
			want:    "db.driver must be sqlite",
		},
		{
			name:    "extension without dot",
			content: "[languages.python]\nextensions = [\"py\"]",
			want:    "must start with a dot",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestContentBudget(t *testing.T) {
	b := Budget{MaxContentBytes: 10000, ReserveFraction: 0.1}
	if got := b.ContentBudget(); got != 9000 {
		t.Errorf("Expected content budget 9000, got %d", got)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Version != 1 || cfg.Budget.MaxContentBytes == 0 {
		t.Errorf("Default config incomplete: %+v", cfg)
	}
}
