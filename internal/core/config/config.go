package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Version   int                 `toml:"version"`
	Paths     Paths               `toml:"paths"`
	Scan      Scan                `toml:"scan"`
	Exclude   Exclude             `toml:"exclude"`
	Languages map[string]Language `toml:"languages"`
	Budget    Budget              `toml:"budget"`
	Cluster   Cluster             `toml:"cluster"`
	Cache     Cache               `toml:"cache"`
	DB        Database            `toml:"db"`
	Watch     Watch               `toml:"watch"`
	UI        UI                  `toml:"ui"`
	Obs       Observability       `toml:"observability"`
}

type Paths struct {
	Root     string `toml:"root"`
	StateDir string `toml:"state_dir"`
}

type Scan struct {
	MaxReadBytes int64 `toml:"max_read_bytes"`
	Workers      int   `toml:"workers"`
	// Files scanned per second; zero disables throttling.
	RateLimit float64 `toml:"rate_limit"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Language struct {
	Enabled    *bool    `toml:"enabled"`
	Extensions []string `toml:"extensions"`
}

type Budget struct {
	MaxContentBytes int64 `toml:"max_content_bytes"`
	// Fraction of max_content_bytes left for the user's own prompt.
	ReserveFraction float64 `toml:"reserve_fraction"`
}

type Cluster struct {
	DisconnectedDistance float64 `toml:"disconnected_distance"`
	MaxClusters          int     `toml:"max_clusters"`
	ImpactThreshold      float64 `toml:"impact_threshold"`
	AggregateImpact      *bool   `toml:"aggregate_impact"`
}

type Cache struct {
	Entries int `toml:"entries"`
}

type Database struct {
	Enabled     bool          `toml:"enabled"`
	Driver      string        `toml:"driver"`
	Path        string        `toml:"path"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
}

type Watch struct {
	Enabled  bool          `toml:"enabled"`
	Debounce time.Duration `toml:"debounce"`
}

type UI struct {
	MaxListRows   int    `toml:"max_list_rows"`
	FileSeparator string `toml:"file_separator"`
}

type Observability struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := validateVersion(&cfg); err != nil {
		return nil, err
	}
	if err := validateScan(&cfg); err != nil {
		return nil, err
	}
	if err := validateBudget(&cfg); err != nil {
		return nil, err
	}
	if err := validateCluster(&cfg); err != nil {
		return nil, err
	}
	if err := validateDatabase(&cfg); err != nil {
		return nil, err
	}
	if err := validateLanguages(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if strings.TrimSpace(cfg.Paths.Root) == "" {
		cfg.Paths.Root = "."
	}
	if strings.TrimSpace(cfg.Paths.StateDir) == "" {
		cfg.Paths.StateDir = "data/state"
	}

	if cfg.Scan.MaxReadBytes == 0 {
		cfg.Scan.MaxReadBytes = 50 * 1024
	}
	if cfg.Scan.Workers <= 0 {
		cfg.Scan.Workers = 8
	}

	if len(cfg.Exclude.Dirs) == 0 {
		cfg.Exclude.Dirs = []string{
			".git", "node_modules", "__pycache__", ".venv", "venv",
			"dist", "build", "target", "vendor", ".idea", ".vscode",
		}
	}

	if cfg.Budget.MaxContentBytes == 0 {
		cfg.Budget.MaxContentBytes = 100_000
	}
	if cfg.Budget.ReserveFraction == 0 {
		cfg.Budget.ReserveFraction = 0.1
	}

	if cfg.Cluster.DisconnectedDistance == 0 {
		cfg.Cluster.DisconnectedDistance = 1000.0
	}
	if cfg.Cluster.MaxClusters == 0 {
		cfg.Cluster.MaxClusters = 12
	}

	if cfg.Cache.Entries <= 0 {
		cfg.Cache.Entries = 1000
	}

	if strings.TrimSpace(cfg.DB.Driver) == "" {
		cfg.DB.Driver = "sqlite"
	}
	if strings.TrimSpace(cfg.DB.Path) == "" {
		cfg.DB.Path = "promptpack.db"
	}
	if cfg.DB.BusyTimeout <= 0 {
		cfg.DB.BusyTimeout = 5 * time.Second
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}

	if cfg.UI.MaxListRows <= 0 {
		cfg.UI.MaxListRows = 20
	}
	if cfg.UI.FileSeparator == "" {
		cfg.UI.FileSeparator = "===FILE_SEPARATOR===\n"
	}

	if strings.TrimSpace(cfg.Obs.Addr) == "" {
		cfg.Obs.Addr = "127.0.0.1:9090"
	}
}

// AggregateImpact defaults to true: cluster impact sums member impact
// instead of taking the maximum.
func (c Cluster) AggregateImpactEnabled() bool {
	if c.AggregateImpact == nil {
		return true
	}
	return *c.AggregateImpact
}

// ContentBudget is the byte budget left for file content after the
// reserve fraction is held back.
func (b Budget) ContentBudget() int64 {
	reserved := float64(b.MaxContentBytes) * b.ReserveFraction
	return b.MaxContentBytes - int64(reserved)
}

func validateVersion(cfg *Config) error {
	if cfg.Version < 1 {
		return fmt.Errorf("version must be >= 1, got %d", cfg.Version)
	}
	if cfg.Version > 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateScan(cfg *Config) error {
	if cfg.Scan.MaxReadBytes < 0 {
		return fmt.Errorf("scan.max_read_bytes must not be negative")
	}
	if cfg.Scan.RateLimit < 0 {
		return fmt.Errorf("scan.rate_limit must not be negative")
	}
	return nil
}

func validateBudget(cfg *Config) error {
	if cfg.Budget.MaxContentBytes <= 0 {
		return fmt.Errorf("budget.max_content_bytes must be positive, got %d", cfg.Budget.MaxContentBytes)
	}
	if cfg.Budget.ReserveFraction < 0 || cfg.Budget.ReserveFraction >= 1 {
		return fmt.Errorf("budget.reserve_fraction must be in [0, 1), got %v", cfg.Budget.ReserveFraction)
	}
	return nil
}

func validateCluster(cfg *Config) error {
	if cfg.Cluster.DisconnectedDistance <= 0 {
		return fmt.Errorf("cluster.disconnected_distance must be positive")
	}
	if cfg.Cluster.MaxClusters < 1 {
		return fmt.Errorf("cluster.max_clusters must be >= 1, got %d", cfg.Cluster.MaxClusters)
	}
	if cfg.Cluster.ImpactThreshold < 0 {
		return fmt.Errorf("cluster.impact_threshold must not be negative")
	}
	return nil
}

func validateDatabase(cfg *Config) error {
	driver := strings.ToLower(strings.TrimSpace(cfg.DB.Driver))
	if driver != "sqlite" {
		return fmt.Errorf("db.driver must be sqlite, got %q", cfg.DB.Driver)
	}
	if strings.TrimSpace(cfg.DB.Path) == "" {
		return fmt.Errorf("db.path must not be empty")
	}
	return nil
}

func validateLanguages(cfg *Config) error {
	for language, settings := range cfg.Languages {
		if strings.TrimSpace(language) == "" {
			return fmt.Errorf("languages key must not be empty")
		}
		for _, ext := range settings.Extensions {
			trimmed := strings.TrimSpace(ext)
			if trimmed == "" {
				return fmt.Errorf("languages.%s.extensions must not include empty values", language)
			}
			if !strings.HasPrefix(trimmed, ".") {
				return fmt.Errorf("languages.%s.extensions entries must start with a dot, got %q", language, ext)
			}
		}
	}
	return nil
}
