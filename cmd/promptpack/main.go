package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"

	coreapp "promptpack/internal/core/app"
	"promptpack/internal/core/config"
	"promptpack/internal/core/ports"
	"promptpack/internal/data/history"
	"promptpack/internal/shared/observability"
	"promptpack/internal/shared/util"
	"promptpack/internal/ui/report"
	"promptpack/internal/ui/tui"
)

var (
	configPath = flag.String("config", "./promptpack.toml", "Path to config file")
	once       = flag.Bool("once", false, "Run single scan and exit")
	ui         = flag.Bool("ui", false, "Enable terminal UI mode")
	budget     = flag.Int64("budget", 0, "Byte budget for prompt selection (0 uses config)")
	clusterSel = flag.String("cluster", "", "Assemble a prompt from a named cluster")
	modules    = flag.String("modules", "", "Assemble a prompt from a comma-separated module list")
	copyOut    = flag.Bool("copy", false, "Copy the assembled prompt to the clipboard instead of stdout")
	dotPath    = flag.String("dot", "", "Write a Graphviz DOT rendering of the module graph to this path")
	mermaid    = flag.String("mermaid", "", "Write a Mermaid rendering of the module graph to this path")
	otlp       = flag.String("otlp", "", "OTLP gRPC endpoint for trace export (empty disables tracing)")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	version    = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "3.2.0"

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()

	if *version {
		fmt.Printf("promptpack v%s\n", VERSION)
		return 0
	}

	cleanupLogs := configureLogging(*ui, *verbose)
	defer cleanupLogs()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if *configPath == "./promptpack.toml" {
			cfg, err = config.Load("./promptpack.example.toml")
		}
		if err != nil {
			if !os.IsNotExist(err) {
				slog.Error("failed to load config", "error", err)
				return 1
			}
			cfg = config.Default()
		}
	}

	config.ApplyEnvOverrides(cfg)

	if flag.NArg() > 0 {
		cfg.Paths.Root = flag.Arg(0)
	}

	ctx := context.Background()

	if *otlp != "" {
		shutdown, err := observability.InitTracing(ctx, *otlp)
		if err != nil {
			slog.Error("failed to initialize tracing", "error", err)
			return 1
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				slog.Warn("trace exporter shutdown failed", "error", err)
			}
		}()
	}

	if cfg.Obs.Enabled {
		obsServer := observability.NewServer(cfg.Obs.Addr)
		if err := obsServer.Start(ctx); err != nil {
			slog.Error("failed to start observability server", "error", err)
			return 1
		}
		defer func() { _ = obsServer.Stop(context.Background()) }()
	}

	app, err := coreapp.New(cfg)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		return 1
	}

	if cfg.DB.Enabled {
		store, err := history.Open(filepath.Join(cfg.Paths.StateDir, cfg.DB.Path))
		if err != nil {
			slog.Error("failed to open history store", "error", err)
			return 1
		}
		app.History = store
	}
	defer func() { _ = app.Close(context.Background()) }()

	svc := app.AnalysisService()

	result, err := svc.RunScan(ctx, ports.ScanRequest{})
	if err != nil {
		slog.Error("initial scan failed", "error", err)
		return 1
	}
	slog.Info("scan finished",
		"status", result.Status,
		"files", result.FilesAnalyzed,
		"modules", result.ModuleCount,
		"edges", result.EdgeCount,
		"skipped", len(result.Skipped),
		"duration", result.Duration,
	)

	if code := writeGraphReports(app, *dotPath, *mermaid); code != 0 {
		return code
	}

	if *modules != "" || *clusterSel != "" || (*once && !*ui) {
		if code := emitPrompt(ctx, svc); code != 0 {
			return code
		}
	}

	if *once {
		return 0
	}

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if cfg.Watch.Enabled {
		if err := svc.WatchService().Start(watchCtx); err != nil {
			slog.Error("failed to start watcher", "error", err)
			return 1
		}
	}

	if *ui {
		root, err := filepath.Abs(cfg.Paths.Root)
		if err != nil {
			slog.Error("failed to resolve repository root", "error", err)
			return 1
		}
		if err := tui.Run(svc, app.History, root, cfg.UI.MaxListRows); err != nil {
			slog.Error("failed to run UI", "error", err)
			return 1
		}
		return 0
	}

	if !cfg.Watch.Enabled {
		return 0
	}
	select {}
}

func emitPrompt(ctx context.Context, svc ports.AnalysisService) int {
	req := ports.PromptRequest{Budget: *budget, Cluster: strings.TrimSpace(*clusterSel)}
	if *modules != "" {
		for _, id := range strings.Split(*modules, ",") {
			id = strings.TrimSpace(id)
			if id != "" {
				req.ModuleIDs = append(req.ModuleIDs, id)
			}
		}
	}

	result, err := svc.BuildPrompt(ctx, req)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}

	if *copyOut {
		if err := clipboard.WriteAll(result.Content); err != nil {
			slog.Error("clipboard write failed", "error", err)
			return 1
		}
		observability.CopyEventsTotal.Inc()
		fmt.Fprintf(os.Stderr, "copied %d modules (%d bytes) to clipboard\n",
			len(result.Selection.Selected), len(result.Content))
	} else {
		fmt.Print(result.Content)
	}

	for _, path := range result.Truncated {
		fmt.Fprintf(os.Stderr, "warning: %s truncated at the read limit\n", path)
	}
	return 0
}

func writeGraphReports(app *coreapp.App, dotPath, mermaidPath string) int {
	if dotPath == "" && mermaidPath == "" {
		return 0
	}
	g := app.Graph()
	if g == nil {
		fmt.Fprintln(os.Stderr, "no module graph available for report output")
		return 1
	}

	if dotPath != "" {
		out, err := report.NewDOTGenerator(g).Generate(nil)
		if err != nil {
			slog.Error("failed to render DOT report", "error", err)
			return 1
		}
		if err := util.WriteFileWithDirs(dotPath, []byte(out), 0o644); err != nil {
			slog.Error("failed to write DOT report", "error", err, "path", dotPath)
			return 1
		}
	}

	if mermaidPath != "" {
		out, err := report.NewMermaidGenerator(g).Generate()
		if err != nil {
			slog.Error("failed to render Mermaid report", "error", err)
			return 1
		}
		if err := util.WriteFileWithDirs(mermaidPath, []byte(out), 0o644); err != nil {
			slog.Error("failed to write Mermaid report", "error", err, "path", mermaidPath)
			return 1
		}
	}
	return 0
}

func configureLogging(uiMode, verbose bool) func() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}

	output := os.Stdout
	closeFn := func() {}
	if uiMode {
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else {
			if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
				fmt.Fprintf(os.Stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
			} else {
				f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
				if err == nil {
					output = f
					closeFn = func() { _ = f.Close() }
				} else {
					fmt.Fprintf(os.Stderr, "warning: failed to open log file %s: %v\n", logPath, err)
				}
			}
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	return closeFn
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "promptpack", "promptpack.log")
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "promptpack", "promptpack.log")
	}

	return "promptpack.log"
}
