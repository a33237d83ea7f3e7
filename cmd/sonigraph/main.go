package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dygy/sonigraph/internal/cache"
	"github.com/dygy/sonigraph/internal/config"
	"github.com/dygy/sonigraph/internal/midi"
	"github.com/dygy/sonigraph/internal/pipeline"
	"github.com/dygy/sonigraph/internal/progress"
	"github.com/dygy/sonigraph/internal/report"
	"github.com/dygy/sonigraph/internal/server"
	"github.com/dygy/sonigraph/internal/strudel"
	"github.com/dygy/sonigraph/internal/vault"
	"github.com/dygy/sonigraph/internal/workspace"
)

var (
	version = "0.1.0"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sonigraph",
	Short: "Turn linked markdown notes into music",
	Long: `sonigraph reads a note from a markdown vault, measures its prose and
composes a phrase for it, embellished by the notes it links to.

Pipeline: note → prose features → phrase → embellishments → MIDI / Strudel`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Compose music for one note",
	Long: `Compose a note and its link neighbourhood. Without --midi, --strudel
or --json the Strudel code is printed to stdout.

Examples:
  sonigraph compose --vault ~/notes --note "daily/2024-03-01"
  sonigraph compose --vault ~/notes --note ideas --seed 42 --midi --strudel -o out/
  sonigraph compose --note ideas --config sonigraph.yaml --no-cache -v`,
	RunE: runCompose,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Print the prose features of a markdown file",
	Long: `Analyze one markdown file and print its prose feature record as JSON.

Example:
  sonigraph analyze --file notes/ideas.md`,
	RunE: runAnalyze,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the JSON API for composing vault notes or prose records.

Example:
  sonigraph serve --vault ~/notes --port 8080`,
	RunE: runServe,
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the composition cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached composition",
	RunE:  runCacheClear,
}

var cacheSizeCmd = &cobra.Command{
	Use:   "size",
	Short: "Show how much space the cache uses",
	RunE:  runCacheSize,
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached compositions",
	RunE:  runCacheList,
}

var reportCmd = &cobra.Command{
	Use:   "report <cache-key>",
	Short: "Generate an HTML report for a cached composition",
	Long: `Generate a self-contained HTML report with prose features, voices,
linked notes and Strudel code. Keys are listed by "sonigraph cache list".

Examples:
  sonigraph report note_3f9a1c2b7d4e5f60
  sonigraph report note_3f9a1c2b7d4e5f60 --version 2 -o report.html`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

var (
	// global flags
	configPath string
	envFile    string
	vaultDir   string
	verbose    bool

	// compose flags
	noteID       string
	seed         uint64
	reproducible bool
	outDir       string
	writeMIDI    bool
	writeStrudel bool
	writeJSON    bool
	noCache      bool
	maxDepth     int
	quantize     int

	// analyze flags
	analyzeFile string

	// serve flags
	port int

	// report flags
	reportVersion int
	reportOutput  string
)

func init() {
	rootCmd.AddCommand(composeCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(reportCmd)

	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheSizeCmd)
	cacheCmd.AddCommand(cacheListCmd)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "Environment file with SONIGRAPH_* overrides")
	rootCmd.PersistentFlags().StringVar(&vaultDir, "vault", "", "Vault directory (default: $SONIGRAPH_VAULT)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	// Compose command flags
	composeCmd.Flags().StringVarP(&noteID, "note", "n", "", "Note id, path or name (required)")
	composeCmd.Flags().Uint64Var(&seed, "seed", 0, "Seed for the phrase structure (0 derives it from the prose)")
	composeCmd.Flags().BoolVar(&reproducible, "reproducible", false, "Also pin voicing density and pan sides")
	composeCmd.Flags().StringVarP(&outDir, "out", "o", ".", "Output directory for --midi, --strudel and --json")
	composeCmd.Flags().BoolVar(&writeMIDI, "midi", false, "Write a Standard MIDI File")
	composeCmd.Flags().BoolVar(&writeStrudel, "strudel", false, "Write Strudel code to a file")
	composeCmd.Flags().BoolVar(&writeJSON, "json", false, "Write the composition as JSON")
	composeCmd.Flags().BoolVar(&noCache, "no-cache", false, "Skip the composition cache (force fresh generation)")
	composeCmd.Flags().IntVar(&maxDepth, "depth", pipeline.DefaultMaxDepth, "How many links away to look for embellishing notes")
	composeCmd.Flags().IntVarP(&quantize, "quantize", "q", 16, "Strudel steps per bar (4, 8, or 16)")
	composeCmd.MarkFlagRequired("note")

	// Analyze command flags
	analyzeCmd.Flags().StringVarP(&analyzeFile, "file", "f", "", "Markdown file to analyze (required)")
	analyzeCmd.MarkFlagRequired("file")

	// Serve command flags
	serveCmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default: $SONIGRAPH_PORT or 8080)")

	// Report command flags
	reportCmd.Flags().IntVar(&reportVersion, "version", 0, "Version number (default: latest)")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "Output HTML path (default: next to the cache entry)")
}

// loadConfig merges defaults, the YAML file, the env file and command flags
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if err := config.LoadEnv(&cfg, envFile); err != nil {
		return cfg, err
	}

	if vaultDir != "" {
		cfg.Vault = vaultDir
	}
	if f := cmd.Flags().Lookup("seed"); f != nil && f.Changed {
		cfg.Seed = seed
	}
	if reproducible {
		cfg.Reproducible = true
	}
	if port > 0 {
		cfg.Port = port
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func openVault(cfg config.Config) (*vault.Vault, error) {
	if cfg.Vault == "" {
		return nil, fmt.Errorf("--vault or SONIGRAPH_VAULT is required")
	}
	return vault.Open(cfg.Vault, cfg.MaxNoteSize)
}

// interruptContext is cancelled on SIGINT or SIGTERM
func interruptContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nInterrupted, cleaning up...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func runCompose(cmd *cobra.Command, args []string) error {
	if quantize != 4 && quantize != 8 && quantize != 16 {
		return fmt.Errorf("invalid quantize value: %d (must be 4, 8, or 16)", quantize)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger()
	v, err := openVault(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := interruptContext()
	defer cancel()

	// Progress goes to stderr so stdout stays clean for Strudel code
	reporter := progress.NewReporter(os.Stderr, verbose)
	opts := []pipeline.Option{pipeline.WithLogger(logger), pipeline.WithProgress(reporter)}
	if c, err := cache.New(cfg.CacheDir); err == nil {
		opts = append(opts, pipeline.WithCache(c))
	} else {
		reporter.Warning("Cache disabled: %v", err)
	}

	o := pipeline.NewOrchestrator(cfg, v, opts...)
	comp, err := o.Compose(ctx, pipeline.Request{NodeID: noteID, MaxDepth: maxDepth, NoCache: noCache})
	if err != nil {
		reporter.Error(err)
		return err
	}
	if comp == nil {
		return fmt.Errorf("no composition for %q", noteID)
	}

	code := strudel.NewGenerator(quantize).Generate(comp)
	if !writeMIDI && !writeStrudel && !writeJSON {
		reporter.Done()
		fmt.Println(code)
		return nil
	}

	ws, err := workspace.Create(outDir)
	if err != nil {
		return err
	}

	var outputs []string
	if writeMIDI {
		var buf bytes.Buffer
		if err := midi.WriteSMF(&buf, comp); err != nil {
			return fmt.Errorf("midi export: %w", err)
		}
		path := ws.MIDIPath(comp.NodeID)
		if err := ws.WriteFile(path, buf.Bytes()); err != nil {
			return err
		}
		outputs = append(outputs, path)
	}
	if writeStrudel {
		path := ws.StrudelPath(comp.NodeID)
		if err := ws.WriteFile(path, []byte(code)); err != nil {
			return err
		}
		outputs = append(outputs, path)
	}
	if writeJSON {
		data, err := json.MarshalIndent(comp, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal composition: %w", err)
		}
		path := ws.JSONPath(comp.NodeID)
		if err := ws.WriteFile(path, data); err != nil {
			return err
		}
		outputs = append(outputs, path)
	}

	reporter.Done(outputs...)
	return nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	dir := filepath.Dir(analyzeFile)
	v, err := vault.Open(dir, 0)
	if err != nil {
		return err
	}

	ctx, cancel := interruptContext()
	defer cancel()

	id := strings.TrimSuffix(filepath.Base(analyzeFile), filepath.Ext(analyzeFile))
	note, err := v.Read(ctx, id)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	o := pipeline.NewOrchestrator(cfg, v, pipeline.WithLogger(logger))
	prose := o.Analyze(note)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"note":  note,
		"prose": prose,
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	var source pipeline.NoteSource
	if cfg.Vault != "" {
		v, err := openVault(cfg)
		if err != nil {
			return err
		}
		source = v
		logger.Info("vault indexed", slog.String("dir", cfg.Vault), slog.Int("notes", len(v.IDs())))
	} else {
		logger.Warn("no vault configured, only prose requests are served")
	}

	opts := []pipeline.Option{pipeline.WithLogger(logger)}
	if c, err := cache.New(cfg.CacheDir); err == nil {
		opts = append(opts, pipeline.WithCache(c))
	}

	srv := server.New(server.Config{Port: cfg.Port}, pipeline.NewOrchestrator(cfg, source, opts...), logger)
	return srv.Run()
}

func openCache() (*cache.Cache, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := config.LoadEnv(&cfg, envFile); err != nil {
		return nil, err
	}
	return cache.New(cfg.CacheDir)
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	c, err := openCache()
	if err != nil {
		return err
	}
	if err := c.Clear(); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	fmt.Printf("Cleared %s\n", c.Dir())
	return nil
}

func runCacheSize(cmd *cobra.Command, args []string) error {
	c, err := openCache()
	if err != nil {
		return err
	}
	size, count, err := c.Size()
	if err != nil {
		return err
	}
	fmt.Printf("%d compositions, %.1f KB in %s\n", count, float64(size)/1024, c.Dir())
	return nil
}

func runCacheList(cmd *cobra.Command, args []string) error {
	c, err := openCache()
	if err != nil {
		return err
	}
	keys, err := c.Keys()
	if err != nil {
		return err
	}
	for _, key := range keys {
		entries, err := c.History(key)
		if err != nil || len(entries) == 0 {
			continue
		}
		latest := entries[len(entries)-1]
		node := "?"
		if latest.Composition != nil {
			node = latest.Composition.NodeID
		}
		fmt.Printf("%s  %-40s  v%03d  %s\n", key, node, latest.Version, latest.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	c, err := openCache()
	if err != nil {
		return err
	}

	gen := report.NewGenerator(c, args[0])
	outputPath, err := gen.Generate(reportVersion, reportOutput)
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	fmt.Printf("Report generated: %s\n", outputPath)
	return nil
}
