package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"speckgen/internal/config"
	"speckgen/internal/pipeline"
	"speckgen/internal/watch"
)

const version = "1.2.0"

var (
	// Global flags
	inputPath  string
	cacheDir   string
	assetDir   string
	configPath string
	verbose    bool

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command. Running it without a subcommand is
// the same as running convert.
var rootCmd = &cobra.Command{
	Use:   "speckgen",
	Short: "speckgen - dataset CSV to OpenSpace asset converter",
	Long: `speckgen converts tabular datasets into OpenSpace visualization assets.

A top-level dataset CSV lists data files and per-file parameters; each row
produces a speck point cloud, a label set, or a camera anchor, together
with the Lua asset file that loads it. Stale copies are flushed from the
platform's cache directory and the results installed into the asset
directory.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runConvert,
}

// convertCmd runs the pipeline once.
var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert the dataset once and install the results",
	Long: `Runs the full pipeline: read the dataset CSV, generate speck, label
and asset files for each directive, flush stale cache entries, and copy
everything into the asset directory.

Example:
  speckgen convert -i mammals/dataset.csv -c ~/openspace/cache -a ~/openspace/user/data/assets`,
	RunE: runConvert,
}

// validateCmd checks the dataset without writing anything.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the dataset CSV and its data files without writing output",
	RunE:  runValidate,
}

// watchCmd keeps re-running convert as inputs change.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Convert once, then re-convert whenever the dataset or a data file changes",
	RunE:  runWatch,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the speckgen version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("speckgen %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&inputPath, "input", "i", "", "Input dataset CSV file")
	rootCmd.PersistentFlags().StringVarP(&cacheDir, "cache-dir", "c", "", "Platform cache directory to flush stale entries from")
	rootCmd.PersistentFlags().StringVarP(&assetDir, "asset-dir", "a", "", "Output directory for generated assets")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "speckgen.yaml", "Config file with rendering defaults")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildOptions resolves flags, config and environment into pipeline
// options. Flags win over config values.
func buildOptions() (pipeline.Options, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return pipeline.Options{}, err
	}
	if err := cfg.Validate(); err != nil {
		return pipeline.Options{}, fmt.Errorf("invalid config: %w", err)
	}

	opts := pipeline.Options{
		DatasetPath: inputPath,
		CacheDir:    cacheDir,
		AssetDir:    assetDir,
		Config:      cfg,
		Logger:      logger,
	}
	if opts.CacheDir == "" {
		opts.CacheDir = cfg.Output.CacheDir
	}
	if opts.AssetDir == "" {
		opts.AssetDir = cfg.Output.AssetDir
	}

	if opts.DatasetPath == "" {
		return opts, fmt.Errorf("no input dataset file (use --input)")
	}
	if opts.AssetDir == "" {
		return opts, fmt.Errorf("no asset directory (use --asset-dir, config output.asset_dir or SPECKGEN_ASSET_DIR)")
	}
	return opts, nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	opts, err := buildOptions()
	if err != nil {
		return err
	}

	res, err := pipeline.Run(opts)
	if err != nil {
		return err
	}

	fmt.Printf("Generated %d files into %s", len(res.Created), opts.AssetDir)
	if res.SkippedDirectives > 0 || res.SkippedRows > 0 {
		fmt.Printf(" (%d directives and %d data rows skipped, see log)",
			res.SkippedDirectives, res.SkippedRows)
	}
	fmt.Println(".")
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	opts, err := buildOptions()
	if err != nil {
		return err
	}

	res, err := pipeline.Validate(opts)
	if err != nil {
		return err
	}

	if res.SkippedDirectives > 0 {
		return fmt.Errorf("%d invalid directive rows (%d data rows would be skipped)",
			res.SkippedDirectives, res.SkippedRows)
	}
	fmt.Printf("Dataset OK (%d data rows would be skipped).\n", res.SkippedRows)
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	opts, err := buildOptions()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w, err := watch.New(opts, 0)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		if !w.Watching() {
			return err
		}
		// Keep watching: a broken dataset can be fixed under watch.
		logger.Error("initial run failed", zap.Error(err))
	}
	defer w.Stop()

	fmt.Printf("Watching %s (Ctrl-C to stop)...\n", inputPath)
	<-ctx.Done()

	stats := w.Stats()
	fmt.Printf("Stopped after %d runs (%d change events).\n", stats.Runs, stats.Events)
	return nil
}
