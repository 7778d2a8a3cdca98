package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mhollert/bret/internal/backtest"
	"github.com/mhollert/bret/internal/commentary"
	"github.com/mhollert/bret/internal/config"
	"github.com/mhollert/bret/internal/core"
	"github.com/mhollert/bret/internal/feed"
	"github.com/mhollert/bret/internal/feed/binance"
	"github.com/mhollert/bret/internal/feed/cache"
	"github.com/mhollert/bret/internal/feed/csvfile"
	"github.com/mhollert/bret/internal/llm/factory"
	"github.com/mhollert/bret/internal/logger"
	"github.com/mhollert/bret/internal/report"
	"github.com/mhollert/bret/internal/runner"
	"github.com/mhollert/bret/internal/storage/archive"
)

var (
	runInstruments []string
	runShowTrades  bool
	runNoArchive   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluate the rule against the configured instruments",
	Long: `Fetch bars for every configured instrument, detect breakout-and-retest
signals, simulate the resulting trades and print performance statistics.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringSliceVar(&runInstruments, "instruments", nil, "instruments to evaluate (overrides config)")
	runCmd.Flags().BoolVar(&runShowTrades, "trades", false, "print the simulated trade list")
	runCmd.Flags().BoolVar(&runNoArchive, "no-archive", false, "skip writing run artifacts")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	log := logger.Must(debug)
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	if len(runInstruments) > 0 {
		cfg.Instruments = runInstruments
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, closeProvider, err := buildProvider(cfg, log)
	if err != nil {
		return err
	}
	defer closeProvider()

	results, err := runner.New(cfg, provider, log).EvaluateAll(ctx)
	if err != nil {
		return err
	}

	for _, res := range results {
		report.Render(os.Stdout, res)
		if runShowTrades && res.Simulation != nil {
			fmt.Println()
			report.RenderTrades(os.Stdout, res.Simulation.Trades)
		}
		fmt.Println()
	}

	params := cfg.Params()
	timeframe := core.Timeframe(cfg.Data.Timeframe)

	if cfg.Archive.Enabled && !runNoArchive {
		runID := uuid.NewString()
		if err := archiveRun(ctx, cfg, runID, results, params, timeframe); err != nil {
			log.Warn("archiving run failed", zap.Error(err))
		} else {
			fmt.Printf("Run archived as %s\n", runID)
		}
	}

	if cfg.LLM.Provider != "" {
		writeCommentary(ctx, cfg, params, results, log)
	}

	if failed := runner.Failed(results); failed == len(results) {
		return fmt.Errorf("all %d instruments failed", failed)
	} else if failed > 0 {
		log.Warn("some instruments failed",
			zap.Int("failed", failed),
			zap.Int("total", len(results)),
		)
	}
	return nil
}

// buildProvider assembles the configured feed, wrapped in the bar cache
// when enabled. The returned func releases the cache handle.
func buildProvider(cfg *config.Config, log *zap.Logger) (feed.Provider, func(), error) {
	registry := feed.NewRegistry()
	registry.Register(binance.New())
	registry.Register(csvfile.New(cfg.Data.CSVDir))

	provider, ok := registry.Get(cfg.Data.Provider)
	if !ok {
		return nil, nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown data provider %q (have %s)",
				cfg.Data.Provider, strings.Join(registry.Names(), ", ")))
	}

	if !cfg.Data.Cache.Enabled {
		return provider, func() {}, nil
	}

	cached, err := cache.New(provider, cfg.Data.Cache.Path, cfg.Data.Cache.MaxAge, log)
	if err != nil {
		return nil, nil, err
	}
	return cached, func() { cached.Close() }, nil
}

func archiveRun(ctx context.Context, cfg *config.Config, runID string, results []runner.Result, params backtest.Params, timeframe core.Timeframe) error {
	storage, err := buildStorage(cfg.Archive)
	if err != nil {
		return err
	}

	artifacts, err := report.Artifacts(runID, time.Now(), results, params, timeframe)
	if err != nil {
		return err
	}

	return archive.NewRunStore(storage).SaveRun(ctx, runID, artifacts)
}

func buildStorage(cfg config.ArchiveConfig) (archive.Storage, error) {
	switch cfg.Type {
	case "localfs":
		return archive.NewLocalFS(cfg.Path)
	case "s3":
		return archive.NewS3(archive.S3Config{
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		})
	default:
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown archive type %q", cfg.Type))
	}
}

// writeCommentary is best effort; a broken LLM never fails the run.
func writeCommentary(ctx context.Context, cfg *config.Config, params backtest.Params, results []runner.Result, log *zap.Logger) {
	provider, err := factory.New(cfg.LLM)
	if err != nil {
		log.Warn("llm provider unavailable", zap.Error(err))
		return
	}

	text, err := commentary.NewWriter(provider, log).Write(ctx, params, results)
	if err != nil {
		log.Warn("commentary failed", zap.Error(err))
		return
	}

	fmt.Println("=== Commentary ===")
	fmt.Println(text)
}
