package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/r3labs/diff/v3"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Xaypanya/sniperz"
	"github.com/Xaypanya/sniperz/async"
	"github.com/Xaypanya/sniperz/internal/archive"
	"github.com/Xaypanya/sniperz/internal/catalog"
	"github.com/Xaypanya/sniperz/internal/downloads"
	"github.com/Xaypanya/sniperz/internal/export"
	"github.com/Xaypanya/sniperz/internal/progress"
	"github.com/Xaypanya/sniperz/internal/scrape"
	"github.com/Xaypanya/sniperz/internal/thumbnail"
	"github.com/Xaypanya/sniperz/provider/youtube"
)

func main() {
	cfg, err := sniperz.LoadConfig()
	if err != nil {
		log.Fatalf("can't load config: %v", err)
	}

	zapConfig := zap.NewDevelopmentConfig()
	zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	zapConfig.Level = zap.NewAtomicLevelAt(cfg.ZapLevel())
	logger, err := zapConfig.Build()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()
	zap.RedirectStdLog(logger)
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := newApp(cfg, ctx)
	result := async.Run(func() error { return app.Run(os.Args) })

	select {
	case err = <-result:
		if err != nil {
			logger.Fatal(err.Error())
		}
	case <-ctx.Done():
		stop()
		err = <-result
		if err != nil {
			logger.Fatal(err.Error())
		}
	}
}

func newApp(cfg *sniperz.Config, ctx context.Context) *cli.App {
	return &cli.App{
		Name:  "sniperz",
		Usage: "bulk-collect and download channel shorts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "channels-file",
				Usage: "read channel URLs from `FILE`, one per line",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "channels",
				Usage: "print the effective channel list",
				Action: func(c *cli.Context) error {
					channels, err := loadChannels(c)
					if err != nil {
						return err
					}
					for _, channel := range channels {
						fmt.Println(channel)
					}
					return nil
				},
			},
			{
				Name:      "scrape",
				Usage:     "collect video metadata from the channel list",
				ArgsUsage: "[CHANNEL_URL...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "csv",
						Usage: "write the catalog to `FILE` as CSV",
					},
				},
				Action: func(c *cli.Context) error {
					return runScrape(ctx, cfg, c, false)
				},
			},
			{
				Name:      "download",
				Usage:     "scrape the channel list, then download every video",
				ArgsUsage: "[CHANNEL_URL...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "target",
						Usage: "save downloaded videos to `DIR`",
					},
					&cli.StringFlag{
						Name:  "csv",
						Usage: "write the catalog to `FILE` as CSV",
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "run up to `N` downloads in parallel",
					},
				},
				Action: func(c *cli.Context) error {
					if target := c.String("target"); target != "" {
						cfg.DestinationDir = target
					}
					if n := c.Int("concurrency"); n > 0 {
						cfg.DownloadConcurrency = n
					}
					return runScrape(ctx, cfg, c, true)
				},
			},
			{
				Name:  "archive",
				Usage: "list previously downloaded videos",
				Action: func(c *cli.Context) error {
					return runArchiveList(cfg)
				},
			},
		},
		HideHelpCommand: true,
	}
}

// loadChannels resolves the channel list: positional arguments win, then
// --channels-file, then the built-in default list.
func loadChannels(c *cli.Context) ([]string, error) {
	if c.Args().Len() > 0 {
		return c.Args().Slice(), nil
	}
	path := c.String("channels-file")
	if path == "" {
		return sniperz.DefaultChannels, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var channels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		channels = append(channels, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(channels) == 0 {
		return nil, fmt.Errorf("no channel URLs in %s", path)
	}
	return channels, nil
}

func runScrape(ctx context.Context, cfg *sniperz.Config, c *cli.Context, download bool) error {
	logger := zap.S()
	channels, err := loadChannels(c)
	if err != nil {
		return err
	}

	cat := catalog.New()
	defer cat.Close()
	provider := youtube.New(logger)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go logRecordChanges(runCtx, cat, logger)

	var store thumbnail.Store
	if cfg.ThumbnailCachePath != "" {
		if store, err = thumbnail.NewBoltStore(cfg.ThumbnailCachePath); err != nil {
			return fmt.Errorf("can't open thumbnail cache: %w", err)
		}
	}
	cache := thumbnail.NewCache(thumbnail.Config{
		Fetcher:     provider,
		Catalog:     cat,
		Store:       store,
		Concurrency: cfg.ThumbnailConcurrency,
		Timeout:     cfg.MetadataTimeout,
		Log:         logger,
	})
	go func() { _ = cache.Run(runCtx) }()

	logger.Infow("scraping channels", "channels", len(channels))
	if err := scrape.New(provider, cat, cfg.MetadataTimeout).Scrape(ctx, channels); err != nil {
		// Per-channel failures are survivable; the catalog keeps whatever
		// the healthy channels produced.
		logger.Warnf("some channels failed:\n%v", err)
	}
	cache.Backfill()
	logger.Infow("scrape finished", "videos", cat.Len())

	if download {
		if err := runDownloads(ctx, cfg, cat, provider, logger); err != nil {
			return err
		}
	}
	waitForThumbnails(ctx, cat, cfg.ProgressEmitInterval, logger)

	if path := c.String("csv"); path != "" {
		if err := export.WriteCSVFile(path, cat); err != nil {
			return fmt.Errorf("CSV export failed: %w", err)
		}
		logger.Infow("catalog exported", "path", path, "rows", cat.Len())
	}
	return ctx.Err()
}

func runDownloads(ctx context.Context, cfg *sniperz.Config, cat *catalog.Catalog, provider *youtube.Provider, logger *zap.SugaredLogger) error {
	if err := cfg.EnsureDestinationDir(); err != nil {
		return err
	}

	var recorder downloads.ArchiveRecorder
	if cfg.ArchivePath != "" {
		store, err := archive.Open(cfg.ArchivePath, logger.Desugar())
		if err != nil {
			return fmt.Errorf("can't open download archive: %w", err)
		}
		defer store.Close()
		recorder = store
	}

	agg := progress.NewAggregator(cat, cfg.ProgressEmitInterval, logger)
	aggCtx, stopAgg := context.WithCancel(ctx)
	defer stopAgg()
	go func() { _ = agg.Run(aggCtx) }()
	go showProgress(agg)

	orchestrator := downloads.NewOrchestrator(downloads.Config{
		Fetcher:        provider,
		Catalog:        cat,
		Archive:        recorder,
		DestinationDir: cfg.DestinationDir,
		Concurrency:    cfg.DownloadConcurrency,
		MaxAttempts:    cfg.MaxDownloadAttempts,
		Timeout:        cfg.DownloadTimeout,
		Log:            logger,
	})
	report := orchestrator.Run(ctx, nil)
	if report.Err != nil {
		logger.Warnf("download run had failures:\n%v", report.Err)
	}
	logger.Infow("downloads finished",
		"completed", report.Completed,
		"failed", report.Failed,
		"cancelled", report.Cancelled,
		"skipped", report.Skipped,
	)
	return nil
}

// showProgress renders aggregator updates as a terminal progress bar over
// settled downloads.
func showProgress(agg *progress.Aggregator) {
	updates, err := agg.Subscribe()
	if err != nil {
		return
	}
	defer updates.Close()
	bar := progressbar.Default(1, "downloading")
	for counts := range updates.Receive() {
		total := int64(counts.DownloadsActive() + counts.DownloadsSettled())
		if total > 0 && bar.GetMax64() != total {
			bar.ChangeMax64(total)
		}
		_ = bar.Set(counts.DownloadsSettled())
	}
	_ = bar.Finish()
}

// waitForThumbnails lets in-flight thumbnail fetches settle before exit, so
// a scrape-and-exit run still fills the cache.
func waitForThumbnails(ctx context.Context, cat *catalog.Catalog, interval time.Duration, logger *zap.SugaredLogger) {
	for {
		counts := progress.Aggregate(cat.Snapshot())
		if counts.ThumbnailPending == 0 {
			logger.Infow("thumbnails settled", "ready", counts.ThumbnailReady, "failed", counts.ThumbnailFailed)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}

// logRecordChanges debug-logs field-level diffs for every record mutation.
func logRecordChanges(ctx context.Context, cat *catalog.Catalog, logger *zap.SugaredLogger) {
	events, err := cat.Subscribe()
	if err != nil {
		return
	}
	defer events.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events.Receive():
			if !ok {
				return
			}
			switch e := event.(type) {
			case catalog.RecordAdded:
				logger.Debugf("discovered: %v", e.Record())
			case catalog.RecordChanged:
				changes, err := diff.Diff(e.Old, e.Record())
				if err != nil {
					logger.Errorf("failed to diff old and new record state: %v", err)
					continue
				}
				for _, change := range changes {
					logger.Debugf("%s %v: %#v -> %#v", e.Record().ID, change.Path, change.From, change.To)
				}
			}
		}
	}
}

func runArchiveList(cfg *sniperz.Config) error {
	if cfg.ArchivePath == "" {
		return fmt.Errorf("no archive configured (set SNIPERZ_ARCHIVE_PATH)")
	}
	store, err := archive.Open(cfg.ArchivePath, zap.L())
	if err != nil {
		return err
	}
	defer store.Close()
	rows, err := store.List()
	if err != nil {
		return err
	}
	for _, row := range rows {
		fmt.Printf("%s\t%s\t%s\n", row.DownloadedAt.Format(time.RFC3339), row.VideoID, row.Title)
	}
	return nil
}
