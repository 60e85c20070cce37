package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/HDumarBalmaceda/proyecto-informe/internal/batch"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/cache"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/category"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/chat"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/classify"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/config"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/extract"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/logging"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/media"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/pipeline"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/render"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/report"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/scan"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/store"
)

func runCmd() *cobra.Command {
	var minYear int
	var output string
	var perChat, verbose bool

	cmd := &cobra.Command{
		Use:   "run [chat.txt]",
		Short: "Classify the chat exports and write the monthly report",
		Long: `Parses every .txt export in chats_dir (or the single chat given), resolves
voice notes and images in media_dir, transcribes/OCRs them through the cache,
classifies each event and writes the category x month spreadsheet.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(verbose)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("min-year") {
				cfg.MinYear = minYear
			}
			if output != "" {
				cfg.Output = output
			}

			source, chats, mediaDir, err := inputs(cfg, args)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			rules, err := loadRules(cfg)
			if err != nil {
				return err
			}
			universe := category.Universe(rules)

			db, err := store.OpenDB(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer db.Close()

			cacheStore, closeCache, err := openCacheStore(ctx, cfg, db)
			if err != nil {
				return err
			}
			defer closeCache()

			mediaFiles, err := scan.ScanMedia(mediaDir)
			if err != nil {
				return fmt.Errorf("scan media: %w", err)
			}
			counts := scan.Count(mediaFiles)
			logger.Info("media indexed",
				logging.F("dir", mediaDir),
				logging.F("audio", counts[scan.MediaAudio]),
				logging.F("images", counts[scan.MediaImage]))

			services, err := extract.FromConfig(cfg)
			if err != nil {
				return err
			}

			resolver := media.NewResolver(mediaFiles, media.Options{Root: mediaDir})
			reg := prometheus.NewRegistry()
			p := pipeline.New(pipeline.Deps{
				Classifier:  classify.New(rules),
				Resolver:    resolver,
				Cache:       cache.New(cacheStore, cache.WithLogger(logger)),
				Transcriber: services.Transcriber,
				OCR:         services.OCR,
				Visual:      services.Visual,
				Universe:    universe,
				Logger:      logger,
				Metrics:     pipeline.NewMetrics(reg),
			})

			logger.Info("processing chats", logging.F("source", source), logging.F("chats", len(chats)))
			res, err := batch.ProcessAll(ctx, p, db, chats, batch.Options{
				Chat: chat.Options{
					MinYear:      cfg.MinYear,
					AgentSenders: cfg.AgentSenders,
				},
				Universe: universe,
				Output:   cfg.Output,
				PerChat:  perChat,
				Source:   source,
				Logger:   logger,
			})

			unused := resolver.Remaining()
			logger.Info("media usage",
				logging.F("indexed", resolver.Indexed()),
				logging.F("unused_audio", unused[scan.MediaAudio]),
				logging.F("unused_images", unused[scan.MediaImage]))

			if cfg.MetricsFile != "" {
				if werr := pipeline.WriteTextfile(cfg.MetricsFile, reg); werr != nil {
					logger.Warn("write metrics", logging.F("path", cfg.MetricsFile), logging.Err(werr))
				}
			}

			if errors.Is(err, report.ErrEmptyResult) {
				fmt.Fprintf(os.Stderr, "No records found since %d: no spreadsheet written. (%s)\n", cfg.MinYear, res.Stats)
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Print(render.RenderTable(res.Table, render.Options{
				Width:       terminalWidth(),
				Color:       isTerminal(),
				NonZeroOnly: !verbose,
				Hit:         -1,
			}))

			if verbose {
				printSummary(res, p.Stats())
			}

			fmt.Fprintf(os.Stderr, "Done. %s records from %d chats, run %s\n",
				humanize.Comma(int64(res.Stats.Records)), res.Stats.Chats, shortRunID(res.RunID))
			for _, r := range res.Reports {
				fmt.Fprintf(os.Stderr, "  wrote %s\n", r)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&minYear, "min-year", config.DefaultMinYear, "Ignore chat lines dated before this year")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Report path (default from config)")
	cmd.Flags().BoolVar(&perChat, "per-chat", false, "Also write one report per chat")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging and a per-category summary")

	return cmd
}

// inputs returns the run source, the chat files to process and the media
// directory. Missing inputs are reported before anything is processed.
func inputs(cfg *config.Config, args []string) (string, []string, string, error) {
	if len(args) == 1 {
		path, err := filepath.Abs(args[0])
		if err != nil {
			return "", nil, "", err
		}
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			return "", nil, "", fmt.Errorf("%w: %s", config.ErrInputMissing, args[0])
		}
		mediaDir := cfg.MediaDir
		if _, err := os.Stat(mediaDir); err != nil {
			mediaDir = filepath.Dir(path)
		}
		return path, []string{path}, mediaDir, nil
	}

	if err := cfg.CheckInputs(); err != nil {
		return "", nil, "", err
	}
	files, err := scan.ScanChats(cfg.ChatsDir)
	if err != nil {
		return "", nil, "", fmt.Errorf("scan chats: %w", err)
	}
	if len(files) == 0 {
		return "", nil, "", fmt.Errorf("%w: no .txt chats in %s", config.ErrInputMissing, cfg.ChatsDir)
	}
	chats := make([]string, 0, len(files))
	for _, f := range files {
		chats = append(chats, f.Path)
	}
	source, err := filepath.Abs(cfg.ChatsDir)
	if err != nil {
		source = cfg.ChatsDir
	}
	return source, chats, cfg.MediaDir, nil
}

// openCacheStore returns the configured transcript store and its closer.
func openCacheStore(ctx context.Context, cfg *config.Config, db *store.DB) (cache.Store, func(), error) {
	if cfg.Cache.Backend != "redis" {
		return cache.NewSQLiteStore(db), func() {}, nil
	}
	client, err := cache.ConnectRedis(ctx, cfg.Cache.RedisAddr, os.Getenv("REDIS_PASSWORD"))
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewRedisStore(client, cfg.Cache.RedisPrefix), func() { client.Close() }, nil
}

func printSummary(res *batch.Result, stats pipeline.Stats) {
	fmt.Fprintf(os.Stderr, "\n%s\n", stats)
	fmt.Fprintln(os.Stderr, "Records per category:")
	for _, cc := range pipeline.CountByCategory(res.Records) {
		fmt.Fprintf(os.Stderr, "  %6s  %s\n", humanize.Comma(int64(cc.Count)), cc.Category)
	}

	n := len(res.Records)
	if n > 5 {
		n = 5
	}
	if n > 0 {
		fmt.Fprintln(os.Stderr, "First records:")
	}
	for _, r := range res.Records[:n] {
		fmt.Fprintf(os.Stderr, "  %s %s:%d %s -> %s\n",
			r.Date.Format("2006-01-02"), r.Source, r.Line, r.Kind, r.Category)
	}
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
