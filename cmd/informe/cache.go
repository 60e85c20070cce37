package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/HDumarBalmaceda/proyecto-informe/internal/cache"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/media"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/store"
)

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and seed the transcription cache",
	}
	cmd.AddCommand(cacheImportCmd())
	cmd.AddCommand(cacheStatsCmd())
	cmd.AddCommand(cacheForgetCmd())
	return cmd
}

func cacheImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <dir>",
		Short: "Load transcripts saved as <media>.json ({\"text\": ...}) or <media>.txt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := context.Background()
			s, closeCache, err := openCacheStore(ctx, cfg, db)
			if err != nil {
				return err
			}
			defer closeCache()

			stats, err := cache.ImportLegacy(ctx, s, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Imported %d, skipped %d (already cached), invalid %d\n",
				stats.Imported, stats.Skipped, stats.Invalid)
			return nil
		},
	}
}

func cacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache backend, entries and size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			fmt.Printf("Backend: %s\n", cfg.Cache.Backend)
			if cfg.Cache.Backend == "redis" {
				fmt.Printf("Redis:   %s (prefix %s)\n", cfg.Cache.RedisAddr, cfg.Cache.RedisPrefix)
				return nil
			}
			return printTranscriptStats(db)
		},
	}
}

func printTranscriptStats(db *store.DB) error {
	count, err := db.TranscriptCount()
	if err != nil {
		return fmt.Errorf("count transcripts: %w", err)
	}
	size, err := db.TranscriptBytes()
	if err != nil {
		return fmt.Errorf("transcript size: %w", err)
	}
	fmt.Printf("  Transcripts: %s (%s of text)\n", humanize.Comma(int64(count)), humanize.Bytes(uint64(size)))
	return nil
}

func cacheForgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget <media>...",
		Short: "Drop cached transcripts so the media is processed again",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := context.Background()
			s, closeCache, err := openCacheStore(ctx, cfg, db)
			if err != nil {
				return err
			}
			defer closeCache()

			for _, a := range args {
				key := media.Identity(a)
				removed, err := s.Delete(ctx, key)
				switch {
				case err != nil:
					fmt.Fprintf(os.Stderr, "  %s: %v\n", key, err)
				case !removed:
					fmt.Fprintf(os.Stderr, "  %s: not cached\n", key)
				default:
					fmt.Fprintf(os.Stderr, "  forgot %s\n", key)
				}
			}
			return nil
		},
	}
}
