package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/HDumarBalmaceda/proyecto-informe/internal/config"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/scan"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/store"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Self-check: verify inputs, external tools, database and cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(false)
			if err != nil {
				return err
			}

			fmt.Println("=== Inputs ===")
			checkDir("Chats", cfg.ChatsDir)
			checkDir("Media", cfg.MediaDir)
			if cfg.CategoriesFile != "" {
				if _, err := loadRules(cfg); err != nil {
					fmt.Printf("  Categories: %v\n", err)
				} else {
					fmt.Printf("  Categories: %s (OK)\n", cfg.CategoriesFile)
				}
			}

			fmt.Println("\n=== File Scan ===")
			if chats, err := scan.ScanChats(cfg.ChatsDir); err != nil {
				fmt.Printf("  chats scan error: %v\n", err)
			} else {
				fmt.Printf("  Chat exports: %d\n", len(chats))
			}
			if files, err := scan.ScanMedia(cfg.MediaDir); err != nil {
				fmt.Printf("  media scan error: %v\n", err)
			} else {
				counts := scan.Count(files)
				fmt.Printf("  Audio files:  %d\n", counts[scan.MediaAudio])
				fmt.Printf("  Image files:  %d\n", counts[scan.MediaImage])
			}

			fmt.Println("\n=== Tools ===")
			checkTools(cfg)

			fmt.Println("\n=== Database ===")
			fmt.Printf("  Path: %s\n", cfg.DBPath)
			if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
				fmt.Println("  Status: NOT FOUND (created by 'informe run')")
				return nil
			}

			db, err := store.OpenDB(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer db.Close()

			runCount, err := db.RunCount()
			if err != nil {
				return fmt.Errorf("count runs: %w", err)
			}
			recordCount, err := db.RecordCount()
			if err != nil {
				return fmt.Errorf("count records: %w", err)
			}
			fmt.Printf("  Runs:    %d\n", runCount)
			fmt.Printf("  Records: %s\n", humanize.Comma(int64(recordCount)))

			fmt.Println("\n=== FTS5 ===")
			var ftsCount int
			err = db.Raw().QueryRow("SELECT COUNT(*) FROM records_fts").Scan(&ftsCount)
			if err != nil {
				fmt.Printf("  FTS5 error: %v\n", err)
			} else {
				fmt.Printf("  FTS5 entries: %d\n", ftsCount)
				if ftsCount == recordCount {
					fmt.Println("  Status: OK (synced)")
				} else {
					fmt.Printf("  Status: MISMATCH (records=%d, fts=%d)\n", recordCount, ftsCount)
				}
			}

			fmt.Printf("\n=== Cache (%s) ===\n", cfg.Cache.Backend)
			if cfg.Cache.Backend == "redis" {
				fmt.Printf("  Redis: %s\n", cfg.Cache.RedisAddr)
			} else if err := printTranscriptStats(db); err != nil {
				fmt.Printf("  cache error: %v\n", err)
			}

			if info, err := os.Stat(cfg.DBPath); err == nil {
				fmt.Printf("\n=== DB Size: %s ===\n", humanize.Bytes(uint64(info.Size())))
			}
			return nil
		},
	}
}

func checkDir(name, path string) {
	if info, err := os.Stat(path); err != nil {
		fmt.Printf("  %s: %s (NOT FOUND)\n", name, path)
	} else if !info.IsDir() {
		fmt.Printf("  %s: %s (NOT A DIRECTORY)\n", name, path)
	} else {
		fmt.Printf("  %s: %s (OK)\n", name, path)
	}
}

// checkTools looks up the external programs the configured services run.
func checkTools(cfg *config.Config) {
	t := cfg.Transcriber
	switch t.Backend {
	case "openai":
		if os.Getenv(t.APIKeyEnv) == "" {
			fmt.Printf("  Transcriber: openai (%s NOT SET)\n", t.APIKeyEnv)
		} else {
			fmt.Printf("  Transcriber: openai %s (OK)\n", t.OpenAIModel)
		}
	default:
		checkTool("Transcriber", t.Command)
	}
	if t.ConvertWAV {
		checkTool("FFmpeg", []string{t.FFmpeg})
	}
	checkTool("OCR", cfg.OCR.Command)
	checkTool("Visual", cfg.Visual.Command)
}

func checkTool(name string, argv []string) {
	if len(argv) == 0 || argv[0] == "" {
		fmt.Printf("  %s: not configured\n", name)
		return
	}
	if path, err := exec.LookPath(argv[0]); err != nil {
		fmt.Printf("  %s: %s (NOT FOUND)\n", name, argv[0])
	} else {
		fmt.Printf("  %s: %s (OK)\n", name, path)
	}
}
