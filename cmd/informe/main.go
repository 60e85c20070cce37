package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/HDumarBalmaceda/proyecto-informe/internal/category"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/config"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/logging"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/store"
)

var version = "dev"

// configPath is set by the persistent --config flag.
var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:     "informe",
		Short:   "Informe de soportes - classify support chat exports into a monthly report",
		Version: version,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/informe/config.toml)")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(runsCmd())
	rootCmd.AddCommand(recordsCmd())
	rootCmd.AddCommand(openCmd())
	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(cacheCmd())
	rootCmd.AddCommand(doctorCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config and builds the stderr logger it describes.
func loadConfig(verbose bool) (*config.Config, logging.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	level := logging.Level(cfg.Log.Level)
	if verbose {
		level = logging.LevelDebug
	}
	logger := logging.NewLogger(&logging.Config{
		Level:      level,
		JSONFormat: cfg.Log.JSON,
		Output:     os.Stderr,
	})
	return cfg, logger, nil
}

// openStore loads the config and opens the database it names.
func openStore() (*config.Config, *store.DB, error) {
	cfg, _, err := loadConfig(false)
	if err != nil {
		return nil, nil, err
	}
	db, err := store.OpenDB(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	return cfg, db, nil
}

// findRun returns the run named by id (or prefix), or the latest run.
func findRun(db *store.DB, id string) (*store.Run, error) {
	if id == "" {
		run, err := db.LatestRun()
		if err != nil {
			return nil, fmt.Errorf("latest run: %w (run 'informe run' first)", err)
		}
		return run, nil
	}
	run, err := db.GetRun(id)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", id, err)
	}
	return run, nil
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func terminalWidth() int {
	if !isTerminal() {
		return 0
	}
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 0
	}
	return w
}

// loadRules returns the keyword table from categories_file, or the built-in one.
func loadRules(cfg *config.Config) ([]category.Rule, error) {
	if cfg.CategoriesFile == "" {
		return category.DefaultRules(), nil
	}
	return category.LoadRules(cfg.CategoriesFile)
}
