package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"hunkline/internal/config"
	"hunkline/internal/db"
	"hunkline/internal/render"
	"hunkline/internal/workspace"

	"github.com/spf13/cobra"
)

var (
	cfgPath string
	repoDir string
	verbose bool
	jsonOut bool
	noColor bool
	version = config.Version
	commit  = "unknown"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:     "hl",
	Short:   "hunkline: diff, hunk and conflict inspector for git work trees",
	Long:    "hunkline parses git diffs into files, hunks and numbered lines, tags merge conflict regions, and stages or resolves them hunk by hunk.",
	Version: fmt.Sprintf("%s (%s, %s)", version, commit, date),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		} else if cfg, err := config.LoadResolved(cfgPath); err == nil {
			level = cfg.SlogLevel()
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVarP(&repoDir, "repo", "C", "", "work tree to operate on (default: current directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colors")
}

func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return err
	}
	return nil
}

// loadConfig loads --config, ./hunkline.toml or the global config, in that
// order, falling back to defaults.
func loadConfig() (*config.Config, error) {
	return config.LoadResolved(cfgPath)
}

func openStore(cfg *config.Config) (*db.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	// Clean up orphaned WAL sidecar files if the main DB was deleted.
	if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
		_ = os.Remove(cfg.DBPath + "-shm")
		_ = os.Remove(cfg.DBPath + "-wal")
	}
	return db.Open(cfg.DBPath)
}

// openRepo opens the work tree containing --repo or the current directory. When
// withStore is set the comment store is opened too; the returned close
// function releases it.
func openRepo(ctx context.Context, withStore bool) (*workspace.Repo, *config.Config, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	var store *db.Store
	closeFn := func() {}
	if withStore {
		if store, err = openStore(cfg); err != nil {
			return nil, nil, nil, err
		}
		closeFn = func() { _ = store.Close() }
	}
	wd := repoDir
	if wd == "" {
		if wd, err = os.Getwd(); err != nil {
			closeFn()
			return nil, nil, nil, err
		}
	}
	repo, err := workspace.Open(ctx, wd, cfg, store)
	if err != nil {
		closeFn()
		return nil, nil, nil, err
	}
	return repo, cfg, closeFn, nil
}

func renderOptions(cfg *config.Config) render.Options {
	return render.Options{
		Color:     !noColor,
		Highlight: !noColor && cfg.Render.SyntaxHighlight,
		Style:     cfg.Render.Style,
		TabWidth:  cfg.Render.TabWidth,
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
