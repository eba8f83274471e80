package cli

import (
	"context"
	"fmt"
	"log/slog"

	"hunkline/internal/git"
	"hunkline/internal/tui"
	"hunkline/internal/watch"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var (
	tuiCached bool
	tuiWatch  bool
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Browse, stage and resolve hunks interactively",
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().BoolVar(&tuiCached, "cached", false, "browse staged changes (staging then unstages)")
	tuiCmd.Flags().BoolVar(&tuiWatch, "watch", true, "refresh conflicted files when they change on disk")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	repo, cfg, closeRepo, err := openRepo(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer closeRepo()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var updates <-chan watch.Update
	if tuiWatch && !tuiCached {
		updates = startConflictWatch(ctx, repo.Dir)
	}

	backend := tui.RepoBackend{Repo: repo, Opts: repo.DiffOptions(tuiCached, "", args...)}
	model := tui.NewModel(backend, cfg, updates)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}

// startConflictWatch watches the currently unmerged files. It returns nil
// when there is nothing to watch.
func startConflictWatch(ctx context.Context, dir string) <-chan watch.Update {
	paths, err := git.ConflictedFiles(ctx, dir)
	if err != nil || len(paths) == 0 {
		return nil
	}
	w, err := watch.New(dir, paths, watch.DefaultDelay)
	if err != nil {
		slog.Warn("watch conflicted files", "error", err)
		return nil
	}
	updates := make(chan watch.Update)
	go func() {
		if err := w.Run(ctx, updates); err != nil {
			slog.Warn("conflict watcher stopped", "error", err)
		}
	}()
	return updates
}
