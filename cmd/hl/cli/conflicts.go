package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"hunkline/internal/conflict"
	"hunkline/internal/diff"
	"hunkline/internal/git"
	"hunkline/internal/render"
	"hunkline/internal/watch"

	"github.com/spf13/cobra"
)

var (
	conflictsWatch    bool
	conflictsRecreate bool
	conflictsShow     bool
)

var conflictsCmd = &cobra.Command{
	Use:   "conflicts [files...]",
	Short: "List conflict regions in unmerged files",
	Long:  "Annotates conflicted work-tree files and lists their conflict regions. With no files, every unmerged path is used.",
	RunE:  runConflicts,
}

func init() {
	conflictsCmd.Flags().BoolVarP(&conflictsWatch, "watch", "w", false, "keep running and report regions again whenever a file changes")
	conflictsCmd.Flags().BoolVar(&conflictsRecreate, "recreate", false, "restore conflict markers before listing")
	conflictsCmd.Flags().BoolVar(&conflictsShow, "show", false, "print the annotated file text")
	rootCmd.AddCommand(conflictsCmd)
}

type conflictReport struct {
	Path    string            `json:"path"`
	Regions []conflict.Region `json:"regions"`
}

func runConflicts(cmd *cobra.Command, args []string) error {
	repo, cfg, closeRepo, err := openRepo(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer closeRepo()

	paths := args
	if len(paths) == 0 {
		if paths, err = git.ConflictedFiles(cmd.Context(), repo.Dir); err != nil {
			return err
		}
	}
	if len(paths) == 0 {
		if jsonOut {
			printJSON([]conflictReport{})
			return nil
		}
		fmt.Println("No conflicted files.")
		return nil
	}

	if conflictsRecreate {
		if err := repo.Recreate(cmd.Context(), paths...); err != nil {
			return err
		}
	}

	if conflictsWatch {
		return watchConflicts(cmd, repo.Dir, paths)
	}

	files, err := repo.Conflicts(cmd.Context(), paths)
	if err != nil {
		return err
	}
	if jsonOut {
		reports := make([]conflictReport, 0, len(files))
		for _, fd := range files {
			regions := conflict.Regions(fd)
			if regions == nil {
				regions = []conflict.Region{}
			}
			reports = append(reports, conflictReport{Path: fd.Path(), Regions: regions})
		}
		printJSON(reports)
		return nil
	}
	for _, fd := range files {
		printConflictFile(fd)
		if conflictsShow {
			opts := renderOptions(cfg)
			opts.LineNumbers = true
			fmt.Println()
			for _, l := range fd.Lines() {
				fmt.Println(render.FormatLine(l, opts))
			}
		}
	}
	return nil
}

func printConflictFile(fd diff.FileDiff) {
	regions := conflict.Regions(fd)
	if len(regions) == 0 {
		fmt.Printf("%s: no conflict markers\n", fd.Path())
		return
	}
	fmt.Printf("%s: %d %s\n", fd.Path(), len(regions), pluralize(len(regions), "region", "regions"))
	for _, r := range regions {
		labels := r.OursLabel + " / " + r.TheirsLabel
		if r.BaseLabel != "" {
			labels = r.OursLabel + " / " + r.BaseLabel + " / " + r.TheirsLabel
		}
		fmt.Printf("  [%d] lines %d-%d  ours %d, theirs %d  (%s)\n",
			r.Index+1, r.StartLine, r.EndLine, len(r.Ours), len(r.Theirs), labels)
	}
}

func watchConflicts(cmd *cobra.Command, dir string, paths []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := watch.New(dir, paths, watch.DefaultDelay)
	if err != nil {
		return err
	}
	updates := make(chan watch.Update)
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx, updates) }()

	for {
		select {
		case u := <-updates:
			if u.Err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", u.Path, u.Err)
				continue
			}
			if jsonOut {
				printJSON(conflictReport{Path: u.Path, Regions: conflict.Regions(u.File)})
				continue
			}
			printConflictFile(u.File)
		case err := <-errc:
			return err
		}
	}
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
