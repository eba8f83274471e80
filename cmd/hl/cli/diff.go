package cli

import (
	"fmt"
	"os"

	"hunkline/internal/diff"
	"hunkline/internal/render"

	"github.com/spf13/cobra"
)

var (
	diffCached      bool
	diffRev         string
	diffStat        bool
	diffFiles       bool
	diffFilter      string
	diffLineNumbers bool
	diffUntracked   bool
)

var diffCmd = &cobra.Command{
	Use:   "diff [paths...]",
	Short: "Show the parsed diff of the work tree",
	Long:  "Runs git diff, parses it into files, hunks and numbered lines, and prints it. Conflicted files are shown with their conflict regions tagged.",
	RunE:  runDiff,
}

func init() {
	diffCmd.Flags().BoolVar(&diffCached, "cached", false, "diff the index against HEAD")
	diffCmd.Flags().StringVar(&diffRev, "rev", "", "diff against a commit instead of the index")
	diffCmd.Flags().BoolVar(&diffStat, "stat", false, "show a per-file change summary")
	diffCmd.Flags().BoolVar(&diffFiles, "files", false, "show changed file names only")
	diffCmd.Flags().StringVar(&diffFilter, "filter", "", "fuzzy filter on file paths")
	diffCmd.Flags().BoolVarP(&diffLineNumbers, "line-numbers", "n", false, "prefix lines with old and new line numbers")
	diffCmd.Flags().BoolVar(&diffUntracked, "untracked", false, "include untracked files as additions")
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	if diffStat && diffFiles {
		return fmt.Errorf("--stat and --files are mutually exclusive")
	}
	repo, cfg, closeRepo, err := openRepo(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer closeRepo()

	opts := repo.DiffOptions(diffCached, diffRev, args...)
	opts.IncludeUntracked = diffUntracked
	files, err := repo.Diff(cmd.Context(), opts)
	if err != nil {
		return err
	}
	return printFiles(files, renderOptions(cfg))
}

// printFiles writes files in the format chosen by --json, --stat and --files,
// after applying --filter.
func printFiles(files []diff.FileDiff, opts render.Options) error {
	files = render.Filter(files, diffFilter)
	opts.LineNumbers = diffLineNumbers

	if jsonOut {
		if files == nil {
			files = []diff.FileDiff{}
		}
		printJSON(files)
		return nil
	}
	if len(files) == 0 {
		fmt.Println("(no changes)")
		return nil
	}
	switch {
	case diffStat:
		return render.WriteStat(os.Stdout, files, opts)
	case diffFiles:
		return render.WriteNames(os.Stdout, files, opts)
	default:
		return render.WriteFiles(os.Stdout, files, opts)
	}
}
