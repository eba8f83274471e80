package cli

import (
	"fmt"
	"io"
	"os"

	"hunkline/internal/worker"

	"github.com/spf13/cobra"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file|-]",
	Short: "Parse a unified diff from a file or stdin",
	Long:  "Parses a unified diff without touching any repository. With no argument, or \"-\", the diff is read from stdin.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runParse,
}

func init() {
	parseCmd.Flags().BoolVar(&diffStat, "stat", false, "show a per-file change summary")
	parseCmd.Flags().BoolVar(&diffFiles, "files", false, "show changed file names only")
	parseCmd.Flags().StringVar(&diffFilter, "filter", "", "fuzzy filter on file paths")
	parseCmd.Flags().BoolVarP(&diffLineNumbers, "line-numbers", "n", false, "prefix lines with old and new line numbers")
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	if diffStat && diffFiles {
		return fmt.Errorf("--stat and --files are mutually exclusive")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var data []byte
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("read diff: %w", err)
	}

	files, err := worker.NewPool(cfg.Diff.MaxWorkers).ParseAll(cmd.Context(), string(data))
	if err != nil {
		return err
	}
	return printFiles(files, renderOptions(cfg))
}
