package cli

import (
	"fmt"

	"hunkline/internal/git"

	"github.com/spf13/cobra"
)

var stashList bool

var stashCmd = &cobra.Command{
	Use:   "stash [ref]",
	Short: "Show the parsed patch of a stash entry",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStash,
}

var showCmd = &cobra.Command{
	Use:   "show [rev]",
	Short: "Show the parsed patch of a commit",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runShow,
}

func init() {
	stashCmd.Flags().BoolVarP(&stashList, "list", "l", false, "list stash entries instead")
	rootCmd.AddCommand(stashCmd)
	rootCmd.AddCommand(showCmd)
}

func runStash(cmd *cobra.Command, args []string) error {
	repo, cfg, closeRepo, err := openRepo(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer closeRepo()

	if stashList {
		entries, err := git.StashList(cmd.Context(), repo.Dir)
		if err != nil {
			return err
		}
		if jsonOut {
			printJSON(entries)
			return nil
		}
		if len(entries) == 0 {
			fmt.Println("No stash entries.")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%-12s %s\n", e.Ref, e.Subject)
		}
		return nil
	}

	ref := ""
	if len(args) > 0 {
		ref = args[0]
	}
	raw, err := git.StashShow(cmd.Context(), repo.Dir, ref)
	if err != nil {
		return err
	}
	files, err := repo.Parse(cmd.Context(), raw)
	if err != nil {
		return err
	}
	return printFiles(files, renderOptions(cfg))
}

func runShow(cmd *cobra.Command, args []string) error {
	repo, cfg, closeRepo, err := openRepo(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer closeRepo()

	rev := ""
	if len(args) > 0 {
		rev = args[0]
	}
	raw, err := git.Show(cmd.Context(), repo.Dir, rev)
	if err != nil {
		return err
	}
	files, err := repo.Parse(cmd.Context(), raw)
	if err != nil {
		return err
	}
	return printFiles(files, renderOptions(cfg))
}
