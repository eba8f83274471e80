package cli

import (
	"fmt"

	"hunkline/internal/conflict"

	"github.com/spf13/cobra"
)

var (
	resolveTake     string
	resolveRegion   int
	resolveStage    bool
	resolveCheckout bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <file>",
	Short: "Resolve conflict regions by taking one side",
	Long: `Rewrites a conflicted file keeping one side of a region: ours, theirs,
both (ours then theirs) or none. Without --region every region is resolved.
With --checkout the whole file is taken from one side of the merge.`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVarP(&resolveTake, "take", "t", "", "side to keep: ours, theirs, both or none")
	resolveCmd.Flags().IntVarP(&resolveRegion, "region", "r", 0, "1-based region to resolve (default: all)")
	resolveCmd.Flags().BoolVar(&resolveStage, "stage", false, "stage the file once no regions remain")
	resolveCmd.Flags().BoolVar(&resolveCheckout, "checkout", false, "take the whole file from one side (ours or theirs)")
	_ = resolveCmd.MarkFlagRequired("take")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	path := args[0]
	choice, err := conflict.ParseChoice(resolveTake)
	if err != nil {
		return err
	}
	if resolveRegion < 0 {
		return fmt.Errorf("--region must be positive")
	}

	repo, _, closeRepo, err := openRepo(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer closeRepo()

	if resolveCheckout {
		if choice != conflict.ChoiceOurs && choice != conflict.ChoiceTheirs {
			return fmt.Errorf("--checkout takes ours or theirs, not %s", choice)
		}
		if err := repo.Checkout(cmd.Context(), string(choice), path); err != nil {
			return err
		}
		if jsonOut {
			printJSON(map[string]any{"path": path, "choice": choice, "remaining": 0, "staged": true})
			return nil
		}
		fmt.Printf("Checked out %s version of %s and staged it.\n", choice, path)
		return nil
	}

	region := resolveRegion - 1
	remaining, err := repo.Resolve(cmd.Context(), path, choice, region, resolveStage)
	if err != nil {
		return err
	}
	staged := remaining == 0 && resolveStage

	if jsonOut {
		printJSON(map[string]any{"path": path, "choice": choice, "region": resolveRegion, "remaining": remaining, "staged": staged})
		return nil
	}
	if region < 0 {
		fmt.Printf("Resolved all regions of %s with %s.\n", path, choice)
	} else {
		fmt.Printf("Resolved region %d of %s with %s.\n", resolveRegion, path, choice)
	}
	switch {
	case staged:
		fmt.Printf("Staged %s.\n", path)
	case remaining > 0:
		fmt.Printf("%d %s remaining.\n", remaining, pluralize(remaining, "region", "regions"))
	}
	return nil
}
