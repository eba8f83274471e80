package cli

import (
	"fmt"
	"strings"

	"hunkline/internal/diff"
	"hunkline/internal/workspace"

	"github.com/spf13/cobra"
)

var (
	commentLine   int
	commentOld    bool
	commentCached bool
	commentBody   string
	commentAll    bool
)

var commentCmd = &cobra.Command{
	Use:   "comment",
	Short: "Manage comments anchored to diff lines",
}

var commentAddCmd = &cobra.Command{
	Use:   "add <file>",
	Short: "Comment on a changed line",
	Args:  cobra.ExactArgs(1),
	RunE:  runCommentAdd,
}

var commentListCmd = &cobra.Command{
	Use:   "list [file]",
	Short: "List comments",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCommentList,
}

var commentResolveCmd = &cobra.Command{
	Use:   "resolve <id>",
	Short: "Mark a comment resolved",
	Args:  cobra.ExactArgs(1),
	RunE:  runCommentResolve,
}

var commentDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a comment",
	Args:  cobra.ExactArgs(1),
	RunE:  runCommentDelete,
}

func init() {
	commentAddCmd.Flags().IntVarP(&commentLine, "line", "l", 0, "line number in the new file")
	commentAddCmd.Flags().BoolVar(&commentOld, "old", false, "interpret --line as a line number in the old file")
	commentAddCmd.Flags().BoolVar(&commentCached, "cached", false, "anchor to the staged diff")
	commentAddCmd.Flags().StringVarP(&commentBody, "message", "m", "", "comment body (markdown)")
	_ = commentAddCmd.MarkFlagRequired("line")
	_ = commentAddCmd.MarkFlagRequired("message")
	commentListCmd.Flags().BoolVarP(&commentAll, "all", "a", false, "include resolved comments")

	commentCmd.AddCommand(commentAddCmd, commentListCmd, commentResolveCmd, commentDeleteCmd)
	rootCmd.AddCommand(commentCmd)
}

func runCommentAdd(cmd *cobra.Command, args []string) error {
	path := args[0]
	repo, _, closeRepo, err := openRepo(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer closeRepo()

	files, err := repo.Diff(cmd.Context(), repo.DiffOptions(commentCached, "", path))
	if err != nil {
		return err
	}
	fd, ok := findFile(files, path)
	if !ok {
		return fmt.Errorf("%s: %w", path, workspace.ErrFileNotFound)
	}
	side := diff.SideNew
	if commentOld {
		side = diff.SideOld
	}
	hi, li, ok := fd.LineAt(side, commentLine)
	if !ok {
		return fmt.Errorf("%s has no %s line %d in its diff", path, side, commentLine)
	}
	id, err := repo.AddComment(cmd.Context(), fd, hi, li, commentBody)
	if err != nil {
		return err
	}
	if jsonOut {
		printJSON(map[string]any{"id": id, "path": path, "side": side.String(), "line": commentLine})
		return nil
	}
	fmt.Printf("Added comment %s on %s:%d.\n", shortID(id), path, commentLine)
	return nil
}

func runCommentList(cmd *cobra.Command, args []string) error {
	repo, _, closeRepo, err := openRepo(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer closeRepo()

	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	comments, err := repo.Comments(cmd.Context(), path, commentAll)
	if err != nil {
		return err
	}
	if jsonOut {
		printJSON(comments)
		return nil
	}
	if len(comments) == 0 {
		fmt.Println("No comments.")
		return nil
	}
	for _, c := range comments {
		first, _, _ := strings.Cut(c.Body, "\n")
		state := ""
		if c.Resolved() {
			state = "  (resolved)"
		}
		fmt.Printf("%-8s  %s:%d %-3s  %s%s\n", shortID(c.ID), c.Path, c.Line, c.Side, first, state)
	}
	return nil
}

func runCommentResolve(cmd *cobra.Command, args []string) error {
	repo, _, closeRepo, err := openRepo(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer closeRepo()

	if err := repo.Store().ResolveComment(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Resolved comment %s.\n", args[0])
	return nil
}

func runCommentDelete(cmd *cobra.Command, args []string) error {
	repo, _, closeRepo, err := openRepo(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer closeRepo()

	c, err := repo.Store().GetComment(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := repo.Store().DeleteComment(cmd.Context(), c.ID); err != nil {
		return err
	}
	fmt.Printf("Deleted comment %s.\n", shortID(c.ID))
	return nil
}

func findFile(files []diff.FileDiff, path string) (diff.FileDiff, bool) {
	for _, fd := range files {
		if fd.Path() == path || fd.FromPath == path || fd.ToPath == path {
			return fd, true
		}
	}
	return diff.FileDiff{}, false
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
