package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"carveout/pkg/domain"
)

var newCmd = &cobra.Command{
	Use:   "new [name]",
	Short: "Create an empty document",
	Long: `Create an empty document. Without a name a random one is generated.

Examples:
  carveout new sketch
  carveout new`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		name := uuid.NewString()
		if len(args) == 1 {
			name = args[0]
		}
		if _, err := store.Load(ctx, name); err == nil {
			return fmt.Errorf("document %q already exists", name)
		} else if !errors.Is(err, domain.ErrDocumentNotFound) {
			return err
		}
		if err := newManager().SaveTo(ctx, store, name); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), name)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		infos, err := store.List(context.Background())
		if err != nil {
			return err
		}
		for _, info := range infos {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d bytes\t%s\n", info.Name, info.Size, info.UpdatedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a document's strokes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := openDocument(context.Background(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		head := m.Head()
		fmt.Fprintf(out, "head %d: %s\n", head.ID, head.Description)
		for id, s := range m.Access().Strokes() {
			b := s.Bounds()
			fmt.Fprintf(out, "%s\t%d points\t%s\twidth %g\t(%g,%g)-(%g,%g)\n",
				id, len(s.Points), formatColor(s.Color), s.Width, b.Min.X, b.Min.Y, b.Max.X, b.Max.Y)
		}
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a document and its history",
	Long: `Delete a document together with its undo history.

Warning: This operation cannot be undone.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ok, err := store.Delete(context.Background(), args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("document %q does not exist", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(newCmd, listCmd, showCmd, deleteCmd)
}
