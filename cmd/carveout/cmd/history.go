package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"carveout/internal/adapters/tui"
	"carveout/internal/core"
)

var undoCmd = &cobra.Command{
	Use:   "undo <name>",
	Short: "Undo the last command",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := editDocument(context.Background(), args[0], func(m *core.ContentManager) error {
			if !m.UndoCmd() {
				return errors.New("nothing to undo")
			}
			return nil
		})
		if err != nil {
			return err
		}
		printHead(cmd.OutOrStdout(), m)
		return nil
	},
}

var redoCmd = &cobra.Command{
	Use:   "redo <name>",
	Short: "Redo along the selected branch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := editDocument(context.Background(), args[0], func(m *core.ContentManager) error {
			ok, err := m.RedoCmd()
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("nothing to redo")
			}
			return nil
		})
		if err != nil {
			return err
		}
		printHead(cmd.OutOrStdout(), m)
		return nil
	},
}

var branchCmd = &cobra.Command{
	Use:   "branch <name> <index>",
	Short: "Select which child of head the next redo follows",
	Long: `Select the branch the next redo follows. Branches are numbered from 0
in creation order; "carveout history" lists them.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		i, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("branch index %q: %w", args[1], err)
		}
		_, err = editDocument(context.Background(), args[0], func(m *core.ContentManager) error {
			return m.SelectBranch(i)
		})
		return err
	},
}

var checkoutCmd = &cobra.Command{
	Use:   "checkout <name> <node>",
	Short: "Move head to any node of the history",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("node %q: %w", args[1], err)
		}
		m, err := editDocument(context.Background(), args[0], func(m *core.ContentManager) error {
			return m.Checkout(core.NodeID(n))
		})
		if err != nil {
			return err
		}
		printHead(cmd.OutOrStdout(), m)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <name>",
	Short: "Print the undo tree",
	Long: `Print every node of the undo tree. "@" marks head and "*" marks the
child each node's redo follows.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := openDocument(context.Background(), args[0])
		if err != nil {
			return err
		}
		printTree(cmd.OutOrStdout(), m.Protocol(), core.RootID, 0, false)
		return nil
	},
}

var treeCmd = &cobra.Command{
	Use:   "tree <name>",
	Short: "Browse the undo tree interactively",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		m, err := openDocument(ctx, args[0])
		if err != nil {
			return err
		}
		model := tui.NewHistoryModel(m, args[0])
		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithInput(cmd.InOrStdin()), tea.WithOutput(cmd.OutOrStdout()))
		if _, err := p.Run(); err != nil {
			return err
		}
		if !model.Changed() {
			return nil
		}
		return m.SaveTo(ctx, store, args[0])
	},
}

func printHead(w io.Writer, m *core.ContentManager) {
	head := m.Head()
	fmt.Fprintf(w, "head %d: %s\n", head.ID, head.Description)
}

func printTree(w io.Writer, p *core.Protocol, id core.NodeID, depth int, selected bool) {
	n, ok := p.Node(id)
	if !ok {
		return
	}
	mark := " "
	switch {
	case id == p.Head():
		mark = "@"
	case selected:
		mark = "*"
	}
	fmt.Fprintf(w, "%s%s %d %s\n", strings.Repeat("  ", depth), mark, id, n.Description)
	for i, c := range n.Children {
		printTree(w, p, c, depth+1, i == n.Selected)
	}
}

func init() {
	rootCmd.AddCommand(undoCmd, redoCmd, branchCmd, checkoutCmd, historyCmd, treeCmd)
}
