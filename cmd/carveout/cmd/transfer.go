package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"carveout/internal/blob"
	"carveout/internal/savefile"
	"carveout/pkg/domain"
)

var importForce bool

var exportCmd = &cobra.Command{
	Use:   "export <name> [key]",
	Short: "Write a document and its history to the blob store as a .co file",
	Long: `Write a document to the configured blob store. The key defaults to the
document name; the .co extension is added when missing.

The blob store is selected with CARVEOUT_BLOB_DRIVER (fs, s3 or memory).`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		m, err := openDocument(ctx, args[0])
		if err != nil {
			return err
		}
		bs, err := blob.Open(ctx)
		if err != nil {
			return err
		}
		key := args[0]
		if len(args) == 2 {
			key = args[1]
		}
		info, err := savefile.Save(ctx, bs, key, m)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d bytes\n", info.Key, info.Size)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <key> [name]",
	Short: "Load a .co file from the blob store into a document",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		name := strings.TrimSuffix(args[0], savefile.Extension)
		if len(args) == 2 {
			name = args[1]
		}
		if !importForce {
			if _, err := store.Load(ctx, name); err == nil {
				return fmt.Errorf("document %q already exists, use --force to replace it", name)
			} else if !errors.Is(err, domain.ErrDocumentNotFound) {
				return err
			}
		}
		bs, err := blob.Open(ctx)
		if err != nil {
			return err
		}
		m := newManager()
		if err := savefile.Load(ctx, bs, args[0], m); err != nil {
			return err
		}
		if err := m.SaveTo(ctx, store, name); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), name)
		return nil
	},
}

var filesCmd = &cobra.Command{
	Use:   "files [prefix]",
	Short: "List .co files in the blob store",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		bs, err := blob.Open(ctx)
		if err != nil {
			return err
		}
		prefix := ""
		if len(args) == 1 {
			prefix = args[0]
		}
		names, err := savefile.List(ctx, bs, prefix)
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Fprintln(cmd.OutOrStdout(), n)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVarP(&importForce, "force", "f", false, "replace an existing document")
	rootCmd.AddCommand(exportCmd, importCmd, filesCmd)
}
