package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jacentio/lepidoptera/store"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Output string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every record as a JSON document",
		Long: `Write every stored record as a {"butterflies":[],"users":[],"scores":[]}
document, the format read by seed and by the file driver.

Example:
  lepidoptera export -o backup.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if opts.Output != "" {
				f, err := os.Create(opts.Output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return runExport(cmd.Context(), opts, w)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default stdout)")

	return cmd
}

func runExport(ctx context.Context, opts *ExportOptions, w io.Writer) error {
	st, err := openStore(ctx, opts.Config, opts.Logger, nil)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	doc := make(map[string][]store.Record, len(store.Collections))
	for _, collection := range store.Collections {
		records, err := st.FindAll(ctx, collection, nil)
		if err != nil {
			return err
		}
		doc[collection] = records
	}

	data, err := store.EncodeDocument(doc)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}
