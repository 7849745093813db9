package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jacentio/lepidoptera/store"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	SkipExisting bool
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed <file.json>",
		Short: "Load records from a JSON document",
		Long: `Load records from a {"butterflies":[],"users":[],"scores":[]} document into
the configured storage. Records keep their ids and their order.

Example:
  lepidoptera seed ./fixtures.json
  lepidoptera seed --skip-existing ./fixtures.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := runSeed(cmd.Context(), opts, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d records.\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.SkipExisting, "skip-existing", false, "skip records whose id is already stored")

	return cmd
}

func runSeed(ctx context.Context, opts *SeedOptions, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}
	doc, err := store.DecodeDocument(data)
	if err != nil {
		return 0, fmt.Errorf("decode %s: %w", path, err)
	}

	st, err := openStore(ctx, opts.Config, opts.Logger, nil)
	if err != nil {
		return 0, fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	seeded := 0
	for _, collection := range store.Collections {
		for _, record := range doc[collection] {
			err := st.Import(ctx, collection, record)
			if opts.SkipExisting && errors.Is(err, store.ErrAlreadyExists) {
				opts.Logger.Debug("record exists, skipping", "collection", collection, "id", record.ID())
				continue
			}
			if err != nil {
				return seeded, err
			}
			seeded++
		}
	}
	opts.Logger.Info("seed complete", "path", path, "records", seeded)
	return seeded, nil
}
