package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/HerbHall/stampd/internal/stamps"
)

func newSeedCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Create stamps listed in a YAML file",
		Long: `Create every stamp listed in a YAML seed file. The whole file is
validated before the first stamp is written and all stamps are created in
one transaction, so a failed run writes nothing.

Example:
  stampd seed ./fixtures/stamps.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			seed, err := stamps.LoadSeed(f)
			if err != nil {
				return err
			}

			repo, closeFn, err := openRepository(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeFn()

			created, err := seed.Apply(cmd.Context(), repo)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d stamps\n", len(created))
			return nil
		},
	}
}

func newCreateStampCommand(opts *rootOptions) *cobra.Command {
	var hash, typ string

	cmd := &cobra.Command{
		Use:   "create-stamp",
		Short: "Create one stamp and print it as JSON",
		Long: `Create one stamp for a hash.

Example:
  stampd create-stamp --hash 9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, closeFn, err := openRepository(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeFn()

			s, err := repo.CreateStamp(cmd.Context(), hash, stamps.Type(typ))
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stamps.Present(s.Record()))
		},
	}

	cmd.Flags().StringVar(&hash, "hash", "", "digest to timestamp (required)")
	cmd.Flags().StringVar(&typ, "type", string(stamps.DefaultType), "digest algorithm")
	_ = cmd.MarkFlagRequired("hash")
	return cmd
}

func openRepository(ctx context.Context, opts *rootOptions) (*stamps.Repository, func(), error) {
	st, err := openStore(ctx, opts.cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	repo, err := stamps.NewRepository(ctx, st)
	if err != nil {
		st.Close()
		return nil, nil, err
	}
	return repo, func() { st.Close() }, nil
}
