package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

var forceFetch bool

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Load the shop once and print the snapshot as JSON",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, a.Close()) }()

		snap, err := a.service.Load(cmd.Context(), forceFetch)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	},
}

func init() {
	fetchCmd.Flags().BoolVar(&forceFetch, "force", false, "bypass the cache and fetch from the catalog")
}
