package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

var clearCacheCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Remove the stored shop payload",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, a.Close()) }()

		if err := a.service.Clear(cmd.Context()); err != nil {
			return err
		}
		cmd.Println("shop cache cleared")
		return nil
	},
}
