package cli

import (
	"github.com/spf13/cobra"
)

func newInitCommand(a *App) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a new encrypted store",
		Long: `Create a new, empty credential store protected by a master password.

The master password is asked twice and never echoed. It cannot be recovered:
losing it means losing every secret in the store.

Example:
  credman init
  credman init --path ~/work/creds.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				resolved, err := a.resolveStorePath()
				if err != nil {
					return err
				}
				path = resolved
			}

			bs := a.newStore()
			p := NewPrinter(cmd.OutOrStdout(), false, false)
			if err := a.createStore(bs, path, p); err != nil {
				return err
			}
			return bs.CloseStore()
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "where to create the store (defaults to the resolved store path)")
	return cmd
}
