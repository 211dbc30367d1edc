package cli

import (
	"github.com/spf13/cobra"

	"github.com/vault-cli/credman/internal/store"
)

func newExportCommand(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Export every secret to a plaintext JSON file",
		Long: `Export every login and API key, including passwords and keys, to a JSON
file readable by the owner only. The file is NOT encrypted: keep it safe and
delete it once it has served its purpose.

Example:
  credman export backup.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := NewPrinter(cmd.OutOrStdout(), false, false)
			return a.withStore(p, func(bs *store.BoltStore) error {
				if err := bs.Export(args[0]); err != nil {
					return err
				}
				return p.Status("Exported store to %s", args[0])
			})
		},
	}
	return cmd
}
