package cli

import (
	"github.com/spf13/cobra"

	"github.com/vault-cli/credman/internal/batch"
	"github.com/vault-cli/credman/internal/crypto"
	"github.com/vault-cli/credman/internal/store"
)

func newImportCommand(a *App) *cobra.Command {
	var passlen int

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Add secrets from a batch file",
		Long: `Add secrets from a batch file. This is the same as 'credman add --batch'.

Example:
  credman import secrets.txt
  credman import --passlen 32 secrets.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := NewPrinter(cmd.OutOrStdout(), false, false)
			return a.withStore(p, func(bs *store.BoltStore) error {
				return a.runBatch(bs, args[0], passlen, p)
			})
		},
	}

	cmd.Flags().IntVar(&passlen, "passlen", 0, "length of generated passwords (default from config)")
	return cmd
}

// runBatch imports path and prints the rejected lines followed by the added names.
func (a *App) runBatch(bs *store.BoltStore, path string, passlen int, p *Printer) error {
	length := a.passwordLength(passlen)
	importer := batch.NewImporter(bs, func() (string, error) {
		return crypto.Generate(length)
	}, batch.WithLogger(a.Logger))

	summary, err := importer.ImportFile(path)
	if summary != nil {
		if printErr := printSummary(p, summary); printErr != nil && err == nil {
			err = printErr
		}
	}
	return err
}

func printSummary(p *Printer, summary *batch.Summary) error {
	if summary.HasFailures() {
		if err := p.Line("Got some errors:"); err != nil {
			return err
		}
		for _, failure := range summary.Failures {
			if err := p.Line("  %s", failure.Error()); err != nil {
				return err
			}
		}
	}

	if len(summary.Added) == 0 {
		return p.Line("Nothing was added.")
	}
	if err := p.Line("Successfully added:"); err != nil {
		return err
	}
	for _, name := range summary.Added {
		if err := p.Line("  %s", name); err != nil {
			return err
		}
	}
	return nil
}
