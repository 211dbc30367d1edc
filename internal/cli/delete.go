package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vault-cli/credman/internal/domain"
	"github.com/vault-cli/credman/internal/store"
)

type deleteOptions struct {
	kind  string
	multi bool
	yes   bool
}

func newDeleteCommand(a *App) *cobra.Command {
	opts := &deleteOptions{}

	cmd := &cobra.Command{
		Use:     "delete [name...]",
		Aliases: []string{"rm"},
		Short:   "Delete secrets",
		Long: `Delete one or more secrets. Each deletion is confirmed unless --yes is given.
Without names, pick one from a list, or several with --multi.

Names that do not exist are reported after the others have been deleted.

Example:
  credman delete github
  credman delete -t api stripe aws --yes
  credman delete --multi`,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseKind(opts.kind)
			if err != nil {
				return err
			}

			p := NewPrinter(cmd.OutOrStdout(), false, false)
			return a.withStore(p, func(bs *store.BoltStore) error {
				names := args
				if len(names) == 0 {
					if names, err = a.selectForDelete(bs, kind, opts.multi); err != nil {
						return err
					}
				}
				return a.deleteNames(bs, p, kind, names, opts.yes)
			})
		},
	}

	addKindFlag(cmd, &opts.kind)
	cmd.Flags().BoolVarP(&opts.multi, "multi", "m", false, "select several secrets to delete")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "do not ask for confirmation")

	return cmd
}

func (a *App) selectForDelete(bs *store.BoltStore, kind domain.Kind, multi bool) ([]string, error) {
	if !multi {
		name, err := a.selectName(bs, kind, "Select a "+kind.Label()+" to delete:")
		if err != nil {
			return nil, err
		}
		return []string{name}, nil
	}

	names, err := secretNames(bs, kind)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no %s stored", ErrNoSelection, kind.Label())
	}
	return a.Prompter.SelectMany("Select "+kind.Label()+" entries to delete:", names)
}

// deleteNames deletes every existing name and reports the missing ones in
// one error at the end.
func (a *App) deleteNames(bs *store.BoltStore, p *Printer, kind domain.Kind, names []string, yes bool) error {
	var missing []string
	for _, name := range names {
		exists, err := bs.Exists(kind, name)
		if err != nil {
			return err
		}
		if !exists {
			missing = append(missing, name)
			continue
		}

		if !yes {
			ok, err := a.Prompter.Confirm(fmt.Sprintf("Delete %s %s?", kind.Label(), name))
			if err != nil {
				return err
			}
			if !ok {
				if err := p.Status("Kept %s", name); err != nil {
					return err
				}
				continue
			}
		}

		if err := bs.Delete(kind, name); err != nil {
			return err
		}
		if err := p.Status("Deleted %s %s", kind.Label(), name); err != nil {
			return err
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s %s", store.ErrRecordNotFound, kind.Label(), strings.Join(missing, ", "))
	}
	return nil
}
