package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vault-cli/credman/internal/domain"
	"github.com/vault-cli/credman/internal/store"
)

type getOptions struct {
	kind   string
	field  string
	asJSON bool
	quiet  bool
	copy   bool
	ttl    int
}

func newGetCommand(a *App) *cobra.Command {
	opts := &getOptions{ttl: -1}

	cmd := &cobra.Command{
		Use:   "get [name]",
		Short: "Show a stored secret",
		Long: `Show a stored login or API key. Without a name, pick one from a list.

--field prints a single field; with --quiet only the bare value is printed,
which is handy in scripts. --copy puts the password (or key) on the clipboard
and clears it after the configured timeout.

Example:
  credman get github
  credman get -t api stripe --field key -q
  credman get github --copy
  credman get github --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseKind(opts.kind)
			if err != nil {
				return err
			}
			var field domain.Field
			if opts.field != "" {
				if field, err = domain.ParseField(opts.field); err != nil {
					return err
				}
			}

			p := NewPrinter(cmd.OutOrStdout(), opts.quiet, a.jsonOutput(opts.asJSON))
			var secret domain.Secret
			err = a.withStore(p, func(bs *store.BoltStore) error {
				name := ""
				if len(args) > 0 {
					name = args[0]
				} else if name, err = a.selectName(bs, kind, "Select a "+kind.Label()+":"); err != nil {
					return err
				}
				secret, err = bs.Get(kind, name)
				return err
			})
			if err != nil {
				return err
			}

			if opts.copy {
				ttl, err := resolveClipboardTTL(opts.ttl, a.Config)
				if err != nil {
					return err
				}
				return a.copySecret(cmd, p, secret, field, ttl)
			}
			return printSecret(p, secret, field)
		},
	}

	addKindFlag(cmd, &opts.kind)
	cmd.Flags().StringVarP(&opts.field, "field", "f", "", "print only this field")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "output in JSON format")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "print bare values without labels")
	cmd.Flags().BoolVarP(&opts.copy, "copy", "c", false, "copy the secret to the clipboard instead of printing it")
	cmd.Flags().IntVar(&opts.ttl, "ttl", opts.ttl, "clipboard clear timeout in seconds (-1 uses config default)")

	return cmd
}

func printSecret(p *Printer, secret domain.Secret, field domain.Field) error {
	if field == "" {
		return p.Secret(secret)
	}

	value, err := secret.Get(field)
	if err != nil {
		return err
	}
	if p.JSON {
		return p.Value(map[string]string{string(field): value})
	}
	return p.Field(field, value)
}

// copySecret copies the secret value, or field when set, and waits to clear it.
// The store is already closed at this point.
func (a *App) copySecret(cmd *cobra.Command, p *Printer, secret domain.Secret, field domain.Field, ttl time.Duration) error {
	if field == "" {
		field = secretField(secret.Kind())
	}
	value, err := secret.Get(field)
	if err != nil {
		return err
	}

	if !a.Clipboard.Available() {
		return fmt.Errorf("clipboard not available, run without --copy to print the secret")
	}
	if err := a.Clipboard.Copy(value); err != nil {
		return err
	}

	if ttl <= 0 {
		return p.Status("Copied %s of %s to clipboard", fieldLabel(field), secret.GetName())
	}
	if err := p.Status("Copied %s of %s to clipboard (clears in %s)", fieldLabel(field), secret.GetName(), ttl.Round(time.Second)); err != nil {
		return err
	}
	return a.Clipboard.ClearAfter(cmd.Context(), value, ttl)
}

// secretField is the field holding the actual secret of a kind.
func secretField(kind domain.Kind) domain.Field {
	if kind == domain.KindAPI {
		return domain.FieldKey
	}
	return domain.FieldPassword
}
