package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vault-cli/credman/internal/domain"
	"github.com/vault-cli/credman/internal/store"
)

type changeOptions struct {
	kind    string
	field   string
	passlen int
	noAuto  bool
}

func newChangeCommand(a *App) *cobra.Command {
	opts := &changeOptions{}

	cmd := &cobra.Command{
		Use:     "change [name]",
		Aliases: []string{"update"},
		Short:   "Change one field of a secret, or the master password",
		Long: `Change one field of a stored secret. Without a name or --field, pick them
from a list. New login passwords are generated unless --no-auto is given.

Use the name 'master' to change the master password. Every secret is
re-encrypted under the new password in a single transaction.

Example:
  credman change github --field password
  credman change -t api stripe --field description
  credman change github --field name
  credman change master`,
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

			p := NewPrinter(cmd.OutOrStdout(), false, false)
			return a.withStore(p, func(bs *store.BoltStore) error {
				if len(args) > 0 && args[0] == domain.ReservedName {
					return a.changeMaster(bs, p)
				}

				name := ""
				if len(args) > 0 {
					name = args[0]
				} else if name, err = a.selectName(bs, kind, "Select a "+kind.Label()+":"); err != nil {
					return err
				}
				return a.changeField(bs, p, kind, name, field, opts)
			})
		},
	}

	addKindFlag(cmd, &opts.kind)
	cmd.Flags().StringVarP(&opts.field, "field", "f", "", "field to change (name|username|password|description|key)")
	cmd.Flags().IntVar(&opts.passlen, "passlen", 0, "length of a generated password (default from config)")
	cmd.Flags().BoolVar(&opts.noAuto, "no-auto", false, "prompt for the new password instead of generating it")

	return cmd
}

func (a *App) changeMaster(bs *store.BoltStore, p *Printer) error {
	password, err := a.Prompter.Prompt("New master password: ", true, true)
	if err != nil {
		return err
	}
	if err := bs.RekeyStore(password); err != nil {
		return err
	}
	return p.Status("Master password changed")
}

func (a *App) changeField(bs *store.BoltStore, p *Printer, kind domain.Kind, name string, field domain.Field, opts *changeOptions) error {
	exists, err := bs.Exists(kind, name)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s %q", store.ErrRecordNotFound, kind.Label(), name)
	}

	if field == "" {
		choices := make([]string, 0, len(domain.FieldsOf(kind)))
		for _, f := range domain.FieldsOf(kind) {
			choices = append(choices, string(f))
		}
		choice, err := a.Prompter.Select("Which field?", choices)
		if err != nil {
			return err
		}
		field = domain.Field(choice)
	}
	if !domain.HasField(kind, field) {
		return fmt.Errorf("%w: %q is not a field of %s", domain.ErrInvalidField, field, kind.Label())
	}

	var value string
	switch field {
	case domain.FieldPassword:
		ok, err := a.Prompter.Confirm(fmt.Sprintf("Really change the password of %s %s?", kind.Label(), name))
		if err != nil {
			return err
		}
		if !ok {
			return p.Status("Nothing changed")
		}
		if value, err = a.newPassword(opts.passlen, opts.noAuto); err != nil {
			return err
		}
	case domain.FieldKey:
		if value, err = a.Prompter.Prompt("New key: ", true, true); err != nil {
			return err
		}
	default:
		if value, err = a.Prompter.Prompt(fmt.Sprintf("New %s: ", field), false, false); err != nil {
			return err
		}
	}

	if err := bs.UpdateField(kind, name, field, value); err != nil {
		return err
	}
	return p.Status("Changed %s of %s %s", field, kind.Label(), name)
}
