package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vault-cli/credman/internal/crypto"
	"github.com/vault-cli/credman/internal/domain"
	"github.com/vault-cli/credman/internal/store"
	"github.com/vault-cli/credman/internal/util"
)

type addOptions struct {
	kind    string
	passlen int
	noAuto  bool
	batch   string
}

func newAddCommand(a *App) *cobra.Command {
	opts := &addOptions{}

	cmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Add a login or an API key",
		Long: `Add a new secret to the store.

Login passwords are generated unless --no-auto is given. With --batch, secrets
are read from a file, one per line:

  login,name,username,password
  api,name,username,description,key

A login password of "?" is generated. Lines that fail are reported and the
rest are still added.

Example:
  credman add github
  credman add -t api stripe
  credman add --no-auto bank
  credman add --batch secrets.txt`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := NewPrinter(cmd.OutOrStdout(), false, false)
			if opts.batch != "" {
				if len(args) > 0 {
					return fmt.Errorf("%w: --batch cannot be used with a name", util.ErrInvalidInput)
				}
				return a.withStore(p, func(bs *store.BoltStore) error {
					return a.runBatch(bs, opts.batch, opts.passlen, p)
				})
			}

			kind, err := domain.ParseKind(opts.kind)
			if err != nil {
				return err
			}
			var name string
			if len(args) > 0 {
				name = args[0]
			}
			return a.withStore(p, func(bs *store.BoltStore) error {
				return a.runAdd(bs, p, kind, name, opts)
			})
		},
	}

	addKindFlag(cmd, &opts.kind)
	cmd.Flags().IntVar(&opts.passlen, "passlen", 0, "length of generated passwords (default from config)")
	cmd.Flags().BoolVar(&opts.noAuto, "no-auto", false, "prompt for the password instead of generating it")
	cmd.Flags().StringVar(&opts.batch, "batch", "", "import secrets from a batch file")

	return cmd
}

func (a *App) runAdd(bs *store.BoltStore, p *Printer, kind domain.Kind, name string, opts *addOptions) error {
	if name == "" {
		var err error
		if name, err = a.Prompter.Prompt("Name: ", false, false); err != nil {
			return err
		}
	}
	if err := domain.ValidateName(name); err != nil {
		return err
	}

	// Fail before asking for the remaining fields.
	exists, err := bs.Exists(kind, name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s %s", domain.ErrDuplicateName, kind.Label(), name)
	}

	secret, err := a.promptSecret(kind, name, opts)
	if err != nil {
		return err
	}
	if err := bs.Insert(secret); err != nil {
		return err
	}
	return p.Status("Added %s %s", kind.Label(), name)
}

func (a *App) promptSecret(kind domain.Kind, name string, opts *addOptions) (domain.Secret, error) {
	username, err := a.Prompter.Prompt("Username: ", false, false)
	if err != nil {
		return nil, err
	}

	if kind == domain.KindLogin {
		password, err := a.newPassword(opts.passlen, opts.noAuto)
		if err != nil {
			return nil, err
		}
		return domain.LoginCredential{Name: name, Username: username, Password: password}, nil
	}

	description, err := a.Prompter.Prompt("Description: ", false, false)
	if err != nil {
		return nil, err
	}
	key, err := a.Prompter.Prompt("Key: ", true, true)
	if err != nil {
		return nil, err
	}
	return domain.APIKey{Name: name, Username: username, Description: description, Key: key}, nil
}

// newPassword generates a password, or prompts for one when noAuto is set.
func (a *App) newPassword(length int, noAuto bool) (string, error) {
	if noAuto {
		return a.Prompter.Prompt("Password: ", true, true)
	}
	return crypto.Generate(a.passwordLength(length))
}

func (a *App) passwordLength(flagValue int) int {
	if flagValue != 0 {
		return flagValue
	}
	return a.Config.PasswordLength
}

func addKindFlag(cmd *cobra.Command, kind *string) {
	cmd.Flags().StringVarP(kind, "type", "t", string(domain.KindLogin), "kind of secret (login|api)")
	_ = cmd.RegisterFlagCompletionFunc("type", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{string(domain.KindLogin), string(domain.KindAPI)}, cobra.ShellCompDirectiveNoFileComp
	})
}
