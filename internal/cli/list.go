package cli

import (
	"github.com/spf13/cobra"

	"github.com/vault-cli/credman/internal/domain"
	"github.com/vault-cli/credman/internal/store"
	"github.com/vault-cli/credman/internal/vault"
)

type listOptions struct {
	kind   string
	search string
	asJSON bool
}

// listing is the JSON shape of ls; secret values are left out.
type listing struct {
	Name        string `json:"name"`
	Username    string `json:"username"`
	Description string `json:"description,omitempty"`
}

func newListCommand(a *App) *cobra.Command {
	opts := &listOptions{}

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List stored secrets",
		Long: `List stored logins and API keys. Passwords and keys are never shown.

The --search flag matches names, usernames and API key descriptions; use
spaces or '+' to require several tokens (e.g. 'aws+prod').

Example:
  credman ls
  credman ls -t api
  credman ls --search git
  credman ls --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := domain.Kinds()
			if opts.kind != "" {
				kind, err := domain.ParseKind(opts.kind)
				if err != nil {
					return err
				}
				kinds = []domain.Kind{kind}
			}

			filter := &domain.Filter{
				Search:       opts.search,
				SearchTokens: vault.ParseSearchTokens(opts.search),
			}

			p := NewPrinter(cmd.OutOrStdout(), false, a.jsonOutput(opts.asJSON))
			results := make(map[domain.Kind][]domain.Secret, len(kinds))
			err := a.withStore(p, func(bs *store.BoltStore) error {
				for _, kind := range kinds {
					secrets, err := bs.List(kind, filter)
					if err != nil {
						return err
					}
					results[kind] = secrets
				}
				return nil
			})
			if err != nil {
				return err
			}

			return printListing(p, kinds, results)
		},
	}

	cmd.Flags().StringVarP(&opts.kind, "type", "t", "", "only list this kind (login|api)")
	cmd.Flags().StringVar(&opts.search, "search", "", "search in name, username and description")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "output in JSON format")

	return cmd
}

func printListing(p *Printer, kinds []domain.Kind, results map[domain.Kind][]domain.Secret) error {
	if p.JSON {
		if len(kinds) == 1 {
			return p.Value(listings(results[kinds[0]]))
		}
		return p.Value(map[string][]listing{
			"logins":   listings(results[domain.KindLogin]),
			"api_keys": listings(results[domain.KindAPI]),
		})
	}

	for i, kind := range kinds {
		secrets := results[kind]
		if i > 0 {
			if err := p.Line(""); err != nil {
				return err
			}
		}
		if len(secrets) == 0 {
			if err := p.Line("No %s entries found.", kind.Label()); err != nil {
				return err
			}
			continue
		}

		header := []string{"NAME", "USERNAME"}
		if kind == domain.KindAPI {
			header = append(header, "DESCRIPTION")
		}
		rows := make([][]string, 0, len(secrets))
		for _, l := range listings(secrets) {
			row := []string{l.Name, l.Username}
			if kind == domain.KindAPI {
				row = append(row, l.Description)
			}
			rows = append(rows, row)
		}

		if err := p.Line("%s (%d):", kind.Label(), len(secrets)); err != nil {
			return err
		}
		if err := p.Table(header, rows); err != nil {
			return err
		}
	}
	return nil
}

func listings(secrets []domain.Secret) []listing {
	out := make([]listing, 0, len(secrets))
	for _, s := range secrets {
		l := listing{Name: s.GetName()}
		l.Username, _ = s.Get(domain.FieldUsername)
		if s.Kind() == domain.KindAPI {
			l.Description, _ = s.Get(domain.FieldDescription)
		}
		out = append(out, l)
	}
	return out
}
