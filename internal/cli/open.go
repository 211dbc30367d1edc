package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/vault-cli/credman/internal/domain"
	"github.com/vault-cli/credman/internal/store"
)

func (a *App) resolveStorePath() (string, error) {
	return a.Config.ResolveStorePath(a.storePath)
}

func (a *App) newStore() *store.BoltStore {
	opts := []store.Option{
		store.WithLogger(a.Logger),
		store.WithKDFParams(a.Config.KDF.Params()),
		store.WithOpenTimeout(a.Config.OpenTimeout),
	}
	return store.NewBoltStore(append(opts, a.storeOptions...)...)
}

// withStore opens the store, runs fn and closes the store on every path.
func (a *App) withStore(p *Printer, fn func(bs *store.BoltStore) error) (err error) {
	path, err := a.resolveStorePath()
	if err != nil {
		return err
	}

	bs := a.newStore()
	if err := a.openStore(bs, path, p); err != nil {
		return err
	}
	defer func() {
		if closeErr := bs.CloseStore(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return fn(bs)
}

// openStore opens the store at path. A missing store can be created on the spot.
func (a *App) openStore(bs *store.BoltStore, path string, p *Printer) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		create, err := a.Prompter.Confirm(fmt.Sprintf("No store found at %s. Create one now?", path))
		if err != nil {
			return err
		}
		if !create {
			return fmt.Errorf("%w at path: %s", store.ErrStoreNotFound, path)
		}
		return a.createStore(bs, path, p)
	}

	password, err := a.Prompter.Prompt("Master password: ", false, true)
	if err != nil {
		return err
	}
	return bs.OpenStore(path, password)
}

func (a *App) createStore(bs *store.BoltStore, path string, p *Printer) error {
	password, err := a.Prompter.Prompt("New master password: ", true, true)
	if err != nil {
		return err
	}
	if err := bs.CreateStore(path, password); err != nil {
		return err
	}
	return p.Status("Created store at %s", path)
}

// selectName asks the user to pick an existing secret of kind.
func (a *App) selectName(bs store.Records, kind domain.Kind, message string) (string, error) {
	names, err := secretNames(bs, kind)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", fmt.Errorf("%w: no %s stored", ErrNoSelection, kind.Label())
	}
	return a.Prompter.Select(message, names)
}

func secretNames(bs store.Records, kind domain.Kind) ([]string, error) {
	secrets, err := bs.List(kind, nil)
	if err != nil {
		return nil, err
	}
	return domain.Names(secrets), nil
}
