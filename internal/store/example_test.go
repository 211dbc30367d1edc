package store_test

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/vault-cli/credman/internal/domain"
	"github.com/vault-cli/credman/internal/store"
	"github.com/vault-cli/credman/internal/vault"
)

func ExampleBoltStore() {
	dir, err := os.MkdirTemp("", "credman_example_")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	bs := store.NewBoltStore(store.WithKDFParams(vault.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1}))
	if err := bs.CreateStore(filepath.Join(dir, "creds.db"), "my-master-password"); err != nil {
		log.Fatal(err)
	}
	defer bs.CloseStore()

	_ = bs.Insert(domain.LoginCredential{Name: "github", Username: "alice", Password: "s3cret"})
	_ = bs.Insert(domain.APIKey{Name: "stripe", Username: "svc", Description: "sandbox", Key: "sk_test"})
	_ = bs.UpdateField(domain.KindLogin, "github", domain.FieldName, "gh")

	logins, _ := bs.List(domain.KindLogin, nil)
	fmt.Println(domain.Names(logins))

	secret, _ := bs.Get(domain.KindAPI, "stripe")
	key, _ := secret.Get(domain.FieldKey)
	fmt.Println(key)

	err = bs.Insert(domain.LoginCredential{Name: "master"})
	fmt.Println(err)
	// Output:
	// [gh]
	// sk_test
	// name is reserved for the master password
}
