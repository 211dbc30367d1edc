package main

import (
	"os"

	"github.com/vault-cli/credman/internal/cli"
	"github.com/vault-cli/credman/internal/util"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			util.ExitWithCode(util.ExitError, "Fatal error: %v", r)
		}
	}()

	if err := cli.Execute(os.Args[1:]); err != nil {
		util.HandleError(err)
	}
}
