package main

import (
	"os"

	"github.com/vaultkeep/vaultkeep/cmd/root"
)

func main() {
	os.Exit(root.Execute())
}
