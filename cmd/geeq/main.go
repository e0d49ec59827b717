// Command geeq inspects dialect profiles and resolves key generation
// strategies against live databases.
package main

import (
	"os"

	"github.com/GeeQuery/geequery-orm/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
