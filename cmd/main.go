package main

import (
	"os"

	"github.com/folnerty/mini-app/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
