package main

import (
	"os"

	"github.com/bcchr/detbuilder/cmd/detbuilder/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
