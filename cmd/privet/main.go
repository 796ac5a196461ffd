package main

import (
	"os"

	"github.com/privet-io/privet/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
