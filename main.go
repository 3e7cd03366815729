package main

import (
	"os"

	"github.com/mertdlkr/portfolio-tracker/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
