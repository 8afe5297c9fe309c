package main

import (
	"os"

	"github.com/edufarma/edufarma/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
