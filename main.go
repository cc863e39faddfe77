package main

import (
	"os"

	"github.com/mkarlsv/votify/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
