package main

import (
	"os"

	"github.com/noemamarkets/pulse/cmd/console/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
