package main

import (
	"os"

	"github.com/openincentives/matchengine/cmd/matchengine"
)

func main() {
	if err := matchengine.Execute(); err != nil {
		os.Exit(1)
	}
}
