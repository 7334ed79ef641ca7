package main

import (
	"os"

	"github.com/campushub/backend/cmd/campusctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
