package main

import (
	"os"

	"evgrid/backend/tools/load-tester/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
