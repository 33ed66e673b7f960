package main

import (
	"os"

	"github.com/tddproof/tddproof-backend/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
