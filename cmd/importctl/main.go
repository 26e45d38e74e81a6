// Package main provides the entry point for the importctl CLI.
package main

import (
	"fmt"
	"os"

	"github.com/JonMunkholm/subtrack/internal/cli"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine; the environment is used as is.
	_ = godotenv.Overload()

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
