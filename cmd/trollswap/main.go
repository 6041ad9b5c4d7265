package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// The .env file is optional for the CLI, TROLLSWAP_* variables and
	// ~/.trollswap.yaml take precedence anyway.
	_ = godotenv.Load()

	if err := Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
