package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/ailabben/dashboard-api/cmd/docctl/commands"
)

func main() {
	_ = godotenv.Load()
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
