package main

import (
	"context"
	"os"

	"github.com/trogers1052/market-returns/internal/commands"
)

func main() {
	if err := commands.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}
