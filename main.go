package main

import (
	"fmt"
	"os"

	"tarsearch/internal"
	"tarsearch/internal/ui"
)

func main() {
	logger, err := internal.NewLogger(os.Getenv("TARSEARCH_ENV"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	app := ui.NewConsole(logger)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
