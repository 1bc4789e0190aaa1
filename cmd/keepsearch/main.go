package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/keepsearch/internal/buildinfo"
	"github.com/dmitrijs2005/keepsearch/internal/client/cli"
	"github.com/dmitrijs2005/keepsearch/internal/client/config"
	"github.com/dmitrijs2005/keepsearch/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(2)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(2)
	}
	logger := logging.New(os.Stderr, level)

	ctx := context.Background()
	app := cli.NewApp(cfg, logger, os.Stdin, os.Stdout)
	app.Run(ctx)

}
