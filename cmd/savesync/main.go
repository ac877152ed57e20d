package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/dmitrijs2005/savegamesync/internal/buildinfo"
	"github.com/dmitrijs2005/savegamesync/internal/cli"
	"github.com/dmitrijs2005/savegamesync/internal/config"
	"github.com/dmitrijs2005/savegamesync/internal/flagx"
	"github.com/dmitrijs2005/savegamesync/internal/logging"
	"github.com/dmitrijs2005/savegamesync/internal/metrics"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	args := flagx.StripArgs(os.Args[1:], slices.Concat(flagx.ConfigFlags, config.FlagNames))

	if cli.Interactive(args) {
		buildinfo.PrintBuildData(os.Stdout)
	}

	logger, closer, err := logging.New(logging.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  10,
		MaxBackups: 3,
	})
	if err != nil {
		log.Printf("%v", err)
		return 2
	}
	defer closer.Close()

	shutdownMetrics, err := metrics.Setup(ctx, cfg.OTLPEndpoint)
	if err != nil {
		log.Printf("%v", err)
		return 2
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(sctx); err != nil {
			logger.Warn(sctx, "metrics flush failed", "error", err)
		}
	}()

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Printf("%v", err)
		return 1
	}
	defer app.Close()

	if err := app.Run(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
