package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alexanderramin/planrollup/internal/app"
	"github.com/alexanderramin/planrollup/internal/cli"
	"github.com/alexanderramin/planrollup/internal/config"
	"github.com/alexanderramin/planrollup/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, closeLog, err := logger.New(logger.Config{Level: cfg.LogLevel, Dir: cfg.LogDir})
	if err != nil {
		return err
	}
	defer closeLog()

	// The store is opened on first use so `key` commands work before a
	// REST key exists.
	var opened *app.App
	defer func() {
		if opened != nil {
			if err := opened.Close(); err != nil {
				log.Error("shutdown", "err", err)
			}
		}
	}()

	c := &cli.App{
		Connect: func(ctx context.Context, a *cli.App) error {
			if a.Year != 0 {
				cfg.Year = a.Year
			}
			o, err := app.Open(ctx, cfg, log)
			if err != nil {
				return err
			}
			opened = o
			a.Plans = o.Plans
			a.Maintenance = o.Maintenance
			return nil
		},
	}
	return cli.NewRootCmd(c).ExecuteContext(context.Background())
}
