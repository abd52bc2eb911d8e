package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/CloudNativeWorks/hwlicense/cmd/flags"
	"github.com/CloudNativeWorks/hwlicense/common"
	"github.com/CloudNativeWorks/hwlicense/httpserver"
	"github.com/CloudNativeWorks/hwlicense/hwlicense/recordstore"
	"github.com/CloudNativeWorks/hwlicense/internal/config"
	"github.com/CloudNativeWorks/hwlicense/metrics"
)

func main() {
	app := &cli.App{
		Name:  "license-server",
		Usage: "Serve hardware-bound license key validation",
		Flags: flags.CommonFlags,
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			cfg, err := config.Load(cCtx.String(flags.EnvFileFlag.Name))
			if err != nil {
				logger.Error("Failed to load configuration", "err", err)
				return err
			}
			loc, err := cfg.Location()
			if err != nil {
				logger.Error("Failed to load configuration", "err", err)
				return err
			}

			// The server stays up without a store and answers 503 until
			// restarted with a reachable one.
			var store recordstore.RecordStore
			opened, err := openStore(cCtx.Context, cfg, logger)
			if err != nil {
				logger.Error("Record store unavailable, validations will fail", "backend", cfg.Backend, "err", err)
			} else {
				logger.Info("Record store connected", "backend", cfg.Backend)
				store = opened
			}

			serverCfg := flags.ConfigureServer(cCtx, logger, cfg)

			metricsSrv, err := metrics.New(common.PackageName, serverCfg.MetricsAddr)
			if err != nil {
				logger.Error("Failed to create metrics server", "err", err)
				return err
			}

			handler := httpserver.NewHandler(store, logger,
				httpserver.WithMetrics(metricsSrv),
				httpserver.WithClock(func() time.Time { return time.Now().In(loc) }),
			)

			server, err := httpserver.New(serverCfg, handler, metricsSrv)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			server.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()

			if opened != nil {
				ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
				defer cancel()
				if err := opened.Close(ctx); err != nil {
					logger.Error("Failed to close record store", "err", err)
				}
			}
			logger.Info("Server shutdown complete")
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
