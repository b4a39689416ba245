package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ruteri/split-session-service/api/servers"
	"github.com/ruteri/split-session-service/api/sessionhandler"
	"github.com/ruteri/split-session-service/cmd/flags"
	"github.com/ruteri/split-session-service/session"
	"github.com/urfave/cli/v2"
)

// storeOpenTimeout bounds connecting to the store and running its migrations.
const storeOpenTimeout = 30 * time.Second

func main() {
	app := &cli.App{
		Name:  "split-session-server",
		Usage: "Serve the split-session API",
		Flags: flags.ServerFlags,
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			ctx, cancel := context.WithTimeout(cCtx.Context, storeOpenTimeout)
			store, err := flags.ConfigureStore(ctx, cCtx, logger)
			cancel()
			if err != nil {
				logger.Error("Failed to open session store", "err", err)
				return err
			}
			if closer, ok := store.(io.Closer); ok {
				defer closer.Close()
			}
			logger.Info("Session store ready", "store", store.Name(), "location", store.LocationURI())

			splitter, err := flags.ConfigureSplitter(cCtx, logger)
			if err != nil {
				logger.Error("Failed to configure splitter", "err", err)
				return err
			}

			sessionCfg, err := flags.ConfigureSession(cCtx)
			if err != nil {
				logger.Error("Invalid session configuration", "err", err)
				return err
			}
			coordinator := session.NewCoordinator(store, splitter, sessionCfg, logger)
			logger.Info("Coordinator configured", "protocol", splitter.Protocol(), "ttl", coordinator.TTL())

			serverCfg := flags.ConfigureServer(cCtx, logger)
			handler := sessionhandler.NewHandler(coordinator, logger, serverCfg.MaxBodySize)
			server, err := servers.New(serverCfg, handler, store)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			logger.Info("Starting server")
			server.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete")

			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
