package main

import (
	"os"

	"gigflow/internal/app/bootstrap"
	"gigflow/internal/platform/cli"
)

// API process entrypoint.
// Data flow:
// 1) Load config (flags > env > config file > defaults).
// 2) Build app wiring (ports + adapters + use cases).
// 3) Serve HTTP and websocket sessions until interrupted.
func main() {
	cmd := cli.NewCommand(
		"gigflow-api",
		"Serve the hiring HTTP API and realtime notifications",
		func(rc *cli.Context) error {
			app, err := bootstrap.BuildAPI(rc.Config)
			if err != nil {
				return err
			}
			defer func() {
				if err := app.Close(); err != nil {
					rc.Logger.Error("api shutdown close failed", "error", err.Error())
				}
			}()
			return app.Run(rc.Ctx)
		},
	)
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
