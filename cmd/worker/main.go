package main

import (
	"os"

	"gigflow/internal/app/bootstrap"
	"gigflow/internal/platform/cli"
)

// Worker process entrypoint.
// Data flow:
// 1) Load config.
// 2) Build app wiring.
// 3) Relay committed hire events from the outbox to the event bus.
func main() {
	cmd := cli.NewCommand(
		"gigflow-worker",
		"Relay committed hire events from the Postgres outbox",
		func(rc *cli.Context) error {
			app, err := bootstrap.BuildWorker(rc.Config)
			if err != nil {
				return err
			}
			defer func() {
				if err := app.Close(); err != nil {
					rc.Logger.Error("worker shutdown close failed", "error", err.Error())
				}
			}()
			return app.Run(rc.Ctx)
		},
	)
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
