package main

import (
	"libraloan/internal/config"
	"libraloan/internal/httpserver"
	"libraloan/internal/migrate"
	"libraloan/internal/telemetry"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		shutdown, err := telemetry.Setup(ctx, telemetry.Config{
			Endpoint:    cfg.OTLPEndpoint,
			ServiceName: cfg.ServiceName,
			Version:     version,
			Insecure:    true,
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdown(ctx); err != nil {
				log.Warn("telemetry shutdown", zap.Error(err))
			}
		}()

		if migrateOnStart && cfg.Storage == config.StoragePostgres {
			if err := migrate.Up(ctx, cfg.DatabaseDSN); err != nil {
				return err
			}
		}

		app, err := buildApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer app.close()

		log.Info("starting",
			zap.String("version", version),
			zap.String("storage", cfg.Storage),
			zap.Int("due_days", cfg.DueDays),
		)
		h := httpserver.NewRouter(httpserver.Deps{
			Catalog:     app.catalog,
			Circulation: app.loans,
			Members:     app.members,
			Importer:    app.importer,
			Auditor:     app.auditor,
			DueDays:     cfg.DueDays,
			Log:         log,
			Ping:        app.ping,
		})
		return httpserver.Run(ctx, cfg.HTTPAddr, h, log)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "apply pending migrations before serving")
}
