package main

import (
	"github.com/spf13/cobra"

	"github.com/pixel-knight/pixelknight/config"
	srv "github.com/pixel-knight/pixelknight/internal/server"
)

func migrateCMD() *cobra.Command {
	var migDir string
	var migDirDefault = "file://migrations"
	var direction string
	var steps int
	var cfgPath string

	var migrate = &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			// An unconfigured store falls through to the DATABASE_URL and
			// POSTGRES_* environment variables inside Migrate.
			var dsn string
			if cfg.Storage.Postgres.Enabled() {
				var err error
				if dsn, err = cfg.Storage.Postgres.DSN(); err != nil {
					return err
				}
			}
			if migDir == "" {
				migDir = migDirDefault
			}
			return srv.Migrate(migDir, dsn, direction, steps)
		},
	}
	migrate.Flags().StringVar(&migDir, "dir", migDirDefault, "migrations source (file://migrations)")
	migrate.Flags().StringVar(&direction, "direction", "up", "up or down")
	migrate.Flags().IntVar(&steps, "steps", 0, "number of steps (0 = all)")
	migrate.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return migrate
}
