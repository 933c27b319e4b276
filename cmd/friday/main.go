package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	appconfig "github.com/fridayhq/friday/config"
	srv "github.com/fridayhq/friday/internal/server"
)

func main() {
	// Best-effort local overrides; production reads real env.
	_ = godotenv.Load()

	var root = &cobra.Command{Use: "friday"}

	var configPath string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := appconfig.LoadConfig(configPath)
			return srv.Run(cfg)
		},
	}
	serve.Flags().StringVar(&configPath, "config", "", "path to config file")

	var migDir string
	var direction string
	var steps int
	var migrate = &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn := os.Getenv("DATABASE_URL")
			if dsn == "" {
				host := getenv("POSTGRES_HOST", "localhost")
				port := getenv("POSTGRES_PORT", "5432")
				user := os.Getenv("POSTGRES_USER")
				pass := os.Getenv("POSTGRES_PASSWORD")
				db := os.Getenv("POSTGRES_DB")
				ssl := getenv("POSTGRES_SSLMODE", "disable")
				dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, ssl)
			}
			return srv.Migrate(migDir, dsn, direction, steps)
		},
	}
	migrate.Flags().StringVar(&migDir, "dir", "file://migrations", "migrations source (file://migrations)")
	migrate.Flags().StringVar(&direction, "direction", "up", "up or down")
	migrate.Flags().IntVar(&steps, "steps", 0, "number of steps (0 = all)")

	root.AddCommand(serve, migrate)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
