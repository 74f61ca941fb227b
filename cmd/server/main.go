package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/qolzam/feed/internal/cache"
	"github.com/qolzam/feed/internal/database/migrations"
	"github.com/qolzam/feed/internal/database/postgres"
	"github.com/qolzam/feed/internal/pkg/log"
	platformconfig "github.com/qolzam/feed/internal/platform/config"
	"github.com/qolzam/feed/internal/server"
	"github.com/qolzam/feed/posts"
	"github.com/qolzam/feed/posts/handlers"
	postsServices "github.com/qolzam/feed/posts/services"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:           "feed",
	Short:         "Social feed post service",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          serve,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  serve,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the PostgreSQL schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE:  withMigrations(migrations.Up),
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the latest migration",
	RunE:  withMigrations(migrations.Down),
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the migration status",
	RunE:  withMigrations(migrations.Status),
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "read configuration from this dotenv file only")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
}

func loadConfig() (*platformconfig.Config, error) {
	if envFile != "" {
		return platformconfig.LoadFromEnvFile(envFile)
	}
	return platformconfig.LoadFromEnv()
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load platform config: %w", err)
	}
	log.SetDebug(cfg.Server.Debug)
	if cfg.Server.Debug {
		log.InfoStruct(cfg.Server, cfg.Posts)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := postsServices.NewPostRepositoryFromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeRepo(context.Background()); err != nil {
			log.Warn("failed to close post store: %v", err)
		}
	}()

	cacheService, err := cache.NewCacheService(cfg.Cache)
	if err != nil {
		return fmt.Errorf("failed to create cache: %w", err)
	}
	defer cacheService.Close()

	postService := postsServices.NewPostService(repo, cacheService, cfg.Posts)
	interactionService := postsServices.NewInteractionService(repo, cacheService)

	app := server.New(cfg.Server)
	posts.RegisterRoutes(app, &posts.PostsHandlers{
		PostHandler: handlers.NewPostHandler(postService, interactionService),
	}, cfg)

	log.Info("starting feed service (store: %s, cache enabled: %t)", cfg.Database.Type, cacheService.IsEnabled())
	return server.Run(ctx, app, cfg.Server.Addr())
}

func withMigrations(run func(db *sql.DB) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load platform config: %w", err)
		}
		if cfg.Database.Type != platformconfig.DatabaseTypePostgres {
			return fmt.Errorf("migrations only apply to %s, DB_TYPE is %s", platformconfig.DatabaseTypePostgres, cfg.Database.Type)
		}

		client, err := postgres.NewClient(cmd.Context(), cfg.Database.Postgres)
		if err != nil {
			return fmt.Errorf("failed to create postgres client: %w", err)
		}
		defer client.Close()

		return run(client.DB().DB)
	}
}
