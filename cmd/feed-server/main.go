// Package main provides the entry point for the KVideo feed server.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/gujimy/KVideo/internal/config"
	"github.com/gujimy/KVideo/internal/server"
	"github.com/gujimy/KVideo/pkg/history"
	"github.com/gujimy/KVideo/pkg/logging"
)

var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:     "feed-server",
	Short:   "KVideo recommendation feed server",
	Long:    "feed-server serves per-viewer related-video feeds: it fans out catalog queries derived from watch history, interleaves and deduplicates the results, and pages them incrementally over a session-scoped HTTP API.",
	Version: version,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("feed-server", version)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the feed server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		logCfg := logging.DefaultConfig()
		logCfg.Level = logging.LogLevel(cfg.Logging.Level)
		logCfg.Pretty = cfg.Logging.Pretty
		logger := logging.Setup(logCfg)

		store, closeStore, err := openStore(cfg)
		if err != nil {
			return fmt.Errorf("opening history store: %w", err)
		}
		defer closeStore()

		srv, err := server.New(cfg, store)
		if err != nil {
			return fmt.Errorf("creating server: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info().
			Str("version", version).
			Str("history_backend", cfg.History.Backend).
			Msg("Starting feed server")

		return srv.Run(ctx)
	},
}

// openStore builds the configured history backend. The returned func
// releases whatever the backend holds open.
func openStore(cfg *config.Config) (history.Store, func(), error) {
	switch cfg.History.Backend {
	case "memory":
		return history.NewMemoryStore(cfg.History.MaxPerViewer), func() {}, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.History.Redis.Addr,
			Password: cfg.History.Redis.Password,
			DB:       cfg.History.Redis.DB,
		})
		return history.NewRedisStore(client, cfg.History.MaxPerViewer), func() { client.Close() }, nil

	case "sqlite":
		store, err := history.OpenSQLite(cfg.History.SQLite.Path, cfg.History.MaxPerViewer)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown history backend %q", cfg.History.Backend)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
