// Package cli provides the command-line interface for the trading application.
package cli

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"schwab-trader/internal/broker"
	"schwab-trader/internal/config"
	"schwab-trader/internal/notify"
	"schwab-trader/internal/store"
)

// Version information
const Version = "0.1.0"

// App holds the application dependencies.
type App struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Feed      broker.Feed
	Transport broker.OrderTransport
	Store     store.DataStore
	Sink      notify.Sink
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	switch cfg.Trading.Mode {
	case "live":
		client := broker.NewSchwabClient(broker.SchwabConfig{
			AccessToken: os.Getenv("SCHWAB_ACCESS_TOKEN"),
			AccountHash: cfg.Trading.AccountID,
		})
		app.Feed = client
		app.Transport = client
		logger.Debug().Msg("Schwab client initialized")
	default:
		paper := broker.NewPaperTransport()
		app.Feed = paper
		app.Transport = paper
		logger.Debug().Msg("Paper transport initialized")
	}

	dbPath := config.DefaultConfigDir() + "/trader.db"
	dataStore, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, some features may be unavailable")
	} else {
		app.Store = dataStore
		logger.Debug().Msg("SQLite store initialized")
	}

	app.Sink = buildSink(cfg, logger)

	rootCmd := &cobra.Command{
		Use:   "schwab-trader",
		Short: "Short-option decision and execution engine",
		Long: `schwab-trader manages short option positions against a Schwab-style
brokerage account: margin math, expiring-call rolls, spread scanning and
patient multi-leg limit order execution.

Use 'schwab-trader help <command>' for more information about a command.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/schwab-trader)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newScanCmd(app))
	rootCmd.AddCommand(newRollCmd(app))
	rootCmd.AddCommand(newPositionsCmd(app))
	rootCmd.AddCommand(newOrdersCmd(app))

	return rootCmd
}

func buildSink(cfg *config.Config, logger zerolog.Logger) notify.Sink {
	sinks := []notify.Sink{notify.NewLogSink(logger)}
	if cfg.Notifications.Telegram.Enabled && cfg.Notifications.Telegram.BotToken != "" {
		sinks = append(sinks, notify.NewTelegram(cfg.Notifications.Telegram, logger))
	}
	if cfg.Notifications.Webhook.Enabled && cfg.Notifications.Webhook.URL != "" {
		sinks = append(sinks, notify.NewWebhook(cfg.Notifications.Webhook, logger))
	}
	return notify.NewMulti(cfg.Notifications.Level, sinks...)
}
