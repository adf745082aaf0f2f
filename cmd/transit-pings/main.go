// Command transit-pings checks upcoming Metro Transit departures and sends
// "leave now" alerts over Telegram. It is designed to be invoked by an
// external scheduler (cron, GitHub Actions) every few minutes.
//
// Usage:
//
//	transit-pings check
//	transit-pings pause
//	transit-pings resume
//	transit-pings status
//	transit-pings send-test
//	transit-pings bot --listen :8080
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/qu-genesis/metro-transit-pings/internal/bot"
	"github.com/qu-genesis/metro-transit-pings/internal/config"
	"github.com/qu-genesis/metro-transit-pings/internal/cycle"
	"github.com/qu-genesis/metro-transit-pings/internal/nextrip"
	"github.com/qu-genesis/metro-transit-pings/internal/notify"
	"github.com/qu-genesis/metro-transit-pings/internal/state"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

var configPath string

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "transit-pings",
		Short: "Bus departure alerts via Telegram",
	}
	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to the TOML config file")

	root.AddCommand(checkCmd())
	root.AddCommand(pauseCmd())
	root.AddCommand(resumeCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(sendTestCmd())
	root.AddCommand(botCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// check command — one alert cycle
// --------------------------------------------------------------------------

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run one check cycle: fetch departures, send due alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				logger.Error("Failed to load configuration", "error", err)
				return err
			}

			now := time.Now()
			if w := cfg.Window(); w != nil && !w.Active(now, cfg.Location()) {
				logger.Info("outside active monitoring window, exiting",
					"local_time", now.In(cfg.Location()).Format("Mon 3:04 PM"))
				return nil
			}

			sender := notify.NewTelegramSender(cfg.Telegram.BotToken, cfg.Telegram.ChatID, "")
			if err := sender.Validate(); err != nil {
				logger.Error("Notifier not configured", "error", err)
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			deps := cycle.Deps{
				Source: nextrip.NewClient(cfg.API.BaseURL, cfg.APITimeout(), cfg.API.RequestsPerMinute, logger),
				Sender: sender,
				Store:  state.NewStore(cfg.State.Path, cfg.Retention(), logger),
				Gate:   state.NewPauseGate(cfg.State.PausePath),
			}

			start := time.Now()
			if err := cycle.Run(ctx, cfg, deps, logger); err != nil {
				logger.Error("Cycle failed", "error", err)
				return err
			}
			logger.Info("Cycle complete", "duration", time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}

// --------------------------------------------------------------------------
// pause / resume / status commands
// --------------------------------------------------------------------------

func pauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause all alerts until resumed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return setPaused(true)
		},
	}
}

func resumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return setPaused(false)
		},
	}
}

func setPaused(paused bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		return err
	}
	if err := state.NewPauseGate(cfg.State.PausePath).Set(paused); err != nil {
		logger.Error("Failed to update pause flag", "error", err)
		return err
	}
	logger.Info("Pause flag updated", "paused", paused)
	return nil
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show pause state and tracked departures",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				logger.Error("Failed to load configuration", "error", err)
				return err
			}
			gate := state.NewPauseGate(cfg.State.PausePath)
			snap := state.NewStore(cfg.State.Path, cfg.Retention(), logger).Load(time.Now())
			logger.Info("Status", "paused", gate.IsPaused(), "tracked_departures", len(snap), "routes", len(cfg.Routes))
			return nil
		},
	}
}

// --------------------------------------------------------------------------
// send-test command
// --------------------------------------------------------------------------

func sendTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send-test",
		Short: "Send a test message to verify the Telegram bot works",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				logger.Error("Failed to load configuration", "error", err)
				return err
			}
			sender := notify.NewTelegramSender(cfg.Telegram.BotToken, cfg.Telegram.ChatID, "")
			if err := sender.Validate(); err != nil {
				logger.Error("Notifier not configured", "error", err)
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			if err := sender.Send(ctx, "✅ Metro Transit Pings test message - Bot is working!"); err != nil {
				logger.Error("Test message failed", "error", err)
				return err
			}
			logger.Info("Test message sent")
			return nil
		},
	}
}

// --------------------------------------------------------------------------
// bot command — webhook server for chat control
// --------------------------------------------------------------------------

func botCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Serve the Telegram webhook for /stop, /boarded, /start commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				logger.Error("Failed to load configuration", "error", err)
				return err
			}
			if listen == "" {
				listen = cfg.Telegram.Listen
			}

			sender := notify.NewTelegramSender(cfg.Telegram.BotToken, cfg.Telegram.ChatID, "")
			if err := sender.Validate(); err != nil {
				logger.Error("Notifier not configured", "error", err)
				return err
			}
			if cfg.Telegram.WebhookSecret == "" {
				logger.Warn("TELEGRAM_WEBHOOK_SECRET not set, webhook auth disabled")
			}

			gate := state.NewPauseGate(cfg.State.PausePath)
			server := bot.NewServer(gate, sender, cfg.Telegram.WebhookSecret, cfg.Telegram.ChatID, logger)

			srv := &http.Server{
				Addr:         listen,
				Handler:      server.Router(),
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 30 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			go func() {
				logger.Info("Starting bot webhook server", "addr", listen)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("Server failed", "error", err)
					os.Exit(1)
				}
			}()

			<-ctx.Done()
			logger.Info("Shutting down...")

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			logger.Info("Server stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (default from config)")
	return cmd
}
