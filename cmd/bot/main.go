// Package main contains the entrypoint for the Telegram bot application.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"

	"github.com/edgard/tutorbot/internal/bot"
	"github.com/edgard/tutorbot/internal/bot/handlers"
	"github.com/edgard/tutorbot/internal/bot/tasks"
	"github.com/edgard/tutorbot/internal/config"
	"github.com/edgard/tutorbot/internal/conversation"
	"github.com/edgard/tutorbot/internal/database"
	"github.com/edgard/tutorbot/internal/inference"
	"github.com/edgard/tutorbot/internal/logger"
	"github.com/edgard/tutorbot/internal/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes and starts all application components (config, logger, journal,
// inference client, bot, scheduler), handles graceful shutdown, and returns an exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	solver, err := inference.NewClient(ctx, cfg.Inference, log)
	if err != nil {
		log.Error("Failed to initialize inference client", "provider", cfg.Inference.Provider, "error", err)
		return 1
	}

	contexts, err := conversation.New(cfg.Conversation.MaxEntries, cfg.Conversation.TTL)
	if err != nil {
		log.Error("Failed to create conversation store", "error", err)
		return 1
	}

	hDeps := handlers.HandlerDeps{
		Logger:     log,
		Config:     cfg,
		Contexts:   contexts,
		Solver:     solver,
		Journal:    store,
		HTTPClient: &http.Client{Timeout: cfg.Telegram.DownloadTimeout},
	}
	tDeps := tasks.TaskDeps{
		Logger:   log,
		Store:    store,
		Contexts: contexts,
		Config:   cfg,
	}

	botOpts := append(telegram.Options(cfg.Telegram, log),
		tgbot.WithMiddlewares(logger.Middleware(log), logger.Recover(log, handlers.NewPanicReply(hDeps))),
		tgbot.WithDefaultHandler(handlers.NewFollowUpHandler(hDeps)),
	)
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	cmdHandlers := handlers.RegisterAllCommands(hDeps)
	if err := telegram.RegisterHandlers(tg, log, cmdHandlers); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}
	if err := telegram.SetCommands(ctx, tg, cmdHandlers); err != nil {
		// The menu is cosmetic; commands still work without it.
		log.Warn("Failed to publish command menu", "error", err)
	}

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}
	app := bot.NewBot(log, tg, sched)

	log.Info("Starting bot...")
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	return 0
}
