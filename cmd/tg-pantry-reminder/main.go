package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"
	"github.com/smith3v/tg-pantry-reminder/pkg/bot/access"
	"github.com/smith3v/tg-pantry-reminder/pkg/bot/conversation"
	"github.com/smith3v/tg-pantry-reminder/pkg/bot/handlers"
	"github.com/smith3v/tg-pantry-reminder/pkg/bot/notify"
	"github.com/smith3v/tg-pantry-reminder/pkg/bot/pending"
	"github.com/smith3v/tg-pantry-reminder/pkg/bot/reminders"
	"github.com/smith3v/tg-pantry-reminder/pkg/config"
	"github.com/smith3v/tg-pantry-reminder/pkg/db"
	"github.com/smith3v/tg-pantry-reminder/pkg/logger"
)

func main() {
	if err := config.LoadConfig("config.json"); err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.AppConfig
	if err := logger.Configure(logger.Options{
		Level:  cfg.Logging.Level,
		File:   cfg.Logging.File,
		Format: cfg.Logging.Format,
	}); err != nil {
		logger.Error("failed to configure logger", "error", err)
	}

	location, err := cfg.Schedule.Location()
	if err != nil {
		logger.Error("invalid timezone", "value", cfg.Schedule.Timezone, "error", err)
		os.Exit(1)
	}

	if err := db.InitDB(cfg.Database); err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	store := db.NewStore(db.DB)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	guard := access.NewGuard(cfg.Access.AllowedUsers)
	engine := conversation.NewEngine(store, guard, pending.NewTracker(), location)
	h := handlers.New(engine)

	b, err := bot.New(cfg.Telegram.Token, h.BotOptions()...)
	if err != nil {
		logger.Error("failed to create bot", "error", err)
		os.Exit(1)
	}
	h.Register(b)

	dispatcher := notify.NewDispatcher(notify.NewBotSender(b), cfg.Schedule.SendTimeout())
	scheduler, err := reminders.NewScheduler(store, dispatcher, reminders.Options{
		Important:    cfg.Pantry.Important(),
		Recipients:   guard.Members(),
		DailySpec:    cfg.Schedule.DailyCron,
		PollInterval: cfg.Schedule.PollInterval(),
		Location:     location,
	})
	if err != nil {
		logger.Error("failed to create scheduler", "error", err)
		os.Exit(1)
	}

	go scheduler.RunDaily(ctx)
	go scheduler.RunPersonal(ctx)

	logger.Info("Starting bot...", "allowed_users", len(guard.Members()), "db_driver", cfg.Database.Driver)
	b.Start(ctx)
}
