package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"submission_bot/internal/app"
	"submission_bot/internal/domain/archive"
	"submission_bot/internal/domain/review"
	tg "submission_bot/internal/domain/telegram"
	"submission_bot/internal/infra/config"
	idb "submission_bot/internal/infra/database"
	"submission_bot/internal/infra/logger"
	"submission_bot/internal/infra/scheduler"
	"submission_bot/internal/infra/storage"
	itg "submission_bot/internal/infra/telegram"

	"gopkg.in/telebot.v3"
)

func main() {
	env, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger.Init(env)
	log := logger.Get()

	cfgStore, err := config.LoadStore(env.ConfigPath, log.WithField("component", "config"))
	if errors.Is(err, config.ErrFirstRun) {
		log.Fatalf("A default config was written to %s. Fill in Token and Admin, then start again.", env.ConfigPath)
	}
	if err != nil {
		log.WithError(err).Fatal("Could not load bot configuration")
	}
	defer cfgStore.Close()
	if err := cfgStore.Validate(); err != nil {
		log.WithError(err).Fatalf("Configuration at %s is incomplete", env.ConfigPath)
	}

	repo := storage.NewFileRepository(env.DataPath, log.WithField("component", "storage"))
	defer repo.Close()

	// The decision archive is optional; without a database the bot runs
	// on the file snapshot alone.
	var arch archive.Repository
	if env.ArchiveDatabaseURL != "" {
		db, err := idb.NewPostgresConnection(env.ArchiveDatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("Could not connect to the archive database")
		}
		defer db.Close()
		arch = idb.NewPostgresArchiveRepository(db)
		log.Info("Decision archive enabled")
	}

	var bot *telebot.Bot
	bot, err = telebot.NewBot(telebot.Settings{
		Token:  cfgStore.Token(),
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			entry := log.WithError(err)
			if c != nil && c.Chat() != nil {
				entry = entry.WithField("chat_id", c.Chat().ID)
			}
			if c != nil && c.Sender() != nil {
				entry = entry.WithField("sender_id", c.Sender().ID)
			}
			entry.Error("Unhandled bot error")

			if bot == nil {
				return
			}
			msg := err.Error()
			if len(msg) > 300 {
				msg = msg[:300] + "…"
			}
			if _, serr := bot.Send(&telebot.User{ID: cfgStore.AdminID()}, "⚠️ Bot error: "+msg); serr != nil {
				log.WithError(serr).Debug("Could not report the error to the admin")
			}
		},
	})
	if err != nil {
		log.WithError(err).Fatal("Could not create the Telegram bot")
	}

	adapter := itg.NewTelebotAdapter(bot)
	sessions := review.NewSessions()
	publisher := app.NewPublisher(cfgStore, repo, adapter, arch, log.WithField("component", "publisher"))
	reviews := app.NewReviewService(cfgStore, repo, adapter, publisher, sessions, log.WithField("component", "review"))
	intake := app.NewIntakeService(cfgStore, repo, adapter, log.WithField("component", "intake"))

	handlers := itg.NewBotHandlers(cfgStore, intake, reviews, log.WithField("component", "handlers"))
	handlers.Register(bot)

	sched := scheduler.New(cfgStore, repo, adapter, arch, log.WithField("component", "scheduler"),
		env.CronSpecDigest, env.CronSpecFlush)
	if err := sched.Start(); err != nil {
		log.WithError(err).Fatal("Could not start the scheduler")
	}

	if bot.Me != nil {
		cfgStore.SetBotIdentity(bot.Me.ID, bot.Me.Username)
		cfgStore.Save()
		log.WithField("username", bot.Me.Username).Info("Bot identity confirmed")
	}
	if cfgStore.GroupID() == 0 {
		log.Warn("No review group configured; run /setgroup in the group")
	}
	if cfgStore.PublishChannel() == "" {
		log.Warn("No publish channel configured; run /setchannel")
	}

	if _, err := adapter.SendMessage(tg.Dest(cfgStore.AdminID()),
		"🤖 Bot started, version "+app.Version, nil); err != nil {
		log.WithError(err).Warn("Could not send the boot notice to the admin")
	}

	log.WithField("version", app.Version).Info("Bot is running")
	go bot.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")
	bot.Stop()
	sched.Stop()
}
