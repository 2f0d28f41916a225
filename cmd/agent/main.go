package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nap4595/CustomPlaceDB/internal/browser"
	"github.com/nap4595/CustomPlaceDB/internal/bus"
	"github.com/nap4595/CustomPlaceDB/internal/config"
	"github.com/nap4595/CustomPlaceDB/internal/extractor"
	"github.com/nap4595/CustomPlaceDB/internal/fetchproxy"
	"github.com/nap4595/CustomPlaceDB/internal/session"
	"github.com/nap4595/CustomPlaceDB/internal/storage"
	"github.com/nap4595/CustomPlaceDB/internal/store"
	"github.com/nap4595/CustomPlaceDB/internal/viewsync"
	"github.com/nap4595/CustomPlaceDB/pkg/logger"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.IsDev())
	log := logger.Log

	backend, err := storage.Open(cfg.StorageBackend, cfg.RedisURL, cfg.MongoURL, cfg.MongoDatabase)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open storage")
	}
	defer backend.Close()

	msgBus, err := bus.Connect(cfg.NatsURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to NATS")
	}
	defer msgBus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var b *browser.Browser
	if cfg.DevToolsURL != "" {
		b, err = browser.NewRemote(ctx, cfg.DevToolsURL)
	} else {
		b, err = browser.New(ctx)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("failed to attach browser")
	}
	defer b.Close()

	var coord *viewsync.Coordinator
	st := store.New(backend,
		store.WithDebounceDelay(cfg.DebounceDelay),
		store.WithPersistHook(func() { coord.MarkSelfUpdate() }))
	defer st.Close()
	coord = viewsync.New(backend, st,
		viewsync.WithSelfUpdateWindow(cfg.SelfUpdateWindow),
		viewsync.WithRefresh(func() {
			log.Debug().Msg("data changed in another view")
		}))

	factory := extractor.NewFactory(fetchproxy.NewBusProxy(msgBus))
	sess := session.New(st, coord, factory, b, msgBus)

	if err := sess.RegisterBusHandlers(msgBus); err != nil {
		log.Fatal().Err(err).Msg("failed to register bus handlers")
	}

	poller := browser.NewPoller(cfg.PollInterval, b.Location, func(oldURL, newURL string) {
		log.Debug().Str("from", oldURL).Str("to", newURL).Msg("tab navigated")
		sess.OnURLChange(ctx, oldURL, newURL)
	})
	go poller.Run(ctx)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("shutting down")
		cancel()
	}()

	log.Info().
		Str("nats", cfg.NatsURL).
		Str("storage", cfg.StorageBackend).
		Msg("view agent started")

	if err := sess.Start(ctx); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("session error")
	}

	if err := st.Sync(context.Background()); err != nil {
		log.Error().Err(err).Msg("final sync failed")
	}
}
