package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"

	"github.com/nap4595/CustomPlaceDB/internal/api"
	"github.com/nap4595/CustomPlaceDB/internal/bus"
	"github.com/nap4595/CustomPlaceDB/internal/config"
	"github.com/nap4595/CustomPlaceDB/internal/extractor"
	"github.com/nap4595/CustomPlaceDB/internal/fetchproxy"
	"github.com/nap4595/CustomPlaceDB/internal/prefs"
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

	var coord *viewsync.Coordinator
	st := store.New(backend,
		store.WithDebounceDelay(cfg.DebounceDelay),
		store.WithPersistHook(func() { coord.MarkSelfUpdate() }))
	defer st.Close()
	coord = viewsync.New(backend, st, viewsync.WithSelfUpdateWindow(cfg.SelfUpdateWindow))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := st.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to load data")
	}

	proxy := fetchproxy.NewDirect(cfg.FetchTimeout)
	factory := extractor.NewFactory(proxy)

	msgBus, err := bus.Connect(cfg.NatsURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to NATS")
	}
	defer msgBus.Close()

	// View agents fetch cross-origin pages through the background.
	err = msgBus.Handle(bus.ActionFetchPlaceInfo, "background", func(ctx context.Context, payload json.RawMessage) (any, error) {
		var req struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, err
		}
		return proxy.Fetch(ctx, req.URL)
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register fetch handler")
	}

	err = msgBus.Listen(bus.ActionShowNotification, func(payload json.RawMessage) {
		var note struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(payload, &note); err == nil {
			log.Info().Str("message", note.Message).Msg("notification")
		}
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register notification listener")
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             10 * 1024 * 1024,
	})
	api.New(proxy, factory, st, prefs.New(backend)).SetupRoutes(app)
	go func() {
		addr := ":" + cfg.HTTPPort
		log.Info().Str("addr", addr).Msg("HTTP API server starting")
		if err := app.Listen(addr); err != nil {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

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
		Msg("background started")

	if err := coord.Run(ctx); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("sync coordinator error")
	}

	if err := st.Sync(context.Background()); err != nil {
		log.Error().Err(err).Msg("final sync failed")
	}
	_ = app.Shutdown()
}
