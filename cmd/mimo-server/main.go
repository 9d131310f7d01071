package main

import (
	"context"
	stdlog "log"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/mimochat/mimo-server/internal/auth"
	authhandler "github.com/mimochat/mimo-server/internal/auth/handler"
	"github.com/mimochat/mimo-server/internal/chatcache"
	chatsdomain "github.com/mimochat/mimo-server/internal/chats"
	chatshandler "github.com/mimochat/mimo-server/internal/chats/handler"
	chatsrepo "github.com/mimochat/mimo-server/internal/chats/repo"
	chatsservice "github.com/mimochat/mimo-server/internal/chats/service"
	appConfig "github.com/mimochat/mimo-server/internal/config"
	"github.com/mimochat/mimo-server/internal/feed"
	mwLogger "github.com/mimochat/mimo-server/internal/http-server/middleware/logger"
	"github.com/mimochat/mimo-server/internal/lib/logger/handlers/slogpretty"
	"github.com/mimochat/mimo-server/internal/lib/logger/sl"
	messageshandler "github.com/mimochat/mimo-server/internal/messages/handler"
	messagesrepo "github.com/mimochat/mimo-server/internal/messages/repo"
	messagesservice "github.com/mimochat/mimo-server/internal/messages/service"
	profileshandler "github.com/mimochat/mimo-server/internal/profiles/handler"
	profilesrepo "github.com/mimochat/mimo-server/internal/profiles/repo"
	"github.com/mimochat/mimo-server/internal/storage/postgres"
	"github.com/mimochat/mimo-server/internal/ws"
	wshandler "github.com/mimochat/mimo-server/internal/ws/handler"
	"github.com/mimochat/mimo-server/internal/ws/hub"
)

const (
	envLocal = "local"
	envDev   = "dev"
)

func main() {
	if err := godotenv.Load("infra/.env"); err != nil {
		stdlog.Println("No .env file found, skipping...")
	}

	cfg := appConfig.MustLoad()

	log := setupLogger(cfg.Env)
	log.Info("starting mimo-server", slog.String("env", cfg.Env))

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Error("failed to init storage", sl.Err(err))
		os.Exit(1)
	}

	if err := postgres.Migrate(cfg.DatabaseDSN, cfg.MigrationsPath); err != nil {
		log.Error("failed to apply migrations", sl.Err(err))
		os.Exit(1)
	}

	var summaryCache chatsdomain.SummaryCache
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Error("failed to connect to redis", sl.Err(err))
			os.Exit(1)
		}
		summaryCache = chatcache.New(rdb, cfg.Redis.SummaryTTL, log)
		log.Info("chat list cache enabled", slog.String("redis", cfg.Redis.Addr))
	}

	changeFeed := feed.New()

	h := hub.NewHub()
	go h.Run()

	profilesRepo := profilesrepo.New(db)
	messagesRepo := messagesrepo.New(db)
	chatsRepo := chatsrepo.New(db)

	messagesService := messagesservice.New(messagesRepo, changeFeed)
	chatsService := chatsservice.New(chatsRepo, profilesRepo, summaryCache, log)

	bridge := ws.NewBridge(changeFeed, h, chatsService, log)
	go bridge.Run(ctx)

	ah := authhandler.New(auth.DevProvider{}, profilesRepo, cfg.Auth.Secret, cfg.Auth.TokenTTL, log)
	ph := profileshandler.New(profilesRepo, log)
	ch := chatshandler.New(chatsService, log)
	mh := messageshandler.New(messagesService, log)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(mwLogger.New(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	router.Post("/signin", ah.SignIn())

	router.Group(func(r chi.Router) {
		r.Use(auth.WithAuth(cfg.Auth.Secret))

		r.Get("/chats", ch.GetChats())
		r.Post("/chats/private", ch.ResolvePrivate())
		r.Post("/chats/group", ch.CreateGroup())
		r.Get("/chats/{chatId}", ch.GetChat())

		r.Get("/chats/{chatId}/messages", mh.GetMessages())
		r.Post("/chats/{chatId}/messages", mh.SendMessage())
		r.Post("/chats/{chatId}/read", mh.MarkRead())

		r.Get("/profiles/me", ph.Me())
		r.Patch("/profiles/me", ph.Update())
		r.Get("/profiles/search", ph.Search())
		r.Post("/profiles/heartbeat", ph.Heartbeat())

		r.Get("/ws", wshandler.WSHandler(h, log))
	})

	log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	if err := srv.ListenAndServe(); err != nil {
		log.Error("failed to start server", sl.Err(err))
	}

	log.Error("server stopped")
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return setupPrettySlog()
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}
