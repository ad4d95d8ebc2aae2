package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/atozlegal/legalchat/internal/chat"
	"github.com/atozlegal/legalchat/internal/config"
	"github.com/atozlegal/legalchat/internal/exchange"
	"github.com/atozlegal/legalchat/internal/httpapi"
	"github.com/atozlegal/legalchat/internal/httpapi/handlers"
	"github.com/atozlegal/legalchat/internal/logging"
	"github.com/atozlegal/legalchat/internal/persist"
	"github.com/atozlegal/legalchat/internal/queue"
	"github.com/atozlegal/legalchat/internal/session"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log := logging.New(cfg.LogPath, cfg.Dev)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The sqlite file is always opened: it is the default session slot and
	// it carries the ask-job table either way.
	sqliteAdapter, err := persist.OpenSQLite(cfg.SQLitePath)
	if err != nil {
		log.Fatal("open sqlite", zap.String("path", cfg.SQLitePath), zap.Error(err))
	}

	var adapter persist.Adapter = sqliteAdapter
	if cfg.PersistDriver == "redis" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		adapter = persist.NewRedisAdapter(rdb)
	}

	store := session.NewStore(ctx, adapter, log)
	client := exchange.NewClient(cfg.BackendBaseURL, cfg.BackendTimeout)
	svc := chat.NewService(store, client, log)

	var async *chat.AsyncService
	if cfg.RabbitURL != "" {
		jobs, err := chat.NewJobStore(sqliteAdapter.DB())
		if err != nil {
			log.Fatal("migrate ask jobs", zap.Error(err))
		}

		pub, err := queue.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			log.Fatal("rabbit publisher", zap.Error(err))
		}
		defer pub.Close()

		async = chat.NewAsyncService(svc, jobs, pub, log)

		consumer, err := queue.NewConsumer(cfg.RabbitURL, cfg.RabbitQueue, cfg.WorkerCount, async.Resolve, log)
		if err != nil {
			log.Fatal("rabbit consumer", zap.Error(err))
		}
		defer consumer.Close()

		go func() {
			if err := consumer.Run(ctx); err != nil {
				log.Error("job consumer stopped", zap.Error(err))
			}
		}()
	}

	h := handlers.NewHandler(svc, async, cfg.TypingInterval, log)
	router := httpapi.NewRouter(h, log)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	go func() {
		log.Info("server started", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}
