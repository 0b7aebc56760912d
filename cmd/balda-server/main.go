package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/kapu/balda-server/internal/bot"
	appcfg "github.com/kapu/balda-server/internal/config"
	"github.com/kapu/balda-server/internal/dict"
	"github.com/kapu/balda-server/internal/httpapi"
	"github.com/kapu/balda-server/internal/matchqueue"
	"github.com/kapu/balda-server/internal/msgcat"
	"github.com/kapu/balda-server/internal/obslog"
	"github.com/kapu/balda-server/internal/presence"
	"github.com/kapu/balda-server/internal/session"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis url error: %v", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("redis ping error: %v", err)
	}

	var repo session.Repository
	if cfg.DatabaseURL != "" {
		repo, err = session.NewRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("repository init error: %v", err)
		}
	} else {
		obslog.L().Warn("no DATABASE_URL configured, using in-memory repository")
		repo = session.NewMemoryRepository()
	}

	words, err := dict.Load(cfg.DictPath)
	if err != nil {
		log.Fatalf("dictionary init error: %v", err)
	}

	tracker := presence.NewTracker(rdb, presence.Config{
		OnlineTTL: time.Duration(cfg.PresenceOnlineTTLSec) * time.Second,
		WaitTTL:   time.Duration(cfg.PresenceWaitTTLSec) * time.Second,
		GameTTL:   time.Duration(cfg.PresenceGameTTLSec) * time.Second,
	})

	sessions, err := session.NewManager(rdb, repo, words, tracker, session.ManagerConfig{
		FieldSize:  cfg.FieldSize,
		FirstWord:  cfg.FirstWord,
		SessionTTL: time.Duration(cfg.SessionTTLSec) * time.Second,
	})
	if err != nil {
		log.Fatalf("session manager init error: %v", err)
	}
	sessions.AttachBot(
		bot.NewGreedy(words, cfg.BotMaxWordLen),
		session.Participant{ID: cfg.BotName, Name: cfg.BotName, Bot: true},
	)

	queue := matchqueue.NewQueue(rdb, sessions, tracker, time.Duration(cfg.MatchTTLSec)*time.Second)

	msgs, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		log.Fatalf("message catalog error: %v", err)
	}

	api := httpapi.NewServer(queue, sessions, tracker, msgs)
	srv := &fasthttp.Server{
		Handler:      api.Handler(),
		Name:         "balda-server",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		obslog.L().Info("listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(cfg.ListenAddr); err != nil {
			obslog.L().Fatal("server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	_ = srv.Shutdown()
	_ = repo.Close()
	_ = rdb.Close()
}
