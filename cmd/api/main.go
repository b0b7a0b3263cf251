package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	v1 "relove-chat/cmd/api/router/v1"
	"relove-chat/internal/config"
	"relove-chat/internal/infrastructure/auth"
	bcastAdapter "relove-chat/internal/infrastructure/broadcast/adapter"
	bcastPort "relove-chat/internal/infrastructure/broadcast/port"
	cacheAdapter "relove-chat/internal/infrastructure/cache/adapter"
	cachePort "relove-chat/internal/infrastructure/cache/port"
	"relove-chat/internal/infrastructure/database"
	"relove-chat/internal/infrastructure/metrics"
	queueAdapter "relove-chat/internal/infrastructure/queue/adapter"
	queuePort "relove-chat/internal/infrastructure/queue/port"
	"relove-chat/internal/infrastructure/realtime"
	"relove-chat/internal/logging"
	"relove-chat/internal/pkg/chat/application/task"
	"relove-chat/internal/pkg/chat/application/usecase"
	repoAdapter "relove-chat/internal/pkg/chat/persistence/repository/adapter"
	repository "relove-chat/internal/pkg/chat/persistence/repository/port"
	httpHandler "relove-chat/internal/pkg/chat/presentation/http"
)

func main() {
	cfg, err := config.Load(os.Getenv("CHAT_CONFIG"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.Log.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := cfg.ValidateServer(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("api stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	m := metrics.New()
	router := realtime.NewRouter()
	defer router.Close()
	m.TrackSessions(router.Sessions)

	repo, closeRepo, err := openRepository(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeRepo()

	cache, err := openCache(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cache.Close()

	publisher, closeBus, err := openPublisher(ctx, cfg, router, m, log)
	if err != nil {
		return err
	}
	defer closeBus()

	client, server, err := openQueue(cfg, log)
	if err != nil {
		return err
	}
	defer client.Close()

	task.RegisterBroadcastMessageTask(server, usecase.NewBroadcastMessageUseCase(publisher), log)
	queueDone := make(chan error, 1)
	go func() { queueDone <- server.Run(ctx) }()

	send := usecase.NewSendMessageUseCase(repo, task.NewBroadcastMessageTask(client), cache, log)
	signingKey := []byte(cfg.Auth.SigningKey)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), logging.Gin(log))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "OK",
		})
	})
	r.GET("/metrics", gin.WrapH(m.Handler()))

	v1.RegisterRoutes(r, httpHandler.Dependencies{
		ListConversations: usecase.NewListConversationsUseCase(repo, cache, cfg.Server.ConversationTTL, log),
		GetMessages:       usecase.NewGetMessagesUseCase(repo),
		SendMessage:       send,
		MarkRead:          usecase.NewMarkReadUseCase(repo, cache, log),
		StartConversation: usecase.NewStartConversationUseCase(send),
		AuthorizeChannel:  usecase.NewAuthorizeChannelUseCase(signingKey),
		Router:            router,
		SigningKey:        signingKey,
		Limiter:           auth.NewLimiterPool(cfg.Auth.SendRPS, cfg.Auth.SendBurst),
		Metrics:           m,
		Log:               log,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveDone := make(chan error, 1)
	go func() {
		log.Info("api listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveDone <- err
			return
		}
		serveDone <- nil
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-serveDone:
		return fmt.Errorf("http server: %w", err)
	case err := <-queueDone:
		if err != nil {
			return fmt.Errorf("queue server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	return nil
}

func openRepository(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.ChatRepository, func(), error) {
	if cfg.Database.URL == "" {
		log.Warn("DB_URL not set; conversations are kept in memory")
		return repoAdapter.NewMemoryChatRepository(), func() {}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := database.Open(connectCtx, cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg.Database.Migrate {
		if err := database.Migrate(connectCtx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Info("database schema applied")
	}
	return repoAdapter.NewPgChatRepository(pool), pool.Close, nil
}

func openCache(ctx context.Context, cfg *config.Config, log *zap.Logger) (cachePort.Cache, error) {
	if cfg.Redis.URL == "" {
		log.Info("REDIS_URL not set; conversation cache disabled")
		return cacheAdapter.NopCache{}, nil
	}
	c, err := cacheAdapter.NewRedisCache(ctx, cfg.Redis.URL)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// openPublisher returns the NATS publisher (with a relay into the local
// router) when NATS_URL is set, the local router otherwise.
func openPublisher(ctx context.Context, cfg *config.Config, router *realtime.Router, m *metrics.Metrics, log *zap.Logger) (bcastPort.Publisher, func(), error) {
	if cfg.NATS.URL == "" {
		return bcastAdapter.NewInstrumented(router, m.Broadcasts, "local"), func() {}, nil
	}

	nc, err := bcastAdapter.ConnectNats(cfg.NATS.URL, log)
	if err != nil {
		return nil, nil, err
	}
	go func() {
		if err := bcastAdapter.Relay(ctx, nc, router, log); err != nil {
			log.Error("nats relay stopped", zap.Error(err))
		}
	}()
	closer := func() {
		if err := nc.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			log.Warn("nats drain", zap.Error(err))
		}
	}
	return bcastAdapter.NewInstrumented(bcastAdapter.NewNatsPublisher(nc), m.Broadcasts, "nats"), closer, nil
}

func openQueue(cfg *config.Config, log *zap.Logger) (queuePort.Client, queuePort.Server, error) {
	if cfg.Redis.URL == "" {
		inline := queueAdapter.NewInline(log)
		return inline, inline, nil
	}
	client, err := queueAdapter.NewAsynqClient(cfg.Redis.URL)
	if err != nil {
		return nil, nil, err
	}
	server, err := queueAdapter.NewAsynqServer(cfg.Redis.URL, cfg.Queue.Concurrency, cfg.Queue.Queues, log)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return client, server, nil
}
