package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/stagelive/queue-service/internal/cache"
	"github.com/stagelive/queue-service/internal/config"
	"github.com/stagelive/queue-service/internal/domain"
	"github.com/stagelive/queue-service/internal/handler"
	"github.com/stagelive/queue-service/internal/hub"
	"github.com/stagelive/queue-service/internal/notifier"
	"github.com/stagelive/queue-service/internal/repository"
	"github.com/stagelive/queue-service/internal/service"
	"github.com/stagelive/queue-service/pkg/database"
	"github.com/stagelive/queue-service/pkg/jwt"
	pkglog "github.com/stagelive/queue-service/pkg/log"
	"github.com/stagelive/queue-service/pkg/middleware"
	"github.com/stagelive/queue-service/pkg/pubsub"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// Initialize structured logger
	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Level == "debug",
		ServiceName: "queue-service",
	})
	logger := pkglog.L()

	// Connect to database using GORM
	db, err := database.New(&database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		FilePath:        cfg.Database.FilePath,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := database.AutoMigrate(db, &domain.QueueEntryModel{}); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Msg("database migration completed")

	// Room registry
	registry := cfg.Rooms.Registry()

	// Queue store
	queueRepo := repository.NewGormQueueRepository(db)

	// Change feed transport
	bus, err := pubsub.NewPubSub(cfg.PubSub)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to pubsub")
	}
	defer bus.Close()
	logger.Info().Str("driver", cfg.PubSub.Driver).Msg("change feed connected")

	// Snapshot cache
	snapshots, err := cache.NewRedisSnapshotCache(cfg.Cache)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to snapshot cache")
	}
	defer snapshots.Close()

	// Queue engine
	queueService := service.NewQueueService(queueRepo, registry, bus)

	// Tokens and auth
	tokens := jwt.NewManager(cfg.Auth.Secret, cfg.Auth.Issuer, time.Duration(cfg.Auth.StageTokenTTL)*time.Second)
	authMiddleware := middleware.NewAuthMiddleware(tokens)

	// Subscriber hub
	h := hub.NewHub(cfg.WebSocket)
	go h.Run()

	// Change notifier
	n := notifier.New(bus, queueService, h, snapshots)

	// Handlers
	httpHandler := handler.NewHandler(queueService, authMiddleware, tokens)
	wsHandler := handler.NewWSHandler(h, queueService, snapshots)

	// Setup Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/ws", wsHandler.HandleWebSocket)

	httpHandler.RegisterRoutes(r)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n.Run(ctx)
		return nil
	})

	g.Go(func() error {
		logger.Info().Str("addr", addr).Str("db_driver", cfg.Database.Driver).Msg("queue-service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("queue-service exited with error")
	}
	logger.Info().Msg("queue-service stopped")
}
