package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prajyotgorlewar/BattleIDE/internal/config"
	"github.com/prajyotgorlewar/BattleIDE/internal/db"
	"github.com/prajyotgorlewar/BattleIDE/internal/global"
	"github.com/prajyotgorlewar/BattleIDE/internal/handlers"
	"github.com/prajyotgorlewar/BattleIDE/internal/jwt"
	"github.com/prajyotgorlewar/BattleIDE/internal/logger"
	"github.com/prajyotgorlewar/BattleIDE/internal/metrics"
	"github.com/prajyotgorlewar/BattleIDE/internal/repo"
	"github.com/prajyotgorlewar/BattleIDE/internal/service"
	"github.com/prajyotgorlewar/BattleIDE/internal/state"
	"github.com/prajyotgorlewar/BattleIDE/internal/wss"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zapLogger); err != nil {
		zapLogger.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	users, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New()
	if err := m.Register(registry); err != nil {
		return err
	}

	appState := &global.State{
		Users:      service.NewUserService(users, cfg.LeaderboardLimit, log),
		Registry:   state.NewRegistry(),
		JwtManager: jwt.NewJWTManager(cfg.JWTSecret),
		Metrics:    m,
	}

	var pusher service.Pusher = wss.NewLocalPusher(appState.Registry, m)
	rdb, err := db.NewRedisClient(ctx, cfg)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		broker := repo.NewRedisRepository(rdb, repo.DefaultPresenceTTL)
		appState.Presence = broker

		redisPusher := wss.NewRedisPusher(broker, wss.NewLocalPusher(appState.Registry, m), log)
		if err := redisPusher.Start(); err != nil {
			return err
		}
		defer redisPusher.Stop()
		pusher = redisPusher
		log.Info("redis fan-out enabled", zap.String("addr", cfg.RedisURL))
	}

	dispatcher := wss.NewDispatcher(log)
	wss.RegisterDefaultHandlers(dispatcher, log)

	router := handlers.NewRouter(appState, dispatcher, handlers.RouterConfig{
		AllowedOrigins: cfg.AllowedOrigins,
		SocketAuth:     cfg.SocketAuth,
		Gatherer:       registry,
		Logger:         log,
	})
	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return err
	}
	grpcServer := grpc.NewServer()
	service.RegisterPushServer(grpcServer, service.NewPushService(pusher, log))

	errCh := make(chan error, 2)
	go func() {
		log.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
		errCh <- grpcServer.Serve(lis)
	}()
	go func() {
		log.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		log.Error("listener failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	appState.Registry.CloseAll()
	grpcServer.GracefulStop()
	return nil
}

func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (repo.UserRepository, func(), error) {
	switch cfg.StoreDriver {
	case "postgres":
		gdb, err := db.OpenPostgres(cfg)
		if err != nil {
			return nil, nil, err
		}
		log.Info("using postgres user store")
		return repo.NewPSQLRepository(gdb), func() {
			if sqlDB, err := gdb.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}, nil
	default:
		client, err := db.ConnectMongo(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		users := repo.NewMongoRepository(client, cfg.MongoDB)
		if err := users.EnsureIndexes(ctx); err != nil {
			log.Warn("failed to ensure indexes", zap.Error(err))
		}
		log.Info("using mongo user store", zap.String("db", cfg.MongoDB))
		return users, func() { _ = client.Disconnect(context.Background()) }, nil
	}
}
