package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/hoopleague/chat-backend/internal/config"
	"github.com/hoopleague/chat-backend/internal/httpapi"
	"github.com/hoopleague/chat-backend/internal/rooms"
	"github.com/hoopleague/chat-backend/internal/session"
	"github.com/hoopleague/chat-backend/internal/users"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal("mongo connect", zap.Error(err))
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		logger.Fatal("mongo ping", zap.Error(err))
	}
	db := client.Database(cfg.MongoDatabase)

	userStore := users.NewStore(db)
	sessions := session.NewStore(db, []byte(cfg.SessionSecret), cfg.SessionTTL)
	if err := userStore.EnsureIndexes(connectCtx); err != nil {
		logger.Fatal("user indexes", zap.Error(err))
	}
	if err := sessions.EnsureIndexes(connectCtx); err != nil {
		logger.Fatal("session indexes", zap.Error(err))
	}

	// Build the router *with* the registry injected
	reg := rooms.NewRegistry(ctx)
	handler := httpapi.SetupRoutes(reg, userStore, sessions, logger, cfg.AllowedOrigins)

	srv := &http.Server{Addr: cfg.Addr, Handler: handler}
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	reg.Inbox() <- rooms.Shutdown{}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
	if err := client.Disconnect(shutdownCtx); err != nil {
		logger.Warn("mongo disconnect", zap.Error(err))
	}
}
