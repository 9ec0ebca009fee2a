package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/redis/go-redis/v9"

	"github.com/flowcraft-ai/flowcraft-backend/config"
	"github.com/flowcraft-ai/flowcraft-backend/internal/auth"
	"github.com/flowcraft-ai/flowcraft-backend/internal/bootstrap"
	"github.com/flowcraft-ai/flowcraft-backend/internal/db"
	quotarepo "github.com/flowcraft-ai/flowcraft-backend/internal/quota/repository"
	"github.com/flowcraft-ai/flowcraft-backend/internal/quota/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := db.NewConnection(&cfg.Database)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer conn.Close()

	if err := db.Migrate(conn); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	var redisClient *redis.Client
	rc := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	if err := rc.Ping(pingCtx).Err(); err != nil {
		log.Printf("[warn] operation=startup message=redis unreachable, share cache disabled error=%v", err)
	} else {
		redisClient = rc
	}
	cancel()

	var authClient *fbauth.Client
	if cfg.App.DevAuthBypass {
		log.Println("[warn] operation=startup message=DEV_AUTH_BYPASS enabled, requests are trusted by header")
	} else {
		authClient, err = auth.NewFirebaseAuthClient(ctx, cfg.App.FirebaseCredentialsFile)
		if err != nil {
			log.Fatalf("firebase: %v", err)
		}
	}

	sweeper := tasks.NewSweeper(
		quotarepo.NewSubscriptionRepository(conn),
		cfg.Quota.SweepSpec,
		cfg.Quota.FreeTierVersions,
	)
	if err := sweeper.Start(); err != nil {
		log.Fatalf("subscription sweeper: %v", err)
	}
	defer sweeper.Stop()

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		Config:     cfg,
		DB:         conn,
		Redis:      redisClient,
		AuthClient: authClient,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Printf("[info] operation=startup message=listening port=%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("[info] operation=shutdown message=draining connections")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[error] operation=shutdown error=%v", err)
	}
}
