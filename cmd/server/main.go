package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"droply/config"
	"droply/internal/database"
	"droply/internal/repository"
	"droply/internal/router"
	"droply/internal/service"
	"droply/pkg/telegram"
)

func main() {
	cfg := config.Load()
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	if err := database.SeedSettings(db); err != nil {
		log.Fatalf("seed settings: %v", err)
	}

	tg := telegram.NewClient(cfg.Telegram.APIURL, cfg.Telegram.BotToken)

	sched, err := service.StartRetentionScheduler(repository.NewAuditRepository(db))
	if err != nil {
		log.Fatalf("retention scheduler: %v", err)
	}
	defer func() { _ = sched.Shutdown() }()

	engine := router.Setup(cfg, db, tg, tg)

	if cfg.Telegram.WebhookBaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		url := fmt.Sprintf("%s/webhook/%s", cfg.Telegram.WebhookBaseURL, cfg.Telegram.BotToken)
		if err := tg.SetWebhook(ctx, url); err != nil {
			log.Fatalf("set webhook: %v", err)
		}
		cancel()
		log.Printf("[bot] webhook registered at %s/webhook/<token>", cfg.Telegram.WebhookBaseURL)
	} else {
		log.Printf("[bot] WEBHOOK_BASE_URL not set, skipping webhook registration")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		log.Printf("server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("server shutdown:", err)
	}
	fmt.Println("server stopped")
}
