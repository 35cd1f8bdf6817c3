package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/app"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/config"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/mailer"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/tracking"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/worker"
)

func main() {
	log.Println("Starting Newsletter Worker...")

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is required; without it the server runs the dispatcher in-process")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer a.Close()

	// Status events published by the dispatcher reach API instances through
	// the broker.
	if err := a.Notifications.Connect(ctx); err != nil {
		log.Printf("Warning: notification broker unavailable: %v", err)
	}

	sender, err := mailer.NewSender(ctx, cfg.Email)
	if err != nil {
		log.Fatalf("Failed to initialize email sender: %v", err)
	}
	log.Printf("Email sender initialized (provider=%s)", sender.Name())

	dispatcher := a.NewDispatcher(sender)
	if err := dispatcher.Start(); err != nil {
		log.Fatalf("Failed to start dispatcher: %v", err)
	}
	log.Printf("Campaign dispatcher started (polls every %s, batch %d)", cfg.Worker.PollInterval(), cfg.Worker.BatchSize)

	retention := time.Duration(cfg.Worker.TrackingRetentionDays) * 24 * time.Hour
	dataCleanup := worker.NewDataCleanupWorker(a.DB, retention)
	go dataCleanup.Start(ctx)
	log.Printf("Data Cleanup Worker started (runs every %s, keeps %d days of tracking events)",
		worker.DefaultCleanupInterval, cfg.Worker.TrackingRetentionDays)

	var consumer *tracking.Consumer
	if cfg.Tracking.SQSQueueURL != "" {
		sqsClient, err := tracking.NewSQSClient(ctx, cfg.Tracking.SQSRegion)
		if err != nil {
			log.Fatalf("Failed to initialize SQS: %v", err)
		}
		consumer = tracking.NewConsumer(sqsClient, cfg.Tracking.SQSQueueURL, a.Tracking)
		consumer.Start(ctx)
	}

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s := dispatcher.Stats()
				log.Printf("Worker heartbeat - campaigns sent=%d failed=%d, messages sent=%d failed=%d, events pruned=%d",
					s.CampaignsSent, s.CampaignsFailed, s.MessagesSent, s.MessagesFailed, dataCleanup.Removed())
			}
		}
	}()

	log.Println("Worker running...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down worker...")
	cancel()

	log.Println("Stopping campaign dispatcher...")
	dispatcher.Stop()
	if consumer != nil {
		consumer.Stop()
	}

	log.Println("Worker stopped")
}
