package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/api"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/app"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/config"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/mailer"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/pkg/pagination"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/tracking"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/upload"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/worker"
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

func main() {
	log.Println("╔════════════════════════════════════════════════════════════╗")
	log.Println("║  Newsletter API Server (cmd/server/main.go)               ║")
	log.Println("║  Campaigns, subscribers, templates and uploads            ║")
	log.Println("╚════════════════════════════════════════════════════════════╝")

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("DATABASE_URL") != "" {
		log.Println("[config] DATABASE_URL env override active")
	}

	host := cfg.Server.GetHost()
	if err := checkPortAvailable(host, cfg.Server.Port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}
	log.Printf("Pre-flight check passed: port %d is available", cfg.Server.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer a.Close()

	if err := a.Notifications.Connect(ctx); err != nil {
		log.Printf("Warning: notification broker unavailable, events stay local: %v", err)
	}

	store, err := upload.New(ctx, cfg.Uploads)
	if err != nil {
		log.Fatalf("Failed to initialize upload storage: %v", err)
	}
	uploadDir := ""
	if _, ok := store.(*upload.LocalStore); ok {
		uploadDir = cfg.Uploads.Dir
	}
	log.Printf("Upload storage: %s", store.Name())

	var events tracking.EventStore = a.Tracking
	if cfg.Tracking.SQSQueueURL != "" {
		sqsClient, err := tracking.NewSQSClient(ctx, cfg.Tracking.SQSRegion)
		if err != nil {
			log.Fatalf("Failed to initialize SQS: %v", err)
		}
		events = tracking.NewPublisher(sqsClient, cfg.Tracking.SQSQueueURL)
		log.Println("Tracking events are queued on SQS")
	}

	var trackingOpts []tracking.HandlerOption
	if a.Redis != nil {
		trackingOpts = append(trackingOpts, tracking.WithDeduper(tracking.NewRedisDeduper(a.Redis, tracking.DefaultDedupeTTL)))
	}

	h := &api.Handlers{
		Campaigns:      a.Campaigns,
		Subscribers:    a.Subscribers,
		Templates:      a.Templates,
		Tracking:       tracking.NewHandler(a.Signer, a.Campaigns, a.Subscribers, events, trackingOpts...),
		TrackingEvents: a.Tracking,
		Uploads:        store,
		UploadMaxBytes: cfg.Uploads.MaxBytes(),
		UploadDir:      uploadDir,
		Hub:            a.Notifications.Hub(),
		Notifier:       a.Notifications,
		Health:         api.NewHealthChecker(a.DB, a.Redis, store, a.Notifications),
		Pagination: pagination.Options{
			MaxLimit:     cfg.Pagination.MaxLimit,
			DefaultLimit: cfg.Pagination.DefaultLimit,
		},
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}

	// In-memory repositories are not visible to a separate worker process,
	// so the dispatcher runs here instead.
	var dispatcher *worker.Dispatcher
	if a.DB == nil {
		sender, err := mailer.NewSender(ctx, cfg.Email)
		if err != nil {
			log.Fatalf("Failed to initialize email sender: %v", err)
		}
		dispatcher = a.NewDispatcher(sender)
		if err := dispatcher.Start(); err != nil {
			log.Fatalf("Failed to start dispatcher: %v", err)
		}
		log.Printf("Embedded campaign dispatcher started (provider=%s)", sender.Name())
	}

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, cfg.Server.Port),
		Handler:           api.SetupRoutes(h),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      0, // SSE streams stay open
		IdleTimeout:       120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	log.Println("All services initialized, server is ready")

	<-done
	log.Println("Shutting down...")

	cancel()
	if dispatcher != nil {
		dispatcher.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
