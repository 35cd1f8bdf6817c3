// Package app builds the collaborators shared by the server and worker
// binaries from the loaded configuration.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/config"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/domain"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/mailer"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/notification"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/pkg/distlock"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/repository/memory"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/repository/postgres"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/service/campaign"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/service/sending"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/service/subscriber"
	tmpl "github.com/theniitettey/taurean-inventory-saas-sub007/internal/service/template"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/tracking"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/worker"
)

// TrackingStore persists and aggregates raw tracking events.
type TrackingStore interface {
	InsertTrackingEvent(ctx context.Context, ev *domain.TrackingEvent) error
	CountEvents(ctx context.Context, companyID, campaignID string) (map[domain.AnalyticsEvent]int, error)
}

// App holds the process-wide dependencies. DB and Redis are nil when not
// configured; repositories then live in memory and locks are process-local.
type App struct {
	Config *config.Config
	DB     *sql.DB
	Redis  *redis.Client

	Notifications *notification.Manager
	Locks         distlock.Locker

	Campaigns   *campaign.Service
	Subscribers *subscriber.Service
	Templates   *tmpl.Service
	Tracking    TrackingStore

	Renderer *mailer.Engine
	Signer   *tracking.Signer
}

// New connects to the configured backends and wires the services.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg, Renderer: mailer.NewEngine()}

	if cfg.Database.URL != "" {
		db, err := openDB(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		a.DB = db
	} else {
		log.Println("[app] DATABASE_URL not set, using in-memory repositories")
	}

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			// bare host:port
			opts = &redis.Options{Addr: cfg.Redis.URL}
		}
		client := redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err = client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Printf("[app] Redis unavailable (%v), falling back to database locks", err)
			client.Close()
		} else {
			a.Redis = client
			log.Println("[app] Connected to Redis")
		}
	}
	a.Locks = distlock.New(a.Redis, a.DB)

	hub := notification.NewHub()
	broker, err := newBroker(cfg, a.DB, hub)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Notifications = notification.NewManager(hub, broker)

	var (
		campaignRepo campaign.Repository
		subRepo      subscriber.Repository
		unsubRepo    subscriber.UnsubscriptionRepository
		templateRepo tmpl.Repository
	)
	if a.DB != nil {
		campaignRepo = postgres.NewCampaignRepo(a.DB)
		subRepo = postgres.NewSubscriberRepo(a.DB)
		unsubRepo = postgres.NewUnsubscriptionRepo(a.DB)
		templateRepo = postgres.NewTemplateRepo(a.DB)
		a.Tracking = postgres.NewTrackingRepo(a.DB)
	} else {
		campaignRepo = memory.NewCampaignRepo()
		subRepo = memory.NewSubscriberRepo()
		unsubRepo = memory.NewUnsubscriptionRepo()
		templateRepo = memory.NewTemplateRepo()
		a.Tracking = memory.NewTrackingRepo()
	}

	scope := domain.SubscriberScope(cfg.Newsletter.SubscriberScope)
	if scope != domain.ScopeGlobal && scope != domain.ScopeCompany {
		a.Close()
		return nil, fmt.Errorf("unknown subscriber scope %q", cfg.Newsletter.SubscriberScope)
	}

	a.Campaigns = campaign.NewService(campaignRepo, a.Notifications)
	a.Subscribers = subscriber.NewService(subRepo, unsubRepo,
		subscriber.WithScope(scope),
		subscriber.WithCampaignRecorder(a.Campaigns),
		subscriber.WithPublisher(a.Notifications),
	)
	a.Templates = tmpl.NewService(templateRepo, a.Renderer)

	secret := cfg.Tracking.Secret
	if secret == "" {
		log.Println("[app] WARNING: tracking.secret not set, tracking links use a development key")
		secret = "newsletter-dev-tracking-key"
	}
	a.Signer = tracking.NewSigner(secret, cfg.Tracking.BaseURL)
	return a, nil
}

func openDB(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	log.Println("[app] Connected to database")
	return db, nil
}

func newBroker(cfg *config.Config, db *sql.DB, hub *notification.Hub) (notification.Broker, error) {
	switch cfg.Notifications.Broker {
	case "", "local":
		return notification.NewLocalBroker(hub), nil
	case "postgres":
		if db == nil {
			return nil, fmt.Errorf("postgres notification broker requires a database")
		}
		return notification.NewPGBroker(db, cfg.Database.URL, hub), nil
	case "amqp":
		if cfg.Notifications.AMQPURL == "" {
			return nil, fmt.Errorf("amqp notification broker requires notifications.amqp_url")
		}
		return notification.NewAMQPBroker(notification.AMQPOptions{
			URL:           cfg.Notifications.AMQPURL,
			Exchange:      cfg.Notifications.AMQPExchange,
			RetryAttempts: cfg.Notifications.RetryAttempts,
		}, hub), nil
	default:
		return nil, fmt.Errorf("unknown notification broker %q", cfg.Notifications.Broker)
	}
}

// NewDispatcher builds the scheduled-campaign dispatcher on top of the
// app's services, delivering through sender.
func (a *App) NewDispatcher(sender sending.Sender) *worker.Dispatcher {
	cfg := a.Config
	return worker.NewDispatcher(a.Campaigns, a.Subscribers, sender, a.Renderer, a.Signer, a.Locks,
		worker.Options{
			FromName:     cfg.Email.FromName,
			FromEmail:    cfg.Email.FromEmail,
			ReplyTo:      cfg.Email.ReplyTo,
			PollInterval: cfg.Worker.PollInterval(),
			LockTTL:      cfg.Worker.LockTTL(),
			BatchSize:    cfg.Worker.BatchSize,
		})
}

// Close releases connections.
func (a *App) Close() {
	if a.Notifications != nil {
		if err := a.Notifications.Disconnect(); err != nil {
			log.Printf("[app] notification disconnect: %v", err)
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
