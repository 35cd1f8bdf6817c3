package notification

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/lib/pq"
)

// Broker carries events between server instances and feeds them to the
// local Hub.
type Broker interface {
	Publisher
	// Start connects the broker. It must be called before Publish.
	Start(ctx context.Context) error
	// Close releases the connection.
	Close() error
	Name() string
}

// LocalBroker delivers straight to the hub. Used for single-instance
// deployments and tests.
type LocalBroker struct {
	hub *Hub
}

// NewLocalBroker creates a broker that never leaves the process.
func NewLocalBroker(hub *Hub) *LocalBroker { return &LocalBroker{hub: hub} }

func (b *LocalBroker) Name() string { return "local" }

func (b *LocalBroker) Start(context.Context) error { return nil }

func (b *LocalBroker) Close() error { return nil }

func (b *LocalBroker) Publish(ctx context.Context, ev Event) error {
	return b.hub.Publish(ctx, ev)
}

// PGChannel is the LISTEN/NOTIFY channel used by PGBroker.
const PGChannel = "newsletter_events"

// PGBroker publishes with pg_notify and listens with a pq.Listener.
type PGBroker struct {
	db      *sql.DB
	connStr string
	hub     *Hub

	mu       sync.Mutex
	listener *pq.Listener
	done     chan struct{}
}

// NewPGBroker creates a Postgres backed broker.
func NewPGBroker(db *sql.DB, connStr string, hub *Hub) *PGBroker {
	return &PGBroker{db: db, connStr: connStr, hub: hub}
}

func (b *PGBroker) Name() string { return "postgres" }

// Publish sends the event through pg_notify. Every instance, this one
// included, receives it through its listener.
func (b *PGBroker) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := b.db.ExecContext(ctx, `SELECT pg_notify($1, $2)`, PGChannel, string(payload)); err != nil {
		return fmt.Errorf("pg_notify: %w", err)
	}
	return nil
}

// Start opens the listener and forwards notifications to the hub.
func (b *PGBroker) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listener != nil {
		return nil
	}

	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Printf("[notification.PGBroker] listener error: %v", err)
		}
	}
	listener := pq.NewListener(b.connStr, 10*time.Second, time.Minute, reportProblem)
	if err := listener.Listen(PGChannel); err != nil {
		listener.Close()
		return fmt.Errorf("listen %s: %w", PGChannel, err)
	}
	log.Printf("[notification.PGBroker] Listening on pg_notify channel '%s'", PGChannel)

	b.listener = listener
	b.done = make(chan struct{})
	go b.loop(listener, b.done)
	return nil
}

func (b *PGBroker) loop(listener *pq.Listener, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case n, ok := <-listener.Notify:
			if !ok {
				return
			}
			if n == nil {
				// reconnected; notifications sent meanwhile are lost
				continue
			}
			var ev Event
			if err := json.Unmarshal([]byte(n.Extra), &ev); err != nil {
				log.Printf("[notification.PGBroker] bad payload: %v", err)
				continue
			}
			b.hub.Deliver(ev)
		case <-time.After(90 * time.Second):
			go listener.Ping()
		}
	}
}

// Close stops the listener.
func (b *PGBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listener == nil {
		return nil
	}
	close(b.done)
	err := b.listener.Close()
	b.listener = nil
	return err
}
