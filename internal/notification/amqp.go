package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// AMQPOptions configures the RabbitMQ broker.
type AMQPOptions struct {
	URL           string
	Exchange      string
	RetryAttempts int
	Delay         time.Duration
}

const maxDialDelay = 60 * time.Second

// AMQPBroker publishes events to a topic exchange. Each instance consumes
// through its own exclusive queue bound to every newsletter routing key.
type AMQPBroker struct {
	opts AMQPOptions
	hub  *Hub

	mu   sync.Mutex
	conn *amqp091.Connection
	ch   *amqp091.Channel
}

// NewAMQPBroker creates a RabbitMQ backed broker.
func NewAMQPBroker(opts AMQPOptions, hub *Hub) *AMQPBroker {
	if opts.Exchange == "" {
		opts.Exchange = "newsletter.events"
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 5
	}
	if opts.Delay <= 0 {
		opts.Delay = time.Second
	}
	return &AMQPBroker{opts: opts, hub: hub}
}

func (b *AMQPBroker) Name() string { return "amqp" }

// RoutingKey returns the routing key an event is published under.
func RoutingKey(ev Event) string { return "newsletter." + ev.Type }

// dialWithRetry connects with exponential backoff, giving up when ctx ends.
func dialWithRetry(ctx context.Context, opts AMQPOptions) (*amqp091.Connection, error) {
	var lastErr error
	for i := 1; i <= opts.RetryAttempts; i++ {
		conn, err := amqp091.Dial(opts.URL)
		if err == nil {
			if i > 1 {
				log.Printf("[notification.AMQPBroker] connected after %d attempts", i)
			}
			return conn, nil
		}
		lastErr = err

		sleep := opts.Delay << (i - 1)
		if sleep > maxDialDelay {
			sleep = maxDialDelay
		}
		log.Printf("[notification.AMQPBroker] dial attempt %d failed, retrying in %s: %v", i, sleep, err)

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, errors.New("dial cancelled: " + ctx.Err().Error())
		case <-timer.C:
		}
	}
	return nil, fmt.Errorf("connect to RabbitMQ after %d attempts: %w", opts.RetryAttempts, lastErr)
}

// Start dials RabbitMQ, declares the exchange and starts consuming.
func (b *AMQPBroker) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != nil {
		return nil
	}

	conn, err := dialWithRetry(ctx, b.opts)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(b.opts.Exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		conn.Close()
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "newsletter.#", b.opts.Exchange, false, nil); err != nil {
		conn.Close()
		return fmt.Errorf("bind queue: %w", err)
	}
	msgs, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		conn.Close()
		return fmt.Errorf("consume: %w", err)
	}

	b.conn, b.ch = conn, ch
	go b.consume(msgs)
	log.Printf("[notification.AMQPBroker] Consuming %s from exchange %s", q.Name, b.opts.Exchange)
	return nil
}

func (b *AMQPBroker) consume(msgs <-chan amqp091.Delivery) {
	for d := range msgs {
		var ev Event
		if err := json.Unmarshal(d.Body, &ev); err != nil {
			log.Printf("[notification.AMQPBroker] bad payload %s: %v", d.MessageId, err)
			continue
		}
		b.hub.Deliver(ev)
	}
}

// Publish sends the event to the exchange.
func (b *AMQPBroker) Publish(ctx context.Context, ev Event) error {
	b.mu.Lock()
	ch := b.ch
	b.mu.Unlock()
	if ch == nil {
		return ErrNotConnected
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return ch.PublishWithContext(ctx, b.opts.Exchange, RoutingKey(ev), false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    ev.ID,
		Timestamp:    ev.CreatedAt,
		Body:         body,
	})
}

// Close shuts the channel and connection.
func (b *AMQPBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return nil
	}
	b.ch.Close()
	err := b.conn.Close()
	b.conn, b.ch = nil, nil
	return err
}
