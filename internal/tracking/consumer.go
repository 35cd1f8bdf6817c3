package tracking

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/domain"
)

// Consumer drains the tracking queue into an EventStore. Messages are
// deleted once stored; malformed ones are deleted and dropped.
type Consumer struct {
	client   sqsAPI
	queueURL string
	store    EventStore

	waitSeconds int32
	retryDelay  time.Duration

	processed atomic.Int64
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewConsumer creates a consumer that writes into store.
func NewConsumer(client *sqs.Client, queueURL string, store EventStore) *Consumer {
	return newConsumer(client, queueURL, store)
}

func newConsumer(client sqsAPI, queueURL string, store EventStore) *Consumer {
	return &Consumer{
		client:      client,
		queueURL:    queueURL,
		store:       store,
		waitSeconds: 20,
		retryDelay:  5 * time.Second,
	}
}

// Start begins long-polling in the background.
func (c *Consumer) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	log.Printf("[tracking] SQS consumer started (queue=%s)", c.queueURL)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.poll(ctx)
	}()
}

// Stop ends polling and waits for the current batch.
func (c *Consumer) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	log.Printf("[tracking] SQS consumer stopped (processed=%d)", c.processed.Load())
}

// Processed returns the number of events stored so far.
func (c *Consumer) Processed() int64 { return c.processed.Load() }

func (c *Consumer) poll(ctx context.Context) {
	for ctx.Err() == nil {
		if _, err := c.receive(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[tracking] SQS receive error: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.retryDelay):
			}
		}
	}
}

// receive handles one batch and returns how many events were stored.
func (c *Consumer) receive(ctx context.Context) (int, error) {
	out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     c.waitSeconds,
	})
	if err != nil {
		return 0, err
	}

	stored := 0
	for _, msg := range out.Messages {
		var ev domain.TrackingEvent
		if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &ev); err != nil || ev.CampaignID == "" {
			log.Printf("[tracking] dropping malformed SQS message %s", aws.ToString(msg.MessageId))
			c.deleteMessage(ctx, msg.ReceiptHandle)
			continue
		}
		if err := c.store.InsertTrackingEvent(ctx, &ev); err != nil {
			// left on the queue for redelivery
			log.Printf("[tracking] store %s event for campaign %s: %v", ev.Event, ev.CampaignID, err)
			continue
		}
		c.deleteMessage(ctx, msg.ReceiptHandle)
		c.processed.Add(1)
		stored++
	}
	return stored, nil
}

func (c *Consumer) deleteMessage(ctx context.Context, handle *string) {
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: handle,
	})
	if err != nil {
		log.Printf("[tracking] SQS delete error: %v", err)
	}
}
