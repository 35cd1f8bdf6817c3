package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/domain"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/pkg/distlock"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/pkg/logger"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/service/campaign"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/service/sending"
)

// =============================================================================
// CAMPAIGN DISPATCHER
// =============================================================================
// Polls for campaigns whose scheduled_at has arrived, takes a per-campaign
// lock so only one process sends a campaign, moves it scheduled -> sending,
// resolves the audience from the campaign segment and delivers one message
// per subscriber. The campaign ends sent, or failed when no message went out.
// Every statusCheckEvery recipients the stored status is re-read; a campaign
// cancelled mid-send stops there. A shutdown mid-send leaves it in sending.

const (
	DefaultPollInterval = 30 * time.Second
	DefaultLockTTL      = 10 * time.Minute
	DefaultBatchSize    = 10

	statusCheckEvery = 50
)

// CampaignService is the slice of the campaign service the dispatcher drives.
type CampaignService interface {
	Get(ctx context.Context, companyID, id string) (*domain.Campaign, error)
	DueScheduled(ctx context.Context, limit int) ([]domain.Campaign, error)
	MarkSending(ctx context.Context, companyID, id string) (*domain.Campaign, error)
	MarkSent(ctx context.Context, companyID, id string) (*domain.Campaign, error)
	MarkFailed(ctx context.Context, companyID, id string) (*domain.Campaign, error)
	RecordEvent(ctx context.Context, companyID, id string, ev domain.AnalyticsEvent, n int) (domain.CampaignAnalytics, error)
}

// AudienceSource resolves campaign recipients.
type AudienceSource interface {
	Audience(ctx context.Context, companyID string, seg domain.Segment) ([]domain.Subscriber, error)
	MarkEmailed(ctx context.Context, id string) error
}

// Options tunes a Dispatcher. Zero values take the package defaults.
type Options struct {
	FromName     string
	FromEmail    string
	ReplyTo      string
	PollInterval time.Duration
	LockTTL      time.Duration
	BatchSize    int
}

// Dispatcher sends scheduled campaigns.
type Dispatcher struct {
	campaigns CampaignService
	audience  AudienceSource
	sender    sending.Sender
	render    sending.Personalizer
	tracking  sending.TrackingInjector
	locks     distlock.Locker
	opts       Options
	workerID   string
	checkEvery int

	// Stats
	campaignsSent  int64
	campaignsFail  int64
	messagesSent   int64
	messagesFailed int64

	// Control
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.RWMutex
}

// NewDispatcher wires a dispatcher. A nil locker falls back to process-local locks.
func NewDispatcher(campaigns CampaignService, audience AudienceSource, sender sending.Sender,
	render sending.Personalizer, tracking sending.TrackingInjector, locks distlock.Locker, opts Options) *Dispatcher {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = DefaultLockTTL
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if locks == nil {
		locks = distlock.NewLocalLocker()
	}
	hostname, _ := os.Hostname()
	return &Dispatcher{
		campaigns:  campaigns,
		audience:   audience,
		sender:     sender,
		render:     render,
		tracking:   tracking,
		locks:      locks,
		opts:       opts,
		workerID:   fmt.Sprintf("dispatcher-%s-%d", hostname, time.Now().UnixNano()%10000),
		checkEvery: statusCheckEvery,
	}
}

// Start begins the polling loop.
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("dispatcher already running")
	}
	d.running = true
	d.ctx, d.cancel = context.WithCancel(context.Background())
	d.mu.Unlock()

	log.Printf("[Dispatcher] %s starting with poll interval %v via %s", d.workerID, d.opts.PollInterval, d.sender.Name())

	d.wg.Add(1)
	go d.loop()
	return nil
}

// Stop cancels the loop and waits for the in-flight campaign to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.mu.Unlock()

	log.Printf("[Dispatcher] Stopping...")
	d.cancel()
	d.wg.Wait()
	s := d.Stats()
	log.Printf("[Dispatcher] Stopped. Campaigns sent: %d failed: %d, messages sent: %d failed: %d",
		s.CampaignsSent, s.CampaignsFailed, s.MessagesSent, s.MessagesFailed)
}

func (d *Dispatcher) loop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.RunOnce(d.ctx); err != nil && d.ctx.Err() == nil {
				log.Printf("[Dispatcher] poll failed: %v", err)
			}
		}
	}
}

// Stats is a snapshot of dispatcher counters.
type Stats struct {
	CampaignsSent   int64 `json:"campaignsSent"`
	CampaignsFailed int64 `json:"campaignsFailed"`
	MessagesSent    int64 `json:"messagesSent"`
	MessagesFailed  int64 `json:"messagesFailed"`
}

// Stats returns the current counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		CampaignsSent:   atomic.LoadInt64(&d.campaignsSent),
		CampaignsFailed: atomic.LoadInt64(&d.campaignsFail),
		MessagesSent:    atomic.LoadInt64(&d.messagesSent),
		MessagesFailed:  atomic.LoadInt64(&d.messagesFailed),
	}
}

// RunOnce processes one batch of due campaigns and returns how many it
// dispatched. Campaigns locked by another process are skipped.
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	due, err := d.campaigns.DueScheduled(ctx, d.opts.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("due campaigns: %w", err)
	}
	handled := 0
	for i := range due {
		if ctx.Err() != nil {
			return handled, ctx.Err()
		}
		ok, err := d.dispatch(ctx, &due[i])
		if err != nil {
			log.Printf("[Dispatcher] campaign %s: %v", due[i].ID, err)
			continue
		}
		if ok {
			handled++
		}
	}
	return handled, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, c *domain.Campaign) (bool, error) {
	lock := d.locks.NewLock("newsletter-campaign:"+c.ID, d.opts.LockTTL)
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	if !acquired {
		log.Printf("[Dispatcher] campaign %s locked by another worker, skipping", c.ID)
		return false, nil
	}
	defer lock.Release(context.WithoutCancel(ctx))

	c, err = d.campaigns.MarkSending(ctx, c.CompanyID, c.ID)
	if errors.Is(err, campaign.ErrStatusConflict) || errors.Is(err, campaign.ErrInvalidTransition) {
		// already picked up, cancelled or rescheduled
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("mark sending: %w", err)
	}

	subs, err := d.audience.Audience(ctx, c.CompanyID, c.Segment)
	if err != nil {
		d.finish(ctx, c, domain.CampaignFailed)
		return true, fmt.Errorf("resolve audience: %w", err)
	}
	if len(subs) > 0 {
		if _, err := d.campaigns.RecordEvent(ctx, c.CompanyID, c.ID, domain.EventRecipient, len(subs)); err != nil {
			log.Printf("[Dispatcher] campaign %s: record recipients: %v", c.ID, err)
		}
	}
	log.Printf("[Dispatcher] campaign %s (%s): sending to %d subscribers", c.ID, c.Name, len(subs))

	sent, failed := 0, 0
	interrupted, cancelled := false, false
	for i := range subs {
		if ctx.Err() != nil {
			interrupted = true
			break
		}
		if i > 0 && i%d.checkEvery == 0 && d.isCancelled(ctx, c) {
			cancelled = true
			break
		}
		if err := d.deliver(ctx, c, &subs[i]); err != nil {
			if ctx.Err() != nil {
				interrupted = true
				break
			}
			failed++
			log.Printf("[Dispatcher] campaign %s: send to %s failed: %v", c.ID, logger.RedactEmail(subs[i].Email), err)
			continue
		}
		sent++
	}
	atomic.AddInt64(&d.messagesSent, int64(sent))
	atomic.AddInt64(&d.messagesFailed, int64(failed))

	// counts survive shutdown mid-campaign
	final := context.WithoutCancel(ctx)
	if sent > 0 {
		if _, err := d.campaigns.RecordEvent(final, c.CompanyID, c.ID, domain.EventSent, sent); err != nil {
			log.Printf("[Dispatcher] campaign %s: record sent: %v", c.ID, err)
		}
	}
	if failed > 0 {
		if _, err := d.campaigns.RecordEvent(final, c.CompanyID, c.ID, domain.EventBounced, failed); err != nil {
			log.Printf("[Dispatcher] campaign %s: record bounced: %v", c.ID, err)
		}
	}

	switch {
	case cancelled:
		log.Printf("[Dispatcher] campaign %s cancelled after %d of %d recipients", c.ID, sent+failed, len(subs))
		return true, nil
	case interrupted:
		log.Printf("[Dispatcher] campaign %s interrupted after %d of %d recipients, left in %s",
			c.ID, sent+failed, len(subs), domain.CampaignSending)
		return true, nil
	}

	if sent == 0 && len(subs) > 0 {
		d.finish(final, c, domain.CampaignFailed)
	} else {
		d.finish(final, c, domain.CampaignSent)
	}
	log.Printf("[Dispatcher] campaign %s done: %d sent, %d failed", c.ID, sent, failed)
	return true, nil
}

// isCancelled re-reads the campaign. A failed read keeps sending.
func (d *Dispatcher) isCancelled(ctx context.Context, c *domain.Campaign) bool {
	cur, err := d.campaigns.Get(ctx, c.CompanyID, c.ID)
	if err != nil {
		log.Printf("[Dispatcher] campaign %s: status check: %v", c.ID, err)
		return false
	}
	return cur.Status == domain.CampaignCancelled
}

// deliver sends one message. A panic while rendering tenant content counts
// as a failed send for that subscriber.
func (d *Dispatcher) deliver(ctx context.Context, c *domain.Campaign, sub *domain.Subscriber) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render panic: %v", r)
		}
	}()

	unsubscribeURL := d.tracking.UnsubscribeURL(c.CompanyID, c.ID, sub.UnsubscribeToken)
	subject, html, err := d.render.Personalize(c, sub, unsubscribeURL)
	if err != nil {
		return fmt.Errorf("personalize: %w", err)
	}
	msg := &domain.EmailMessage{
		CampaignID:   c.ID,
		SubscriberID: sub.ID,
		Email:        sub.Email,
		FromName:     d.opts.FromName,
		FromEmail:    d.opts.FromEmail,
		ReplyTo:      d.opts.ReplyTo,
		Subject:      subject,
		HTMLContent:  d.tracking.InjectTracking(html, c.CompanyID, c.ID, sub.ID),
		TextContent:  c.TextContent,
		Headers:      d.tracking.Headers(unsubscribeURL),
	}
	if v := c.ABTest.VariantFor(sub.Email); v != nil {
		msg.Variant = v.Name
	}
	if _, err := d.sender.Send(ctx, msg); err != nil {
		return err
	}
	if err := d.audience.MarkEmailed(ctx, sub.ID); err != nil {
		log.Printf("[Dispatcher] subscriber %s: mark emailed: %v", sub.ID, err)
	}
	return nil
}

func (d *Dispatcher) finish(ctx context.Context, c *domain.Campaign, status domain.CampaignStatus) {
	var err error
	if status == domain.CampaignSent {
		_, err = d.campaigns.MarkSent(ctx, c.CompanyID, c.ID)
		if err == nil {
			atomic.AddInt64(&d.campaignsSent, 1)
		}
	} else {
		_, err = d.campaigns.MarkFailed(ctx, c.CompanyID, c.ID)
		if err == nil {
			atomic.AddInt64(&d.campaignsFail, 1)
		}
	}
	if errors.Is(err, campaign.ErrStatusConflict) || errors.Is(err, campaign.ErrInvalidTransition) {
		log.Printf("[Dispatcher] campaign %s changed status during send, not marking %s", c.ID, status)
		return
	}
	if err != nil {
		log.Printf("[Dispatcher] campaign %s: mark %s: %v", c.ID, status, err)
	}
}
