package tracking

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultDedupeTTL bounds how long a first open or click is remembered.
const DefaultDedupeTTL = 30 * 24 * time.Hour

// Deduper reports whether key is seen for the first time. Campaign counters
// count unique opens and clicks; raw events are stored for every hit.
type Deduper interface {
	First(ctx context.Context, key string) (bool, error)
}

func dedupeKey(ev string, p *Payload) string {
	return ev + ":" + p.CampaignID + ":" + p.SubscriberID
}

// RedisDeduper shares first-seen keys between API instances.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = DefaultDedupeTTL
	}
	return &RedisDeduper{client: client, ttl: ttl}
}

func (d *RedisDeduper) First(ctx context.Context, key string) (bool, error) {
	return d.client.SetNX(ctx, "track:first:"+key, 1, d.ttl).Result()
}

// LocalDeduper keeps first-seen keys in process memory.
type LocalDeduper struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

func NewLocalDeduper(ttl time.Duration) *LocalDeduper {
	if ttl <= 0 {
		ttl = DefaultDedupeTTL
	}
	return &LocalDeduper{seen: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

func (d *LocalDeduper) First(_ context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	if exp, ok := d.seen[key]; ok && now.Before(exp) {
		return false, nil
	}
	d.seen[key] = now.Add(d.ttl)
	return true, nil
}
