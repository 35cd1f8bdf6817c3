package app

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/config"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/mailer"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/repository/memory"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/service/subscriber"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/worker"
)

func TestNewInMemory(t *testing.T) {
	cfg := config.Default()
	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.DB)
	assert.Nil(t, a.Redis)
	assert.IsType(t, &memory.TrackingRepo{}, a.Tracking)

	sub, err := a.Subscribers.Subscribe(context.Background(), "co-1", subscriber.SubscribeInput{Email: "a@example.com"})
	require.NoError(t, err)
	assert.Len(t, sub.UnsubscribeToken, 64)
}

func TestNewWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.Redis.URL = "redis://" + mr.Addr()

	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()
	require.NotNil(t, a.Redis)

	ok, err := a.Locks.NewLock("startup-check", 0).Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, mr.Exists("lock:startup-check"))
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Newsletter.SubscriberScope = "planet"
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)

	cfg = config.Default()
	cfg.Notifications.Broker = "postgres"
	_, err = New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewDispatcherUsesConfig(t *testing.T) {
	cfg := config.Default()
	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	sender, err := mailer.NewSender(context.Background(), cfg.Email)
	require.NoError(t, err)

	d := a.NewDispatcher(sender)
	n, err := d.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, worker.Stats{}, d.Stats())
}
