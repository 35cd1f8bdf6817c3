package tracking

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/domain"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/service/subscriber"
)

type fakeRecorder struct {
	mu     sync.Mutex
	events []domain.AnalyticsEvent
}

func (f *fakeRecorder) RecordEvent(_ context.Context, _, _ string, ev domain.AnalyticsEvent, _ int) (domain.CampaignAnalytics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return domain.CampaignAnalytics{}, nil
}

type fakeUnsubscriber struct {
	got subscriber.UnsubscribeInput
}

func (f *fakeUnsubscriber) Unsubscribe(_ context.Context, in subscriber.UnsubscribeInput) (*subscriber.Result, error) {
	f.got = in
	if in.Token == "missing" {
		return nil, subscriber.ErrNotFound
	}
	return &subscriber.Result{Success: true, Message: "Successfully unsubscribed from newsletter"}, nil
}

type memStore struct{ events []*domain.TrackingEvent }

func (m *memStore) InsertTrackingEvent(_ context.Context, ev *domain.TrackingEvent) error {
	m.events = append(m.events, ev)
	return nil
}

func pathOf(t *testing.T, link string) string {
	t.Helper()
	i := strings.Index(link, "/t/")
	require.NotEqual(t, -1, i, link)
	return link[i+2:]
}

func TestSigner_RoundTrip(t *testing.T) {
	s := NewSigner("secret", "https://t.example.com/")

	link := s.ClickURL("co1", "camp1", "sub1", "https://shop.example.com/a?b=1|2")
	assert.True(t, strings.HasPrefix(link, "https://t.example.com/t/click/"))

	parts := strings.Split(strings.TrimPrefix(link, "https://t.example.com/t/click/"), "/")
	require.Len(t, parts, 2)
	p, err := s.Decode("click", parts[0], parts[1])
	require.NoError(t, err)
	assert.Equal(t, "co1", p.CompanyID)
	assert.Equal(t, "camp1", p.CampaignID)
	assert.Equal(t, "sub1", p.SubscriberID)
	assert.Equal(t, "https://shop.example.com/a?b=1|2", p.URL)

	_, err = s.Decode("click", parts[0], "deadbeef")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = s.Decode("open", parts[0], parts[1])
	assert.ErrorIs(t, err, ErrInvalidLink)

	other := NewSigner("other", "https://t.example.com")
	_, err = other.Decode("click", parts[0], parts[1])
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestSigner_RejectsNonHTTPClickTarget(t *testing.T) {
	s := NewSigner("secret", "https://t.example.com")
	link := s.ClickURL("co1", "camp1", "sub1", "javascript:alert(1)")
	parts := strings.Split(strings.TrimPrefix(link, "https://t.example.com/t/click/"), "/")
	_, err := s.Decode("click", parts[0], parts[1])
	assert.ErrorIs(t, err, ErrInvalidLink)
}

func TestSigner_InjectTracking(t *testing.T) {
	s := NewSigner("secret", "https://t.example.com")
	unsub := s.UnsubscribeURL("co1", "camp1", "tok")
	html := `<html><body><a href="https://shop.example.com">Shop</a><a href="` + unsub + `">Leave</a></body></html>`

	out := s.InjectTracking(html, "co1", "camp1", "sub1")

	assert.Contains(t, out, `<img src="https://t.example.com/t/open/`)
	assert.NotContains(t, out, `href="https://shop.example.com"`)
	assert.Contains(t, out, `href="https://t.example.com/t/click/`)
	assert.Contains(t, out, `href="`+unsub+`"`)
	assert.True(t, strings.HasSuffix(out, "</body></html>"))
}

func TestSigner_Headers(t *testing.T) {
	s := NewSigner("secret", "https://t.example.com")
	h := s.Headers("https://t.example.com/t/unsubscribe/x/y")
	assert.Equal(t, "<https://t.example.com/t/unsubscribe/x/y>", h["List-Unsubscribe"])
	assert.Equal(t, "List-Unsubscribe=One-Click", h["List-Unsubscribe-Post"])
}

func TestHandler(t *testing.T) {
	s := NewSigner("secret", "https://t.example.com")
	rec := &fakeRecorder{}
	unsubs := &fakeUnsubscriber{}
	store := &memStore{}
	h := NewHandler(s, rec, unsubs, store).Routes()

	t.Run("open pixel", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, pathOf(t, s.OpenURL("co1", "camp1", "sub1")), nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "image/gif", w.Header().Get("Content-Type"))
		assert.Equal(t, pixelGIF, w.Body.Bytes())
	})

	t.Run("bad open link still serves pixel", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/open/xxx/yyy", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("click redirects", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, pathOf(t, s.ClickURL("co1", "camp1", "sub1", "https://shop.example.com")), nil))
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "https://shop.example.com", w.Header().Get("Location"))
	})

	t.Run("tampered click", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/click/abc/def", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("one-click unsubscribe", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, pathOf(t, s.UnsubscribeURL("co1", "camp1", "tok123")), nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "tok123", unsubs.got.Token)
		assert.Equal(t, "camp1", unsubs.got.CampaignID)
		assert.Equal(t, domain.ReasonOther, unsubs.got.Reason)
	})

	t.Run("unsubscribe link GET only confirms", func(t *testing.T) {
		unsubs.got = subscriber.UnsubscribeInput{}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, pathOf(t, s.UnsubscribeURL("co1", "camp1", "tok456")), nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
		assert.Contains(t, w.Body.String(), `<form method="post">`)
		assert.Empty(t, unsubs.got.Token)

		w = httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/unsubscribe/abc/def", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown token", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, pathOf(t, s.UnsubscribeURL("co1", "camp1", "missing")), nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	assert.Equal(t, []domain.AnalyticsEvent{domain.EventOpened, domain.EventClicked}, rec.events)
	require.Len(t, store.events, 2)
	assert.Equal(t, "https://shop.example.com", store.events[1].URL)
}

func TestHandler_CountsUniqueOpensAndClicks(t *testing.T) {
	s := NewSigner("secret", "https://t.example.com")
	rec := &fakeRecorder{}
	store := &memStore{}
	h := NewHandler(s, rec, &fakeUnsubscriber{}, store).Routes()

	hit := func(link string) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, pathOf(t, link), nil))
	}
	for i := 0; i < 3; i++ {
		hit(s.OpenURL("co1", "camp1", "sub1"))
		hit(s.ClickURL("co1", "camp1", "sub1", "https://shop.example.com"))
	}
	hit(s.OpenURL("co1", "camp1", "sub2"))

	assert.Equal(t, []domain.AnalyticsEvent{domain.EventOpened, domain.EventClicked, domain.EventOpened}, rec.events)
	assert.Len(t, store.events, 7)
}

func TestRedisDeduper(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	d := NewRedisDeduper(client, time.Hour)
	ctx := context.Background()

	first, err := d.First(ctx, "open:camp1:sub1")
	require.NoError(t, err)
	assert.True(t, first)
	first, err = d.First(ctx, "open:camp1:sub1")
	require.NoError(t, err)
	assert.False(t, first)

	mr.FastForward(2 * time.Hour)
	first, err = d.First(ctx, "open:camp1:sub1")
	require.NoError(t, err)
	assert.True(t, first)
}

func TestLocalDeduperExpires(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	d := NewLocalDeduper(time.Minute)
	d.now = func() time.Time { return now }
	ctx := context.Background()

	first, _ := d.First(ctx, "k")
	assert.True(t, first)
	first, _ = d.First(ctx, "k")
	assert.False(t, first)
	now = now.Add(2 * time.Minute)
	first, _ = d.First(ctx, "k")
	assert.True(t, first)
}
