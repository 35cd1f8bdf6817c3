package tracking

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/domain"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/service/subscriber"
)

// Recorder counts delivery events against a campaign.
type Recorder interface {
	RecordEvent(ctx context.Context, companyID, id string, ev domain.AnalyticsEvent, n int) (domain.CampaignAnalytics, error)
}

// Unsubscriber handles the one-click unsubscribe.
type Unsubscriber interface {
	Unsubscribe(ctx context.Context, in subscriber.UnsubscribeInput) (*subscriber.Result, error)
}

// EventStore persists raw tracking events.
type EventStore interface {
	InsertTrackingEvent(ctx context.Context, ev *domain.TrackingEvent) error
}

// transparent 1x1 GIF
var pixelGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00,
	0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

// Handler serves the /t routes.
type Handler struct {
	signer   *Signer
	recorder Recorder
	unsubs   Unsubscriber
	store    EventStore
	dedupe   Deduper
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithDeduper replaces the in-process first-open/first-click memory.
func WithDeduper(d Deduper) HandlerOption {
	return func(h *Handler) { h.dedupe = d }
}

// NewHandler creates a tracking handler. store may be nil.
func NewHandler(signer *Signer, recorder Recorder, unsubs Unsubscriber, store EventStore, opts ...HandlerOption) *Handler {
	h := &Handler{signer: signer, recorder: recorder, unsubs: unsubs, store: store}
	for _, opt := range opts {
		opt(h)
	}
	if h.dedupe == nil {
		h.dedupe = NewLocalDeduper(DefaultDedupeTTL)
	}
	return h
}

// Routes returns a router to mount under /t.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/open/{data}/{sig}", h.handleOpen)
	r.Get("/click/{data}/{sig}", h.handleClick)
	r.Get("/unsubscribe/{data}/{sig}", h.confirmUnsubscribe)
	r.Post("/unsubscribe/{data}/{sig}", h.handleUnsubscribe)
	return r
}

func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	p, err := h.signer.Decode("open", chi.URLParam(r, "data"), chi.URLParam(r, "sig"))
	if err == nil {
		h.record(r, p, domain.EventOpened)
	}
	// bad links still get the pixel
	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	w.WriteHeader(http.StatusOK)
	w.Write(pixelGIF)
}

func (h *Handler) handleClick(w http.ResponseWriter, r *http.Request) {
	p, err := h.signer.Decode("click", chi.URLParam(r, "data"), chi.URLParam(r, "sig"))
	if err != nil {
		http.Error(w, "invalid link", http.StatusBadRequest)
		return
	}
	h.record(r, p, domain.EventClicked)
	http.Redirect(w, r, p.URL, http.StatusFound)
}

const confirmPage = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Unsubscribe</title></head>
<body>
<p>Stop receiving this newsletter?</p>
<form method="post"><button type="submit">Unsubscribe</button></form>
</body></html>`

// confirmUnsubscribe answers a GET without changing anything, so link
// scanners that prefetch the URL do not unsubscribe the reader.
func (h *Handler) confirmUnsubscribe(w http.ResponseWriter, r *http.Request) {
	if _, err := h.signer.Decode("unsubscribe", chi.URLParam(r, "data"), chi.URLParam(r, "sig")); err != nil {
		http.Error(w, "invalid link", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(confirmPage))
}

func (h *Handler) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	p, err := h.signer.Decode("unsubscribe", chi.URLParam(r, "data"), chi.URLParam(r, "sig"))
	if err != nil {
		http.Error(w, "invalid link", http.StatusBadRequest)
		return
	}
	res, err := h.unsubs.Unsubscribe(r.Context(), subscriber.UnsubscribeInput{
		Token:      p.Token,
		CompanyID:  p.CompanyID,
		CampaignID: p.CampaignID,
		Reason:     domain.ReasonOther,
		IPAddress:  clientIP(r),
		UserAgent:  r.UserAgent(),
	})
	if errors.Is(err, subscriber.ErrNotFound) {
		http.Error(w, "subscription not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("[tracking] unsubscribe failed: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(res.Message))
}

// record stores every hit and counts the first one per subscriber against
// the campaign.
func (h *Handler) record(r *http.Request, p *Payload, ev domain.AnalyticsEvent) {
	ctx := r.Context()
	first, err := h.dedupe.First(ctx, dedupeKey(string(ev), p))
	if err != nil {
		log.Printf("[tracking] dedupe %s for campaign %s: %v", ev, p.CampaignID, err)
		first = true
	}
	if first {
		if _, err := h.recorder.RecordEvent(ctx, p.CompanyID, p.CampaignID, ev, 1); err != nil {
			log.Printf("[tracking] record %s for campaign %s: %v", ev, p.CampaignID, err)
		}
	}
	if h.store == nil {
		return
	}
	te := &domain.TrackingEvent{
		CompanyID:    p.CompanyID,
		CampaignID:   p.CampaignID,
		SubscriberID: p.SubscriberID,
		Event:        ev,
		URL:          p.URL,
		IPAddress:    clientIP(r),
		UserAgent:    r.UserAgent(),
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.store.InsertTrackingEvent(ctx, te); err != nil {
		log.Printf("[tracking] store %s event: %v", ev, err)
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
