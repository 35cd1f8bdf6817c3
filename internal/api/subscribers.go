package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/domain"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/pkg/httputil"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/pkg/pagination"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/service/subscriber"
)

// ListSubscribers returns the company's subscribers.
//
//	GET /api/v1/subscribers?page=&limit=&active=&tag=&frequency=&search=
func (h *Handlers) ListSubscribers(w http.ResponseWriter, r *http.Request) {
	t := TenantFromContext(r.Context())
	p := h.page(r)
	q := r.URL.Query()
	items, total, err := h.Subscribers.List(r.Context(), t.CompanyID, subscriber.ListFilter{
		Active:    optionalBool(q.Get("active")),
		Tag:       q.Get("tag"),
		Frequency: q.Get("frequency"),
		Search:    q.Get("search"),
		Limit:     p.Limit,
		Offset:    p.Skip,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.Page(w, "Subscribers retrieved successfully", pagination.NewResult(items, total, p.Page, p.Limit))
}

// CreateSubscriber adds a subscriber from the dashboard.
//
//	POST /api/v1/subscribers
func (h *Handlers) CreateSubscriber(w http.ResponseWriter, r *http.Request) {
	var in subscriber.SubscribeInput
	if !httputil.Decode(w, r, &in) {
		return
	}
	if in.Source == "" {
		in.Source = domain.SourceManual
	}
	sub, err := h.Subscribers.Subscribe(r.Context(), TenantFromContext(r.Context()).CompanyID, in)
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.Created(w, "Subscriber created successfully", sub)
}

// GetSubscriber returns one subscriber.
//
//	GET /api/v1/subscribers/{id}
func (h *Handlers) GetSubscriber(w http.ResponseWriter, r *http.Request) {
	sub, err := h.Subscribers.Get(r.Context(), TenantFromContext(r.Context()).CompanyID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.OK(w, "Subscriber retrieved successfully", sub)
}

// UpdateSubscriber changes names, tags or preferences.
//
//	PUT /api/v1/subscribers/{id}
func (h *Handlers) UpdateSubscriber(w http.ResponseWriter, r *http.Request) {
	var in subscriber.UpdateInput
	if !httputil.Decode(w, r, &in) {
		return
	}
	sub, err := h.Subscribers.Update(r.Context(), TenantFromContext(r.Context()).CompanyID, chi.URLParam(r, "id"), in)
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.OK(w, "Subscriber updated successfully", sub)
}

// DeleteSubscriber removes a subscriber.
//
//	DELETE /api/v1/subscribers/{id}
func (h *Handlers) DeleteSubscriber(w http.ResponseWriter, r *http.Request) {
	if err := h.Subscribers.Delete(r.Context(), TenantFromContext(r.Context()).CompanyID, chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	httputil.OK(w, "Subscriber deleted successfully", nil)
}

// ListUnsubscriptions returns the unsubscribe audit trail.
//
//	GET /api/v1/unsubscriptions?page=&limit=&reason=&campaignId=&email=
func (h *Handlers) ListUnsubscriptions(w http.ResponseWriter, r *http.Request) {
	t := TenantFromContext(r.Context())
	p := h.page(r)
	q := r.URL.Query()
	items, total, err := h.Subscribers.ListUnsubscriptions(r.Context(), t.CompanyID, subscriber.UnsubscriptionFilter{
		Reason:     q.Get("reason"),
		CampaignID: q.Get("campaignId"),
		Email:      q.Get("email"),
		Limit:      p.Limit,
		Offset:     p.Skip,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.Page(w, "Unsubscriptions retrieved successfully", pagination.NewResult(items, total, p.Page, p.Limit))
}

// UnsubscriptionStats returns unsubscribe counts by reason.
//
//	GET /api/v1/unsubscriptions/stats
func (h *Handlers) UnsubscriptionStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Subscribers.UnsubscriptionStats(r.Context(), TenantFromContext(r.Context()).CompanyID)
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.OK(w, "Unsubscription stats retrieved successfully", st)
}
