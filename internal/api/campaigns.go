package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/domain"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/pkg/httputil"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/pkg/pagination"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/service/campaign"
)

// ListCampaigns returns the company's campaigns.
//
//	GET /api/v1/campaigns?page=&limit=&status=&search=&createdBy=
func (h *Handlers) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	t := TenantFromContext(r.Context())
	p := h.page(r)
	q := r.URL.Query()
	items, total, err := h.Campaigns.List(r.Context(), t.CompanyID, campaign.ListFilter{
		Status:    q.Get("status"),
		Search:    q.Get("search"),
		CreatedBy: q.Get("createdBy"),
		Limit:     p.Limit,
		Offset:    p.Skip,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.Page(w, "Campaigns retrieved successfully", pagination.NewResult(items, total, p.Page, p.Limit))
}

// CreateCampaign creates a draft campaign.
//
//	POST /api/v1/campaigns
func (h *Handlers) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var in campaign.CreateInput
	if !httputil.Decode(w, r, &in) {
		return
	}
	t := TenantFromContext(r.Context())
	c, err := h.Campaigns.Create(r.Context(), t.CompanyID, t.UserID, in)
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.Created(w, "Campaign created successfully", c)
}

// GetCampaign returns one campaign.
//
//	GET /api/v1/campaigns/{id}
func (h *Handlers) GetCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := h.Campaigns.Get(r.Context(), TenantFromContext(r.Context()).CompanyID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.OK(w, "Campaign retrieved successfully", c)
}

type campaignUpdateRequest struct {
	Name        *string                   `json:"name"`
	Subject     *string                   `json:"subject"`
	PreviewText *string                   `json:"previewText"`
	HTMLContent *string                   `json:"htmlContent"`
	TextContent *string                   `json:"textContent"`
	TemplateID  *string                   `json:"templateId"`
	ScheduledAt *time.Time                `json:"scheduledAt"`
	Segment     *domain.Segment           `json:"segment"`
	ABTest      *domain.ABTest            `json:"abTest"`
	Analytics   *domain.CampaignAnalytics `json:"analytics"`
}

func (u campaignUpdateRequest) fields() campaign.UpdateFields {
	return campaign.UpdateFields{
		Name:        u.Name,
		Subject:     u.Subject,
		PreviewText: u.PreviewText,
		HTMLContent: u.HTMLContent,
		TextContent: u.TextContent,
		TemplateID:  u.TemplateID,
		ScheduledAt: u.ScheduledAt,
		Segment:     u.Segment,
		ABTest:      u.ABTest,
		Analytics:   u.Analytics,
	}
}

// UpdateCampaign edits a draft or scheduled campaign. An analytics block in
// the body replaces the counts and re-derives the rates.
//
//	PUT /api/v1/campaigns/{id}
func (h *Handlers) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	var req campaignUpdateRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	c, err := h.Campaigns.Update(r.Context(), TenantFromContext(r.Context()).CompanyID, chi.URLParam(r, "id"), req.fields())
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.OK(w, "Campaign updated successfully", c)
}

// UpdateCampaignAnalytics replaces the analytics counts of a campaign.
//
//	PUT /api/v1/campaigns/{id}/analytics
func (h *Handlers) UpdateCampaignAnalytics(w http.ResponseWriter, r *http.Request) {
	var a domain.CampaignAnalytics
	if !httputil.Decode(w, r, &a) {
		return
	}
	c, err := h.Campaigns.Update(r.Context(), TenantFromContext(r.Context()).CompanyID, chi.URLParam(r, "id"),
		campaign.UpdateFields{Analytics: &a})
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.OK(w, "Campaign analytics updated successfully", c.Analytics)
}

// DeleteCampaign removes a draft or cancelled campaign.
//
//	DELETE /api/v1/campaigns/{id}
func (h *Handlers) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	if err := h.Campaigns.Delete(r.Context(), TenantFromContext(r.Context()).CompanyID, chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	httputil.OK(w, "Campaign deleted successfully", nil)
}

// ScheduleCampaign schedules a draft for a future send.
//
//	POST /api/v1/campaigns/{id}/schedule {"scheduledAt": "..."}
func (h *Handlers) ScheduleCampaign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScheduledAt *time.Time `json:"scheduledAt"`
	}
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.ScheduledAt == nil {
		httputil.BadRequest(w, "scheduledAt is required")
		return
	}
	c, err := h.Campaigns.Schedule(r.Context(), TenantFromContext(r.Context()).CompanyID, chi.URLParam(r, "id"), *req.ScheduledAt)
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.OK(w, "Campaign scheduled successfully", c)
}

// CancelCampaign cancels a campaign that has not finished.
//
//	POST /api/v1/campaigns/{id}/cancel
func (h *Handlers) CancelCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := h.Campaigns.Cancel(r.Context(), TenantFromContext(r.Context()).CompanyID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.OK(w, "Campaign cancelled successfully", c)
}

// TransitionCampaign moves a campaign to any state its current state allows.
//
//	POST /api/v1/campaigns/{id}/status {"status": "sending"}
func (h *Handlers) TransitionCampaign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status domain.CampaignStatus `json:"status"`
	}
	if !httputil.Decode(w, r, &req) {
		return
	}
	if !req.Status.Valid() {
		httputil.BadRequest(w, "Invalid campaign status", string(req.Status))
		return
	}
	c, err := h.Campaigns.Transition(r.Context(), TenantFromContext(r.Context()).CompanyID, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.OK(w, "Campaign status updated successfully", c)
}

// CampaignTrackingEvents returns raw tracking event counts for a campaign.
//
//	GET /api/v1/campaigns/{id}/tracking
func (h *Handlers) CampaignTrackingEvents(w http.ResponseWriter, r *http.Request) {
	t := TenantFromContext(r.Context())
	id := chi.URLParam(r, "id")
	if _, err := h.Campaigns.Get(r.Context(), t.CompanyID, id); err != nil {
		respondError(w, err)
		return
	}
	counts, err := h.TrackingEvents.CountEvents(r.Context(), t.CompanyID, id)
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.OK(w, "Tracking events retrieved successfully", counts)
}
