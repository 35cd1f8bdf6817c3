package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/domain"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/notification"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/pkg/pagination"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/service/campaign"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/service/subscriber"
	tmpl "github.com/theniitettey/taurean-inventory-saas-sub007/internal/service/template"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/tracking"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/upload"
)

// EventCounter aggregates raw tracking events of a campaign.
type EventCounter interface {
	CountEvents(ctx context.Context, companyID, campaignID string) (map[domain.AnalyticsEvent]int, error)
}

// Handlers contains the HTTP handlers and their collaborators. Optional
// collaborators left nil disable their routes.
type Handlers struct {
	Campaigns   *campaign.Service
	Subscribers *subscriber.Service
	Templates   *tmpl.Service

	Tracking       *tracking.Handler
	TrackingEvents EventCounter

	Uploads        upload.Store
	UploadMaxBytes int64
	// UploadDir is served under /uploads when files are stored locally.
	UploadDir string

	// Hub streams events to SSE clients; Notifier publishes them across
	// instances and usually is the notification manager.
	Hub      *notification.Hub
	Notifier notification.Publisher
	Health   *HealthChecker

	Pagination     pagination.Options
	AllowedOrigins []string
}

func (h *Handlers) page(r *http.Request) pagination.Params {
	return pagination.FromRequest(r, h.Pagination)
}

// optionalBool parses "true"/"false" query values; anything else is unset.
func optionalBool(v string) *bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}
