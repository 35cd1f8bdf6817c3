package api

import (
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/notification"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/pkg/httputil"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/pkg/pagination"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/upload"
)

const apiPrefix = "/api/v1"

// SetupRoutes configures all routes.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	origins := h.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", HeaderCompanyID, HeaderUserID, HeaderRole},
		ExposedHeaders: []string{"Link"},
		MaxAge:         300,
	}))

	if h.Health != nil {
		r.Get("/health", h.Health.HandleHealth)
		r.Get("/health/live", h.Health.HandleLiveness)
		r.Get("/health/ready", h.Health.HandleReadiness)
	}
	if h.Tracking != nil {
		r.Mount("/t", h.Tracking.Routes())
	}
	if h.UploadDir != "" {
		fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(h.UploadDir)))
		r.Get("/uploads/*", fs.ServeHTTP)
	}

	paged := pagination.Middleware(h.Pagination)

	r.Route(apiPrefix, func(r chi.Router) {
		// Public newsletter endpoints (no tenant required)
		r.Post("/newsletter/subscribe", h.Subscribe)
		r.Post("/newsletter/unsubscribe", h.Unsubscribe)
		r.Post("/newsletter/resubscribe", h.Resubscribe)

		r.Group(func(r chi.Router) {
			r.Use(RequireTenant)

			r.Route("/campaigns", func(r chi.Router) {
				r.With(paged).Get("/", h.ListCampaigns)
				r.Post("/", h.CreateCampaign)
				r.Get("/{id}", h.GetCampaign)
				r.Put("/{id}", h.UpdateCampaign)
				r.Delete("/{id}", h.DeleteCampaign)
				r.Post("/{id}/schedule", h.ScheduleCampaign)
				r.Post("/{id}/cancel", h.CancelCampaign)
				r.Post("/{id}/status", h.TransitionCampaign)
				r.Put("/{id}/analytics", h.UpdateCampaignAnalytics)
				if h.TrackingEvents != nil {
					r.Get("/{id}/tracking", h.CampaignTrackingEvents)
				}
			})

			r.Route("/subscribers", func(r chi.Router) {
				r.With(paged).Get("/", h.ListSubscribers)
				r.Post("/", h.CreateSubscriber)
				r.Get("/{id}", h.GetSubscriber)
				r.Put("/{id}", h.UpdateSubscriber)
				r.Delete("/{id}", h.DeleteSubscriber)
			})
			r.With(paged).Get("/unsubscriptions", h.ListUnsubscriptions)
			r.Get("/unsubscriptions/stats", h.UnsubscriptionStats)

			r.Route("/templates", func(r chi.Router) {
				r.With(paged).Get("/", h.ListTemplates)
				r.Post("/", h.CreateTemplate)
				r.Get("/{id}", h.GetTemplate)
				r.Put("/{id}", h.UpdateTemplate)
				r.Delete("/{id}", h.DeleteTemplate)
				r.Post("/{id}/render", h.RenderTemplate)
			})

			if h.Uploads != nil {
				// the mount path (route pattern minus "/upload") picks the category
				uploadFile := upload.Middleware(h.Uploads, "file", h.UploadMaxBytes)
				for _, mount := range upload.MountPaths() {
					r.With(uploadFile).Post(strings.TrimPrefix(mount, apiPrefix)+"/upload", h.Uploaded)
				}
				r.With(uploadFile).Post("/files/upload", h.Uploaded)
			}

			if h.Hub != nil {
				r.Get("/events", h.Events)
			}
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.NotFound(w, "Route not found")
	})
	return r
}

// Uploaded announces a stored file to the company room and responds with
// its description.
func (h *Handlers) Uploaded(w http.ResponseWriter, r *http.Request) {
	if up, ok := upload.FromContext(r.Context()); ok && h.Notifier != nil {
		t := TenantFromContext(r.Context())
		ev := notification.NewEvent(notification.TypeUploadStored, t.CompanyID, up)
		ev.UserID = t.UserID
		if err := h.Notifier.Publish(r.Context(), ev); err != nil {
			log.Printf("[api] publish upload event: %v", err)
		}
	}
	upload.Respond(w, r)
}

// Events streams realtime notifications for the caller's company and user.
//
//	GET /api/v1/events
func (h *Handlers) Events(w http.ResponseWriter, r *http.Request) {
	t := TenantFromContext(r.Context())
	rooms := []string{notification.CompanyRoom(t.CompanyID)}
	if t.UserID != "" {
		rooms = append(rooms, notification.UserRoom(t.UserID))
	}
	h.Hub.ServeSSE(w, r, rooms...)
}
