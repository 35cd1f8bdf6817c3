package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/pkg/httputil"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/pkg/pagination"
	tmpl "github.com/theniitettey/taurean-inventory-saas-sub007/internal/service/template"
)

// ListTemplates returns company templates plus global ones unless
// includeGlobal=false.
//
//	GET /api/v1/templates?page=&limit=&category=&search=&includeGlobal=&active=
func (h *Handlers) ListTemplates(w http.ResponseWriter, r *http.Request) {
	t := TenantFromContext(r.Context())
	p := h.page(r)
	q := r.URL.Query()
	f := tmpl.ListFilter{
		Category:      q.Get("category"),
		Search:        q.Get("search"),
		IncludeGlobal: true,
		Limit:         p.Limit,
		Offset:        p.Skip,
	}
	if v := optionalBool(q.Get("includeGlobal")); v != nil {
		f.IncludeGlobal = *v
	}
	if v := optionalBool(q.Get("active")); v != nil {
		f.ActiveOnly = *v
	}
	items, total, err := h.Templates.List(r.Context(), t.CompanyID, f)
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.Page(w, "Templates retrieved successfully", pagination.NewResult(items, total, p.Page, p.Limit))
}

// CreateTemplate stores a template.
//
//	POST /api/v1/templates
func (h *Handlers) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var in tmpl.Input
	if !httputil.Decode(w, r, &in) {
		return
	}
	t, err := h.Templates.Create(r.Context(), TenantFromContext(r.Context()).Actor(), in)
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.Created(w, "Template created successfully", t)
}

// GetTemplate returns a template visible to the caller.
//
//	GET /api/v1/templates/{id}
func (h *Handlers) GetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := h.Templates.Get(r.Context(), TenantFromContext(r.Context()).Actor(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.OK(w, "Template retrieved successfully", t)
}

// UpdateTemplate replaces a template the caller owns.
//
//	PUT /api/v1/templates/{id}
func (h *Handlers) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var in tmpl.Input
	if !httputil.Decode(w, r, &in) {
		return
	}
	t, err := h.Templates.Update(r.Context(), TenantFromContext(r.Context()).Actor(), chi.URLParam(r, "id"), in)
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.OK(w, "Template updated successfully", t)
}

// DeleteTemplate removes a template the caller owns.
//
//	DELETE /api/v1/templates/{id}
func (h *Handlers) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := h.Templates.Delete(r.Context(), TenantFromContext(r.Context()).Actor(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	httputil.OK(w, "Template deleted successfully", nil)
}

// RenderTemplate resolves variables and returns the rendered HTML.
//
//	POST /api/v1/templates/{id}/render {"variables": {...}}
func (h *Handlers) RenderTemplate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Variables map[string]string `json:"variables"`
	}
	if !httputil.Decode(w, r, &req) {
		return
	}
	out, err := h.Templates.Render(r.Context(), TenantFromContext(r.Context()).Actor(), chi.URLParam(r, "id"), req.Variables)
	if err != nil {
		respondError(w, err)
		return
	}
	httputil.OK(w, "Template rendered successfully", out)
}
