package api

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/mailer"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/notification"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/pkg/pagination"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/repository/memory"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/service/campaign"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/service/subscriber"
	tmpl "github.com/theniitettey/taurean-inventory-saas-sub007/internal/service/template"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/upload"
)

type envelope struct {
	Success    bool             `json:"success"`
	Message    string           `json:"message"`
	Data       json.RawMessage  `json:"data"`
	Pagination *pagination.Meta `json:"pagination"`
	Errors     []string         `json:"errors"`
}

type testServer struct {
	router    http.Handler
	uploadDir string
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	hub := notification.NewHub()
	campaigns := campaign.NewService(memory.NewCampaignRepo(), hub)
	subs := subscriber.NewService(memory.NewSubscriberRepo(), memory.NewUnsubscriptionRepo(),
		subscriber.WithCampaignRecorder(campaigns), subscriber.WithPublisher(hub))
	dir := t.TempDir()
	h := &Handlers{
		Campaigns:      campaigns,
		Subscribers:    subs,
		Templates:      tmpl.NewService(memory.NewTemplateRepo(), mailer.NewEngine()),
		TrackingEvents: memory.NewTrackingRepo(),
		Uploads:        upload.NewLocalStore(dir, "/uploads"),
		UploadDir:      dir,
		Hub:            hub,
		Notifier:       hub,
		Health:         NewHealthChecker(nil, nil, nil, nil),
		Pagination:     pagination.DefaultOptions(),
	}
	return &testServer{router: SetupRoutes(h), uploadDir: dir}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

var companyA = []string{HeaderCompanyID, "co-a", HeaderUserID, "user-a"}

func (s *testServer) createCampaign(t *testing.T, name string) map[string]any {
	t.Helper()
	rec, env := s.do(t, http.MethodPost, "/api/v1/campaigns", map[string]any{
		"name":        name,
		"subject":     "Weekend offers",
		"htmlContent": "<p>Hello</p>",
	}, companyA...)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var c map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &c))
	return c
}

func TestTenantRequired(t *testing.T) {
	s := setupTestServer(t)
	rec, env := s.do(t, http.MethodGet, "/api/v1/campaigns", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, env.Success)
}

func TestCampaignLifecycle(t *testing.T) {
	s := setupTestServer(t)
	c := s.createCampaign(t, "Spring sale")
	id := c["id"].(string)
	assert.Equal(t, "draft", c["status"])

	rec, env := s.do(t, http.MethodGet, "/api/v1/campaigns/"+id, nil, HeaderCompanyID, "co-b")
	assert.Equal(t, http.StatusNotFound, rec.Code, "other companies cannot see it")
	assert.False(t, env.Success)

	past := time.Now().Add(-time.Hour)
	rec, _ = s.do(t, http.MethodPost, "/api/v1/campaigns/"+id+"/schedule", map[string]any{"scheduledAt": past}, companyA...)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	future := time.Now().Add(24 * time.Hour)
	rec, env = s.do(t, http.MethodPost, "/api/v1/campaigns/"+id+"/schedule", map[string]any{"scheduledAt": future}, companyA...)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Campaign scheduled successfully", env.Message)

	rec, env = s.do(t, http.MethodPost, "/api/v1/campaigns/"+id+"/status", map[string]any{"status": "sent"}, companyA...)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, env.Message, "scheduled")

	rec, _ = s.do(t, http.MethodPost, "/api/v1/campaigns/"+id+"/status", map[string]any{"status": "bogus"}, companyA...)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/campaigns/"+id+"/cancel", nil, companyA...)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodDelete, "/api/v1/campaigns/"+id, nil, companyA...)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCampaignAnalyticsRecompute(t *testing.T) {
	s := setupTestServer(t)
	id := s.createCampaign(t, "Analytics")["id"].(string)

	rec, env := s.do(t, http.MethodPut, "/api/v1/campaigns/"+id+"/analytics", map[string]any{
		"totalSent":   200,
		"totalOpened": 50,
		"openRate":    99,
	}, companyA...)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var a map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &a))
	assert.Equal(t, 25.0, a["openRate"])
	assert.Equal(t, 0.0, a["clickRate"])

	rec, _ = s.do(t, http.MethodPut, "/api/v1/campaigns/"+id+"/analytics", map[string]any{
		"totalSent":   10,
		"totalOpened": -50,
	}, companyA...)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCampaignListRejectsOverflowingPage(t *testing.T) {
	s := setupTestServer(t)
	s.createCampaign(t, "one")

	rec, _ := s.do(t, http.MethodGet, "/api/v1/campaigns?page=92233720368547760&limit=100", nil, companyA...)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCampaignListPagination(t *testing.T) {
	s := setupTestServer(t)
	for _, n := range []string{"one", "two", "three"} {
		s.createCampaign(t, n)
	}

	rec, env := s.do(t, http.MethodGet, "/api/v1/campaigns?page=2&limit=2", nil, companyA...)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, pagination.Meta{Page: 2, Limit: 2, Total: 3, TotalPages: 2, HasNextPage: false, HasPrevPage: true}, *env.Pagination)
	var items []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &items))
	assert.Len(t, items, 1)

	rec, env = s.do(t, http.MethodGet, "/api/v1/campaigns?page=0&limit=500", nil, companyA...)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid pagination parameters", env.Message)
	assert.Equal(t, []string{"Page must be greater than 0", "Limit cannot exceed 100"}, env.Errors)

	rec, env = s.do(t, http.MethodGet, "/api/v1/campaigns?page=abc", nil, companyA...)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"Page must be a valid integer"}, env.Errors)
}

func TestSubscriberCRUD(t *testing.T) {
	s := setupTestServer(t)
	rec, env := s.do(t, http.MethodPost, "/api/v1/subscribers", map[string]any{
		"email": "Kofi@Example.com", "tags": []string{"vip"},
	}, companyA...)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sub map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &sub))
	assert.Equal(t, "kofi@example.com", sub["email"])
	assert.Equal(t, "manual", sub["source"])
	assert.NotContains(t, sub, "unsubscribeToken")

	rec, _ = s.do(t, http.MethodPost, "/api/v1/subscribers", map[string]any{"email": "kofi@example.com"}, companyA...)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/subscribers", map[string]any{"email": "not-an-email"}, companyA...)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = s.do(t, http.MethodGet, "/api/v1/subscribers?tag=vip", nil, companyA...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, env.Pagination.Total)
}

func TestPublicNewsletterFlow(t *testing.T) {
	s := setupTestServer(t)

	rec, _ := s.do(t, http.MethodPost, "/api/v1/newsletter/subscribe", map[string]any{"email": "ama@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "company is required")

	rec, _ = s.do(t, http.MethodPost, "/api/v1/newsletter/subscribe", map[string]any{
		"email": "ama@example.com", "companyId": "co-a",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res subscriber.Result
	rec, _ = s.do(t, http.MethodPost, "/api/v1/newsletter/unsubscribe", map[string]any{
		"email": "ama@example.com", "reason": "too_frequent",
	}, HeaderCompanyID, "co-a")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, subscriber.Result{Success: true, Message: "Successfully unsubscribed from newsletter"}, res)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/newsletter/unsubscribe", map[string]any{
		"email": "ama@example.com",
	}, HeaderCompanyID, "co-a")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.Equal(t, "Email is already unsubscribed", res.Message)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/newsletter/unsubscribe", map[string]any{
		"email": "nobody@example.com",
	}, HeaderCompanyID, "co-a")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.False(t, res.Success)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/newsletter/resubscribe", map[string]any{
		"email": "ama@example.com", "token": strings.Repeat("0", 64),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.False(t, res.Success)

	rec, env := s.do(t, http.MethodGet, "/api/v1/unsubscriptions", nil, companyA...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, env.Pagination.Total)
	assert.NotContains(t, string(env.Data), "resubscribeToken")
}

func TestTemplates(t *testing.T) {
	s := setupTestServer(t)

	rec, _ := s.do(t, http.MethodPost, "/api/v1/templates", map[string]any{
		"name": "Global welcome", "format": "html", "content": "<p>Hi</p>", "isGlobal": true,
	}, companyA...)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env := s.do(t, http.MethodPost, "/api/v1/templates", map[string]any{
		"name": "Welcome", "format": "markdown", "content": "# Hello {{ name }}",
		"variables": []map[string]any{{"name": "name", "type": "text", "required": true}},
	}, companyA...)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &created))
	id := created["id"].(string)

	rec, env = s.do(t, http.MethodPost, "/api/v1/templates/"+id+"/render", map[string]any{"variables": map[string]string{}}, companyA...)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Message, "name")

	rec, env = s.do(t, http.MethodPost, "/api/v1/templates/"+id+"/render", map[string]any{
		"variables": map[string]string{"name": "Esi"},
	}, companyA...)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out tmpl.Rendered
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Contains(t, out.HTML, "<h1>Hello Esi</h1>")

	rec, _ = s.do(t, http.MethodGet, "/api/v1/templates/"+id, nil, HeaderCompanyID, "co-b")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadRoutesUseMountCategory(t *testing.T) {
	s := setupTestServer(t)

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	var pngBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, img))

	for path, category := range map[string]string{
		"/api/v1/users/upload":           "users",
		"/api/v1/inventory-items/upload": "inventory",
		"/api/v1/files/upload":           "general",
	} {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="file"; filename="photo 1.png"`)
		hdr.Set("Content-Type", "image/png")
		part, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write(pngBuf.Bytes())
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, path, &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set(HeaderCompanyID, "co-a")
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var env envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		var up upload.UploadedFile
		require.NoError(t, json.Unmarshal(env.Data, &up))
		assert.Equal(t, category, up.Category, path)
		assert.True(t, strings.HasSuffix(up.Filename, "-photo1.png"), up.Filename)

		_, err = os.Stat(filepath.Join(s.uploadDir, category, up.Filename))
		assert.NoError(t, err)

		get := httptest.NewRecorder()
		s.router.ServeHTTP(get, httptest.NewRequest(http.MethodGet, up.URL, nil))
		assert.Equal(t, http.StatusOK, get.Code)
	}
}

func TestHealthWithoutDependencies(t *testing.T) {
	s := setupTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var hs HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hs))
	assert.Equal(t, "healthy", hs.Status)
	assert.Len(t, hs.Checks, 4)
}

func TestDetermineOverallStatus(t *testing.T) {
	assert.Equal(t, "unhealthy", determineOverallStatus(map[string]ComponentCheck{
		"database": {Status: "down", Message: "check failed: refused"},
	}))
	assert.Equal(t, "degraded", determineOverallStatus(map[string]ComponentCheck{
		"database":      {Status: "up"},
		"notifications": {Status: "degraded"},
	}))
	assert.Equal(t, "healthy", determineOverallStatus(map[string]ComponentCheck{
		"database": {Status: "up"},
		"redis":    {Status: "down", Message: "not configured"},
	}))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(campaign.ErrNotFound))
	assert.Equal(t, http.StatusConflict, statusFor(subscriber.ErrDuplicateEmail))
	assert.Equal(t, http.StatusBadRequest, statusFor(upload.ErrInvalidType))
	assert.Equal(t, http.StatusInternalServerError, statusFor(os.ErrClosed))
}
