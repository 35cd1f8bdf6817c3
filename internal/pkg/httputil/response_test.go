package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/pkg/pagination"
)

func TestPageEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Page(rec, "Campaigns retrieved", pagination.NewResult([]string{"a", "b"}, 12, 2, 5))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Campaigns retrieved", body["message"])
	assert.Len(t, body["data"], 2)
	meta := body["pagination"].(map[string]any)
	assert.Equal(t, float64(3), meta["totalPages"])
	assert.Equal(t, true, meta["hasNextPage"])
	assert.Equal(t, true, meta["hasPrevPage"])
}

func TestEmptyPageSerializesArray(t *testing.T) {
	rec := httptest.NewRecorder()
	Page[string](rec, "ok", pagination.NewResult[string](nil, 0, 1, 10))
	assert.Contains(t, rec.Body.String(), `"data":[]`)
	assert.Contains(t, rec.Body.String(), `"totalPages":0`)
}

func TestErrorHidesInternals(t *testing.T) {
	rec := httptest.NewRecorder()
	InternalError(rec, errors.New("pq: relation does not exist"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "relation")
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestDecodeRejectsBadJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	var dst map[string]any
	assert.False(t, Decode(rec, req, &dst))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid JSON body")
}
