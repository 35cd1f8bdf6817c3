package api

import (
	"errors"
	"net/http"
	"strings"
	"unicode"

	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/pkg/httputil"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/service/campaign"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/service/subscriber"
	tmpl "github.com/theniitettey/taurean-inventory-saas-sub007/internal/service/template"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/upload"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{campaign.ErrNotFound, http.StatusNotFound},
	{subscriber.ErrNotFound, http.StatusNotFound},
	{tmpl.ErrNotFound, http.StatusNotFound},

	{campaign.ErrInvalidInput, http.StatusBadRequest},
	{subscriber.ErrInvalidInput, http.StatusBadRequest},
	{subscriber.ErrInvalidToken, http.StatusBadRequest},
	{tmpl.ErrInvalidInput, http.StatusBadRequest},
	{tmpl.ErrMissingVariables, http.StatusBadRequest},
	{tmpl.ErrInvalidVariable, http.StatusBadRequest},
	{upload.ErrInvalidType, http.StatusBadRequest},

	{tmpl.ErrForbidden, http.StatusForbidden},

	{campaign.ErrInvalidTransition, http.StatusConflict},
	{campaign.ErrNotEditable, http.StatusConflict},
	{campaign.ErrStatusConflict, http.StatusConflict},
	{subscriber.ErrDuplicateEmail, http.StatusConflict},
	{subscriber.ErrDuplicateToken, http.StatusConflict},
	{tmpl.ErrInactive, http.StatusConflict},
}

// statusFor maps a service error to its HTTP status. Unknown errors are 500.
func statusFor(err error) int {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// respondError writes the envelope for a service error. 4xx messages come
// from the error; 5xx details are logged and hidden.
func respondError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		httputil.InternalError(w, err)
		return
	}
	httputil.Error(w, status, sentence(err.Error()))
}

func sentence(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return strings.TrimSpace(string(r))
}
