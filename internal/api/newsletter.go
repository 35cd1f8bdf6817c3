package api

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/pkg/httputil"
	"github.com/theniitettey/taurean-inventory-saas-sub007/internal/service/subscriber"
)

// Public newsletter endpoints. They answer with the bare {success, message}
// contract the storefront proxies forward unchanged.

type publicSubscribeRequest struct {
	subscriber.SubscribeInput
	CompanyID string `json:"companyId"`
}

// Subscribe signs an address up from a public form. The company comes from
// the body or the X-Company-ID header.
//
//	POST /api/v1/newsletter/subscribe
func (h *Handlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req publicSubscribeRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	companyID := req.CompanyID
	if companyID == "" {
		companyID = strings.TrimSpace(r.Header.Get(HeaderCompanyID))
	}
	if companyID == "" {
		httputil.JSON(w, http.StatusBadRequest, subscriber.Result{Message: "Company is required"})
		return
	}
	if _, err := h.Subscribers.Subscribe(r.Context(), companyID, req.SubscribeInput); err != nil {
		h.publicError(w, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, subscriber.Result{Success: true, Message: "Successfully subscribed to newsletter"})
}

// Unsubscribe removes an address given by email or unsubscribe token.
//
//	POST /api/v1/newsletter/unsubscribe {"email": "...", "reason": "..."}
func (h *Handlers) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var in subscriber.UnsubscribeInput
	if !httputil.Decode(w, r, &in) {
		return
	}
	if in.CompanyID == "" {
		in.CompanyID = strings.TrimSpace(r.Header.Get(HeaderCompanyID))
	}
	in.IPAddress = remoteIP(r)
	in.UserAgent = r.UserAgent()
	res, err := h.Subscribers.Unsubscribe(r.Context(), in)
	if err != nil {
		h.publicError(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, res)
}

// Resubscribe reactivates an address with the token from its unsubscribe.
//
//	POST /api/v1/newsletter/resubscribe {"email": "...", "token": "..."}
func (h *Handlers) Resubscribe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Token string `json:"token"`
	}
	if !httputil.Decode(w, r, &req) {
		return
	}
	res, err := h.Subscribers.Resubscribe(r.Context(), req.Email, req.Token)
	if err != nil {
		h.publicError(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, res)
}

func (h *Handlers) publicError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := sentence(err.Error())
	switch {
	case status == http.StatusInternalServerError:
		httputil.InternalError(w, err)
		return
	case errors.Is(err, subscriber.ErrNotFound):
		msg = "Email not found in subscribers list"
	}
	httputil.JSON(w, status, subscriber.Result{Success: false, Message: msg})
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
