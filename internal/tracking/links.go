// Package tracking builds and serves the signed links embedded in
// newsletter email: the open pixel, click redirects and one-click
// unsubscribe.
package tracking

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Errors returned when decoding a tracking link.
var (
	ErrInvalidLink      = errors.New("invalid tracking link")
	ErrInvalidSignature = errors.New("invalid tracking signature")
)

// Signer produces and verifies tracking links under a base URL.
type Signer struct {
	key     []byte
	baseURL string
}

// NewSigner creates a signer. baseURL is the public origin the /t routes
// are served from.
func NewSigner(secret, baseURL string) *Signer {
	return &Signer{key: []byte(secret), baseURL: strings.TrimRight(baseURL, "/")}
}

// Payload is the data carried by a tracking link.
type Payload struct {
	CompanyID    string
	CampaignID   string
	SubscriberID string
	// Token is the subscriber's unsubscribe token (unsubscribe links only).
	Token string
	// URL is the redirect target (click links only).
	URL string
}

// OpenURL returns the open pixel URL.
func (s *Signer) OpenURL(companyID, campaignID, subscriberID string) string {
	return s.link("open", companyID, campaignID, subscriberID)
}

// ClickURL returns a redirecting URL for target.
func (s *Signer) ClickURL(companyID, campaignID, subscriberID, target string) string {
	return s.link("click", companyID, campaignID, subscriberID, target)
}

// UnsubscribeURL returns the one-click unsubscribe URL.
func (s *Signer) UnsubscribeURL(companyID, campaignID, unsubscribeToken string) string {
	return s.link("unsubscribe", companyID, campaignID, unsubscribeToken)
}

func (s *Signer) link(kind string, parts ...string) string {
	data := kind + "|" + strings.Join(parts, "|")
	encoded := base64.RawURLEncoding.EncodeToString([]byte(data))
	return fmt.Sprintf("%s/t/%s/%s/%s", s.baseURL, kind, encoded, s.sign(data))
}

// Decode verifies a link of the given kind and returns its payload.
func (s *Signer) Decode(kind, encoded, signature string) (*Payload, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrInvalidLink
	}
	data := string(raw)
	if !hmac.Equal([]byte(s.sign(data)), []byte(signature)) {
		return nil, ErrInvalidSignature
	}

	// the click target may itself contain '|'
	n := 4
	if kind == "click" {
		n = 5
	}
	parts := strings.SplitN(data, "|", n)
	if parts[0] != kind {
		return nil, ErrInvalidLink
	}
	switch kind {
	case "open":
		if len(parts) != 4 {
			return nil, ErrInvalidLink
		}
		return &Payload{CompanyID: parts[1], CampaignID: parts[2], SubscriberID: parts[3]}, nil
	case "click":
		if len(parts) != 5 {
			return nil, ErrInvalidLink
		}
		u, err := url.Parse(parts[4])
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return nil, ErrInvalidLink
		}
		return &Payload{CompanyID: parts[1], CampaignID: parts[2], SubscriberID: parts[3], URL: parts[4]}, nil
	case "unsubscribe":
		if len(parts) != 4 {
			return nil, ErrInvalidLink
		}
		return &Payload{CompanyID: parts[1], CampaignID: parts[2], Token: parts[3]}, nil
	}
	return nil, ErrInvalidLink
}

func (s *Signer) sign(data string) string {
	h := hmac.New(sha256.New, s.key)
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// InjectTracking appends the open pixel before </body> and rewrites
// absolute http(s) links to click redirects. Links already pointing at the
// tracking routes are left alone.
func (s *Signer) InjectTracking(html, companyID, campaignID, subscriberID string) string {
	pixel := fmt.Sprintf(`<img src="%s" width="1" height="1" alt="" style="display:none" />`,
		s.OpenURL(companyID, campaignID, subscriberID))
	if strings.Contains(html, "</body>") {
		html = strings.Replace(html, "</body>", pixel+"</body>", 1)
	} else {
		html += pixel
	}
	return s.replaceLinks(html, companyID, campaignID, subscriberID)
}

func (s *Signer) replaceLinks(html, companyID, campaignID, subscriberID string) string {
	var b strings.Builder
	rest := html
	for {
		start := strings.Index(rest, `href="http`)
		if start == -1 {
			b.WriteString(rest)
			break
		}
		start += len(`href="`)
		end := strings.Index(rest[start:], `"`)
		if end == -1 {
			b.WriteString(rest)
			break
		}
		original := rest[start : start+end]
		b.WriteString(rest[:start])
		if strings.HasPrefix(original, s.baseURL+"/t/") {
			b.WriteString(original)
		} else {
			b.WriteString(s.ClickURL(companyID, campaignID, subscriberID, original))
		}
		rest = rest[start+end:]
	}
	return b.String()
}

// Headers returns the List-Unsubscribe headers for an unsubscribe URL.
func (s *Signer) Headers(unsubscribeURL string) map[string]string {
	return map[string]string{
		"List-Unsubscribe":      fmt.Sprintf("<%s>", unsubscribeURL),
		"List-Unsubscribe-Post": "List-Unsubscribe=One-Click",
	}
}
