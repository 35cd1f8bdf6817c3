package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// SubscriberSource records how a subscriber joined.
type SubscriberSource string

const (
	SourceWebsite  SubscriberSource = "website"
	SourceImport   SubscriberSource = "import"
	SourceManual   SubscriberSource = "manual"
	SourceAPI      SubscriberSource = "api"
	SourceCheckout SubscriberSource = "checkout"
)

// Valid reports whether s is a known source.
func (s SubscriberSource) Valid() bool {
	switch s {
	case SourceWebsite, SourceImport, SourceManual, SourceAPI, SourceCheckout:
		return true
	}
	return false
}

// Delivery frequencies a subscriber may choose.
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// Content formats a subscriber may choose.
const (
	FormatHTML = "html"
	FormatText = "text"
)

// Preferences is the per-subscriber delivery preference set.
type Preferences struct {
	Frequency  string   `json:"frequency"`
	Categories []string `json:"categories"`
	Format     string   `json:"format"`
}

// DefaultPreferences returns the preferences given to new subscribers.
func DefaultPreferences() Preferences {
	return Preferences{Frequency: FrequencyWeekly, Categories: []string{}, Format: FormatHTML}
}

// Validate checks frequency and format against the allowed values.
func (p Preferences) Validate() error {
	switch p.Frequency {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
	default:
		return fmt.Errorf("invalid frequency %q", p.Frequency)
	}
	switch p.Format {
	case FormatHTML, FormatText:
	default:
		return fmt.Errorf("invalid format %q", p.Format)
	}
	return nil
}

// Subscriber is a newsletter recipient.
type Subscriber struct {
	ID               string           `json:"id" db:"id"`
	CompanyID        string           `json:"companyId" db:"company_id"`
	Email            string           `json:"email" db:"email"`
	FirstName        string           `json:"firstName,omitempty" db:"first_name"`
	LastName         string           `json:"lastName,omitempty" db:"last_name"`
	IsActive         bool             `json:"isActive" db:"is_active"`
	Source           SubscriberSource `json:"source" db:"source"`
	Tags             []string         `json:"tags" db:"tags"`
	Preferences      Preferences      `json:"preferences" db:"preferences"`
	UnsubscribeToken string           `json:"-" db:"unsubscribe_token"`
	SubscribedAt     time.Time        `json:"subscribedAt" db:"subscribed_at"`
	UnsubscribedAt   *time.Time       `json:"unsubscribedAt,omitempty" db:"unsubscribed_at"`
	LastEmailAt      *time.Time       `json:"lastEmailAt,omitempty" db:"last_email_at"`
	CreatedAt        time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time        `json:"updatedAt" db:"updated_at"`
}

// FullName joins first and last name.
func (s *Subscriber) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// NormalizeEmail lowercases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail returns ErrInvalidEmail unless email parses as a bare address.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidEmail)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	return nil
}

// SubscriberScope decides across which boundary subscriber emails are unique.
type SubscriberScope string

const (
	// ScopeGlobal keeps one subscription per email across all companies.
	ScopeGlobal SubscriberScope = "global"
	// ScopeCompany keeps one subscription per email per company.
	ScopeCompany SubscriberScope = "company"
)

// ScopeKey returns the value stored alongside the email in the uniqueness
// index: empty for global scope, the company id for company scope.
func ScopeKey(scope SubscriberScope, companyID string) string {
	if scope == ScopeCompany {
		return companyID
	}
	return ""
}
