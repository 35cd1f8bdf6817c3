// Package notification fans newsletter events out to connected clients.
//
// Services publish through the Publisher interface. A Broker carries
// events between server instances (in-process, Postgres LISTEN/NOTIFY or
// RabbitMQ) and delivers them to the local Hub, which streams them to
// subscribed SSE clients grouped in rooms.
package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types published by the newsletter services.
const (
	TypeCampaignStatusChanged  = "campaign.status_changed"
	TypeCampaignAnalytics      = "campaign.analytics_updated"
	TypeSubscriberJoined       = "subscriber.joined"
	TypeSubscriberLeft         = "subscriber.left"
	TypeSubscriberResubscribed = "subscriber.resubscribed"
	TypeUploadStored           = "upload.stored"
)

// Event is one realtime notification.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	CompanyID string    `json:"companyId,omitempty"`
	UserID    string    `json:"userId,omitempty"`
	Data      any       `json:"data,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewEvent builds an event addressed to a company room.
func NewEvent(typ, companyID string, data any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      typ,
		CompanyID: companyID,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
}

// Rooms returns the rooms the event is delivered to.
func (e Event) Rooms() []string {
	var rooms []string
	if e.CompanyID != "" {
		rooms = append(rooms, CompanyRoom(e.CompanyID))
	}
	if e.UserID != "" {
		rooms = append(rooms, UserRoom(e.UserID))
	}
	return rooms
}

// CompanyRoom names the room shared by every client of a company.
func CompanyRoom(companyID string) string { return "company:" + companyID }

// UserRoom names the private room of a single user.
func UserRoom(userID string) string { return "user:" + userID }

// Publisher accepts events for delivery.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Discard is a Publisher that drops everything.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(context.Context, Event) error { return nil }
