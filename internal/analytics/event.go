// Package analytics defines the usage events emitted by the web server and
// the store the consumer persists them into.
package analytics

import (
	"time"

	"github.com/google/uuid"
	"github.com/serroba/shortlink-web/internal/reqmeta"
)

const (
	TopicSlugResolved = "slug.resolved"
	TopicURLSubmitted = "url.submitted"
)

// Resolution outcomes.
const (
	ResolutionRedirect    = "redirect"
	ResolutionNotFound    = "not_found"
	ResolutionUnavailable = "unavailable"
)

// Submission outcomes.
const (
	SubmissionCreated     = "created"
	SubmissionRejected    = "rejected"
	SubmissionUnavailable = "unavailable"
)

// Client identifies who triggered an event.
type Client struct {
	RequestID string `json:"requestId,omitempty"`
	IP        string `json:"clientIp,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
	Referrer  string `json:"referrer,omitempty"`
}

// ClientFrom copies the fields of meta that events carry.
func ClientFrom(meta reqmeta.Meta) Client {
	return Client{
		RequestID: meta.RequestID,
		IP:        meta.ClientIP,
		UserAgent: meta.UserAgent,
		Referrer:  meta.Referrer,
	}
}

// ResolutionEvent is emitted for every GET /{slug}.
type ResolutionEvent struct {
	ID         string    `json:"id"`
	Slug       string    `json:"slug"`
	Outcome    string    `json:"outcome"`
	Target     string    `json:"target,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	ResolvedAt time.Time `json:"resolvedAt"`
	Client
}

func (e *ResolutionEvent) MessageID() string { return e.ID }

func NewResolutionEvent(slug, outcome, target, reason string, meta reqmeta.Meta) *ResolutionEvent {
	return &ResolutionEvent{
		ID:         uuid.NewString(),
		Slug:       slug,
		Outcome:    outcome,
		Target:     target,
		Reason:     reason,
		ResolvedAt: time.Now().UTC(),
		Client:     ClientFrom(meta),
	}
}

// SubmissionEvent is emitted for every submission that reached the backend.
type SubmissionEvent struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug,omitempty"`
	Destination string    `json:"destination"`
	CustomAlias bool      `json:"customAlias"`
	Outcome     string    `json:"outcome"`
	Status      int       `json:"status,omitempty"`
	SubmittedAt time.Time `json:"submittedAt"`
	Client
}

func (e *SubmissionEvent) MessageID() string { return e.ID }

func NewSubmissionEvent(destination, customSlug string, meta reqmeta.Meta) *SubmissionEvent {
	return &SubmissionEvent{
		ID:          uuid.NewString(),
		Slug:        customSlug,
		Destination: destination,
		CustomAlias: customSlug != "",
		SubmittedAt: time.Now().UTC(),
		Client:      ClientFrom(meta),
	}
}
