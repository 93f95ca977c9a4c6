package handlers_test

import (
	"context"
	"errors"
	"sync"

	"github.com/serroba/shortlink-web/internal/messaging"
	"github.com/serroba/shortlink-web/internal/shortlink"
)

var errMock = errors.New("mock error")

const testPublicURL = "http://localhost:3000"

// mockBackend is a configurable test double for handlers.Backend.
type mockBackend struct {
	outcome    shortlink.Outcome
	resolveErr error

	created    *shortlink.Created
	shortenErr error

	records []shortlink.Record
	listErr error

	mu           sync.Mutex
	shortenCalls int
	lastShorten  [2]string
	lastTop      struct {
		limit int
		r     shortlink.Range
	}
}

func (m *mockBackend) Resolve(_ context.Context, _ string) (shortlink.Outcome, error) {
	return m.outcome, m.resolveErr
}

func (m *mockBackend) Shorten(_ context.Context, destination, customSlug string) (*shortlink.Created, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.shortenCalls++
	m.lastShorten = [2]string{destination, customSlug}

	return m.created, m.shortenErr
}

func (m *mockBackend) ListAll(_ context.Context) ([]shortlink.Record, error) {
	return m.records, m.listErr
}

func (m *mockBackend) Top(_ context.Context, limit int, r shortlink.Range) ([]shortlink.Record, error) {
	m.lastTop.limit = limit
	m.lastTop.r = r

	return m.records, m.listErr
}

// recorder collects published events.
type recorder[T any] struct {
	mu     sync.Mutex
	events []*T
	err    error
}

func (r *recorder[T]) publish() messaging.Publish[T] {
	return func(_ context.Context, event *T) error {
		r.mu.Lock()
		defer r.mu.Unlock()

		r.events = append(r.events, event)

		return r.err
	}
}

func (r *recorder[T]) last() *T {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.events) == 0 {
		return nil
	}

	return r.events[len(r.events)-1]
}
