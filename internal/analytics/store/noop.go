package store

import (
	"context"

	"github.com/serroba/shortlink-web/internal/analytics"
	"go.uber.org/zap"
)

// Noop logs events instead of persisting them. The consumer falls back to it
// when no database is configured.
type Noop struct {
	logger *zap.Logger
}

func NewNoop(logger *zap.Logger) *Noop {
	return &Noop{logger: logger}
}

func (n *Noop) SaveResolution(_ context.Context, event *analytics.ResolutionEvent) error {
	n.logger.Info("slug resolved event received",
		zap.String("id", event.ID),
		zap.String("slug", event.Slug),
		zap.String("outcome", event.Outcome),
		zap.String("reason", event.Reason),
		zap.Time("resolvedAt", event.ResolvedAt),
	)

	return nil
}

func (n *Noop) SaveSubmission(_ context.Context, event *analytics.SubmissionEvent) error {
	n.logger.Info("url submitted event received",
		zap.String("id", event.ID),
		zap.String("slug", event.Slug),
		zap.String("destination", event.Destination),
		zap.Bool("customAlias", event.CustomAlias),
		zap.String("outcome", event.Outcome),
	)

	return nil
}
