package analytics

import "context"

// Store persists usage events.
type Store interface {
	SaveResolution(ctx context.Context, event *ResolutionEvent) error
	SaveSubmission(ctx context.Context, event *SubmissionEvent) error
}
