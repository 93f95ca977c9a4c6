package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlink-web/internal/alias"
	"github.com/serroba/shortlink-web/internal/analytics"
	"github.com/serroba/shortlink-web/internal/messaging"
	"github.com/serroba/shortlink-web/internal/ranking"
	"github.com/serroba/shortlink-web/internal/reqmeta"
	"github.com/serroba/shortlink-web/internal/shortlink"
	"go.uber.org/zap"
)

const (
	msgNotFound    = "page does not exist"
	msgUnavailable = "service temporarily unavailable"
)

// Backend is what the handlers need from the URL-shortening backend.
type Backend interface {
	Resolve(ctx context.Context, slug string) (shortlink.Outcome, error)
	Shorten(ctx context.Context, destination, customSlug string) (*shortlink.Created, error)
	ListAll(ctx context.Context) ([]shortlink.Record, error)
	Top(ctx context.Context, limit int, r shortlink.Range) ([]shortlink.Record, error)
}

// URLHandler serves alias resolution, submission and the usage tables.
type URLHandler struct {
	backend           Backend
	validator         *alias.Validator
	publicURL         string
	topLimit          int
	publishResolution messaging.Publish[analytics.ResolutionEvent]
	publishSubmission messaging.Publish[analytics.SubmissionEvent]
	logger            *zap.Logger
}

func NewURLHandler(
	backend Backend,
	validator *alias.Validator,
	publicURL string,
	topLimit int,
	publishResolution messaging.Publish[analytics.ResolutionEvent],
	publishSubmission messaging.Publish[analytics.SubmissionEvent],
	logger *zap.Logger,
) *URLHandler {
	return &URLHandler{
		backend:           backend,
		validator:         validator,
		publicURL:         strings.TrimRight(publicURL, "/"),
		topLimit:          topLimit,
		publishResolution: publishResolution,
		publishSubmission: publishSubmission,
		logger:            logger,
	}
}

func (h *URLHandler) RedirectToURL(ctx context.Context, req *RedirectRequest) (*RedirectResponse, error) {
	meta := reqmeta.FromContext(ctx)

	outcome, err := h.backend.Resolve(ctx, req.Slug)
	if err != nil {
		h.emitResolution(ctx, analytics.NewResolutionEvent(req.Slug, analytics.ResolutionUnavailable, "", "", meta))

		if errors.Is(err, shortlink.ErrUpstreamUnavailable) {
			return nil, huma.Error503ServiceUnavailable(msgUnavailable)
		}

		h.logger.Error("failed to resolve slug", zap.String("slug", req.Slug), zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to resolve slug")
	}

	h.logger.Info("slug resolved",
		zap.String("slug", req.Slug),
		zap.Stringer("outcome", outcome.Kind),
		zap.String("reason", outcome.Reason),
		zap.String("request_id", meta.RequestID),
	)

	if !outcome.Found() {
		h.emitResolution(ctx, analytics.NewResolutionEvent(req.Slug, analytics.ResolutionNotFound, "", outcome.Reason, meta))

		return nil, huma.Error404NotFound(msgNotFound)
	}

	h.emitResolution(ctx, analytics.NewResolutionEvent(
		req.Slug, analytics.ResolutionRedirect, outcome.Target, outcome.Reason, meta,
	))

	return &RedirectResponse{
		Status:       http.StatusTemporaryRedirect,
		Location:     outcome.Target,
		CacheControl: "no-store",
	}, nil
}

func (h *URLHandler) CreateShortURL(ctx context.Context, req *CreateShortURLRequest) (*CreateShortURLResponse, error) {
	sub, err := h.validator.Submission(req.Body.URL, req.Body.CustomSlug)
	if err != nil {
		var verr *shortlink.ValidationError
		if errors.As(err, &verr) {
			return nil, validationProblem(verr)
		}

		return nil, huma.Error500InternalServerError("failed to validate submission")
	}

	event := analytics.NewSubmissionEvent(sub.URL, sub.CustomSlug, reqmeta.FromContext(ctx))

	created, err := h.backend.Shorten(ctx, sub.URL, sub.CustomSlug)
	if err != nil {
		var rejected *shortlink.RejectedError
		if errors.As(err, &rejected) {
			event.Outcome = analytics.SubmissionRejected
			event.Status = rejected.Status
			h.emitSubmission(ctx, event)

			return nil, huma.NewError(rejected.Status, rejected.Message)
		}

		event.Outcome = analytics.SubmissionUnavailable
		h.emitSubmission(ctx, event)

		if errors.Is(err, shortlink.ErrUpstreamUnavailable) {
			return nil, huma.Error503ServiceUnavailable(msgUnavailable)
		}

		h.logger.Error("failed to shorten url", zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to shorten url")
	}

	event.Outcome = analytics.SubmissionCreated
	event.Slug = created.Slug
	event.Status = http.StatusCreated
	h.emitSubmission(ctx, event)

	resp := &CreateShortURLResponse{Location: created.ShortURL}
	resp.Body.Slug = created.Slug
	resp.Body.ShortURL = created.ShortURL

	return resp, nil
}

func (h *URLHandler) ValidateInput(_ context.Context, req *ValidateRequest) (*ValidateResponse, error) {
	return &ValidateResponse{Body: alias.Check(req.URL, req.Alias)}, nil
}

func (h *URLHandler) TopURLs(ctx context.Context, req *TopURLsRequest) (*TopURLsResponse, error) {
	r, err := shortlink.ParseRange(req.Range)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}

	limit := req.Limit
	if limit <= 0 {
		limit = h.topLimit
	}

	records, err := h.backend.Top(ctx, limit, r)
	if err != nil {
		return nil, h.listingError(err)
	}

	top := ranking.Top(records, r, limit)

	resp := &TopURLsResponse{}
	resp.Body.Range = string(r)
	resp.Body.Label = r.Label()
	resp.Body.Items = make([]RankedRow, 0, len(top))

	for _, rec := range top {
		resp.Body.Items = append(resp.Body.Items, RankedRow{
			URLRow: h.row(rec),
			Hits:   ranking.Metric(rec, r),
		})
	}

	return resp, nil
}

func (h *URLHandler) AllURLs(ctx context.Context, req *AllURLsRequest) (*AllURLsResponse, error) {
	records, err := h.backend.ListAll(ctx)
	if err != nil {
		return nil, h.listingError(err)
	}

	needle := strings.ToLower(strings.TrimSpace(req.Query))

	resp := &AllURLsResponse{}
	resp.Body.Items = make([]URLRow, 0, len(records))

	for _, rec := range records {
		if needle != "" && !strings.Contains(strings.ToLower(rec.Destination), needle) {
			continue
		}

		resp.Body.Items = append(resp.Body.Items, h.row(rec))
	}

	resp.Body.Total = len(resp.Body.Items)

	return resp, nil
}

func (h *URLHandler) row(rec shortlink.Record) URLRow {
	row := URLRow{
		Slug:      rec.Slug,
		URL:       rec.Destination,
		ShortURL:  h.publicURL + "/" + url.PathEscape(rec.Slug),
		HitsTotal: ranking.Total(rec),
	}

	if !rec.CreatedAt.IsZero() {
		created := rec.CreatedAt
		row.CreatedAt = &created
	}

	return row
}

func (h *URLHandler) listingError(err error) error {
	if errors.Is(err, shortlink.ErrUpstreamUnavailable) {
		return huma.Error503ServiceUnavailable(msgUnavailable)
	}

	h.logger.Error("failed to list urls", zap.Error(err))

	return huma.Error500InternalServerError("failed to list urls")
}

// emitResolution publishes a resolution event. Failures are logged and
// never affect the response.
func (h *URLHandler) emitResolution(ctx context.Context, event *analytics.ResolutionEvent) {
	if err := h.publishResolution(ctx, event); err != nil {
		h.logger.Error("failed to publish resolution event",
			zap.String("slug", event.Slug),
			zap.Error(err),
		)
	}
}

func (h *URLHandler) emitSubmission(ctx context.Context, event *analytics.SubmissionEvent) {
	if err := h.publishSubmission(ctx, event); err != nil {
		h.logger.Error("failed to publish submission event",
			zap.String("destination", event.Destination),
			zap.Error(err),
		)
	}
}

func validationProblem(verr *shortlink.ValidationError) error {
	details := make([]error, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		details = append(details, &huma.ErrorDetail{
			Message:  f.Message,
			Location: "body." + f.Field,
			Value:    f.Value,
		})
	}

	return huma.Error422UnprocessableEntity("validation failed", details...)
}
