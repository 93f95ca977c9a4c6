package handlers

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlink-web/internal/ratelimit"
)

// RegisterRoutes registers the alias and listing routes with their rate
// limit configuration.
func RegisterRoutes(api huma.API, urlHandler *URLHandler) {
	// Submissions cost the backend a write, so they get their own budget.
	huma.Register(api, huma.Operation{
		OperationID:   "create-short-url",
		Method:        http.MethodPost,
		Path:          "/api/shorten",
		Summary:       "Create short URL",
		Description:   "Validates the URL and optional custom alias, then asks the backend to shorten it.",
		Tags:          []string{"URLs"},
		DefaultStatus: http.StatusCreated,
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{
				Limits: []ratelimit.LimitConfig{
					{Window: time.Minute, Max: 10},
					{Window: time.Hour, Max: 100},
					{Window: 24 * time.Hour, Max: 500},
				},
			},
		},
	}, urlHandler.CreateShortURL)

	huma.Register(api, huma.Operation{
		OperationID: "validate-input",
		Method:      http.MethodGet,
		Path:        "/api/validate",
		Summary:     "Validate form input",
		Description: "Checks a destination URL and custom alias without submitting them.",
		Tags:        []string{"URLs"},
	}, urlHandler.ValidateInput)

	huma.Register(api, huma.Operation{
		OperationID: "top-urls",
		Method:      http.MethodGet,
		Path:        "/api/urls/top",
		Summary:     "Most visited URLs",
		Description: "Returns the most visited URLs for a range, ordered by hits in that range.",
		Tags:        []string{"Usage"},
	}, urlHandler.TopURLs)

	huma.Register(api, huma.Operation{
		OperationID: "all-urls",
		Method:      http.MethodGet,
		Path:        "/api/urls/all",
		Summary:     "All URLs",
		Description: "Returns every shortened URL, optionally filtered by destination.",
		Tags:        []string{"Usage"},
	}, urlHandler.AllURLs)

	huma.Register(api, huma.Operation{
		OperationID: "redirect",
		Method:      http.MethodGet,
		Path:        "/{slug}",
		Summary:     "Redirect to original URL",
		Description: "Resolves the alias with the backend and redirects to its destination.",
		Tags:        []string{"URLs"},
		Metadata: map[string]any{
			ratelimit.MetadataKey: ratelimit.EndpointConfig{Scope: ratelimit.ScopeRedirect},
		},
	}, urlHandler.RedirectToURL)
}
