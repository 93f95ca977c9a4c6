package handlers

import (
	"time"

	"github.com/serroba/shortlink-web/internal/alias"
)

// RedirectRequest is the request for resolving an alias.
type RedirectRequest struct {
	Slug string `doc:"The short alias" example:"Ab3Z" path:"slug"`
}

// RedirectResponse sends the visitor on to the destination.
type RedirectResponse struct {
	Status       int
	Location     string `doc:"The destination URL" header:"Location"`
	CacheControl string `header:"Cache-Control"`
}

// CreateShortURLRequest is the request body for creating a short URL.
type CreateShortURLRequest struct {
	Body struct {
		URL        string `doc:"The URL to shorten"                     example:"https://example.com/very/long/path" json:"url"`
		CustomSlug string `doc:"Optional 4-character custom alias"      example:"Ab3Z"                               json:"customSlug,omitempty"`
	}
}

// CreateShortURLResponse is the response for a successfully created short URL.
type CreateShortURLResponse struct {
	Location string `doc:"The short URL" header:"Location"`
	Body     struct {
		Slug     string `doc:"The alias"          example:"Ab3Z"                       json:"slug"`
		ShortURL string `doc:"The full short URL" example:"http://localhost:8080/Ab3Z" json:"shortUrl"`
	}
}

// ValidateRequest carries the form inputs to check.
type ValidateRequest struct {
	URL   string `doc:"Destination URL" query:"url"`
	Alias string `doc:"Custom alias"    query:"alias"`
}

// ValidateResponse reports per-field problems and whether submit is allowed.
type ValidateResponse struct {
	Body alias.Verdict
}

// URLRow is one shortened URL as shown in listings.
type URLRow struct {
	Slug      string     `json:"slug"`
	URL       string     `json:"url"`
	ShortURL  string     `json:"shortUrl"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	HitsTotal int64      `json:"hitsTotal"`
}

// RankedRow is a URLRow with the hit count of the selected range.
type RankedRow struct {
	URLRow

	Hits int64 `json:"hits"`
}

// TopURLsRequest selects a range and how many rows to return.
type TopURLsRequest struct {
	Limit int    `doc:"Number of rows, 0 for the server default" maximum:"100" minimum:"0" query:"limit"`
	Range string `doc:"today, 7d or total"                        example:"today"             query:"range"`
}

// TopURLsResponse is the ranked table.
type TopURLsResponse struct {
	Body struct {
		Range string      `json:"range"`
		Label string      `json:"label"`
		Items []RankedRow `json:"items"`
	}
}

// AllURLsRequest optionally filters by destination.
type AllURLsRequest struct {
	Query string `doc:"Case-insensitive destination filter" query:"q"`
}

// AllURLsResponse is the aggregate table in backend order.
type AllURLsResponse struct {
	Body struct {
		Total int      `json:"total"`
		Items []URLRow `json:"items"`
	}
}
