package shortlink

// OutcomeKind tells whether a resolution produced a redirect target.
type OutcomeKind int

const (
	OutcomeNotFound OutcomeKind = iota
	OutcomeRedirect
)

func (k OutcomeKind) String() string {
	if k == OutcomeRedirect {
		return "redirect"
	}

	return "not_found"
}

// Reasons recorded alongside an outcome, used for logs and usage events.
const (
	ReasonLocation         = "location"
	ReasonPayload          = "payload"
	ReasonMissingLocation  = "missing_location"
	ReasonNoPayload        = "no_payload"
	ReasonMalformedPayload = "malformed_payload"
	ReasonMissingTarget    = "missing_target"
	ReasonInvalidTarget    = "invalid_target"
	ReasonClientStatus     = "client_status"
)

// Outcome is the result of resolving one alias. It is never persisted.
type Outcome struct {
	Kind   OutcomeKind
	Target string
	Reason string
}

// Redirect builds an outcome that sends the visitor to target.
func Redirect(target, reason string) Outcome {
	return Outcome{Kind: OutcomeRedirect, Target: target, Reason: reason}
}

// NotFound builds an outcome for an alias with no mapping.
func NotFound(reason string) Outcome {
	return Outcome{Kind: OutcomeNotFound, Reason: reason}
}

// Found reports whether the outcome carries a redirect target.
func (o Outcome) Found() bool {
	return o.Kind == OutcomeRedirect
}

// Created is the backend's answer to a successful submission.
type Created struct {
	Slug     string `json:"slug"`
	ShortURL string `json:"shortUrl"`
}
