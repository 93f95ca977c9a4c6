// Package alias defines what a valid custom alias and a valid destination URL
// look like. The same rules gate the submission endpoint and the live form
// feedback.
package alias

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// Length is the exact number of characters in an alias.
	Length = 4

	// Alphabet is the 58-symbol friendly alphabet: letters and digits without
	// the look-alikes 0, O, 1, I and l.
	Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"
)

var (
	// DestinationMessage is shown when the destination is not an http(s) URL.
	DestinationMessage = "Enter a valid URL starting with http:// or https://"

	// AliasMessage is shown when a non-empty alias breaks the grammar.
	AliasMessage = fmt.Sprintf("Alias must be exactly %d friendly characters: [%s]", Length, Alphabet)

	// Hint documents the alias grammar next to the input.
	Hint = fmt.Sprintf("Allowed: %s (exactly %d chars)", Alphabet, Length)
)

var friendly [128]bool

func init() {
	for i := 0; i < len(Alphabet); i++ {
		friendly[Alphabet[i]] = true
	}
}

// IsValidAlias reports whether s is exactly Length printable ASCII characters,
// all drawn from Alphabet. The empty string is not valid here; callers treat it
// as "no alias requested" before asking.
func IsValidAlias(s string) bool {
	if len(s) != Length {
		return false
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x21 || c > 0x7e || !friendly[c] {
			return false
		}
	}

	return true
}

// IsValidDestination reports whether the trimmed input is an absolute http or
// https URL with a host.
func IsValidDestination(s string) bool {
	v := strings.TrimSpace(s)
	if v == "" {
		return false
	}

	u, err := url.Parse(v)
	if err != nil || !u.IsAbs() {
		return false
	}

	if !strings.EqualFold(u.Scheme, "http") && !strings.EqualFold(u.Scheme, "https") {
		return false
	}

	return u.Host != ""
}

// CanSubmit is true when the destination is valid and the alias is either
// empty or valid.
func CanSubmit(destination, alias string) bool {
	return IsValidDestination(destination) && (alias == "" || IsValidAlias(alias))
}

// Verdict is the live form feedback for one pair of inputs.
type Verdict struct {
	URLError   string `json:"urlError,omitempty"`
	AliasError string `json:"aliasError,omitempty"`
	CanSubmit  bool   `json:"canSubmit"`
	Hint       string `json:"hint"`
}

// Check evaluates both inputs. Empty inputs get no message; the alias is
// trimmed first, as the form does on every keystroke.
func Check(destination, alias string) Verdict {
	alias = strings.TrimSpace(alias)

	v := Verdict{
		CanSubmit: CanSubmit(destination, alias),
		Hint:      Hint,
	}

	if destination != "" && !IsValidDestination(destination) {
		v.URLError = DestinationMessage
	}

	if alias != "" && !IsValidAlias(alias) {
		v.AliasError = AliasMessage
	}

	return v
}
