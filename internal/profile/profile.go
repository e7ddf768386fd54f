// Package profile enriches the outfit analysis prompt with a user's
// previously expressed style signals. Enrichment is strictly optional:
// every failure path degrades to "no personalization" rather than an error
// the pipeline would have to handle.
package profile

import (
	"context"
	"strings"
)

// StyleProfile holds the style signals fetched for one user. Produced once
// per session and never mutated afterwards.
type StyleProfile struct {
	Username         string   `json:"username"`
	DisplayName      string   `json:"display_name"`
	Bio              string   `json:"bio"`
	FashionInterests []string `json:"fashion_interests"`
	ColorPreferences []string `json:"color_preferences"`
	RecentSnippets   []string `json:"recent_snippets"`
}

// Enricher fetches style signals for a username. Implementations must fail
// soft: a nil profile with a nil error means "no data available", which
// callers treat identically to the user declining personalization.
type Enricher interface {
	Enrich(ctx context.Context, username string) (*StyleProfile, error)
}

// NormalizeUsername trims whitespace and a single leading "@" from a handle.
func NormalizeUsername(username string) string {
	return strings.TrimPrefix(strings.TrimSpace(username), "@")
}
