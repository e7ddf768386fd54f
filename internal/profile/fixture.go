package profile

import (
	"context"

	"github.com/rs/zerolog/log"
)

// FixtureEnricher returns a fixed set of style signals for any username.
// It stands in for the social style-signal API in environments where that
// integration is not configured, and doubles as a deterministic test double.
// It must never be hard-wired into production paths — callers choose it
// explicitly when no social credentials exist.
type FixtureEnricher struct {
	// Profile overrides the default signals when non-nil.
	Profile *StyleProfile
}

// defaultFixtureProfile mirrors the simulated social response used before
// the real connector integration existed.
func defaultFixtureProfile(username string) *StyleProfile {
	return &StyleProfile{
		Username:    username,
		DisplayName: username,
		Bio:         "Fashion enthusiast sharing daily outfits",
		FashionInterests: []string{
			"casual", "streetwear", "minimalist",
		},
		ColorPreferences: []string{
			"black", "white", "earth tones",
		},
		RecentSnippets: []string{
			"Loving this oversized blazer trend lately",
			"Thrifted the perfect pair of straight-leg jeans",
			"Neutral tones all season",
		},
	}
}

// Enrich returns the fixture profile stamped with the requested username.
func (f *FixtureEnricher) Enrich(ctx context.Context, username string) (*StyleProfile, error) {
	log.Debug().Str("username", username).Msg("Using fixture style signals")

	if f.Profile != nil {
		p := *f.Profile
		p.Username = username
		return &p, nil
	}
	return defaultFixtureProfile(username), nil
}
