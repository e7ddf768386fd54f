package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

// defaultTimeout is the HTTP client timeout for connector calls. A slow
// social API must not hold up the rest of the pipeline for long.
const defaultTimeout = 15 * time.Second

// Connector fetches style signals from the social style-signal API.
// A single attempt is made per session; there is no retry. Any failure
// disables personalization for the session.
type Connector struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewConnector creates a social connector for the given API base URL and key.
func NewConnector(baseURL, apiKey string) *Connector {
	return &Connector{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// --- API response types ---

type profileResponse struct {
	Username         string   `json:"username"`
	DisplayName      string   `json:"display_name"`
	Bio              string   `json:"bio"`
	FashionInterests []string `json:"fashion_interests"`
	ColorPreferences []string `json:"color_preferences"`
	RecentPosts      []string `json:"recent_posts"`
	Error            *apiErr  `json:"error,omitempty"`
}

type apiErr struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Enrich fetches the style profile for a username. Returns (nil, nil) when
// the user is unknown to the connector — absent data is a valid state, not
// an error. Network and decode failures are returned as errors so the caller
// can log the degradation, but they carry the same meaning.
func (c *Connector) Enrich(ctx context.Context, username string) (*StyleProfile, error) {
	endpoint := fmt.Sprintf("%s/v1/profiles/%s", c.baseURL, url.PathEscape(username))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	startTime := time.Now()
	httpResp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		return nil, fmt.Errorf("profile request: %w", err)
	}
	defer httpResp.Body.Close()

	log.Debug().
		Str("username", username).
		Int("statusCode", httpResp.StatusCode).
		Dur("duration", duration).
		Msg("Social profile response")

	if httpResp.StatusCode == http.StatusNotFound {
		// Unknown user: same as "user declined personalization".
		return nil, nil
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile request returned status %d", httpResp.StatusCode)
	}

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp profileResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("social API error: %s (code %d)", resp.Error.Message, resp.Error.Code)
	}

	if resp.Username == "" {
		resp.Username = username
	}

	return &StyleProfile{
		Username:         resp.Username,
		DisplayName:      resp.DisplayName,
		Bio:              resp.Bio,
		FashionInterests: resp.FashionInterests,
		ColorPreferences: resp.ColorPreferences,
		RecentSnippets:   resp.RecentPosts,
	}, nil
}
