// Package stylist orchestrates the end-to-end recommendation pipeline:
// profile enrichment, outfit critique, trend commentary, search term
// extraction, catalog resolution, and optional outfit image synthesis.
// Every stage after input validation degrades softly: a failed stage
// contributes a note and an empty result, never an aborted run.
package stylist

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tom-bu/outfit-ai/internal/catalog"
	"github.com/tom-bu/outfit-ai/internal/gemini"
	"github.com/tom-bu/outfit-ai/internal/profile"
)

// Defaults for pipeline tuning knobs.
const (
	// DefaultMaxActiveTerms caps how many search terms are resolved against
	// the catalogs, regardless of how many were extracted.
	DefaultMaxActiveTerms = 3

	// DefaultCatalogConcurrency bounds concurrent term resolutions.
	DefaultCatalogConcurrency = 4

	// DefaultProductLimit is the per-catalog result cap for one term.
	DefaultProductLimit = 5

	// DefaultGenerationTimeout bounds each individual generation-service call.
	DefaultGenerationTimeout = 45 * time.Second
)

// Analyzer produces the outfit critique from a photo.
type Analyzer interface {
	AnalyzeOutfit(ctx context.Context, imageData []byte, mimeType, instruction string) (string, error)
}

// TrendSource produces search-grounded trend commentary for a critique.
type TrendSource interface {
	FashionTrends(ctx context.Context, critique string) (string, error)
}

// TermSource extracts purchasable item phrases from recommendation text.
type TermSource interface {
	ExtractTerms(ctx context.Context, recommendation string) ([]string, error)
}

// ImageSynthesizer renders suggested-outfit images from trend commentary.
type ImageSynthesizer interface {
	SuggestOutfitImages(ctx context.Context, trendText string, count int) ([]gemini.GeneratedOutfit, error)
}

// Recommender supplies related products for an already-matched product.
type Recommender interface {
	Recommendations(ctx context.Context, productID string, limit int) ([]catalog.Product, error)
}

// Deps are the pipeline's collaborators. Analyzer, Trends, and Terms are
// required; Enricher, Catalogs, and Images are optional and their absence
// simply disables the corresponding stage.
type Deps struct {
	Analyzer    Analyzer
	Trends      TrendSource
	Terms       TermSource
	Images      ImageSynthesizer
	Enricher    profile.Enricher
	Catalogs    *catalog.Resolver
	Recommender Recommender
}

// Config holds the pipeline tuning knobs; zero values take the defaults.
type Config struct {
	MaxActiveTerms     int
	CatalogConcurrency int
	GenerationTimeout  time.Duration
}

// Pipeline runs the recommendation flow. Safe for concurrent use.
type Pipeline struct {
	deps Deps
	cfg  Config
}

// New creates a pipeline over the given collaborators.
func New(deps Deps, cfg Config) (*Pipeline, error) {
	if deps.Analyzer == nil || deps.Trends == nil || deps.Terms == nil {
		return nil, fmt.Errorf("pipeline requires an analyzer, a trend source, and a term source")
	}
	if cfg.MaxActiveTerms <= 0 {
		cfg.MaxActiveTerms = DefaultMaxActiveTerms
	}
	if cfg.CatalogConcurrency <= 0 {
		cfg.CatalogConcurrency = DefaultCatalogConcurrency
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = DefaultGenerationTimeout
	}
	return &Pipeline{deps: deps, cfg: cfg}, nil
}

// Request is one outfit submission.
type Request struct {
	ImageData []byte
	ImageMIME string

	// Username enables profile-based prompt personalization when non-empty.
	Username string

	// Limit is the per-catalog product cap for each term (default 5).
	Limit int

	// ImageCount requests that many synthesized outfit images; zero disables
	// synthesis.
	ImageCount int
}

// TermMatches holds the per-catalog products resolved for one search term.
type TermMatches struct {
	Term     string                       `json:"term"`
	Products map[string][]catalog.Product `json:"products"`
}

// Result is the accumulated pipeline output. Fields for stages that were
// skipped or failed stay zero; Notes records why.
type Result struct {
	RequestID           uuid.UUID                `json:"request_id"`
	Critique            string                   `json:"critique"`
	TrendText           string                   `json:"trend_text"`
	UsedPersonalization bool                     `json:"used_personalization"`
	SearchTerms         []string                 `json:"search_terms"`
	Matches             []TermMatches            `json:"matches"`
	Related             []catalog.Product        `json:"related,omitempty"`
	Images              []gemini.GeneratedOutfit `json:"-"`
	Notes               []string                 `json:"notes,omitempty"`
}

// Run executes the pipeline for one request. The only hard failure is a
// missing or unvalidated image; everything downstream degrades per stage.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	if len(req.ImageData) == 0 {
		return nil, fmt.Errorf("an outfit image is required")
	}
	if req.ImageMIME == "" {
		req.ImageMIME = "image/jpeg"
	}
	if req.Limit <= 0 {
		req.Limit = DefaultProductLimit
	}

	requestID := uuid.New()
	logger := log.With().Str("request_id", requestID.String()).Logger()
	logger.Info().
		Int("image_bytes", len(req.ImageData)).
		Str("username", req.Username).
		Msg("Starting styling pipeline")

	res := &Result{RequestID: requestID}

	// Stage 1: profile enrichment. Failures leave the base instruction
	// untouched.
	var prof *profile.StyleProfile
	if req.Username != "" && p.deps.Enricher != nil {
		username := profile.NormalizeUsername(req.Username)
		enriched, err := p.deps.Enricher.Enrich(ctx, username)
		if err != nil {
			logger.Warn().Err(err).Str("username", username).Msg("Profile enrichment failed, continuing without it")
			res.Notes = append(res.Notes, fmt.Sprintf("profile enrichment unavailable: %v", err))
		} else {
			prof = enriched
		}
	}
	payload := profile.Compose(gemini.DefaultCritiqueInstruction, prof)
	res.UsedPersonalization = payload.UsedPersonalization

	// Stage 2: outfit critique.
	critique, err := p.callWithTimeout(ctx, func(ctx context.Context) (string, error) {
		return p.deps.Analyzer.AnalyzeOutfit(ctx, req.ImageData, req.ImageMIME, payload.AugmentedText)
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Outfit critique failed, continuing without it")
		res.Notes = append(res.Notes, fmt.Sprintf("outfit critique unavailable: %v", err))
	}
	res.Critique = critique

	// Stage 3: trend commentary, conditioned on the critique. Nothing to
	// condition on means nothing to look up.
	if res.Critique != "" {
		trendText, err := p.callWithTimeout(ctx, func(ctx context.Context) (string, error) {
			return p.deps.Trends.FashionTrends(ctx, res.Critique)
		})
		if err != nil {
			logger.Warn().Err(err).Msg("Trend lookup failed, continuing without it")
			res.Notes = append(res.Notes, fmt.Sprintf("trend commentary unavailable: %v", err))
		}
		res.TrendText = trendText
	}

	// Stage 4: search term extraction over everything written so far,
	// critique plus trend commentary. The keyword fallback covers only a
	// failed extraction call; an empty list from a successful call means
	// "no actionable items" and stands as-is.
	recommendation := strings.TrimSpace(res.Critique + "\n" + res.TrendText)
	if recommendation != "" {
		termCtx, cancel := context.WithTimeout(ctx, p.cfg.GenerationTimeout)
		terms, err := p.deps.Terms.ExtractTerms(termCtx, recommendation)
		cancel()
		if err != nil {
			logger.Warn().Err(err).Msg("Model term extraction failed, using keyword fallback")
			res.Notes = append(res.Notes, fmt.Sprintf("model term extraction unavailable: %v", err))
			res.SearchTerms = fallbackSearchTerms(recommendation)
			if len(res.SearchTerms) > 0 {
				logger.Debug().
					Strs("terms", res.SearchTerms).
					Msg("Search terms recovered via keyword extraction")
			}
		} else {
			res.SearchTerms = terms
		}
	}

	// Stage 5: catalog resolution for the leading terms.
	p.resolveProducts(ctx, logger, res, req.Limit)

	// Stage 5b: related products for the first matched store product.
	// Best-effort; nothing downstream depends on it.
	if p.deps.Recommender != nil {
		if id, ok := firstProductID(res.Matches, catalog.SourceShopify); ok {
			related, err := p.deps.Recommender.Recommendations(ctx, id, req.Limit)
			if err != nil {
				logger.Warn().Err(err).Str("product_id", id).Msg("Related product lookup failed, continuing without it")
			} else {
				res.Related = related
			}
		}
	}

	// Stage 6: outfit image synthesis, only when there is trend text to
	// render from. A failure here never retracts earlier results.
	if req.ImageCount > 0 && res.TrendText != "" && p.deps.Images != nil {
		imgCtx, cancel := context.WithTimeout(ctx, p.cfg.GenerationTimeout)
		images, err := p.deps.Images.SuggestOutfitImages(imgCtx, res.TrendText, req.ImageCount)
		cancel()
		if err != nil {
			logger.Warn().Err(err).Msg("Outfit image synthesis failed, continuing without it")
			res.Notes = append(res.Notes, fmt.Sprintf("outfit images unavailable: %v", err))
		} else {
			res.Images = images
		}
	}

	logger.Info().
		Int("terms", len(res.SearchTerms)).
		Int("matched_terms", len(res.Matches)).
		Int("images", len(res.Images)).
		Int("notes", len(res.Notes)).
		Msg("Styling pipeline complete")

	return res, nil
}

// resolveProducts fans the leading search terms out across the catalogs,
// bounded by the configured concurrency. Result order follows term order.
func (p *Pipeline) resolveProducts(ctx context.Context, logger zerolog.Logger, res *Result, limit int) {
	if len(res.SearchTerms) == 0 {
		return
	}
	if p.deps.Catalogs == nil || p.deps.Catalogs.Empty() {
		res.Notes = append(res.Notes, "no product catalogs configured")
		return
	}

	active := res.SearchTerms
	if len(active) > p.cfg.MaxActiveTerms {
		active = active[:p.cfg.MaxActiveTerms]
	}

	matches := make([]TermMatches, len(active))

	var wg sync.WaitGroup
	sem := make(chan struct{}, p.cfg.CatalogConcurrency)

	for i, term := range active {
		wg.Add(1)
		go func(i int, term string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			matches[i] = TermMatches{
				Term:     term,
				Products: p.deps.Catalogs.Search(ctx, term, limit),
			}
		}(i, term)
	}
	wg.Wait()

	res.Matches = matches
	logger.Debug().Int("terms", len(active)).Msg("Catalog resolution complete")
}

// firstProductID returns the ID of the first matched product from the given
// source, walking matches in term order.
func firstProductID(matches []TermMatches, source catalog.Source) (string, bool) {
	for _, match := range matches {
		for _, products := range match.Products {
			for _, p := range products {
				if p.Source == source && p.ID != "" {
					return p.ID, true
				}
			}
		}
	}
	return "", false
}

// callWithTimeout runs one generation call under the configured stage timeout.
func (p *Pipeline) callWithTimeout(ctx context.Context, fn func(context.Context) (string, error)) (string, error) {
	stageCtx, cancel := context.WithTimeout(ctx, p.cfg.GenerationTimeout)
	defer cancel()
	return fn(stageCtx)
}
