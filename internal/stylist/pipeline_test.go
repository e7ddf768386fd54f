package stylist

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/tom-bu/outfit-ai/internal/catalog"
	"github.com/tom-bu/outfit-ai/internal/gemini"
	"github.com/tom-bu/outfit-ai/internal/profile"
)

type fakeAnalyzer struct {
	critique    string
	err         error
	instruction string
	calls       atomic.Int32
}

func (f *fakeAnalyzer) AnalyzeOutfit(ctx context.Context, imageData []byte, mimeType, instruction string) (string, error) {
	f.calls.Add(1)
	f.instruction = instruction
	return f.critique, f.err
}

type fakeTrends struct {
	text  string
	err   error
	calls atomic.Int32
}

func (f *fakeTrends) FashionTrends(ctx context.Context, critique string) (string, error) {
	f.calls.Add(1)
	return f.text, f.err
}

type fakeTerms struct {
	terms   []string
	err     error
	gotText string
	calls   atomic.Int32
}

func (f *fakeTerms) ExtractTerms(ctx context.Context, recommendation string) ([]string, error) {
	f.calls.Add(1)
	f.gotText = recommendation
	return f.terms, f.err
}

type fakeSynth struct {
	images []gemini.GeneratedOutfit
	err    error
	calls  atomic.Int32
}

func (f *fakeSynth) SuggestOutfitImages(ctx context.Context, trendText string, count int) ([]gemini.GeneratedOutfit, error) {
	f.calls.Add(1)
	return f.images, f.err
}

type fakeCatalog struct {
	name     string
	products []catalog.Product
	err      error
	calls    atomic.Int32
}

func (f *fakeCatalog) Name() string { return f.name }

func (f *fakeCatalog) Search(ctx context.Context, term string, limit int) ([]catalog.Product, error) {
	f.calls.Add(1)
	return f.products, f.err
}

type failingEnricher struct{}

func (failingEnricher) Enrich(ctx context.Context, username string) (*profile.StyleProfile, error) {
	return nil, errors.New("profile service unreachable")
}

func testDeps() (Deps, *fakeAnalyzer, *fakeTrends, *fakeTerms, *fakeSynth, *fakeCatalog) {
	analyzer := &fakeAnalyzer{critique: "- Clean monochrome look\n- Could add a denim jacket"}
	trends := &fakeTrends{text: "Oversized denim jackets and chunky white sneakers are trending."}
	terms := &fakeTerms{terms: []string{"denim jacket", "white sneakers"}}
	synth := &fakeSynth{images: []gemini.GeneratedOutfit{{Data: []byte{1}, MIMEType: "image/png"}}}
	shop := &fakeCatalog{
		name:     "shopify",
		products: []catalog.Product{{ID: "1", Title: "Denim Jacket", URL: "https://shop.example/1", Source: catalog.SourceShopify}},
	}

	deps := Deps{
		Analyzer: analyzer,
		Trends:   trends,
		Terms:    terms,
		Images:   synth,
		Enricher: &profile.FixtureEnricher{},
		Catalogs: catalog.NewResolver(shop),
	}
	return deps, analyzer, trends, terms, synth, shop
}

func testRequest() Request {
	return Request{
		ImageData:  []byte("fake-image"),
		ImageMIME:  "image/jpeg",
		Username:   "@style_fan",
		ImageCount: 1,
	}
}

func TestPipelineFullRun(t *testing.T) {
	deps, analyzer, _, _, _, _ := testDeps()
	p, err := New(deps, Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := p.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.RequestID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("request ID not assigned")
	}
	if !res.UsedPersonalization {
		t.Error("UsedPersonalization = false, want true with an enriched profile")
	}
	// The fixture profile's interests must reach the analyzer instruction.
	if !strings.Contains(analyzer.instruction, "casual") {
		t.Errorf("instruction %q missing fixture interest", analyzer.instruction)
	}
	if !strings.Contains(analyzer.instruction, gemini.DefaultCritiqueInstruction) {
		t.Error("instruction lost the base analysis prompt")
	}

	if res.Critique == "" || res.TrendText == "" {
		t.Errorf("critique/trends missing: %+v", res)
	}
	if len(res.SearchTerms) != 2 {
		t.Errorf("SearchTerms = %v", res.SearchTerms)
	}
	if len(res.Matches) != 2 {
		t.Fatalf("Matches = %+v, want one entry per term", res.Matches)
	}
	if res.Matches[0].Term != "denim jacket" {
		t.Errorf("first match term = %q, want term order preserved", res.Matches[0].Term)
	}
	if got := res.Matches[0].Products["shopify"]; len(got) != 1 {
		t.Errorf("shopify products = %+v", got)
	}
	if len(res.Images) != 1 {
		t.Errorf("Images = %d, want 1", len(res.Images))
	}
	if len(res.Notes) != 0 {
		t.Errorf("Notes = %v, want none on the happy path", res.Notes)
	}
}

func TestPipelineRequiresImage(t *testing.T) {
	deps, _, _, _, _, _ := testDeps()
	p, _ := New(deps, Config{})

	if _, err := p.Run(context.Background(), Request{}); err == nil {
		t.Fatal("expected error for missing image")
	}
}

func TestPipelineAnalyzerFailureDegrades(t *testing.T) {
	deps, _, trends, terms, _, shop := testDeps()
	deps.Analyzer = &fakeAnalyzer{err: errors.New("model overloaded")}
	p, _ := New(deps, Config{})

	res, err := p.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Critique != "" {
		t.Errorf("Critique = %q, want empty", res.Critique)
	}
	// No critique means nothing to ground a trend lookup on.
	if trends.calls.Load() != 0 {
		t.Error("trend lookup ran despite empty critique")
	}
	// With no text at all there is nothing to extract from.
	if terms.calls.Load() != 0 {
		t.Error("extraction ran with no recommendation text")
	}
	if len(res.SearchTerms) != 0 {
		t.Errorf("SearchTerms = %v, want none", res.SearchTerms)
	}
	// With no terms the catalogs are never queried.
	if shop.calls.Load() != 0 {
		t.Error("catalog queried despite no search terms")
	}
	if len(res.Notes) == 0 {
		t.Error("expected a note recording the critique failure")
	}
}

func TestPipelineExtractorReceivesCritiqueAndTrends(t *testing.T) {
	deps, _, _, terms, _, _ := testDeps()
	p, _ := New(deps, Config{})

	if _, err := p.Run(context.Background(), testRequest()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if terms.calls.Load() != 1 {
		t.Fatalf("extraction called %d times, want 1", terms.calls.Load())
	}
	// The extractor sees the whole recommendation, not just the trends.
	if !strings.Contains(terms.gotText, "monochrome look") {
		t.Errorf("extractor input %q missing the critique", terms.gotText)
	}
	if !strings.Contains(terms.gotText, "trending") {
		t.Errorf("extractor input %q missing the trend text", terms.gotText)
	}
}

func TestPipelineExtractorRunsWhenTrendsFail(t *testing.T) {
	deps, _, _, terms, _, _ := testDeps()
	deps.Analyzer = &fakeAnalyzer{critique: "Looks great. Consider a red wool sweater for colder days."}
	deps.Trends = &fakeTrends{err: errors.New("search grounding down")}
	p, _ := New(deps, Config{})

	res, err := p.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The critique alone is enough text to extract from.
	if terms.calls.Load() != 1 {
		t.Fatalf("extraction called %d times, want 1", terms.calls.Load())
	}
	if !strings.Contains(terms.gotText, "red wool sweater") {
		t.Errorf("extractor input %q missing the critique", terms.gotText)
	}
	if len(res.SearchTerms) != 2 {
		t.Errorf("SearchTerms = %v, want the extractor's output", res.SearchTerms)
	}
}

func TestPipelineTermFallbackOnExtractionFailure(t *testing.T) {
	deps, _, _, _, _, _ := testDeps()
	deps.Analyzer = &fakeAnalyzer{critique: "Looks great. Consider a red wool sweater for colder days."}
	deps.Trends = &fakeTrends{err: errors.New("search grounding down")}
	deps.Terms = &fakeTerms{err: errors.New("model overloaded")}
	p, _ := New(deps, Config{})

	res, err := p.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	found := false
	for _, term := range res.SearchTerms {
		if term == "red wool sweater" {
			found = true
		}
	}
	if !found {
		t.Errorf("SearchTerms = %v, want keyword fallback to find %q", res.SearchTerms, "red wool sweater")
	}
	if len(res.Notes) == 0 {
		t.Error("expected a note recording the extraction failure")
	}
}

func TestPipelineEmptyExtractionIsFinal(t *testing.T) {
	deps, _, _, _, _, shop := testDeps()
	deps.Terms = &fakeTerms{terms: []string{}}
	deps.Trends = &fakeTrends{text: "Chunky white sneakers dominate street style this season."}
	p, _ := New(deps, Config{})

	res, err := p.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// A successful extraction with no items is the final answer; the
	// keyword fallback covers failed calls only.
	if len(res.SearchTerms) != 0 {
		t.Errorf("SearchTerms = %v, want none", res.SearchTerms)
	}
	if shop.calls.Load() != 0 {
		t.Errorf("catalog called %d times despite no actionable items", shop.calls.Load())
	}
}

func TestPipelineCapsActiveTerms(t *testing.T) {
	deps, _, _, _, _, shop := testDeps()
	deps.Terms = &fakeTerms{terms: []string{"a", "b", "c", "d", "e"}}
	p, _ := New(deps, Config{})

	res, err := p.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.SearchTerms) != 5 {
		t.Errorf("SearchTerms = %v, extraction output must not be truncated", res.SearchTerms)
	}
	if len(res.Matches) != DefaultMaxActiveTerms {
		t.Errorf("Matches = %d, want %d", len(res.Matches), DefaultMaxActiveTerms)
	}
	if shop.calls.Load() != DefaultMaxActiveTerms {
		t.Errorf("catalog called %d times, want %d", shop.calls.Load(), DefaultMaxActiveTerms)
	}
	for i, want := range []string{"a", "b", "c"} {
		if res.Matches[i].Term != want {
			t.Errorf("Matches[%d].Term = %q, want %q", i, res.Matches[i].Term, want)
		}
	}
}

func TestPipelineNoCatalogsConfigured(t *testing.T) {
	deps, _, _, _, _, _ := testDeps()
	deps.Catalogs = catalog.NewResolver()
	p, _ := New(deps, Config{})

	res, err := p.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Matches) != 0 {
		t.Errorf("Matches = %+v, want none", res.Matches)
	}
	noteFound := false
	for _, n := range res.Notes {
		if strings.Contains(n, "no product catalogs") {
			noteFound = true
		}
	}
	if !noteFound {
		t.Errorf("Notes = %v, want a no-catalogs note", res.Notes)
	}
}

func TestPipelineImageFailureKeepsProducts(t *testing.T) {
	deps, _, _, _, _, _ := testDeps()
	deps.Images = &fakeSynth{err: errors.New("image model unavailable")}
	p, _ := New(deps, Config{})

	res, err := p.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(res.Images) != 0 {
		t.Errorf("Images = %d, want none", len(res.Images))
	}
	if len(res.Matches) == 0 {
		t.Error("product matches lost after image synthesis failure")
	}
	if len(res.Notes) == 0 {
		t.Error("expected a note recording the synthesis failure")
	}
}

func TestPipelineSynthesisSkippedWithoutRequest(t *testing.T) {
	deps, _, _, _, synth, _ := testDeps()
	p, _ := New(deps, Config{})

	req := testRequest()
	req.ImageCount = 0

	if _, err := p.Run(context.Background(), req); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if synth.calls.Load() != 0 {
		t.Error("synthesis ran despite ImageCount = 0")
	}
}

func TestPipelineEnricherFailureContinues(t *testing.T) {
	deps, analyzer, _, _, _, _ := testDeps()
	deps.Enricher = failingEnricher{}
	p, _ := New(deps, Config{})

	res, err := p.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.UsedPersonalization {
		t.Error("UsedPersonalization = true despite enrichment failure")
	}
	if analyzer.instruction != gemini.DefaultCritiqueInstruction {
		t.Errorf("instruction = %q, want the bare base prompt", analyzer.instruction)
	}
	if len(res.Notes) == 0 {
		t.Error("expected a note recording the enrichment failure")
	}
}

func TestPipelineNoUsernameSkipsEnrichment(t *testing.T) {
	deps, analyzer, _, _, _, _ := testDeps()
	p, _ := New(deps, Config{})

	req := testRequest()
	req.Username = ""

	res, err := p.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.UsedPersonalization {
		t.Error("UsedPersonalization = true without a username")
	}
	if analyzer.instruction != gemini.DefaultCritiqueInstruction {
		t.Errorf("instruction = %q, want the bare base prompt", analyzer.instruction)
	}
}

type fakeRecommender struct {
	related []catalog.Product
	err     error
	gotID   string
}

func (f *fakeRecommender) Recommendations(ctx context.Context, productID string, limit int) ([]catalog.Product, error) {
	f.gotID = productID
	return f.related, f.err
}

func TestPipelineRelatedProducts(t *testing.T) {
	deps, _, _, _, _, _ := testDeps()
	rec := &fakeRecommender{
		related: []catalog.Product{{ID: "9", Title: "Matching Belt", URL: "https://shop.example/9", Source: catalog.SourceShopify}},
	}
	deps.Recommender = rec
	p, _ := New(deps, Config{})

	res, err := p.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The first matched store product seeds the related lookup.
	if rec.gotID != "1" {
		t.Errorf("recommendation seeded with product %q, want %q", rec.gotID, "1")
	}
	if len(res.Related) != 1 || res.Related[0].Title != "Matching Belt" {
		t.Errorf("Related = %+v", res.Related)
	}
}

func TestPipelineRelatedFailureIsSilent(t *testing.T) {
	deps, _, _, _, _, _ := testDeps()
	deps.Recommender = &fakeRecommender{err: errors.New("storefront down")}
	p, _ := New(deps, Config{})

	res, err := p.Run(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Related) != 0 {
		t.Errorf("Related = %+v, want none", res.Related)
	}
	if len(res.Matches) == 0 {
		t.Error("matches lost after related lookup failure")
	}
}

func TestNewValidatesRequiredDeps(t *testing.T) {
	if _, err := New(Deps{}, Config{}); err == nil {
		t.Fatal("expected error for missing generation deps")
	}
}
