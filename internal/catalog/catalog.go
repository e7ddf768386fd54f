// Package catalog resolves search terms against external product catalogs
// and normalizes the results into one product shape. Each catalog is
// independent: a failure or missing credential in one never blocks another.
package catalog

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Source identifies the catalog a product came from.
type Source string

const (
	SourceAmazon  Source = "amazon"
	SourceShopify Source = "shopify"
)

// Price is a display-oriented amount in a named currency.
type Price struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// Product is the normalized record exposed to downstream consumers.
// Title and URL are always populated; every record missing either is dropped
// during normalization. Price, ImageURL, and Brand are nullable and never
// fabricated.
type Product struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	URL      string  `json:"url"`
	Price    *Price  `json:"price"`
	ImageURL *string `json:"image_url"`
	Brand    *string `json:"brand,omitempty"`
	Source   Source  `json:"source_catalog"`
}

// Searcher is one product catalog.
type Searcher interface {
	// Name returns the stable catalog identifier used to key results.
	Name() string

	// Search returns up to limit normalized products for the term.
	Search(ctx context.Context, term string, limit int) ([]Product, error)
}

// Resolver fans a search term out across all enabled catalogs. Catalog calls
// run concurrently and are mutually independent; a failing catalog
// contributes an empty list and a warning, nothing more.
type Resolver struct {
	catalogs []Searcher
}

// NewResolver creates a resolver over the given catalogs. Disabled catalogs
// (missing credentials) are simply not passed in.
func NewResolver(catalogs ...Searcher) *Resolver {
	return &Resolver{catalogs: catalogs}
}

// Empty reports whether no catalog is enabled.
func (r *Resolver) Empty() bool {
	return len(r.catalogs) == 0
}

// CatalogNames returns the enabled catalog identifiers.
func (r *Resolver) CatalogNames() []string {
	names := make([]string, 0, len(r.catalogs))
	for _, c := range r.catalogs {
		names = append(names, c.Name())
	}
	return names
}

// Search queries every enabled catalog for the term concurrently and returns
// the results keyed by catalog name. Every enabled catalog has a key in the
// result, with an empty slice on failure or no matches.
func (r *Resolver) Search(ctx context.Context, term string, limit int) map[string][]Product {
	results := make(map[string][]Product, len(r.catalogs))

	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, c := range r.catalogs {
		wg.Add(1)
		go func(c Searcher) {
			defer wg.Done()

			products, err := c.Search(ctx, term, limit)
			if err != nil {
				log.Warn().Err(err).
					Str("catalog", c.Name()).
					Str("term", term).
					Msg("Catalog search failed, continuing without it")
				products = nil
			}

			mu.Lock()
			results[c.Name()] = products
			mu.Unlock()
		}(c)
	}

	wg.Wait()
	return results
}
