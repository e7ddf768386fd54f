package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tom-bu/outfit-ai/internal/textutil"
)

const (
	// shopifyAPIVersion pins both the Admin REST and Storefront GraphQL APIs.
	shopifyAPIVersion = "2023-10"

	// shopifyTimeout is the HTTP client timeout for catalog calls. A slow
	// store is a catalog-local failure, not a pipeline stall.
	shopifyTimeout = 15 * time.Second

	// fallbackCurrency is used when the store's default currency cannot be
	// determined from shop.json.
	fallbackCurrency = "USD"
)

// ShopifyClient resolves search terms against one Shopify store using an
// ordered list of access tiers: the Admin API when an admin token is
// configured, then the Storefront API when a storefront token is configured.
// Tiers are tried in order until one yields a non-empty result; their results
// are never merged.
type ShopifyClient struct {
	httpClient      *http.Client
	domain          string
	adminToken      string
	storefrontToken string

	// adminBaseURL and storefrontURL default to the store's endpoints and
	// are overridden in tests.
	adminBaseURL  string
	storefrontURL string

	tiers []shopifyTier

	// The store's default currency, fetched lazily from shop.json and cached
	// for the client lifetime.
	currencyMu sync.Mutex
	currency   string
}

// NewShopifyClient creates a Shopify catalog client for a bare store domain
// (no scheme). At least one token must be configured; with neither the
// catalog is disabled and must not be constructed.
func NewShopifyClient(domain, adminToken, storefrontToken string) (*ShopifyClient, error) {
	if domain == "" {
		return nil, fmt.Errorf("shopify store domain not configured")
	}
	if adminToken == "" && storefrontToken == "" {
		return nil, fmt.Errorf("shopify catalog requires an admin or storefront token")
	}

	c := &ShopifyClient{
		httpClient: &http.Client{
			Timeout: shopifyTimeout,
		},
		domain:          domain,
		adminToken:      adminToken,
		storefrontToken: storefrontToken,
		adminBaseURL:    fmt.Sprintf("https://%s/admin/api/%s", domain, shopifyAPIVersion),
		storefrontURL:   fmt.Sprintf("https://%s/api/%s/graphql.json", domain, shopifyAPIVersion),
	}
	c.tiers = []shopifyTier{
		&adminTier{client: c},
		&storefrontTier{client: c},
	}
	return c, nil
}

// Name implements Searcher.
func (c *ShopifyClient) Name() string {
	return string(SourceShopify)
}

// shopifyTier is one fallback level of the store's resolution strategy.
// Adding a tier (e.g. a cached one) is an append to the client's tier list.
type shopifyTier interface {
	name() string
	available() bool
	searchByTitle(ctx context.Context, term string, limit int) ([]Product, error)
}

// Search implements Searcher. Tiers are tried in configured order; the first
// available tier that yields products wins. A tier error falls through to the
// next tier; only when every available tier errored is an error returned.
func (c *ShopifyClient) Search(ctx context.Context, term string, limit int) ([]Product, error) {
	var lastErr error
	attempted, errored := 0, 0

	for _, tier := range c.tiers {
		if !tier.available() {
			continue
		}
		attempted++

		products, err := tier.searchByTitle(ctx, term, limit)
		if err != nil {
			log.Warn().Err(err).
				Str("tier", tier.name()).
				Str("term", term).
				Msg("Shopify tier failed, trying next tier")
			lastErr = err
			errored++
			continue
		}
		if len(products) > 0 {
			log.Debug().
				Str("tier", tier.name()).
				Str("term", term).
				Int("count", len(products)).
				Msg("Shopify search resolved")
			return products, nil
		}
	}

	if attempted == 0 {
		return nil, fmt.Errorf("no shopify access tier configured")
	}
	if errored == attempted {
		return nil, lastErr
	}
	return nil, nil
}

// storeCurrency returns the store's default currency, fetched once from
// shop.json via the Admin API and cached. Falls back to USD when the lookup
// is impossible (no admin token) or fails.
func (c *ShopifyClient) storeCurrency(ctx context.Context) string {
	c.currencyMu.Lock()
	defer c.currencyMu.Unlock()

	if c.currency != "" {
		return c.currency
	}
	if c.adminToken == "" {
		c.currency = fallbackCurrency
		return c.currency
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.adminBaseURL+"/shop.json", nil)
	if err != nil {
		c.currency = fallbackCurrency
		return c.currency
	}
	req.Header.Set("X-Shopify-Access-Token", c.adminToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to fetch store currency, defaulting to USD")
		c.currency = fallbackCurrency
		return c.currency
	}
	defer resp.Body.Close()

	var shop struct {
		Shop struct {
			Currency string `json:"currency"`
		} `json:"shop"`
	}
	if resp.StatusCode != http.StatusOK || json.NewDecoder(resp.Body).Decode(&shop) != nil || shop.Shop.Currency == "" {
		c.currency = fallbackCurrency
		return c.currency
	}

	c.currency = shop.Shop.Currency
	return c.currency
}

// --- Admin API tier ---

type adminTier struct {
	client *ShopifyClient
}

func (t *adminTier) name() string { return "admin" }

func (t *adminTier) available() bool { return t.client.adminToken != "" }

type adminProductsResponse struct {
	Products []adminProduct `json:"products"`
}

type adminProduct struct {
	ID       int64          `json:"id"`
	Title    string         `json:"title"`
	BodyHTML string         `json:"body_html"`
	Handle   string         `json:"handle"`
	Variants []adminVariant `json:"variants"`
	Images   []adminImage   `json:"images"`
	Vendor   string         `json:"vendor"`
}

type adminVariant struct {
	Price string `json:"price"`
}

type adminImage struct {
	Src string `json:"src"`
}

func (t *adminTier) searchByTitle(ctx context.Context, term string, limit int) ([]Product, error) {
	c := t.client
	endpoint := fmt.Sprintf("%s/products.json?limit=%d&title=%s",
		c.adminBaseURL, limit, url.QueryEscape(term))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.adminToken)

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		return nil, fmt.Errorf("admin search request: %w", err)
	}
	defer resp.Body.Close()

	log.Debug().
		Int("statusCode", resp.StatusCode).
		Dur("duration", duration).
		Str("term", term).
		Msg("Shopify Admin API response")

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("admin API returned status %d: %s", resp.StatusCode, textutil.Truncate(string(body), 200))
	}

	var parsed adminProductsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	currency := c.storeCurrency(ctx)

	products := make([]Product, 0, len(parsed.Products))
	for _, p := range parsed.Products {
		if p.Title == "" || p.Handle == "" {
			// Required fields missing: drop the record rather than fabricate.
			continue
		}

		product := Product{
			ID:     strconv.FormatInt(p.ID, 10),
			Title:  p.Title,
			URL:    fmt.Sprintf("https://%s/products/%s", c.domain, p.Handle),
			Source: SourceShopify,
		}
		if len(p.Variants) > 0 && p.Variants[0].Price != "" {
			product.Price = &Price{Amount: p.Variants[0].Price, Currency: currency}
		}
		if len(p.Images) > 0 && p.Images[0].Src != "" {
			src := p.Images[0].Src
			product.ImageURL = &src
		}
		if p.Vendor != "" {
			vendor := p.Vendor
			product.Brand = &vendor
		}

		products = append(products, product)
		if len(products) >= limit {
			break
		}
	}
	return products, nil
}

// --- Storefront API tier ---

type storefrontTier struct {
	client *ShopifyClient
}

func (t *storefrontTier) name() string { return "storefront" }

func (t *storefrontTier) available() bool { return t.client.storefrontToken != "" }

const storefrontSearchQuery = `
query searchProducts($query: String!, $first: Int!) {
  products(first: $first, query: $query) {
    edges {
      node {
        id
        title
        description
        handle
        onlineStoreUrl
        priceRange {
          minVariantPrice {
            amount
            currencyCode
          }
        }
        images(first: 1) {
          edges {
            node {
              url
            }
          }
        }
      }
    }
  }
}`

type storefrontResponse struct {
	Data *struct {
		Products               *storefrontConnection `json:"products"`
		ProductRecommendations []storefrontNode      `json:"productRecommendations"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

type storefrontConnection struct {
	Edges []struct {
		Node storefrontNode `json:"node"`
	} `json:"edges"`
}

type storefrontNode struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Handle         string `json:"handle"`
	OnlineStoreURL string `json:"onlineStoreUrl"`
	PriceRange     *struct {
		MinVariantPrice *struct {
			Amount       string `json:"amount"`
			CurrencyCode string `json:"currencyCode"`
		} `json:"minVariantPrice"`
	} `json:"priceRange"`
	Images *struct {
		Edges []struct {
			Node struct {
				URL string `json:"url"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"images"`
}

func (t *storefrontTier) searchByTitle(ctx context.Context, term string, limit int) ([]Product, error) {
	variables := map[string]any{
		"query": fmt.Sprintf("title:%s", term),
		"first": limit,
	}

	resp, err := t.client.storefrontQuery(ctx, storefrontSearchQuery, variables)
	if err != nil {
		return nil, err
	}
	if resp.Data == nil || resp.Data.Products == nil {
		return nil, fmt.Errorf("storefront response missing products")
	}

	products := make([]Product, 0, len(resp.Data.Products.Edges))
	for _, edge := range resp.Data.Products.Edges {
		if p, ok := t.client.normalizeStorefrontNode(edge.Node); ok {
			products = append(products, p)
			if len(products) >= limit {
				break
			}
		}
	}
	return products, nil
}

// storefrontQuery posts a GraphQL query to the Storefront API.
func (c *ShopifyClient) storefrontQuery(ctx context.Context, query string, variables map[string]any) (*storefrontResponse, error) {
	payload, err := json.Marshal(map[string]any{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.storefrontURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Storefront-Access-Token", c.storefrontToken)

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		return nil, fmt.Errorf("storefront request: %w", err)
	}
	defer resp.Body.Close()

	log.Debug().
		Int("statusCode", resp.StatusCode).
		Dur("duration", duration).
		Msg("Shopify Storefront API response")

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("storefront API returned status %d: %s", resp.StatusCode, textutil.Truncate(string(body), 200))
	}

	var parsed storefrontResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if len(parsed.Errors) > 0 {
		return nil, fmt.Errorf("storefront API error: %s", parsed.Errors[0].Message)
	}
	return &parsed, nil
}

// normalizeStorefrontNode converts a storefront product node into the shared
// product shape. Records without a usable title or URL are dropped.
func (c *ShopifyClient) normalizeStorefrontNode(n storefrontNode) (Product, bool) {
	productURL := n.OnlineStoreURL
	if productURL == "" && n.Handle != "" {
		productURL = fmt.Sprintf("https://%s/products/%s", c.domain, n.Handle)
	}
	if n.Title == "" || productURL == "" {
		return Product{}, false
	}

	product := Product{
		ID:     n.ID,
		Title:  n.Title,
		URL:    productURL,
		Source: SourceShopify,
	}
	if n.PriceRange != nil && n.PriceRange.MinVariantPrice != nil && n.PriceRange.MinVariantPrice.Amount != "" {
		product.Price = &Price{
			Amount:   n.PriceRange.MinVariantPrice.Amount,
			Currency: n.PriceRange.MinVariantPrice.CurrencyCode,
		}
	}
	if n.Images != nil && len(n.Images.Edges) > 0 && n.Images.Edges[0].Node.URL != "" {
		imageURL := n.Images.Edges[0].Node.URL
		product.ImageURL = &imageURL
	}
	return product, true
}

// --- Product recommendations (Storefront only) ---

const storefrontRecommendationsQuery = `
query productRecommendations($productId: ID!) {
  productRecommendations(productId: $productId) {
    id
    title
    handle
    onlineStoreUrl
    priceRange {
      minVariantPrice {
        amount
        currencyCode
      }
    }
    images(first: 1) {
      edges {
        node {
          url
        }
      }
    }
  }
}`

// Recommendations returns products related to the given product ID, via the
// Storefront API. Returns (nil, nil) when no storefront token is configured —
// recommendations are best-effort.
func (c *ShopifyClient) Recommendations(ctx context.Context, productID string, limit int) ([]Product, error) {
	if c.storefrontToken == "" {
		return nil, nil
	}

	resp, err := c.storefrontQuery(ctx, storefrontRecommendationsQuery, map[string]any{
		"productId": productID,
	})
	if err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("storefront response missing data")
	}

	var products []Product
	for _, node := range resp.Data.ProductRecommendations {
		if p, ok := c.normalizeStorefrontNode(node); ok {
			products = append(products, p)
			if limit > 0 && len(products) >= limit {
				break
			}
		}
	}
	return products, nil
}
