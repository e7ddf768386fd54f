// Package config loads process-wide credentials at startup. Credentials are
// read once from a .env file (if present) and the environment, and never
// mutated afterwards. A missing optional credential disables the stage or
// catalog that needs it; only the Gemini API key is required.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// SocialCredentials configures the social style-signal connector.
// Optional; when absent, profile enrichment falls back to the fixture
// connector (or is skipped entirely when no username is supplied).
type SocialCredentials struct {
	BaseURL string
	APIKey  string
}

// Configured reports whether the real social connector can be used.
func (c SocialCredentials) Configured() bool {
	return c.BaseURL != "" && c.APIKey != ""
}

// AmazonCredentials configures the Product Advertising API catalog.
type AmazonCredentials struct {
	AccessKey  string
	SecretKey  string
	PartnerTag string
	Region     string
}

// Configured reports whether the Amazon catalog can be enabled.
func (c AmazonCredentials) Configured() bool {
	return c.AccessKey != "" && c.SecretKey != "" && c.PartnerTag != ""
}

// ShopifyCredentials configures the Shopify catalog. Either token enables the
// catalog; the admin token unlocks the higher-priority tier.
type ShopifyCredentials struct {
	StoreDomain     string
	AdminToken      string
	StorefrontToken string
}

// Configured reports whether the Shopify catalog can be enabled.
func (c ShopifyCredentials) Configured() bool {
	return c.StoreDomain != "" && (c.AdminToken != "" || c.StorefrontToken != "")
}

// Config holds all process-wide credentials. Read once at startup, read-only
// for the rest of the process lifetime.
type Config struct {
	GeminiAPIKey string
	Social       SocialCredentials
	Amazon       AmazonCredentials
	Shopify      ShopifyCredentials
}

// Load reads credentials from .env (if present) and the environment.
// It fails only when the Gemini API key is missing — every other credential
// is optional and its absence merely disables the corresponding stage.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using environment variables only")
	}

	cfg := &Config{
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		Social: SocialCredentials{
			BaseURL: os.Getenv("SOCIAL_API_URL"),
			APIKey:  os.Getenv("SOCIAL_API_KEY"),
		},
		Amazon: AmazonCredentials{
			AccessKey:  os.Getenv("AMAZON_ACCESS_KEY"),
			SecretKey:  os.Getenv("AMAZON_SECRET_KEY"),
			PartnerTag: os.Getenv("AMAZON_PARTNER_TAG"),
			Region:     os.Getenv("AMAZON_REGION"),
		},
		Shopify: ShopifyCredentials{
			StoreDomain:     NormalizeStoreDomain(os.Getenv("SHOPIFY_STORE_URL")),
			AdminToken:      os.Getenv("SHOPIFY_ACCESS_TOKEN"),
			StorefrontToken: os.Getenv("SHOPIFY_STOREFRONT_TOKEN"),
		},
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}

	log.Debug().
		Bool("social", cfg.Social.Configured()).
		Bool("amazon", cfg.Amazon.Configured()).
		Bool("shopify", cfg.Shopify.Configured()).
		Msg("Credentials loaded")

	return cfg, nil
}

// NormalizeStoreDomain reduces a Shopify store URL to its bare domain:
// the scheme and any trailing slash are stripped.
func NormalizeStoreDomain(raw string) string {
	domain := strings.TrimSpace(raw)
	if i := strings.Index(domain, "//"); i != -1 {
		domain = domain[i+2:]
	}
	return strings.TrimRight(domain, "/")
}
