package catalog

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/rs/zerolog/log"

	"github.com/tom-bu/outfit-ai/internal/textutil"
)

const (
	paapiService = "ProductAdvertisingAPI"
	paapiTarget  = "com.amazon.paapi5.v1.ProductAdvertisingAPIv1.SearchItems"
	paapiPath    = "/paapi5/searchitems"

	amazonTimeout = 15 * time.Second
)

// paapiMarketplace maps an AWS region to the Product Advertising API host and
// marketplace it serves. PA-API hosts are regional, not per-store.
var paapiMarketplace = map[string]struct {
	host        string
	marketplace string
}{
	"us-east-1": {"webservices.amazon.com", "www.amazon.com"},
	"eu-west-1": {"webservices.amazon.co.uk", "www.amazon.co.uk"},
	"us-west-2": {"webservices.amazon.co.jp", "www.amazon.co.jp"},
}

// AmazonClient searches the Amazon Product Advertising API v5. Requests are
// SigV4-signed; responses are treated as untrusted and traversed defensively.
type AmazonClient struct {
	httpClient  *http.Client
	signer      *v4.Signer
	credentials aws.Credentials
	partnerTag  string
	region      string
	marketplace string

	// endpoint is the full SearchItems URL, overridden in tests.
	endpoint string
}

// NewAmazonClient creates a PA-API catalog client. Unknown regions fall back
// to the US marketplace.
func NewAmazonClient(accessKey, secretKey, partnerTag, region string) (*AmazonClient, error) {
	if accessKey == "" || secretKey == "" || partnerTag == "" {
		return nil, fmt.Errorf("amazon catalog requires access key, secret key, and partner tag")
	}
	if region == "" {
		region = "us-east-1"
	}
	mp, ok := paapiMarketplace[region]
	if !ok {
		log.Warn().Str("region", region).Msg("Unknown PA-API region, defaulting to us-east-1")
		region = "us-east-1"
		mp = paapiMarketplace[region]
	}

	return &AmazonClient{
		httpClient: &http.Client{
			Timeout: amazonTimeout,
		},
		signer: v4.NewSigner(),
		credentials: aws.Credentials{
			AccessKeyID:     accessKey,
			SecretAccessKey: secretKey,
		},
		partnerTag:  partnerTag,
		region:      region,
		marketplace: mp.marketplace,
		endpoint:    fmt.Sprintf("https://%s%s", mp.host, paapiPath),
	}, nil
}

// Name implements Searcher.
func (c *AmazonClient) Name() string {
	return string(SourceAmazon)
}

type searchItemsRequest struct {
	Keywords    string   `json:"Keywords"`
	SearchIndex string   `json:"SearchIndex"`
	ItemCount   int      `json:"ItemCount"`
	PartnerTag  string   `json:"PartnerTag"`
	PartnerType string   `json:"PartnerType"`
	Marketplace string   `json:"Marketplace"`
	Resources   []string `json:"Resources"`
}

// The response shape is all pointers: PA-API omits whole subtrees (no offers,
// no images, no brand) for many items and none of that may drop a record that
// still has a title and URL.
type searchItemsResponse struct {
	SearchResult *struct {
		Items []paapiItem `json:"Items"`
	} `json:"SearchResult"`
	Errors []struct {
		Code    string `json:"Code"`
		Message string `json:"Message"`
	} `json:"Errors"`
}

type paapiItem struct {
	ASIN          *string `json:"ASIN"`
	DetailPageURL *string `json:"DetailPageURL"`
	ItemInfo      *struct {
		Title *struct {
			DisplayValue *string `json:"DisplayValue"`
		} `json:"Title"`
		ByLineInfo *struct {
			Brand *struct {
				DisplayValue *string `json:"DisplayValue"`
			} `json:"Brand"`
		} `json:"ByLineInfo"`
	} `json:"ItemInfo"`
	Offers *struct {
		Listings []struct {
			Price *struct {
				Amount   *float64 `json:"Amount"`
				Currency *string  `json:"Currency"`
			} `json:"Price"`
		} `json:"Listings"`
	} `json:"Offers"`
	Images *struct {
		Primary *struct {
			Large *struct {
				URL *string `json:"URL"`
			} `json:"Large"`
		} `json:"Primary"`
	} `json:"Images"`
}

// Search implements Searcher against the Fashion search index.
func (c *AmazonClient) Search(ctx context.Context, term string, limit int) ([]Product, error) {
	payload, err := json.Marshal(searchItemsRequest{
		Keywords:    term,
		SearchIndex: "Fashion",
		ItemCount:   limit,
		PartnerTag:  c.partnerTag,
		PartnerType: "Associates",
		Marketplace: c.marketplace,
		Resources: []string{
			"ItemInfo.Title",
			"ItemInfo.ByLineInfo",
			"Offers.Listings.Price",
			"Images.Primary.Large",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Content-Encoding", "amz-1.0")
	req.Header.Set("X-Amz-Target", paapiTarget)

	hash := sha256.Sum256(payload)
	if err := c.signer.SignHTTP(ctx, c.credentials, req, hex.EncodeToString(hash[:]),
		paapiService, c.region, time.Now()); err != nil {
		return nil, fmt.Errorf("sign request: %w", err)
	}

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	log.Debug().
		Int("statusCode", resp.StatusCode).
		Dur("duration", duration).
		Str("term", term).
		Msg("PA-API SearchItems response")

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("PA-API returned status %d: %s", resp.StatusCode, textutil.Truncate(string(body), 200))
	}

	var parsed searchItemsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if len(parsed.Errors) > 0 {
		return nil, fmt.Errorf("PA-API error %s: %s", parsed.Errors[0].Code, parsed.Errors[0].Message)
	}
	if parsed.SearchResult == nil {
		return nil, nil
	}

	products := make([]Product, 0, len(parsed.SearchResult.Items))
	for _, item := range parsed.SearchResult.Items {
		if p, ok := normalizePaapiItem(item); ok {
			products = append(products, p)
			if len(products) >= limit {
				break
			}
		}
	}
	return products, nil
}

// normalizePaapiItem maps a PA-API item onto the shared product shape. Only a
// missing title or detail page URL drops the record; a missing price, image,
// or brand simply stays nil.
func normalizePaapiItem(item paapiItem) (Product, bool) {
	if item.ASIN == nil || item.DetailPageURL == nil || *item.DetailPageURL == "" {
		return Product{}, false
	}
	if item.ItemInfo == nil || item.ItemInfo.Title == nil || item.ItemInfo.Title.DisplayValue == nil ||
		*item.ItemInfo.Title.DisplayValue == "" {
		return Product{}, false
	}

	product := Product{
		ID:     *item.ASIN,
		Title:  *item.ItemInfo.Title.DisplayValue,
		URL:    *item.DetailPageURL,
		Source: SourceAmazon,
	}

	if item.Offers != nil && len(item.Offers.Listings) > 0 {
		price := item.Offers.Listings[0].Price
		if price != nil && price.Amount != nil && price.Currency != nil {
			product.Price = &Price{
				Amount:   strconv.FormatFloat(*price.Amount, 'f', 2, 64),
				Currency: *price.Currency,
			}
		}
	}
	if item.Images != nil && item.Images.Primary != nil && item.Images.Primary.Large != nil &&
		item.Images.Primary.Large.URL != nil && *item.Images.Primary.Large.URL != "" {
		product.ImageURL = item.Images.Primary.Large.URL
	}
	if item.ItemInfo.ByLineInfo != nil && item.ItemInfo.ByLineInfo.Brand != nil &&
		item.ItemInfo.ByLineInfo.Brand.DisplayValue != nil && *item.ItemInfo.ByLineInfo.Brand.DisplayValue != "" {
		product.Brand = item.ItemInfo.ByLineInfo.Brand.DisplayValue
	}

	return product, true
}
