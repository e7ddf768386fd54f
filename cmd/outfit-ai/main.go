package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tom-bu/outfit-ai/internal/catalog"
	"github.com/tom-bu/outfit-ai/internal/config"
	"github.com/tom-bu/outfit-ai/internal/gemini"
	"github.com/tom-bu/outfit-ai/internal/logging"
	"github.com/tom-bu/outfit-ai/internal/profile"
	"github.com/tom-bu/outfit-ai/internal/stylist"
)

// CLI flags
var (
	imageFlag      string
	usernameFlag   string
	limitFlag      int
	imageCountFlag int
	outDirFlag     string
)

// rootCmd is the main Cobra command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "outfit-ai",
	Short: "AI-powered outfit critique and shopping recommendations",
	Long: `Outfit AI analyzes a photo of an outfit and turns it into shopping guidance.

The tool critiques the outfit with a vision model, grounds trend commentary
in live search results, extracts purchasable item phrases, and resolves them
against the configured product catalogs (Amazon, Shopify). It can optionally
render a flat-lay image of the suggested items.

Examples:
  outfit-ai --image outfit.jpg
  outfit-ai -i outfit.jpg -u @style_fan
  outfit-ai -i outfit.jpg --limit 3 --images 2 --out-dir ./renders`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().StringVarP(&imageFlag, "image", "i", "", "Path to the outfit photo to analyze (required)")
	rootCmd.Flags().StringVarP(&usernameFlag, "username", "u", "", "Social username for personalized critique")
	rootCmd.Flags().IntVar(&limitFlag, "limit", stylist.DefaultProductLimit, "Maximum products per catalog for each search term")
	rootCmd.Flags().IntVar(&imageCountFlag, "images", 0, "Number of suggested-outfit images to render (0 = none)")
	rootCmd.Flags().StringVar(&outDirFlag, "out-dir", ".", "Directory for rendered outfit images")
	rootCmd.MarkFlagRequired("image")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runMain is the main execution logic called by Cobra.
func runMain(cmd *cobra.Command, args []string) {
	logging.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	imageData, mimeType := loadOutfitImage(imageFlag)

	ctx := context.Background()
	client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Gemini client")
	}

	resolver, recommender := buildCatalogs(cfg)

	pipeline, err := stylist.New(stylist.Deps{
		Analyzer:    client,
		Trends:      client,
		Terms:       client,
		Images:      client,
		Enricher:    buildEnricher(cfg),
		Catalogs:    resolver,
		Recommender: recommender,
	}, stylist.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build pipeline")
	}

	visionModel, textModel, imageModel := client.ModelNames()
	logging.NewStartupLogger("outfit-ai").
		Model("vision", visionModel).
		Model("text", textModel).
		Model("image", imageModel).
		Feature("social", cfg.Social.Configured()).
		Feature("amazon", cfg.Amazon.Configured()).
		Feature("shopify", cfg.Shopify.Configured()).
		Config("outDir", outDirFlag).
		Log()

	result, err := pipeline.Run(ctx, stylist.Request{
		ImageData:  imageData,
		ImageMIME:  mimeType,
		Username:   usernameFlag,
		Limit:      limitFlag,
		ImageCount: imageCountFlag,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("styling pipeline failed")
	}

	printResult(result)
	writeImages(result)
}

// buildEnricher picks the profile source: the real social connector when its
// credentials are configured, the fixture connector when a username was given
// anyway, nil when personalization cannot apply.
func buildEnricher(cfg *config.Config) profile.Enricher {
	if cfg.Social.Configured() {
		return profile.NewConnector(cfg.Social.BaseURL, cfg.Social.APIKey)
	}
	if usernameFlag != "" {
		log.Info().Msg("Social API not configured, using fixture style signals")
		return &profile.FixtureEnricher{}
	}
	return nil
}

// buildCatalogs enables every catalog whose credentials are present. The
// Shopify client doubles as the related-product source when available.
func buildCatalogs(cfg *config.Config) (*catalog.Resolver, stylist.Recommender) {
	var catalogs []catalog.Searcher
	var recommender stylist.Recommender

	if cfg.Amazon.Configured() {
		amazon, err := catalog.NewAmazonClient(
			cfg.Amazon.AccessKey, cfg.Amazon.SecretKey, cfg.Amazon.PartnerTag, cfg.Amazon.Region)
		if err != nil {
			log.Warn().Err(err).Msg("Amazon catalog disabled")
		} else {
			catalogs = append(catalogs, amazon)
		}
	}
	if cfg.Shopify.Configured() {
		shopify, err := catalog.NewShopifyClient(
			cfg.Shopify.StoreDomain, cfg.Shopify.AdminToken, cfg.Shopify.StorefrontToken)
		if err != nil {
			log.Warn().Err(err).Msg("Shopify catalog disabled")
		} else {
			catalogs = append(catalogs, shopify)
			recommender = shopify
		}
	}

	resolver := catalog.NewResolver(catalogs...)
	log.Info().Strs("catalogs", resolver.CatalogNames()).Msg("Product catalogs configured")
	return resolver, recommender
}

// loadOutfitImage reads the photo and derives its MIME type from the
// extension. Only formats the vision model accepts are allowed.
func loadOutfitImage(path string) ([]byte, string) {
	mimeType, err := imageMIMEType(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("unsupported image")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Fatal().Str("path", path).Msg("Image not found")
		}
		log.Fatal().Err(err).Str("path", path).Msg("Failed to read image")
	}
	if len(data) == 0 {
		log.Fatal().Str("path", path).Msg("Image file is empty")
	}

	return data, mimeType
}

func imageMIMEType(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg", nil
	case ".png":
		return "image/png", nil
	case ".webp":
		return "image/webp", nil
	default:
		return "", fmt.Errorf("unsupported image extension %q (want .jpg, .jpeg, .png, or .webp)", filepath.Ext(path))
	}
}

// printResult renders the pipeline output to the console.
func printResult(res *stylist.Result) {
	fmt.Println()
	fmt.Println("============================================")
	fmt.Println("👗 Outfit Analysis")
	fmt.Println("============================================")
	if res.UsedPersonalization {
		fmt.Println("(personalized with your style profile)")
	}
	fmt.Println()
	if res.Critique != "" {
		fmt.Println(res.Critique)
	} else {
		fmt.Println("No critique available.")
	}

	if res.TrendText != "" {
		fmt.Println()
		fmt.Println("--------------------------------------------")
		fmt.Println("📈 Current Trends")
		fmt.Println("--------------------------------------------")
		fmt.Println(res.TrendText)
	}

	if len(res.Matches) > 0 {
		fmt.Println()
		fmt.Println("--------------------------------------------")
		fmt.Println("🛍️  Where to Shop")
		fmt.Println("--------------------------------------------")
		for _, match := range res.Matches {
			fmt.Printf("\n%s:\n", match.Term)
			printed := 0
			for catalogName, products := range match.Products {
				for _, p := range products {
					line := fmt.Sprintf("   • %s", p.Title)
					if p.Price != nil {
						line += fmt.Sprintf(" — %s %s", p.Price.Amount, p.Price.Currency)
					}
					line += fmt.Sprintf(" [%s]\n     %s", catalogName, p.URL)
					fmt.Println(line)
					printed++
				}
			}
			if printed == 0 {
				fmt.Println("   (no matches)")
			}
		}
	}

	if len(res.Related) > 0 {
		fmt.Println()
		fmt.Println("--------------------------------------------")
		fmt.Println("✨ You May Also Like")
		fmt.Println("--------------------------------------------")
		for _, p := range res.Related {
			line := fmt.Sprintf("   • %s", p.Title)
			if p.Price != nil {
				line += fmt.Sprintf(" — %s %s", p.Price.Amount, p.Price.Currency)
			}
			line += fmt.Sprintf("\n     %s", p.URL)
			fmt.Println(line)
		}
	}

	if len(res.Notes) > 0 {
		fmt.Println()
		fmt.Println("--------------------------------------------")
		for _, note := range res.Notes {
			fmt.Printf("⚠️  %s\n", note)
		}
	}
}

// writeImages saves any rendered outfit images to the output directory.
func writeImages(res *stylist.Result) {
	if len(res.Images) == 0 {
		return
	}

	if err := os.MkdirAll(outDirFlag, 0o755); err != nil {
		log.Error().Err(err).Str("dir", outDirFlag).Msg("Failed to create output directory")
		return
	}

	fmt.Println()
	fmt.Println("--------------------------------------------")
	fmt.Println("🎨 Suggested Outfit Renders")
	fmt.Println("--------------------------------------------")

	for i, img := range res.Images {
		name := fmt.Sprintf("suggested-outfit-%s-%d%s", res.RequestID, i+1, extensionForMIME(img.MIMEType))
		path := filepath.Join(outDirFlag, name)
		if err := os.WriteFile(path, img.Data, 0o644); err != nil {
			log.Error().Err(err).Str("path", path).Msg("Failed to write image")
			continue
		}
		fmt.Printf("   Saved %s\n", path)
	}
}

func extensionForMIME(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
