package profile

import (
	"strings"
	"testing"
)

const basePrompt = "Analyze this outfit in detail."

func TestComposeNilProfile(t *testing.T) {
	payload := Compose(basePrompt, nil)

	if payload.AugmentedText != basePrompt {
		t.Errorf("expected augmented text to equal base, got %q", payload.AugmentedText)
	}
	if payload.UsedPersonalization {
		t.Error("personalization flag must be false for nil profile")
	}
}

func TestComposeAllSignalsFixedOrder(t *testing.T) {
	p := &StyleProfile{
		Username:         "alexfashion",
		FashionInterests: []string{"casual", "streetwear"},
		ColorPreferences: []string{"black", "olive"},
		RecentSnippets:   []string{"post one", "post two"},
	}

	payload := Compose(basePrompt, p)

	if !payload.UsedPersonalization {
		t.Fatal("personalization flag must be true when a profile is present")
	}
	if !strings.HasPrefix(payload.AugmentedText, basePrompt) {
		t.Error("augmented text must start with the base instruction")
	}

	interestsIdx := strings.Index(payload.AugmentedText, "casual, streetwear")
	colorsIdx := strings.Index(payload.AugmentedText, "black, olive")
	snippetsIdx := strings.Index(payload.AugmentedText, "post one | post two")
	if interestsIdx == -1 || colorsIdx == -1 || snippetsIdx == -1 {
		t.Fatalf("missing signal sentence in %q", payload.AugmentedText)
	}
	if !(interestsIdx < colorsIdx && colorsIdx < snippetsIdx) {
		t.Error("signal sentences must appear in order interests, colors, snippets")
	}
}

func TestComposeOmitsAbsentCategories(t *testing.T) {
	p := &StyleProfile{
		Username:         "alexfashion",
		ColorPreferences: []string{"navy"},
	}

	payload := Compose(basePrompt, p)

	if strings.Contains(payload.AugmentedText, "fashion interests") {
		t.Error("empty interests must not produce a sentence")
	}
	if strings.Contains(payload.AugmentedText, "recent style posts") {
		t.Error("empty snippets must not produce a sentence")
	}
	if !strings.Contains(payload.AugmentedText, "navy") {
		t.Error("present colors must produce a sentence")
	}
}

func TestComposeSnippetCap(t *testing.T) {
	p := &StyleProfile{
		RecentSnippets: []string{"one", "two", "three", "four", "five"},
	}

	payload := Compose(basePrompt, p)

	if strings.Contains(payload.AugmentedText, "four") {
		t.Error("no more than three snippets may be appended")
	}
	if !strings.Contains(payload.AugmentedText, "three") {
		t.Error("the first three snippets must be present")
	}
}

func TestComposeDeterministic(t *testing.T) {
	p := &StyleProfile{
		FashionInterests: []string{"casual"},
		ColorPreferences: []string{"black"},
	}

	first := Compose(basePrompt, p)
	second := Compose(basePrompt, p)
	if first != second {
		t.Error("compose must be deterministic for identical input")
	}
}

func TestNormalizeUsername(t *testing.T) {
	if got := NormalizeUsername(" @alexfashion "); got != "alexfashion" {
		t.Errorf("expected alexfashion, got %q", got)
	}
	if got := NormalizeUsername("alexfashion"); got != "alexfashion" {
		t.Errorf("expected alexfashion, got %q", got)
	}
}
