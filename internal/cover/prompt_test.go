package cover

import (
	"strings"
	"testing"
)

func TestBuildResearchPrompt(t *testing.T) {
	got := BuildResearchPrompt(ResearchRequest{
		Category:      "thriller",
		Topic:         "a missing lighthouse keeper",
		TargetMarket:  "commuters",
		MarketplaceID: "UK",
		Language:      "de",
	})

	for _, want := range []string{"Thriller", "Amazon.co.uk", "missing lighthouse keeper", "commuters", "German", `"trends"`, `"references"`} {
		if !strings.Contains(got, want) {
			t.Errorf("research prompt missing %q", want)
		}
	}
}

func TestBuildImagePrompt(t *testing.T) {
	meta := BookMetadata{
		Title:    "Deep Focus",
		Subtitle: "Win back your attention",
		Author:   "Jane Doe",
		Category: "self_help",
		Topic:    "attention",
	}
	grounding := GroundingData{
		Trends: "Bold type on plain backgrounds.",
		References: []Reference{
			{Title: "A", Author: "X", VisualHook: "giant serif title"},
			{Title: "B", Author: "Y", VisualHook: ""},
			{Title: "C", Author: "Z", VisualHook: "single object motif"},
			{Title: "D", Author: "W", VisualHook: "never included"},
		},
	}

	got := BuildImagePrompt(meta, grounding)

	for _, want := range []string{"Deep Focus", "Jane Doe", "Bold type", "giant serif title", "front only"} {
		if !strings.Contains(got, want) {
			t.Errorf("image prompt missing %q", want)
		}
	}
	if strings.Contains(got, "never included") {
		t.Error("image prompt should cap references at three")
	}
}

func TestBuildImagePromptWithoutGrounding(t *testing.T) {
	got := BuildImagePrompt(BookMetadata{Topic: "x", Author: "y"}, GroundingData{})
	if strings.Contains(got, "Current trends") {
		t.Error("empty grounding should not render a trends section")
	}
	if !strings.Contains(got, "Title: -") {
		t.Error("missing title should render as a dash")
	}
}

func TestBuildVideoPrompt(t *testing.T) {
	got := BuildVideoPrompt(BookMetadata{Title: "Deep Focus", Author: "Jane Doe"})
	if !strings.Contains(got, `"Deep Focus"`) || !strings.Contains(got, "Jane Doe") {
		t.Errorf("video prompt missing title or author: %q", got)
	}
}
