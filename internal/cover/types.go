package cover

import "bookcover-studio/internal/i18n"

// BookMetadata is the user-edited record driving every prompt. Generated
// text is merged into Title/Subtitle/Description; the rest stays as typed.
type BookMetadata struct {
	MarketplaceID string `json:"marketplaceId"`
	Category      string `json:"category"`
	TargetMarket  string `json:"targetMarket"`
	Topic         string `json:"topic"`
	Author        string `json:"author"`
	Title         string `json:"title"`
	Subtitle      string `json:"subtitle"`
	Description   string `json:"description"`
}

// Reference is one competing title surfaced by the research step.
type Reference struct {
	Title      string `json:"title"`
	Author     string `json:"author"`
	VisualHook string `json:"visualHook"`
}

// SourceLink is a grounding citation extracted from search metadata.
type SourceLink struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// GroundingData is produced once per research run and stays immutable
// until the next run.
type GroundingData struct {
	Trends     string       `json:"trends"`
	References []Reference  `json:"references"`
	Sources    []SourceLink `json:"sources"`
}

// FallbackGrounding is the degraded-but-valid research result used when
// the remote call fails: non-empty trends text, empty lists.
func FallbackGrounding(language string) GroundingData {
	return GroundingData{
		Trends:     i18n.T(language, "fallback_trends"),
		References: []Reference{},
		Sources:    []SourceLink{},
	}
}

// BookText is the structured text-generation result.
type BookText struct {
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle"`
	Description string `json:"description"`
}

// PlaceholderText is the fixed fallback for malformed text responses.
func PlaceholderText() BookText {
	return BookText{Title: "Untitled", Subtitle: "", Description: ""}
}

// Stage is the linear pipeline position. There is no branching; the only
// backwards move is an explicit reset to StageDetails.
type Stage string

const (
	StageDetails    Stage = "details"
	StageResearch   Stage = "research"
	StageGeneration Stage = "generation"
	StageVideo      Stage = "video"
)

// ResearchRequest carries everything the grounded-search call needs.
type ResearchRequest struct {
	Category      string
	Topic         string
	TargetMarket  string
	MarketplaceID string
	Language      string
}

// TextRequest carries everything the structured text call needs.
type TextRequest struct {
	Topic    string
	Category string
	Author   string
	Language string
}
