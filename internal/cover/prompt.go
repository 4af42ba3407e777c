package cover

import (
	"fmt"
	"strings"

	"bookcover-studio/internal/i18n"
)

// CoverAspectRatio is the portrait ratio used for every cover candidate.
const CoverAspectRatio = "2:3"

// BuildResearchPrompt asks the model to ground a search against the named
// marketplace and niche and to answer with a single JSON object.
func BuildResearchPrompt(req ResearchRequest) string {
	var b strings.Builder

	b.WriteString("You are a book-market researcher. Use live web search to study current bestselling ")
	fmt.Fprintf(&b, "%s covers on %s", CategoryName(req.Category), MarketplaceName(req.MarketplaceID))
	if strings.TrimSpace(req.TargetMarket) != "" {
		fmt.Fprintf(&b, " for the target audience %q", strings.TrimSpace(req.TargetMarket))
	}
	fmt.Fprintf(&b, ".\nThe book topic is: %q.\n\n", strings.TrimSpace(req.Topic))

	b.WriteString("Answer with exactly one JSON object, no markdown fences, matching:\n")
	b.WriteString(`{"trends": "<3-5 sentences on the visual trends that sell in this niche right now>",` + "\n")
	b.WriteString(` "references": [{"title": "<competing book title>", "author": "<its author>", "visualHook": "<one sentence on what its cover does visually>"}]}` + "\n\n")
	b.WriteString("List 3 to 5 references. ")
	fmt.Fprintf(&b, "Write all text in %s.", i18n.EnglishName(req.Language))

	return b.String()
}

// BuildTextPrompt requests title, subtitle and description for the book.
func BuildTextPrompt(req TextRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Write marketplace-ready metadata for a %s book about %q by %s.\n",
		CategoryName(req.Category), strings.TrimSpace(req.Topic), strings.TrimSpace(req.Author))
	b.WriteString("The title must be short and punchy, the subtitle must promise a concrete benefit, ")
	b.WriteString("and the description must be 2-3 paragraphs of persuasive sales copy.\n")
	fmt.Fprintf(&b, "Write everything in %s.", i18n.EnglishName(req.Language))

	return b.String()
}

// BuildImagePrompt renders the cover-generation brief from the merged
// metadata and the research result.
func BuildImagePrompt(meta BookMetadata, grounding GroundingData) string {
	var b strings.Builder

	b.WriteString("Design a professional book cover, front only, portrait format.\n\n")
	fmt.Fprintf(&b, "Title: %s\n", orDash(meta.Title))
	if strings.TrimSpace(meta.Subtitle) != "" {
		fmt.Fprintf(&b, "Subtitle: %s\n", meta.Subtitle)
	}
	fmt.Fprintf(&b, "Author: %s\n", orDash(meta.Author))
	fmt.Fprintf(&b, "Genre: %s\n", CategoryName(meta.Category))
	fmt.Fprintf(&b, "Topic: %s\n", orDash(meta.Topic))
	if strings.TrimSpace(meta.TargetMarket) != "" {
		fmt.Fprintf(&b, "Audience: %s\n", meta.TargetMarket)
	}

	if strings.TrimSpace(grounding.Trends) != "" {
		b.WriteString("\nCurrent trends in this niche:\n")
		b.WriteString(strings.TrimSpace(grounding.Trends))
		b.WriteString("\n")
	}
	for i, ref := range grounding.References {
		if i >= 3 {
			break
		}
		if strings.TrimSpace(ref.VisualHook) == "" {
			continue
		}
		fmt.Fprintf(&b, "Competing cover (%q): %s\n", ref.Title, ref.VisualHook)
	}

	b.WriteString("\nRules:\n")
	b.WriteString("- Title and author name must be rendered exactly as given, spelled correctly and clearly legible.\n")
	b.WriteString("- Thumbnail-readable: strong contrast, one dominant motif, no clutter.\n")
	b.WriteString("- No watermark, no barcode, no spine, no back cover, no extra text.\n")

	return b.String()
}

// BuildEditPrompt wraps a user instruction for the single-shot edit call.
func BuildEditPrompt(instruction string) string {
	return "Edit the attached book cover. " + strings.TrimSpace(instruction) +
		"\nKeep title and author text intact and legible unless the instruction says otherwise." +
		"\nReturn only the edited image."
}

// BuildVideoPrompt renders the promo-video brief for the selected cover.
func BuildVideoPrompt(meta BookMetadata) string {
	var b strings.Builder

	fmt.Fprintf(&b, "A short cinematic promotional video for the book %q", orDash(meta.Title))
	if strings.TrimSpace(meta.Author) != "" {
		fmt.Fprintf(&b, " by %s", meta.Author)
	}
	b.WriteString(". Start on the attached cover, then slowly push in while subtle light ")
	b.WriteString("and particle effects bring the artwork to life. Elegant, premium mood, ")
	b.WriteString("no added text or captions.")

	return b.String()
}

func orDash(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "-"
	}
	return s
}
