// Package gemini wraps the generative service's REST API for the four
// capabilities the studio consumes: grounded research, structured text,
// image generation/editing and video generation with polling.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"bookcover-studio/internal/cover"
	"bookcover-studio/internal/keyauth"
)

const (
	modelText  = "gemini-3-pro-preview"
	modelImage = "gemini-2.5-flash-image"
	modelVideo = "veo-2.0-generate-001"
)

// CoverCandidates is the fixed fan-out of one cover-generation batch.
const CoverCandidates = 3

type Options struct {
	// APIKey is resolved fresh on every request so a credential selected
	// mid-session takes effect on the next call.
	APIKey     func() string
	BaseURL    string
	APIVersion string
	HTTPClient *http.Client
	Logger     *slog.Logger
	Guard      *keyauth.Guard

	// VideoPollInterval is the fixed delay between video job status
	// checks. Defaults to 10s.
	VideoPollInterval time.Duration
}

type Client struct {
	apiKey       func() string
	baseURL      string
	apiVersion   string
	httpClient   *http.Client
	logger       *slog.Logger
	guard        *keyauth.Guard
	pollInterval time.Duration
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = "v1beta"
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	apiKey := opts.APIKey
	if apiKey == nil {
		apiKey = func() string { return "" }
	}

	pollInterval := opts.VideoPollInterval
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}

	return &Client{
		apiKey:       apiKey,
		baseURL:      baseURL,
		apiVersion:   apiVersion,
		httpClient:   opts.HTTPClient,
		logger:       logger,
		guard:        opts.Guard,
		pollInterval: pollInterval,
	}
}

// resolve applies an operation's failure policy: degrading operations log
// and substitute the fallback, failing operations propagate the error.
func resolve[T any](c *Client, op string, policy FailurePolicy, value T, fallback func() T, err error) (T, error) {
	if err == nil {
		return value, nil
	}
	if policy == DegradeOnFailure {
		c.logger.Warn("operation degraded to fallback", "op", op, "err", err)
		return fallback(), nil
	}
	var zero T
	return zero, err
}

// ResearchTrends grounds a search against the requested marketplace and
// niche. It never fails: any error degrades to FallbackGrounding so the
// pipeline is never blocked on research.
func (c *Client) ResearchTrends(ctx context.Context, req cover.ResearchRequest) (cover.GroundingData, error) {
	data, err := c.researchTrends(ctx, req)
	return resolve(c, "research_trends", DegradeOnFailure, data,
		func() cover.GroundingData { return cover.FallbackGrounding(req.Language) }, err)
}

func (c *Client) researchTrends(ctx context.Context, req cover.ResearchRequest) (cover.GroundingData, error) {
	payload := generateContentRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: cover.BuildResearchPrompt(req)}}},
		},
		Tools:            []tool{{GoogleSearch: &googleSearch{}}},
		GenerationConfig: &generationConfig{Temperature: 0.4},
	}

	resp, err := c.generateContent(ctx, modelText, payload)
	if err != nil {
		return cover.GroundingData{}, err
	}

	var parsed struct {
		Trends     string            `json:"trends"`
		References []cover.Reference `json:"references"`
	}
	raw := extractJSON(extractText(resp))
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return cover.GroundingData{}, fmt.Errorf("decode research payload: %w", err)
	}
	if strings.TrimSpace(parsed.Trends) == "" {
		return cover.GroundingData{}, errors.New("research payload has empty trends")
	}

	refs := parsed.References
	if refs == nil {
		refs = []cover.Reference{}
	}

	return cover.GroundingData{
		Trends:     strings.TrimSpace(parsed.Trends),
		References: refs,
		Sources:    extractSources(resp),
	}, nil
}

// GenerateBookText requests a structured {title, subtitle, description}
// object. A malformed response degrades to the fixed placeholder.
func (c *Client) GenerateBookText(ctx context.Context, req cover.TextRequest) (cover.BookText, error) {
	text, err := c.generateBookText(ctx, req)
	return resolve(c, "generate_book_text", DegradeOnFailure, text, cover.PlaceholderText, err)
}

func (c *Client) generateBookText(ctx context.Context, req cover.TextRequest) (cover.BookText, error) {
	payload := generateContentRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: cover.BuildTextPrompt(req)}}},
		},
		GenerationConfig: &generationConfig{
			Temperature:      0.7,
			ResponseMimeType: "application/json",
			ResponseSchema: &schema{
				Type: "OBJECT",
				Properties: map[string]*schema{
					"title":       {Type: "STRING"},
					"subtitle":    {Type: "STRING"},
					"description": {Type: "STRING"},
				},
				Required: []string{"title", "subtitle", "description"},
			},
		},
	}

	resp, err := c.generateContent(ctx, modelText, payload)
	if err != nil {
		return cover.BookText{}, err
	}

	var text cover.BookText
	if err := json.Unmarshal([]byte(extractJSON(extractText(resp))), &text); err != nil {
		return cover.BookText{}, fmt.Errorf("decode book text: %w", err)
	}
	if strings.TrimSpace(text.Title) == "" {
		return cover.BookText{}, errors.New("book text has empty title")
	}
	return text, nil
}

// GenerateCoverImages issues CoverCandidates independent generation calls
// concurrently. The batch is all-or-nothing and is wrapped, as a whole, in
// the permission-retry guard.
func (c *Client) GenerateCoverImages(ctx context.Context, prompt string) ([]string, error) {
	images, err := c.generateCoverImages(ctx, prompt)
	return resolve(c, "generate_cover_images", FailOnFailure, images, nil, err)
}

func (c *Client) generateCoverImages(ctx context.Context, prompt string) ([]string, error) {
	var images []string
	err := c.guard.Run(ctx, func(ctx context.Context) error {
		out := make([]string, CoverCandidates)
		eg, egCtx := errgroup.WithContext(ctx)
		for i := 0; i < CoverCandidates; i++ {
			eg.Go(func() error {
				img, err := c.generateCoverImage(egCtx, prompt)
				if err != nil {
					return err
				}
				out[i] = img
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}
		images = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return images, nil
}

func (c *Client) generateCoverImage(ctx context.Context, prompt string) (string, error) {
	payload := generateContentRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: prompt}}},
		},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"IMAGE"},
			ImageConfig:        &imageConfig{AspectRatio: cover.CoverAspectRatio},
		},
	}

	resp, err := c.generateContent(ctx, modelImage, payload)
	if err != nil {
		return "", err
	}

	images := extractImages(resp)
	if len(images) == 0 {
		return "", errors.New("model returned no image")
	}
	return images[0], nil
}

// EditCoverImage applies one instruction to the current cover. It uses the
// same permission-retry guard as the other privileged calls.
func (c *Client) EditCoverImage(ctx context.Context, imageDataURL, instruction string) (string, error) {
	edited, err := c.editCoverImage(ctx, imageDataURL, instruction)
	return resolve(c, "edit_cover_image", FailOnFailure, edited, nil, err)
}

func (c *Client) editCoverImage(ctx context.Context, imageDataURL, instruction string) (string, error) {
	inline, ok := dataURLToBlob(imageDataURL, "image/png")
	if !ok {
		return "", errors.New("invalid cover image data")
	}

	payload := generateContentRequest{
		Contents: []content{
			{Role: "user", Parts: []part{
				{Text: cover.BuildEditPrompt(instruction)},
				{InlineData: &inline},
			}},
		},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"IMAGE"},
			ImageConfig:        &imageConfig{AspectRatio: cover.CoverAspectRatio},
		},
	}

	var edited string
	err := c.guard.Run(ctx, func(ctx context.Context) error {
		resp, err := c.generateContent(ctx, modelImage, payload)
		if err != nil {
			return err
		}
		images := extractImages(resp)
		if len(images) == 0 {
			return errors.New("model returned no edited image")
		}
		edited = images[0]
		return nil
	})
	if err != nil {
		return "", err
	}
	return edited, nil
}

func (c *Client) generateContent(ctx context.Context, model string, payload generateContentRequest) (*generateContentResponse, error) {
	url := fmt.Sprintf("%s/%s/models/%s:generateContent", c.baseURL, c.apiVersion, model)

	var decoded generateContentResponse
	if err := c.postJSON(ctx, url, payload, &decoded); err != nil {
		return nil, err
	}
	return &decoded, nil
}

func (c *Client) postJSON(ctx context.Context, url string, payload any, out any) error {
	if c.httpClient == nil {
		return errors.New("http client is nil")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey())

	return c.do(req, out)
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	if c.httpClient == nil {
		return errors.New("http client is nil")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey())

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func extractText(resp *generateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

func extractImages(resp *generateContentResponse) []string {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}

	var images []string
	for _, p := range resp.Candidates[0].Content.Parts {
		if p.InlineData != nil && p.InlineData.Data != "" && p.InlineData.MimeType != "" {
			images = append(images, fmt.Sprintf("data:%s;base64,%s", p.InlineData.MimeType, p.InlineData.Data))
		}
	}
	return images
}

func extractSources(resp *generateContentResponse) []cover.SourceLink {
	sources := []cover.SourceLink{}
	if resp == nil || len(resp.Candidates) == 0 {
		return sources
	}

	meta := resp.Candidates[0].GroundingMetadata
	if meta == nil {
		return sources
	}

	seen := make(map[string]bool)
	for _, chunk := range meta.GroundingChunks {
		if chunk.Web == nil || chunk.Web.URI == "" || seen[chunk.Web.URI] {
			continue
		}
		seen[chunk.Web.URI] = true
		sources = append(sources, cover.SourceLink{URI: chunk.Web.URI, Title: chunk.Web.Title})
	}
	return sources
}

// extractJSON strips markdown fences and anything outside the outermost
// object, since grounded responses cannot use a response schema.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}

var dataURLRegex = regexp.MustCompile(`^data:([^;]+);base64,`)

func dataURLToBlob(dataURL, fallbackMime string) (blob, bool) {
	dataURL = strings.TrimSpace(dataURL)
	if dataURL == "" {
		return blob{}, false
	}

	mime := fallbackMime
	if matches := dataURLRegex.FindStringSubmatch(dataURL); len(matches) == 2 {
		mime = matches[1]
	}

	data := dataURL
	if idx := strings.IndexByte(dataURL, ','); idx >= 0 {
		data = dataURL[idx+1:]
	}
	if data == "" {
		return blob{}, false
	}

	return blob{Data: data, MimeType: mime}, true
}
