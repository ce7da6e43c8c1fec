package optimizer

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"etsy-edge/models"
)

// OptimizeRequest carries everything the model needs to rewrite a listing:
// the listing text itself plus the local score so the prompt can point at
// what is actually weak.
type OptimizeRequest struct {
	Title        string
	Description  string
	Category     string
	CurrentTags  []string
	Breakdown    models.ScoreBreakdown
	CurrentGrade string
	CurrentScore int
}

// SuggestTagsRequest is the simpler tag-only variant, optionally seeded with
// tags competitors rank with.
type SuggestTagsRequest struct {
	Title          string
	Description    string
	Category       string
	CurrentTags    []string
	CompetitorTags []string
}

// CallResult is the raw provider output plus the call metadata persisted to
// ai_logs. Parsing into typed results happens at the service layer.
type CallResult struct {
	Content      string
	ModelName    string
	ModelVersion string
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	DurationMs   int64
}

const OPTIMIZE_SYSTEM_PROMPT = `
You are an Etsy SEO expert helping sellers improve their listings.
The response MUST be a single valid JSON object with these keys:

1. optimizedTitle: A rewritten listing title of 100-140 characters that
   front-loads the strongest buyer search phrases in the first 40 characters.
   Never start with filler adjectives like "beautiful" or "gorgeous".
2. titleExplanation: One or two sentences explaining what changed and why.
3. tags: EXACTLY 13 entries of {"tag", "reason"}. Every tag MUST be at most
   20 characters, multi-word (2-4 words), lowercase, and MUST NOT repeat
   words already used in optimizedTitle.
4. diagnosis: An array of {"metric", "issue", "fix"} entries, one for each
   weak area listed in the request.
5. projectedGrade: The letter grade (A-F) the listing should reach if the
   seller applies every suggestion.
6. projectedScore: The projected 0-100 score as a number.

Do NOT wrap the JSON in a markdown code block. Respond with the raw JSON
object only.
`

const SUGGEST_TAGS_SYSTEM_PROMPT = `
You are an Etsy SEO expert suggesting search tags for a listing.
Respond with a single valid JSON array of EXACTLY 13 entries of
{"tag", "reason"}. Every tag MUST be at most 20 characters, multi-word
(2-4 words) and lowercase. Prefer phrases buyers actually search for; when
competitor tags are provided, favor proven ones the listing is missing.
Do NOT wrap the JSON in a markdown code block.
`

// Optimizer talks to Gemini. One shared instance paces all provider calls so
// a burst of users stays inside the provider quota.
type Optimizer struct {
	client  *genai.Client
	model   string
	limiter *rate.Limiter
}

// New builds an Optimizer. The API key comes from the GEMINI_API_KEY
// environment variable; perMinute <= 0 disables pacing.
func New(ctx context.Context, model string, perMinute int) (*Optimizer, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, err
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if perMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute/10+1)
	}

	return &Optimizer{client: client, model: model, limiter: limiter}, nil
}

// OptimizeListing asks the model for a full listing rewrite.
func (o *Optimizer) OptimizeListing(ctx context.Context, req OptimizeRequest) (*CallResult, error) {
	return o.generate(ctx, OPTIMIZE_SYSTEM_PROMPT, buildOptimizePrompt(req))
}

// SuggestTags asks the model for the tag-only variant.
func (o *Optimizer) SuggestTags(ctx context.Context, req SuggestTagsRequest) (*CallResult, error) {
	return o.generate(ctx, SUGGEST_TAGS_SYSTEM_PROMPT, buildSuggestTagsPrompt(req))
}

func (o *Optimizer) generate(ctx context.Context, system, prompt string) (*CallResult, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	startTime := time.Now()
	result, err := o.client.Models.GenerateContent(
		ctx,
		o.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
		},
	)
	if err != nil {
		return nil, err
	}

	out := &CallResult{
		Content:      result.Text(),
		ModelName:    o.model,
		ModelVersion: result.ModelVersion,
		DurationMs:   time.Since(startTime).Milliseconds(),
	}
	if result.UsageMetadata != nil {
		out.InputTokens = int64(result.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int64(result.UsageMetadata.CandidatesTokenCount)
		out.TotalTokens = int64(result.UsageMetadata.TotalTokenCount)
	}
	return out, nil
}

// buildOptimizePrompt renders the listing plus its weak and strong areas.
// Weak means below 80% of the metric maximum, the same cutoff the scorer
// uses for recommendations.
func buildOptimizePrompt(req OptimizeRequest) string {
	var weak, strong []string
	for _, m := range req.Breakdown.Metrics() {
		line := fmt.Sprintf("%s (%d/%d): %s", m.Label, m.Score, m.Max, m.Detail)
		if float64(m.Score) < 0.8*float64(m.Max) {
			weak = append(weak, line)
		} else {
			strong = append(strong, line)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Current title: %s\n", req.Title)
	fmt.Fprintf(&b, "Category: %s\n", req.Category)
	fmt.Fprintf(&b, "Current tags: %s\n", strings.Join(req.CurrentTags, ", "))
	fmt.Fprintf(&b, "Current SEO grade: %s (%d/100)\n\n", req.CurrentGrade, req.CurrentScore)
	if len(weak) > 0 {
		fmt.Fprintf(&b, "Weak areas to fix:\n- %s\n\n", strings.Join(weak, "\n- "))
	}
	if len(strong) > 0 {
		fmt.Fprintf(&b, "Strong areas to preserve:\n- %s\n\n", strings.Join(strong, "\n- "))
	}
	fmt.Fprintf(&b, "Description:\n%s\n", truncate(req.Description, 2000))
	return b.String()
}

func buildSuggestTagsPrompt(req SuggestTagsRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", req.Title)
	fmt.Fprintf(&b, "Category: %s\n", req.Category)
	fmt.Fprintf(&b, "Current tags: %s\n", strings.Join(req.CurrentTags, ", "))
	if len(req.CompetitorTags) > 0 {
		fmt.Fprintf(&b, "Tags used by top competitors: %s\n", strings.Join(req.CompetitorTags, ", "))
	}
	fmt.Fprintf(&b, "\nDescription:\n%s\n", truncate(req.Description, 2000))
	return b.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
