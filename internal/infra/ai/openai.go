package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"mealplanner-app/internal/domain/mealplans"
)

const (
	openAIProviderName   = "openai"
	openAIDefaultTimeout = 30 * time.Second
	defaultOpenAIModel   = "gpt-4o-mini"
)

type OpenAIOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
	Fallback   mealplans.Generator
	OnFallback func(reason string, err error)
}

// OpenAIGenerator asks a chat-completions model for a JSON meal plan. Any
// failure (transport, status, parse or validation) is handed to the fallback.
type OpenAIGenerator struct {
	apiKey     string
	model      string
	baseURL    string
	client     *http.Client
	fallback   mealplans.Generator
	onFallback func(reason string, err error)
}

type openAIChatRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	ResponseFormat *openAIFormat   `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIFormat struct {
	Type string `json:"type"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type modelPlanPayload struct {
	Title string                    `json:"title"`
	Meals []mealplans.GeneratedMeal `json:"meals"`
}

func NewOpenAIGenerator(opts OpenAIOptions) (*OpenAIGenerator, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultOpenAIModel
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: openAIDefaultTimeout}
	}
	fallback := opts.Fallback
	if fallback == nil {
		fallback = NewTemplateGenerator()
	}
	return &OpenAIGenerator{
		apiKey:     strings.TrimSpace(opts.APIKey),
		model:      model,
		baseURL:    baseURL,
		client:     client,
		fallback:   fallback,
		onFallback: opts.OnFallback,
	}, nil
}

func (o *OpenAIGenerator) Generate(ctx context.Context, req mealplans.GenerateRequest) (*mealplans.GeneratedPlan, error) {
	payload := openAIChatRequest{
		Model:       o.model,
		Temperature: 0.7,
		ResponseFormat: &openAIFormat{
			Type: "json_object",
		},
		Messages: []openAIMessage{
			{Role: "system", Content: "You are a nutritionist that plans home-cooked meals and only responds with valid JSON."},
			{Role: "user", Content: buildPlanPrompt(req)},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return o.useFallback(ctx, req, "encode_request", err)
	}
	endpoint := fmt.Sprintf("%s/chat/completions", o.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return o.useFallback(ctx, req, "build_request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return o.useFallback(ctx, req, "http_request", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return o.useFallback(ctx, req, fmt.Sprintf("http_%d", resp.StatusCode), fmt.Errorf("openai status %d", resp.StatusCode))
	}

	var out openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return o.useFallback(ctx, req, "decode_response", err)
	}
	if len(out.Choices) == 0 {
		return o.useFallback(ctx, req, "empty_choices", errors.New("no choices"))
	}
	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return o.useFallback(ctx, req, "empty_response", errors.New("empty response"))
	}

	parsed, err := parseModelPayload[modelPlanPayload](text)
	if err != nil {
		return o.useFallback(ctx, req, "parse_payload", err)
	}
	plan := &mealplans.GeneratedPlan{
		Title:    strings.TrimSpace(parsed.Title),
		Provider: openAIProviderName,
		Meals:    normalizeMeals(parsed.Meals),
	}
	if err := plan.Validate(req); err != nil {
		return o.useFallback(ctx, req, "invalid_plan", err)
	}
	return plan, nil
}

func (o *OpenAIGenerator) useFallback(ctx context.Context, req mealplans.GenerateRequest, reason string, cause error) (*mealplans.GeneratedPlan, error) {
	if o.onFallback != nil {
		o.onFallback(reason, cause)
	}
	return o.fallback.Generate(ctx, req)
}

func buildPlanPrompt(req mealplans.GenerateRequest) string {
	p := req.Profile
	var b strings.Builder
	fmt.Fprintf(&b, "Create a %d-day meal plan starting %s.\n", req.Days, req.StartDate.Format("2006-01-02"))
	fmt.Fprintf(&b, "Daily calorie target: %d kcal.\n", p.CalorieTarget)
	if len(p.DietaryPreferences) > 0 {
		fmt.Fprintf(&b, "Dietary preferences: %s.\n", strings.Join(p.DietaryPreferences, ", "))
	}
	if len(p.Allergies) > 0 {
		fmt.Fprintf(&b, "Never use these allergens or anything containing them: %s.\n", strings.Join(p.Allergies, ", "))
	}
	fmt.Fprintf(&b, "Use slots %s. Days are numbered from 0 to %d.\n", strings.Join(mealplans.Slots, ", "), req.Days-1)
	b.WriteString(`Respond as {"title": string, "meals": [{"day": int, "slot": string, "name": string, "description": string, "calories": int, "ingredients": [string]}]}.`)
	return b.String()
}

func normalizeMeals(in []mealplans.GeneratedMeal) []mealplans.GeneratedMeal {
	out := make([]mealplans.GeneratedMeal, 0, len(in))
	for _, m := range in {
		m.Slot = strings.ToLower(strings.TrimSpace(m.Slot))
		m.Name = strings.TrimSpace(m.Name)
		if m.Name == "" {
			continue
		}
		ingredients := m.Ingredients[:0]
		for _, ing := range m.Ingredients {
			if ing = strings.TrimSpace(ing); ing != "" {
				ingredients = append(ingredients, ing)
			}
		}
		m.Ingredients = ingredients
		out = append(out, m)
	}
	sortMeals(out)
	return out
}

func parseModelPayload[T any](raw string) (T, error) {
	var zero T
	cleaned := extractJSONFragment(raw)
	if cleaned == "" {
		return zero, errors.New("empty payload")
	}
	var decoded T
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return zero, err
	}
	return decoded, nil
}

func extractJSONFragment(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "]}")
	if start >= 0 && end >= start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

var (
	_ mealplans.Generator = (*OpenAIGenerator)(nil)
	_ mealplans.Generator = (*TemplateGenerator)(nil)
)
