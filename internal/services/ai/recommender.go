// Package ai wraps the OpenAI chat completions API to produce short advisory
// texts for todos. Failures never propagate: callers always get a usable
// string, degraded to a sentinel when the service is missing or unreachable.
package ai

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"github.com/taskhaven/todo-api/internal/models"
	"go.uber.org/zap"
)

const (
	// DefaultModel is the default model to use
	DefaultModel = "gpt-4o-mini"
	// DefaultBaseURL is the default OpenAI API base URL
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout bounds each API call so a slow model cannot stall
	// todo creation or updates materially
	DefaultTimeout = 10 * time.Second

	// NotConfiguredSentinel is stored when no API key is configured
	NotConfiguredSentinel = "No AI recommendations available. Please add an OpenAI API key to enable this feature."
	// UnavailableSentinel is stored when the recommendation call fails
	UnavailableSentinel = "Sorry, could not generate a recommendation right now. Please try again later."
)

var errNoChoices = errors.New("no choices in response")

// Recommender produces short natural-language suggestions for todos
type Recommender struct {
	client  openai.Client
	model   string
	logger  *zap.Logger
	enabled bool
}

// NewRecommender creates a recommender. An empty apiKey yields a disabled
// recommender that returns NotConfiguredSentinel without network calls.
func NewRecommender(apiKey, baseURL, model string, logger *zap.Logger) *Recommender {
	if model == "" {
		model = DefaultModel
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := &http.Client{
		Timeout: DefaultTimeout,
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
	)

	return &Recommender{
		client:  client,
		model:   model,
		logger:  logger,
		enabled: apiKey != "",
	}
}

// Enabled reports whether an API key is configured
func (r *Recommender) Enabled() bool { return r.enabled }

// Recommend returns a concise suggestion for how to approach a todo. The
// response is written in the language the todo itself is written in. Any
// failure degrades to a sentinel string; Recommend never returns an error.
func (r *Recommender) Recommend(ctx context.Context, title, description string, priority models.Priority, tags []string) string {
	if !r.enabled {
		return NotConfiguredSentinel
	}

	language := r.detectLanguage(ctx, title+" "+description)
	prompt := buildRecommendationPrompt(title, description, priority, tags, language)

	req := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(r.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You are a helpful productivity assistant that provides concise and actionable recommendations for todo tasks. Always respond in " + language + " language only."),
			openai.UserMessage(prompt),
		},
		MaxTokens:   openai.Int(200),
		Temperature: openai.Float(0.7),
	}

	content, err := r.complete(ctx, "recommend", req)
	if err != nil {
		if r.logger != nil {
			r.logger.Warn("recommendation_generation_failed", zap.Error(err))
		}
		return UnavailableSentinel
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return UnavailableSentinel
	}
	return content
}

// detectLanguage classifies the input's natural language with a minimal
// request. Detection failures fall back to English.
func (r *Recommender) detectLanguage(ctx context.Context, text string) string {
	req := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(r.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You are a language detector. Respond with only the ISO language code (e.g., 'en', 'tr', 'fr', 'es', etc.) of the language the text is written in."),
			openai.UserMessage(text),
		},
		MaxTokens:   openai.Int(10),
		Temperature: openai.Float(0),
	}

	content, err := r.complete(ctx, "detect_language", req)
	if err != nil {
		if r.logger != nil {
			r.logger.Debug("language_detection_failed", zap.Error(err))
		}
		return "English"
	}

	return languageName(strings.ToLower(strings.TrimSpace(content)))
}

func (r *Recommender) complete(ctx context.Context, operation string, req openai.ChatCompletionNewParams) (string, error) {
	start := time.Now()
	resp, err := r.client.Chat.Completions.New(ctx, req)
	latency := time.Since(start)

	if r.logger != nil {
		r.logger.Debug("llm_api_call",
			zap.String("operation", operation),
			zap.Duration("latency", latency),
			zap.Bool("error", err != nil),
		)
	}
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}

// languageName maps an ISO code to the language name used in prompts
func languageName(code string) string {
	switch code {
	case "tr":
		return "Turkish"
	case "fr":
		return "French"
	case "es":
		return "Spanish"
	case "de":
		return "German"
	default:
		return "English"
	}
}

func buildRecommendationPrompt(title, description string, priority models.Priority, tags []string, language string) string {
	desc := description
	if desc == "" {
		desc = "No description provided"
	}
	tagList := "No tags"
	if len(tags) > 0 {
		tagList = strings.Join(tags, ", ")
	}

	var b strings.Builder
	b.WriteString("I have a todo task with the following details:\n")
	b.WriteString("Title: " + title + "\n")
	b.WriteString("Description: " + desc + "\n")
	b.WriteString("Priority: " + string(priority) + "\n")
	b.WriteString("Tags: " + tagList + "\n\n")
	b.WriteString("Please provide a concise suggestion (maximum 3 sentences) on how to approach this task, including:\n")
	b.WriteString("- A time management tip based on its priority\n")
	b.WriteString("- A suggestion for breaking it down if it seems complex\n")
	b.WriteString("- Any relevant productivity advice\n\n")
	b.WriteString("Keep your response short and actionable. Respond in " + language + " language only.")
	return b.String()
}
