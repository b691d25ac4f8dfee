package ai

import (
	"context"
	"strings"
	"testing"

	"github.com/taskhaven/todo-api/internal/models"
)

func TestRecommend_NotConfigured(t *testing.T) {
	t.Parallel()

	r := NewRecommender("", "", "", nil)
	if r.Enabled() {
		t.Error("recommender without an API key should be disabled")
	}

	got := r.Recommend(context.Background(), "Buy milk", "", models.PriorityHigh, nil)
	if got != NotConfiguredSentinel {
		t.Errorf("Recommend() = %q, want the not-configured sentinel", got)
	}
}

func TestNewRecommender_Defaults(t *testing.T) {
	t.Parallel()

	r := NewRecommender("key", "", "", nil)
	if r.model != DefaultModel {
		t.Errorf("model = %q, want %q", r.model, DefaultModel)
	}
	if !r.Enabled() {
		t.Error("recommender with an API key should be enabled")
	}
}

func TestLanguageName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code string
		want string
	}{
		{"tr", "Turkish"},
		{"fr", "French"},
		{"es", "Spanish"},
		{"de", "German"},
		{"en", "English"},
		{"ja", "English"},
		{"", "English"},
	}

	for _, tt := range tests {
		if got := languageName(tt.code); got != tt.want {
			t.Errorf("languageName(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestBuildRecommendationPrompt(t *testing.T) {
	t.Parallel()

	prompt := buildRecommendationPrompt("Plan trip", "Two weeks in May", models.PriorityMedium, []string{"travel", "family"}, "French")

	for _, want := range []string{
		"Title: Plan trip",
		"Description: Two weeks in May",
		"Priority: medium",
		"Tags: travel, family",
		"maximum 3 sentences",
		"time management tip",
		"Respond in French language only.",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildRecommendationPrompt_Empties(t *testing.T) {
	t.Parallel()

	prompt := buildRecommendationPrompt("Plan trip", "", models.PriorityLow, nil, "English")
	if !strings.Contains(prompt, "Description: No description provided") {
		t.Error("empty description should be announced as missing")
	}
	if !strings.Contains(prompt, "Tags: No tags") {
		t.Error("empty tags should be announced as missing")
	}
}
