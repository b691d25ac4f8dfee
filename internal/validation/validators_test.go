package validation

import (
	"strings"
	"testing"
)

func TestValidatePriority(t *testing.T) {
	t.Parallel()

	for _, valid := range []string{"low", "medium", "high"} {
		if err := ValidatePriority(valid); err != nil {
			t.Errorf("ValidatePriority(%q) unexpected error: %v", valid, err)
		}
	}
	for _, invalid := range []string{"", "urgent", "LOW", "Medium "} {
		if err := ValidatePriority(invalid); err == nil {
			t.Errorf("ValidatePriority(%q) expected error", invalid)
		}
	}
}

func TestValidateStatusFilter(t *testing.T) {
	t.Parallel()

	for _, valid := range []string{"", "all", "active", "completed"} {
		if err := ValidateStatusFilter(valid); err != nil {
			t.Errorf("ValidateStatusFilter(%q) unexpected error: %v", valid, err)
		}
	}
	if err := ValidateStatusFilter("done"); err == nil {
		t.Error("ValidateStatusFilter(done) expected error")
	}
}

func TestValidateTags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		tags    []string
		wantErr bool
	}{
		{name: "nil tags", tags: nil, wantErr: false},
		{name: "within bounds", tags: []string{"a", "b", "c", "d", "e"}, wantErr: false},
		{name: "too many tags", tags: []string{"a", "b", "c", "d", "e", "f"}, wantErr: true},
		{name: "tag too long", tags: []string{strings.Repeat("x", 21)}, wantErr: true},
		{name: "tag at limit", tags: []string{strings.Repeat("x", 20)}, wantErr: false},
		{name: "multibyte tag at limit counts runes", tags: []string{strings.Repeat("ü", 20)}, wantErr: false},
		{name: "multibyte tag over limit", tags: []string{strings.Repeat("ü", 21)}, wantErr: true},
		{name: "empty tag", tags: []string{""}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateTags(tt.tags)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTags(%v) error = %v, wantErr %v", tt.tags, err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"  hello  ", "hello"},
		{"a\x00b", "ab"},
		{"line1\nline2", "line1\nline2"},
		{"tab\there", "tab\there"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := SanitizeText(tt.in); got != tt.want {
			t.Errorf("SanitizeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
