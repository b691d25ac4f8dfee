package models

import (
	"time"

	"github.com/google/uuid"
)

// Priority represents how urgent a todo is
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

const (
	// MaxTitleLength is the maximum length for a todo title
	MaxTitleLength = 100
	// MaxDescriptionLength is the maximum length for a todo description
	MaxDescriptionLength = 500
	// MaxTags is the maximum number of tags on a todo
	MaxTags = 5
	// MaxTagLength is the maximum length of a single tag
	MaxTagLength = 20
)

// Todo represents a todo item owned by a single user
type Todo struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Completed      bool      `json:"completed"`
	Priority       Priority  `json:"priority"`
	Tags           []string  `json:"tags"`
	Recommendation string    `json:"recommendation"`
	ImageURL       *string   `json:"imageUrl,omitempty"`
	FileURL        *string   `json:"fileUrl,omitempty"`
	FileName       *string   `json:"fileName,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ContentEqual reports whether the advisory-relevant content of two todos is
// the same: title, description, priority and tags compared as an ordered
// sequence. A change limited to the completed flag or attachments compares
// equal.
func (t *Todo) ContentEqual(other *Todo) bool {
	if t.Title != other.Title || t.Description != other.Description || t.Priority != other.Priority {
		return false
	}
	if len(t.Tags) != len(other.Tags) {
		return false
	}
	for i := range t.Tags {
		if t.Tags[i] != other.Tags[i] {
			return false
		}
	}
	return true
}
