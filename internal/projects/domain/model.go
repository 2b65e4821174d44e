package domain

import (
	"time"
)

// Status is the lifecycle state of a research project.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusArchived  Status = "archived"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusDraft, StatusActive, StatusCompleted, StatusArchived}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusCompleted, StatusArchived:
		return true
	}
	return false
}

// ResearchProject represents a single research project owned by a user.
// It is storage-agnostic and used across the remote, store and HTTP layers.
type ResearchProject struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description,omitempty"`
	Status      Status    `json:"status"`
	Tags        []string  `json:"tags,omitempty"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Clone returns a deep copy of p.
func (p ResearchProject) Clone() ResearchProject {
	if p.Description != nil {
		d := *p.Description
		p.Description = &d
	}
	if p.Tags != nil {
		p.Tags = append([]string(nil), p.Tags...)
	}
	return p
}

// NewProject holds the caller-supplied fields of a project to create.
// The owner is stamped by the store from the signed-in identity.
type NewProject struct {
	Title       string   `json:"title"`
	Description *string  `json:"description,omitempty"`
	Status      Status   `json:"status,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	UserID      string   `json:"user_id"`
}

// ProjectUpdate is a partial update. Nil fields are left untouched.
type ProjectUpdate struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Status      *Status   `json:"status,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u ProjectUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Status == nil && u.Tags == nil
}

// Filters is the filter selection of the projects view.
// The store only keeps it; it is applied by the presentation layer.
type Filters struct {
	Status *Status  `json:"status,omitempty"`
	Search *string  `json:"search,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

// Merge returns f with every field set in patch overriding it.
// An empty status, empty search or empty tag list clears that field.
func (f Filters) Merge(patch Filters) Filters {
	if patch.Status != nil {
		f.Status = nil
		if s := *patch.Status; s != "" {
			f.Status = &s
		}
	}
	if patch.Search != nil {
		f.Search = nil
		if q := *patch.Search; q != "" {
			f.Search = &q
		}
	}
	if patch.Tags != nil {
		f.Tags = nil
		if len(patch.Tags) > 0 {
			f.Tags = append([]string(nil), patch.Tags...)
		}
	}
	return f
}
