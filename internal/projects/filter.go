// Package projects holds the presentation-side helpers for research projects:
// filtering a project list by the stored filter selection and summarising it.
package projects

import (
	"strings"

	"github.com/GoSim-25-26J-441/research-hub/internal/projects/domain"
)

// ApplyFilters returns the projects matching f, preserving order.
// Search matches title or description case-insensitively; tags must all be present.
func ApplyFilters(list []domain.ResearchProject, f domain.Filters) []domain.ResearchProject {
	out := make([]domain.ResearchProject, 0, len(list))
	for _, p := range list {
		if matches(p, f) {
			out = append(out, p)
		}
	}
	return out
}

func matches(p domain.ResearchProject, f domain.Filters) bool {
	if f.Status != nil && p.Status != *f.Status {
		return false
	}
	if f.Search != nil {
		q := strings.ToLower(strings.TrimSpace(*f.Search))
		if q != "" {
			inTitle := strings.Contains(strings.ToLower(p.Title), q)
			inDesc := p.Description != nil && strings.Contains(strings.ToLower(*p.Description), q)
			if !inTitle && !inDesc {
				return false
			}
		}
	}
	for _, want := range f.Tags {
		if !hasTag(p.Tags, want) {
			return false
		}
	}
	return true
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, want) {
			return true
		}
	}
	return false
}

// Summary counts projects per status.
type Summary struct {
	Total    int                   `json:"total"`
	ByStatus map[domain.Status]int `json:"by_status"`
}

// Summarize counts list by status. Every known status is present in the map.
func Summarize(list []domain.ResearchProject) Summary {
	s := Summary{Total: len(list), ByStatus: make(map[domain.Status]int, len(domain.Statuses))}
	for _, st := range domain.Statuses {
		s.ByStatus[st] = 0
	}
	for _, p := range list {
		s.ByStatus[p.Status]++
	}
	return s
}

// Recent returns up to n projects from the head of list, which the store keeps newest first.
func Recent(list []domain.ResearchProject, n int) []domain.ResearchProject {
	if n < 0 || n > len(list) {
		n = len(list)
	}
	return append([]domain.ResearchProject(nil), list[:n]...)
}
