package projects

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/GoSim-25-26J-441/research-hub/internal/projects/domain"
)

func strPtr(s string) *string { return &s }

func statusPtr(s domain.Status) *domain.Status { return &s }

func sampleProjects() []domain.ResearchProject {
	return []domain.ResearchProject{
		{ID: "p1", Title: "Graph Neural Networks", Status: domain.StatusActive, Tags: []string{"ml", "graphs"}},
		{ID: "p2", Title: "Protein folding", Description: strPtr("Survey of NEURAL approaches"), Status: domain.StatusDraft, Tags: []string{"bio"}},
		{ID: "p3", Title: "Compilers", Status: domain.StatusCompleted, Tags: []string{"pl", "ML"}},
		{ID: "p4", Title: "Old notes", Status: domain.StatusArchived},
	}
}

func ids(list []domain.ResearchProject) []string {
	out := make([]string, 0, len(list))
	for _, p := range list {
		out = append(out, p.ID)
	}
	return out
}

func TestApplyFilters(t *testing.T) {
	list := sampleProjects()

	t.Run("empty filters keep everything in order", func(t *testing.T) {
		assert.Equal(t, []string{"p1", "p2", "p3", "p4"}, ids(ApplyFilters(list, domain.Filters{})))
	})

	t.Run("status", func(t *testing.T) {
		got := ApplyFilters(list, domain.Filters{Status: statusPtr(domain.StatusDraft)})
		assert.Equal(t, []string{"p2"}, ids(got))
	})

	t.Run("search matches title and description case-insensitively", func(t *testing.T) {
		got := ApplyFilters(list, domain.Filters{Search: strPtr("neural")})
		assert.Equal(t, []string{"p1", "p2"}, ids(got))
	})

	t.Run("blank search is ignored", func(t *testing.T) {
		got := ApplyFilters(list, domain.Filters{Search: strPtr("   ")})
		assert.Len(t, got, 4)
	})

	t.Run("tags must all match", func(t *testing.T) {
		assert.Equal(t, []string{"p1", "p3"}, ids(ApplyFilters(list, domain.Filters{Tags: []string{"ml"}})))
		assert.Equal(t, []string{"p1"}, ids(ApplyFilters(list, domain.Filters{Tags: []string{"ml", "graphs"}})))
	})

	t.Run("combined", func(t *testing.T) {
		got := ApplyFilters(list, domain.Filters{Status: statusPtr(domain.StatusCompleted), Tags: []string{"ml"}})
		assert.Equal(t, []string{"p3"}, ids(got))
	})
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleProjects())
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 1, s.ByStatus[domain.StatusActive])
	assert.Equal(t, 1, s.ByStatus[domain.StatusArchived])

	empty := Summarize(nil)
	assert.Equal(t, 0, empty.Total)
	assert.Len(t, empty.ByStatus, len(domain.Statuses))
}

func TestRecent(t *testing.T) {
	list := sampleProjects()
	assert.Equal(t, []string{"p1", "p2"}, ids(Recent(list, 2)))
	assert.Len(t, Recent(list, 10), 4)
	assert.Len(t, Recent(list, -1), 4)
}

func TestFiltersMerge(t *testing.T) {
	base := domain.Filters{Status: statusPtr(domain.StatusActive), Search: strPtr("gnn")}

	merged := base.Merge(domain.Filters{Tags: []string{"ml"}})
	assert.Equal(t, domain.StatusActive, *merged.Status)
	assert.Equal(t, "gnn", *merged.Search)
	assert.Equal(t, []string{"ml"}, merged.Tags)

	cleared := merged.Merge(domain.Filters{Status: statusPtr(""), Tags: []string{}})
	assert.Nil(t, cleared.Status)
	assert.Nil(t, cleared.Tags)
	assert.Equal(t, "gnn", *cleared.Search)
}
