package http

import (
	"context"

	projectdomain "github.com/GoSim-25-26J-441/research-hub/internal/projects/domain"
	"github.com/GoSim-25-26J-441/research-hub/internal/store"
)

// Store is the part of the project store the handlers drive.
type Store interface {
	State() store.ProjectState
	FetchProjects(ctx context.Context) error
	CreateProject(ctx context.Context, data projectdomain.NewProject) (*projectdomain.ResearchProject, error)
	UpdateProject(ctx context.Context, id string, update projectdomain.ProjectUpdate) (*projectdomain.ResearchProject, error)
	ArchiveProject(ctx context.Context, id string) (*projectdomain.ResearchProject, error)
	DeleteProject(ctx context.Context, id string) error
	SetCurrentProject(p *projectdomain.ResearchProject)
	SetFilters(patch projectdomain.Filters)
	ClearError()
}

// Handler bundles the dependencies for projects HTTP endpoints.
type Handler struct {
	store Store
}

func New(s Store) *Handler {
	return &Handler{store: s}
}

type createRequest struct {
	Title       string  `json:"title" binding:"required,max=100"`
	Description *string `json:"description"`
	Status      string  `json:"status" binding:"omitempty,oneof=draft active completed archived"`
	Tags        string  `json:"tags"`
}

type updateRequest struct {
	Title       *string `json:"title" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description"`
	Status      *string `json:"status" binding:"omitempty,oneof=draft active completed archived"`
	Tags        *string `json:"tags"`
}

type currentRequest struct {
	ID *string `json:"id"`
}

// filtersRequest patches the stored filters. An empty string clears a field.
type filtersRequest struct {
	Status *string `json:"status" binding:"omitempty,oneof=draft active completed archived"`
	Search *string `json:"search"`
	Tags   *string `json:"tags"`
}

// listQuery overrides the stored filters for one listing without storing them.
type listQuery struct {
	Status string `form:"status" binding:"omitempty,oneof=draft active completed archived"`
	Search string `form:"search"`
	Tags   string `form:"tags"`
}

type listResponse struct {
	OK             bool                            `json:"ok"`
	Projects       []projectdomain.ResearchProject `json:"projects"`
	Total          int                             `json:"total"`
	CurrentProject *projectdomain.ResearchProject  `json:"current_project"`
	Filters        projectdomain.Filters           `json:"filters"`
	Loading        bool                            `json:"loading"`
	Error          *string                         `json:"error"`
}
