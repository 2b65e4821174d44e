package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/research-hub/internal/api/http/respond"
	"github.com/GoSim-25-26J-441/research-hub/internal/projects"
	projectdomain "github.com/GoSim-25-26J-441/research-hub/internal/projects/domain"
	"github.com/GoSim-25-26J-441/research-hub/internal/store"
)

// fail reports the message the store recorded for err.
func (h *Handler) fail(c *gin.Context, err error) {
	respond.Fail(c, err, store.MessageOf(err))
}

func (h *Handler) view(f projectdomain.Filters) listResponse {
	st := h.store.State()
	filters := st.Filters.Merge(f)
	return listResponse{
		OK:             true,
		Projects:       projects.ApplyFilters(st.Projects, filters),
		Total:          len(st.Projects),
		CurrentProject: st.CurrentProject,
		Filters:        filters,
		Loading:        st.Loading,
		Error:          st.Error,
	}
}

// list returns the cached projects filtered by the stored filters, with
// optional query overrides.
func (h *Handler) list(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respond.Invalid(c, err)
		return
	}

	var override projectdomain.Filters
	if q.Status != "" {
		s := projectdomain.Status(q.Status)
		override.Status = &s
	}
	if q.Search != "" {
		override.Search = &q.Search
	}
	if tags := respond.SplitList(q.Tags); tags != nil {
		override.Tags = tags
	}
	c.JSON(http.StatusOK, h.view(override))
}

func (h *Handler) refresh(c *gin.Context) {
	if err := h.store.FetchProjects(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.view(projectdomain.Filters{}))
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Invalid(c, err)
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body", "details": []string{"title is required"}})
		return
	}

	data := projectdomain.NewProject{
		Title:  title,
		Status: projectdomain.Status(req.Status),
		Tags:   respond.SplitList(req.Tags),
	}
	if req.Description != nil && strings.TrimSpace(*req.Description) != "" {
		desc := strings.TrimSpace(*req.Description)
		data.Description = &desc
	}

	p, err := h.store.CreateProject(c.Request.Context(), data)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "project": p})
}

func (h *Handler) update(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Invalid(c, err)
		return
	}

	var update projectdomain.ProjectUpdate
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body", "details": []string{"title is required"}})
			return
		}
		update.Title = &title
	}
	if req.Description != nil {
		desc := strings.TrimSpace(*req.Description)
		update.Description = &desc
	}
	if req.Status != nil {
		s := projectdomain.Status(*req.Status)
		update.Status = &s
	}
	if req.Tags != nil {
		tags := respond.SplitList(*req.Tags)
		if tags == nil {
			tags = []string{}
		}
		update.Tags = &tags
	}
	if update.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "nothing to update"})
		return
	}

	p, err := h.store.UpdateProject(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

func (h *Handler) archive(c *gin.Context) {
	p, err := h.store.ArchiveProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.store.DeleteProject(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// setCurrent selects one of the cached projects, or clears the selection when
// the id is null or empty.
func (h *Handler) setCurrent(c *gin.Context) {
	var req currentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Invalid(c, err)
		return
	}

	if req.ID == nil || *req.ID == "" {
		h.store.SetCurrentProject(nil)
		c.JSON(http.StatusOK, gin.H{"ok": true, "current_project": nil})
		return
	}

	for _, p := range h.store.State().Projects {
		if p.ID == *req.ID {
			h.store.SetCurrentProject(&p)
			c.JSON(http.StatusOK, gin.H{"ok": true, "current_project": p})
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "project not found"})
}

func (h *Handler) setFilters(c *gin.Context) {
	var req filtersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Invalid(c, err)
		return
	}

	var patch projectdomain.Filters
	if req.Status != nil {
		s := projectdomain.Status(*req.Status)
		patch.Status = &s
	}
	if req.Search != nil {
		q := strings.TrimSpace(*req.Search)
		patch.Search = &q
	}
	if req.Tags != nil {
		patch.Tags = respond.SplitList(*req.Tags)
		if patch.Tags == nil {
			patch.Tags = []string{}
		}
	}
	h.store.SetFilters(patch)
	c.JSON(http.StatusOK, gin.H{"ok": true, "filters": h.store.State().Filters})
}

func (h *Handler) clearError(c *gin.Context) {
	h.store.ClearError()
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
