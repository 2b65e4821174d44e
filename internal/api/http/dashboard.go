package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/research-hub/internal/api/http/respond"
	"github.com/GoSim-25-26J-441/research-hub/internal/projects"
	"github.com/GoSim-25-26J-441/research-hub/internal/store"
)

const recentProjects = 5

// DashboardHandler serves the landing page data: the signed-in user, project
// counts per status and the most recently updated projects.
type DashboardHandler struct {
	auth     AuthSource
	projects ProjectSource
}

func NewDashboardHandler(auth AuthSource, projects ProjectSource) *DashboardHandler {
	return &DashboardHandler{auth: auth, projects: projects}
}

func (h *DashboardHandler) Get(c *gin.Context) {
	user := h.auth.State().User
	if user == nil {
		respond.Fail(c, store.ErrNotAuthenticated, "")
		return
	}

	st := h.projects.State()
	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"user":    user,
		"summary": projects.Summarize(st.Projects),
		"recent":  projects.Recent(st.Projects, recentProjects),
		"loading": st.Loading,
	})
}
