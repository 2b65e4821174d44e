package http

import (
	authdomain "github.com/GoSim-25-26J-441/research-hub/internal/auth/domain"
	projectdomain "github.com/GoSim-25-26J-441/research-hub/internal/projects/domain"
	"github.com/GoSim-25-26J-441/research-hub/internal/store"
)

// AuthSource is the read side of the auth store.
type AuthSource interface {
	State() store.AuthState
	Subscribe(fn func(store.AuthState)) (unsubscribe func())
}

// ProjectSource is the read side of the project store.
type ProjectSource interface {
	State() store.ProjectState
	Subscribe(fn func(store.ProjectState)) (unsubscribe func())
}

// authView is the public part of the auth state. The session never leaves
// the process.
type authView struct {
	SignedIn bool                    `json:"signed_in"`
	User     *authdomain.UserProfile `json:"user"`
	Loading  bool                    `json:"loading"`
	Error    *string                 `json:"error"`
}

func newAuthView(st store.AuthState) authView {
	return authView{SignedIn: st.SignedIn(), User: st.User, Loading: st.Loading, Error: st.Error}
}

type projectsView struct {
	Projects       []projectdomain.ResearchProject `json:"projects"`
	CurrentProject *projectdomain.ResearchProject  `json:"current_project"`
	Filters        projectdomain.Filters           `json:"filters"`
	Loading        bool                            `json:"loading"`
	Error          *string                         `json:"error"`
}

func newProjectsView(st store.ProjectState) projectsView {
	return projectsView{
		Projects:       st.Projects,
		CurrentProject: st.CurrentProject,
		Filters:        st.Filters,
		Loading:        st.Loading,
		Error:          st.Error,
	}
}
