package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	authdomain "github.com/GoSim-25-26J-441/research-hub/internal/auth/domain"
	projectdomain "github.com/GoSim-25-26J-441/research-hub/internal/projects/domain"
	"github.com/GoSim-25-26J-441/research-hub/internal/remote"
	"github.com/GoSim-25-26J-441/research-hub/internal/remote/memory"
	"github.com/GoSim-25-26J-441/research-hub/internal/snapshot"
)

type stack struct {
	remote   *memory.Service
	storage  *snapshot.Memory
	auth     *AuthStore
	projects *ProjectStore
}

func newStack(t *testing.T) *stack {
	t.Helper()
	rem := memory.New(memory.WithBcryptCost(bcrypt.MinCost))
	st := &stack{remote: rem, storage: snapshot.NewMemory()}
	st.reopen(t)
	t.Cleanup(func() { rem.Close() })
	return st
}

// reopen builds fresh stores over the same remote and storage, as a process
// restart would.
func (st *stack) reopen(t *testing.T) {
	t.Helper()
	st.auth = NewAuthStore(st.remote, WithStorage(st.storage))
	st.projects = NewProjectStore(st.remote, st.auth, WithStorage(st.storage))
	auth, projects := st.auth, st.projects
	t.Cleanup(func() {
		projects.Close()
		auth.Close()
	})
}

func (st *stack) signUp(t *testing.T, email, name string) *authdomain.UserProfile {
	t.Helper()
	err := st.auth.SignUp(context.Background(), authdomain.SignUpRequest{
		Email:             email,
		Password:          "secret123",
		Name:              name,
		AcademicLevel:     authdomain.LevelPhD,
		ResearchInterests: []string{"nlp", "ir"},
	})
	require.NoError(t, err)
	user := st.auth.State().User
	require.NotNil(t, user)
	return user
}

// outsider signs in a second account directly against the remote.
func (st *stack) outsider(t *testing.T, email string) *authdomain.Session {
	t.Helper()
	_, err := st.remote.AddAccount(email, "secret123")
	require.NoError(t, err)
	session, err := st.remote.SignIn(context.Background(), authdomain.Credentials{Email: email, Password: "secret123"})
	require.NoError(t, err)
	return session
}

// gate blocks a fake remote call until released, and reports when the call
// has been entered.
type gate struct {
	entered chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gate) wait() {
	close(g.entered)
	<-g.release
}

// fakeProjects is a scripted remote.Projects.
type fakeProjects struct {
	mu     sync.Mutex
	list   []func() ([]projectdomain.ResearchProject, error)
	insert func(projectdomain.NewProject) (*projectdomain.ResearchProject, error)
	update []func(string, projectdomain.ProjectUpdate) (*projectdomain.ResearchProject, error)
	delete func(string) error
}

var _ remote.Projects = (*fakeProjects)(nil)

func (f *fakeProjects) ListProjects(context.Context, *authdomain.Session) ([]projectdomain.ResearchProject, error) {
	f.mu.Lock()
	next := f.list[0]
	f.list = f.list[1:]
	f.mu.Unlock()
	return next()
}

func (f *fakeProjects) InsertProject(_ context.Context, _ *authdomain.Session, p projectdomain.NewProject) (*projectdomain.ResearchProject, error) {
	return f.insert(p)
}

func (f *fakeProjects) UpdateProject(_ context.Context, _ *authdomain.Session, id string, u projectdomain.ProjectUpdate) (*projectdomain.ResearchProject, error) {
	f.mu.Lock()
	next := f.update[0]
	f.update = f.update[1:]
	f.mu.Unlock()
	return next(id, u)
}

func (f *fakeProjects) DeleteProject(_ context.Context, _ *authdomain.Session, id string) error {
	return f.delete(id)
}

// staticIdentity is a signed-in user that never changes.
type staticIdentity struct{ state AuthState }

func signedInAs(id string) staticIdentity {
	return staticIdentity{state: AuthState{
		User:    &authdomain.UserProfile{ID: id, Email: id + "@example.com"},
		Session: &authdomain.Session{User: authdomain.AuthUser{ID: id}},
	}}
}

func (s staticIdentity) State() AuthState { return s.state }

func (s staticIdentity) Subscribe(fn func(AuthState)) func() {
	fn(s.state)
	return func() {}
}

func project(id, title, owner string) projectdomain.ResearchProject {
	return projectdomain.ResearchProject{ID: id, Title: title, Status: projectdomain.StatusActive, UserID: owner}
}

func ids(list []projectdomain.ResearchProject) []string {
	out := make([]string, 0, len(list))
	for _, p := range list {
		out = append(out, p.ID)
	}
	return out
}
