package store

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	authdomain "github.com/GoSim-25-26J-441/research-hub/internal/auth/domain"
	"github.com/GoSim-25-26J-441/research-hub/internal/logging"
	projectdomain "github.com/GoSim-25-26J-441/research-hub/internal/projects/domain"
	"github.com/GoSim-25-26J-441/research-hub/internal/remote"
)

// ProjectsSnapshotKey is the storage key of the persisted project snapshot.
const ProjectsSnapshotKey = "research-platform-projects"

// Identity is the view of the signed-in user ProjectStore depends on.
// AuthStore implements it.
type Identity interface {
	State() AuthState
	Subscribe(fn func(AuthState)) (unsubscribe func())
}

// ProjectState is a copy of the ProjectStore state.
type ProjectState struct {
	Projects       []projectdomain.ResearchProject `json:"projects"`
	CurrentProject *projectdomain.ResearchProject  `json:"currentProject"`
	Filters        projectdomain.Filters           `json:"filters"`
	Loading        bool                            `json:"loading"`
	Error          *string                         `json:"error"`
}

type projectSnapshot struct {
	Projects       []projectdomain.ResearchProject `json:"projects"`
	CurrentProject *projectdomain.ResearchProject  `json:"currentProject"`
	Filters        projectdomain.Filters           `json:"filters"`
}

type projectModel struct {
	projects []projectdomain.ResearchProject
	current  *projectdomain.ResearchProject
	filters  projectdomain.Filters
	inflight int
	err      *string

	// owner is the signed-in user id once the store has seen one.
	owner    string
	watching bool
	// epoch changes with the owner; results started in an older epoch are dropped.
	epoch uint64
	// lastList is the token of the last applied fetch.
	lastList uint64
	// rowTokens holds the token of the last applied write per row.
	rowTokens map[string]uint64
	// tombstones holds the token of local deletes not yet seen by a fetch.
	tombstones map[string]uint64
}

type projectMsg interface{ projectMsg() }

type (
	projectsStarted struct{}

	projectsFailed struct {
		message string
	}

	projectsListed struct {
		op   op
		rows []projectdomain.ResearchProject
	}

	projectCreated struct {
		op  op
		row projectdomain.ResearchProject
	}

	projectUpdated struct {
		op  op
		row projectdomain.ResearchProject
	}

	projectDeleted struct {
		op op
		id string
	}

	currentSelected struct {
		project *projectdomain.ResearchProject
	}

	filtersChanged struct {
		patch projectdomain.Filters
	}

	ownerChanged struct {
		owner string
	}

	projectsErrorCleared struct{}

	projectsHydrated struct{ snap projectSnapshot }
)

func (projectsStarted) projectMsg()      {}
func (projectsFailed) projectMsg()       {}
func (projectsListed) projectMsg()       {}
func (projectCreated) projectMsg()       {}
func (projectUpdated) projectMsg()       {}
func (projectDeleted) projectMsg()       {}
func (currentSelected) projectMsg()      {}
func (filtersChanged) projectMsg()       {}
func (ownerChanged) projectMsg()         {}
func (projectsErrorCleared) projectMsg() {}
func (projectsHydrated) projectMsg()     {}

func newProjectModel() projectModel {
	return projectModel{
		projects:   []projectdomain.ResearchProject{},
		rowTokens:  make(map[string]uint64),
		tombstones: make(map[string]uint64),
	}
}

func (m *projectModel) finish() {
	if m.inflight > 0 {
		m.inflight--
	}
}

func (m *projectModel) owns(p projectdomain.ResearchProject) bool {
	return !m.watching || p.UserID == m.owner
}

func (m *projectModel) indexOf(id string) int {
	for i, p := range m.projects {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (m *projectModel) stale(o op, id string) bool {
	return o.epoch != m.epoch || m.rowTokens[id] > o.token || m.tombstones[id] > o.token
}

func (m *projectModel) apply(msg projectMsg) {
	switch msg := msg.(type) {
	case projectsStarted:
		m.inflight++
		m.err = nil

	case projectsFailed:
		m.finish()
		text := msg.message
		m.err = &text

	case projectsListed:
		m.finish()
		if msg.op.epoch != m.epoch || msg.op.token < m.lastList {
			return
		}
		m.applyList(msg.op.token, msg.rows)

	case projectCreated:
		m.finish()
		if !m.owns(msg.row) || m.stale(msg.op, msg.row.ID) {
			return
		}
		if i := m.indexOf(msg.row.ID); i >= 0 {
			m.projects[i] = msg.row.Clone()
		} else {
			m.projects = append([]projectdomain.ResearchProject{msg.row.Clone()}, m.projects...)
		}
		m.rowTokens[msg.row.ID] = msg.op.token

	case projectUpdated:
		m.finish()
		if !m.owns(msg.row) || m.stale(msg.op, msg.row.ID) {
			return
		}
		held := false
		if i := m.indexOf(msg.row.ID); i >= 0 {
			m.projects[i] = msg.row.Clone()
			held = true
		}
		if m.current != nil && m.current.ID == msg.row.ID {
			row := msg.row.Clone()
			m.current = &row
			held = true
		}
		if held {
			m.rowTokens[msg.row.ID] = msg.op.token
		}

	case projectDeleted:
		m.finish()
		if msg.op.epoch != m.epoch {
			return
		}
		if i := m.indexOf(msg.id); i >= 0 {
			m.projects = append(m.projects[:i:i], m.projects[i+1:]...)
		}
		if m.current != nil && m.current.ID == msg.id {
			m.current = nil
		}
		delete(m.rowTokens, msg.id)
		if m.tombstones[msg.id] < msg.op.token {
			m.tombstones[msg.id] = msg.op.token
		}

	case currentSelected:
		if msg.project == nil {
			m.current = nil
			return
		}
		if !m.owns(*msg.project) {
			return
		}
		p := msg.project.Clone()
		m.current = &p

	case filtersChanged:
		m.filters = m.filters.Merge(msg.patch)

	case ownerChanged:
		if m.watching && m.owner == msg.owner {
			return
		}
		m.watching = true
		m.owner = msg.owner
		m.epoch++
		m.projects = m.owned(m.projects)
		if m.current != nil && m.current.UserID != m.owner {
			m.current = nil
		}
		m.rowTokens = make(map[string]uint64)
		m.tombstones = make(map[string]uint64)

	case projectsErrorCleared:
		m.err = nil

	case projectsHydrated:
		if m.lastList != 0 || len(m.projects) > 0 || m.current != nil {
			return
		}
		m.projects = m.owned(msg.snap.Projects)
		if c := msg.snap.CurrentProject; c != nil && m.owns(*c) {
			p := c.Clone()
			m.current = &p
		}
		m.filters = m.filters.Merge(msg.snap.Filters)
	}
}

// applyList replaces the list with rows. Rows written or deleted locally by
// a request newer than the fetch keep their local version.
func (m *projectModel) applyList(token uint64, rows []projectdomain.ResearchProject) {
	m.lastList = token

	fetched := make(map[string]bool, len(rows))
	for _, p := range rows {
		fetched[p.ID] = true
	}
	local := make(map[string]projectdomain.ResearchProject, len(m.projects))
	next := make([]projectdomain.ResearchProject, 0, len(rows))
	for _, p := range m.projects {
		local[p.ID] = p
		// created by a newer request than the listing has seen
		if !fetched[p.ID] && m.rowTokens[p.ID] > token {
			next = append(next, p)
		}
	}
	for _, p := range rows {
		if !m.owns(p) || m.tombstones[p.ID] > token {
			continue
		}
		if lp, ok := local[p.ID]; ok && m.rowTokens[p.ID] > token {
			next = append(next, lp)
			continue
		}
		next = append(next, p.Clone())
	}
	m.projects = next

	tokens := make(map[string]uint64, len(next))
	for _, p := range next {
		t := m.rowTokens[p.ID]
		if t < token {
			t = token
		}
		tokens[p.ID] = t
	}
	m.rowTokens = tokens
	for id, t := range m.tombstones {
		if t <= token {
			delete(m.tombstones, id)
		}
	}
}

func (m *projectModel) owned(list []projectdomain.ResearchProject) []projectdomain.ResearchProject {
	out := make([]projectdomain.ResearchProject, 0, len(list))
	for _, p := range list {
		if m.owns(p) {
			out = append(out, p.Clone())
		}
	}
	return out
}

func (m *projectModel) state() ProjectState {
	st := ProjectState{
		Projects: make([]projectdomain.ResearchProject, 0, len(m.projects)),
		Filters:  projectdomain.Filters{}.Merge(m.filters),
		Loading:  m.inflight > 0,
	}
	for _, p := range m.projects {
		st.Projects = append(st.Projects, p.Clone())
	}
	if m.current != nil {
		p := m.current.Clone()
		st.CurrentProject = &p
	}
	if m.err != nil {
		text := *m.err
		st.Error = &text
	}
	return st
}

func (m *projectModel) snapshot() projectSnapshot {
	return projectSnapshot{Projects: m.projects, CurrentProject: m.current, Filters: m.filters}
}

// ProjectStore is the in-memory view of the signed-in user's research
// projects. It is safe for concurrent use. Filters are only stored here; they
// are applied by the presentation layer.
type ProjectStore struct {
	remote   remote.Projects
	identity Identity
	opts     options
	persist  *persister[projectSnapshot]
	tokens   atomic.Uint64

	mu        sync.Mutex
	model     projectModel
	listeners listeners[ProjectState]

	// seenOwner is only touched by the identity callback.
	seenOwner *string
	stopWatch func()
}

// NewProjectStore returns a store starting from the persisted snapshot and
// following identity: when the signed-in user changes, projects of anyone
// else are dropped.
func NewProjectStore(rem remote.Projects, identity Identity, opts ...Option) *ProjectStore {
	o := buildOptions(opts)
	s := &ProjectStore{
		remote:   rem,
		identity: identity,
		opts:     o,
		persist:  newPersister[projectSnapshot](o.storage, ProjectsSnapshotKey, o.log.Named("projects")),
		model:    newProjectModel(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if snap, ok := s.persist.load(ctx); ok {
		s.model.apply(projectsHydrated{snap: snap})
	}
	s.stopWatch = identity.Subscribe(s.onIdentity)
	return s
}

func (s *ProjectStore) onIdentity(st AuthState) {
	owner := ""
	if st.User != nil {
		owner = st.User.ID
	}
	if s.seenOwner != nil && *s.seenOwner == owner {
		return
	}
	s.seenOwner = &owner
	s.dispatch(ownerChanged{owner: owner})
}

// dispatch applies msg and returns the epoch it left the store in.
func (s *ProjectStore) dispatch(msg projectMsg) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model.apply(msg)
	s.persist.save(s.model.snapshot())
	s.listeners.notify(s.model.state())
	return s.model.epoch
}

// State returns a copy of the current state.
func (s *ProjectStore) State() ProjectState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.state()
}

// Subscribe calls fn with the current state and again after every change
// until the returned function is called. fn runs with the store locked and
// must not call back into it.
func (s *ProjectStore) Subscribe(fn func(ProjectState)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.listeners.add(fn)
	fn(s.model.state())
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.listeners.remove(id)
		})
	}
}

type principal struct {
	owner   string
	session *authdomain.Session
}

func (s *ProjectStore) principal() (principal, bool) {
	st := s.identity.State()
	if st.User == nil {
		return principal{}, false
	}
	return principal{owner: st.User.ID, session: st.Session}, true
}

func (s *ProjectStore) begin(name string) op {
	o := op{name: name, token: s.tokens.Add(1), start: time.Now()}
	o.epoch = s.dispatch(projectsStarted{})
	return o
}

func (s *ProjectStore) fail(ctx context.Context, o op, err error, fallback string) error {
	msg := messageOf(err, fallback)
	s.dispatch(projectsFailed{message: msg})
	logging.New(ctx, s.opts.log).Error(o.name, err, zap.Duration("took", time.Since(o.start)))
	s.opts.observe("projects", o.name, err)
	return &Error{Op: o.name, Message: msg, Err: err}
}

// FetchProjects replaces the list with the signed-in user's projects, newest
// update first.
func (s *ProjectStore) FetchProjects(ctx context.Context) error {
	o := s.begin("fetch_projects")
	who, ok := s.principal()
	if !ok {
		return s.fail(ctx, o, ErrNotAuthenticated, "Failed to fetch projects")
	}
	rows, err := s.remote.ListProjects(ctx, who.session)
	if err != nil {
		return s.fail(ctx, o, err, "Failed to fetch projects")
	}
	s.dispatch(projectsListed{op: o, rows: rows})
	s.opts.observe("projects", o.name, nil)
	return nil
}

// CreateProject inserts a project owned by the signed-in user and puts the
// stored row first in the list.
func (s *ProjectStore) CreateProject(ctx context.Context, data projectdomain.NewProject) (*projectdomain.ResearchProject, error) {
	o := s.begin("create_project")
	who, ok := s.principal()
	if !ok {
		return nil, s.fail(ctx, o, ErrNotAuthenticated, "Failed to create project")
	}
	data.UserID = who.owner
	row, err := s.remote.InsertProject(ctx, who.session, data)
	if err != nil {
		return nil, s.fail(ctx, o, err, "Failed to create project")
	}
	s.dispatch(projectCreated{op: o, row: *row})
	s.opts.observe("projects", o.name, nil)
	out := row.Clone()
	return &out, nil
}

// UpdateProject applies a partial update and replaces the local row with the
// one returned by the server.
func (s *ProjectStore) UpdateProject(ctx context.Context, id string, update projectdomain.ProjectUpdate) (*projectdomain.ResearchProject, error) {
	return s.update(ctx, "update_project", id, update)
}

// ArchiveProject sets the project status to archived.
func (s *ProjectStore) ArchiveProject(ctx context.Context, id string) (*projectdomain.ResearchProject, error) {
	archived := projectdomain.StatusArchived
	return s.update(ctx, "archive_project", id, projectdomain.ProjectUpdate{Status: &archived})
}

func (s *ProjectStore) update(ctx context.Context, name, id string, update projectdomain.ProjectUpdate) (*projectdomain.ResearchProject, error) {
	o := s.begin(name)
	who, ok := s.principal()
	if !ok {
		return nil, s.fail(ctx, o, ErrNotAuthenticated, "Failed to update project")
	}
	row, err := s.remote.UpdateProject(ctx, who.session, id, update)
	if err != nil {
		return nil, s.fail(ctx, o, err, "Failed to update project")
	}
	s.dispatch(projectUpdated{op: o, row: *row})
	s.opts.observe("projects", o.name, nil)
	out := row.Clone()
	return &out, nil
}

// DeleteProject deletes the remote row, then the local one.
func (s *ProjectStore) DeleteProject(ctx context.Context, id string) error {
	o := s.begin("delete_project")
	who, ok := s.principal()
	if !ok {
		return s.fail(ctx, o, ErrNotAuthenticated, "Failed to delete project")
	}
	if err := s.remote.DeleteProject(ctx, who.session, id); err != nil {
		return s.fail(ctx, o, err, "Failed to delete project")
	}
	s.dispatch(projectDeleted{op: o, id: id})
	s.opts.observe("projects", o.name, nil)
	return nil
}

// SetCurrentProject selects p, or clears the selection when p is nil.
// A project owned by someone else is ignored.
func (s *ProjectStore) SetCurrentProject(p *projectdomain.ResearchProject) {
	s.dispatch(currentSelected{project: p})
}

// SetFilters merges patch into the stored filters.
func (s *ProjectStore) SetFilters(patch projectdomain.Filters) {
	s.dispatch(filtersChanged{patch: patch})
}

// ClearError resets the error message.
func (s *ProjectStore) ClearError() {
	s.dispatch(projectsErrorCleared{})
}

// Close stops following the signed-in user.
func (s *ProjectStore) Close() {
	if s.stopWatch != nil {
		s.stopWatch()
	}
}
