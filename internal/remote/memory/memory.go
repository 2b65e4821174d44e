// Package memory is an in-process implementation of the remote data service.
// It backs the demo mode of the dashboard and the store tests, and applies the
// same ownership rules as the hosted backend.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"

	authdomain "github.com/GoSim-25-26J-441/research-hub/internal/auth/domain"
	projectdomain "github.com/GoSim-25-26J-441/research-hub/internal/projects/domain"
	"github.com/GoSim-25-26J-441/research-hub/internal/remote"
	"github.com/GoSim-25-26J-441/research-hub/internal/remote/events"
)

// Op names a remote operation, used to attach hooks.
type Op string

const (
	OpSignIn         Op = "sign_in"
	OpSignUp         Op = "sign_up"
	OpSignOut        Op = "sign_out"
	OpCurrentSession Op = "current_session"
	OpDeleteUser     Op = "delete_user"
	OpGetProfile     Op = "get_profile"
	OpInsertProfile  Op = "insert_profile"
	OpUpdateProfile  Op = "update_profile"
	OpListProjects   Op = "list_projects"
	OpInsertProject  Op = "insert_project"
	OpUpdateProject  Op = "update_project"
	OpDeleteProject  Op = "delete_project"
)

// Hook runs before an operation. A non-nil error aborts the operation and is
// returned to the caller.
type Hook func(ctx context.Context) error

// Fail returns a hook that always fails with err.
func Fail(err error) Hook {
	return func(context.Context) error { return err }
}

const sessionTTL = time.Hour

type account struct {
	user authdomain.AuthUser
	hash []byte
}

// Service is the in-memory remote data service.
type Service struct {
	hub  events.Hub
	cost int

	mu       sync.Mutex
	accounts map[string]*account // keyed by lower-cased email
	byID     map[string]*account
	profiles map[string]authdomain.UserProfile
	projects map[string]projectdomain.ResearchProject
	current  *authdomain.Session
	hooks    map[Op]Hook
	last     time.Time
}

var _ remote.Service = (*Service)(nil)

// Option configures a Service.
type Option func(*Service)

// WithHub publishes auth events on hub instead of a private LocalHub.
func WithHub(hub events.Hub) Option {
	return func(s *Service) { s.hub = hub }
}

// WithBcryptCost sets the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

func New(opts ...Option) *Service {
	s := &Service{
		cost:     bcrypt.DefaultCost,
		accounts: make(map[string]*account),
		byID:     make(map[string]*account),
		profiles: make(map[string]authdomain.UserProfile),
		projects: make(map[string]projectdomain.ResearchProject),
		hooks:    make(map[Op]Hook),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.hub == nil {
		s.hub = events.NewLocalHub()
	}
	return s
}

// SetHook installs h for op; a nil h removes it.
func (s *Service) SetHook(op Op, h Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h == nil {
		delete(s.hooks, op)
		return
	}
	s.hooks[op] = h
}

func (s *Service) runHook(ctx context.Context, op Op) error {
	s.mu.Lock()
	h := s.hooks[op]
	s.mu.Unlock()
	if h == nil {
		return ctx.Err()
	}
	return h(ctx)
}

// now returns a strictly increasing UTC timestamp. Caller holds s.mu.
func (s *Service) now() time.Time {
	t := time.Now().UTC()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

// AddAccount registers credentials without signing in or emitting events.
func (s *Service) AddAccount(email, password string) (authdomain.AuthUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, err := s.addAccountLocked(email, password)
	if err != nil {
		return authdomain.AuthUser{}, err
	}
	return acc.user, nil
}

func (s *Service) addAccountLocked(email, password string) (*account, error) {
	key := strings.ToLower(strings.TrimSpace(email))
	if key == "" || password == "" {
		return nil, errors.New("email and password are required")
	}
	if _, ok := s.accounts[key]; ok {
		return nil, remote.ErrEmailTaken
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := s.now()
	acc := &account{
		user: authdomain.AuthUser{ID: uuid.New().String(), Email: strings.TrimSpace(email), CreatedAt: now, UpdatedAt: now},
		hash: hash,
	}
	s.accounts[key] = acc
	s.byID[acc.user.ID] = acc
	return acc, nil
}

func (s *Service) newSessionLocked(u authdomain.AuthUser) *authdomain.Session {
	return &authdomain.Session{
		User: u,
		Token: &oauth2.Token{
			AccessToken:  uuid.New().String(),
			TokenType:    "bearer",
			RefreshToken: uuid.New().String(),
			Expiry:       time.Now().Add(sessionTTL),
		},
	}
}

func (s *Service) publish(ctx context.Context, typ authdomain.AuthEventType, session *authdomain.Session) {
	_ = s.hub.Publish(ctx, authdomain.AuthEvent{Type: typ, Session: session.Clone(), At: time.Now().UTC()})
}

func (s *Service) SignIn(ctx context.Context, creds authdomain.Credentials) (*authdomain.Session, error) {
	if err := s.runHook(ctx, OpSignIn); err != nil {
		return nil, err
	}

	s.mu.Lock()
	acc, ok := s.accounts[strings.ToLower(strings.TrimSpace(creds.Email))]
	if !ok || bcrypt.CompareHashAndPassword(acc.hash, []byte(creds.Password)) != nil {
		s.mu.Unlock()
		return nil, remote.ErrInvalidCredentials
	}
	session := s.newSessionLocked(acc.user)
	s.current = session
	s.mu.Unlock()

	s.publish(ctx, authdomain.EventSignedIn, session)
	return session.Clone(), nil
}

func (s *Service) SignUp(ctx context.Context, creds authdomain.Credentials) (*authdomain.Session, error) {
	if err := s.runHook(ctx, OpSignUp); err != nil {
		return nil, err
	}

	s.mu.Lock()
	acc, err := s.addAccountLocked(creds.Email, creds.Password)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	session := s.newSessionLocked(acc.user)
	s.current = session
	s.mu.Unlock()

	s.publish(ctx, authdomain.EventSignedIn, session)
	return session.Clone(), nil
}

func (s *Service) SignOut(ctx context.Context) error {
	if err := s.runHook(ctx, OpSignOut); err != nil {
		return err
	}

	s.mu.Lock()
	had := s.current != nil
	s.current = nil
	s.mu.Unlock()

	if had {
		s.publish(ctx, authdomain.EventSignedOut, nil)
	}
	return nil
}

func (s *Service) CurrentSession(ctx context.Context) (*authdomain.Session, error) {
	if err := s.runHook(ctx, OpCurrentSession); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || !s.current.Token.Valid() {
		return nil, nil
	}
	return s.current.Clone(), nil
}

func (s *Service) Subscribe(fn func(authdomain.AuthEvent)) remote.Subscription {
	return s.hub.Subscribe(fn)
}

// DeleteUser removes the account behind session along with its rows.
func (s *Service) DeleteUser(ctx context.Context, session *authdomain.Session) error {
	if err := s.runHook(ctx, OpDeleteUser); err != nil {
		return err
	}
	owner, err := remote.Owner(session)
	if err != nil {
		return err
	}

	s.mu.Lock()
	acc, ok := s.byID[owner]
	if !ok {
		s.mu.Unlock()
		return remote.ErrNotFound
	}
	delete(s.byID, owner)
	delete(s.accounts, strings.ToLower(acc.user.Email))
	delete(s.profiles, owner)
	for id, p := range s.projects {
		if p.UserID == owner {
			delete(s.projects, id)
		}
	}
	signedOut := s.current != nil && s.current.User.ID == owner
	if signedOut {
		s.current = nil
	}
	s.mu.Unlock()

	if signedOut {
		s.publish(ctx, authdomain.EventSignedOut, nil)
	}
	return nil
}

// caller resolves the account a session acts as. Caller holds s.mu.
func (s *Service) callerLocked(session *authdomain.Session) (string, error) {
	owner, err := remote.Owner(session)
	if err != nil {
		return "", err
	}
	if _, ok := s.byID[owner]; !ok {
		return "", remote.ErrNoSession
	}
	return owner, nil
}

func (s *Service) GetProfile(ctx context.Context, session *authdomain.Session, id string) (*authdomain.UserProfile, error) {
	if err := s.runHook(ctx, OpGetProfile); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	owner, err := s.callerLocked(session)
	if err != nil {
		return nil, err
	}
	p, ok := s.profiles[id]
	if !ok || id != owner {
		return nil, remote.ErrNotFound
	}
	return p.Clone(), nil
}

func (s *Service) InsertProfile(ctx context.Context, session *authdomain.Session, np authdomain.NewProfile) (*authdomain.UserProfile, error) {
	if err := s.runHook(ctx, OpInsertProfile); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	owner, err := s.callerLocked(session)
	if err != nil {
		return nil, err
	}
	if np.ID != owner {
		return nil, remote.ErrPolicyViolation
	}
	if _, exists := s.profiles[np.ID]; exists {
		return nil, remote.ErrDuplicate
	}
	now := s.now()
	p := authdomain.UserProfile{
		ID:                np.ID,
		Email:             np.Email,
		Name:              np.Name,
		AcademicLevel:     np.AcademicLevel,
		ResearchInterests: append([]string{}, np.ResearchInterests...),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	s.profiles[p.ID] = *p.Clone()
	return &p, nil
}

func (s *Service) UpdateProfile(ctx context.Context, session *authdomain.Session, id string, u authdomain.ProfileUpdate) (*authdomain.UserProfile, error) {
	if err := s.runHook(ctx, OpUpdateProfile); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	owner, err := s.callerLocked(session)
	if err != nil {
		return nil, err
	}
	p, ok := s.profiles[id]
	if !ok || id != owner {
		return nil, remote.ErrNotFound
	}
	if u.AcademicLevel != nil && !u.AcademicLevel.Valid() {
		return nil, fmt.Errorf("invalid academic level %q", *u.AcademicLevel)
	}
	next := p.Clone()
	if u.Name != nil {
		name := *u.Name
		next.Name = &name
	}
	if u.AcademicLevel != nil {
		level := *u.AcademicLevel
		next.AcademicLevel = &level
	}
	if u.ResearchInterests != nil {
		next.ResearchInterests = append([]string{}, (*u.ResearchInterests)...)
	}
	next.UpdatedAt = s.now()
	s.profiles[id] = *next.Clone()
	return next, nil
}

func (s *Service) ListProjects(ctx context.Context, session *authdomain.Session) ([]projectdomain.ResearchProject, error) {
	if err := s.runHook(ctx, OpListProjects); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	owner, err := s.callerLocked(session)
	if err != nil {
		return nil, err
	}
	out := make([]projectdomain.ResearchProject, 0, 16)
	for _, p := range s.projects {
		if p.UserID == owner {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *Service) InsertProject(ctx context.Context, session *authdomain.Session, np projectdomain.NewProject) (*projectdomain.ResearchProject, error) {
	if err := s.runHook(ctx, OpInsertProject); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	owner, err := s.callerLocked(session)
	if err != nil {
		return nil, err
	}
	if np.UserID != owner {
		return nil, remote.ErrPolicyViolation
	}
	if strings.TrimSpace(np.Title) == "" {
		return nil, errors.New(`null value in column "title" violates not-null constraint`)
	}
	status := np.Status
	if status == "" {
		status = projectdomain.StatusDraft
	}
	if !status.Valid() {
		return nil, fmt.Errorf("invalid project status %q", status)
	}
	now := s.now()
	p := projectdomain.ResearchProject{
		ID:          uuid.New().String(),
		Title:       np.Title,
		Description: np.Description,
		Status:      status,
		Tags:        append([]string{}, np.Tags...),
		UserID:      owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}.Clone()
	s.projects[p.ID] = p.Clone()
	return &p, nil
}

func (s *Service) UpdateProject(ctx context.Context, session *authdomain.Session, id string, u projectdomain.ProjectUpdate) (*projectdomain.ResearchProject, error) {
	if err := s.runHook(ctx, OpUpdateProject); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	owner, err := s.callerLocked(session)
	if err != nil {
		return nil, err
	}
	p, ok := s.projects[id]
	if !ok || p.UserID != owner {
		return nil, remote.ErrNotFound
	}
	if u.Status != nil && !u.Status.Valid() {
		return nil, fmt.Errorf("invalid project status %q", *u.Status)
	}
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Description != nil {
		d := *u.Description
		p.Description = &d
	}
	if u.Status != nil {
		p.Status = *u.Status
	}
	if u.Tags != nil {
		p.Tags = append([]string{}, (*u.Tags)...)
	}
	p.UpdatedAt = s.now()
	s.projects[id] = p.Clone()
	out := p.Clone()
	return &out, nil
}

func (s *Service) DeleteProject(ctx context.Context, session *authdomain.Session, id string) error {
	if err := s.runHook(ctx, OpDeleteProject); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	owner, err := s.callerLocked(session)
	if err != nil {
		return err
	}
	p, ok := s.projects[id]
	if !ok || p.UserID != owner {
		return remote.ErrNotFound
	}
	delete(s.projects, id)
	return nil
}

// Close releases the event hub.
func (s *Service) Close() error {
	return s.hub.Close()
}
