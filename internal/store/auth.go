package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	authdomain "github.com/GoSim-25-26J-441/research-hub/internal/auth/domain"
	"github.com/GoSim-25-26J-441/research-hub/internal/logging"
	"github.com/GoSim-25-26J-441/research-hub/internal/remote"
)

// AuthSnapshotKey is the storage key of the persisted {user, session} pair.
const AuthSnapshotKey = "research-platform-auth"

const compensateTimeout = 10 * time.Second

// AuthRemote is the part of the remote service AuthStore talks to.
type AuthRemote interface {
	remote.Credentials
	remote.Profiles
}

// AuthState is a copy of the AuthStore state.
type AuthState struct {
	User    *authdomain.UserProfile `json:"user"`
	Session *authdomain.Session     `json:"session"`
	Loading bool                    `json:"loading"`
	Error   *string                 `json:"error"`
}

// SignedIn reports whether a user is present.
func (s AuthState) SignedIn() bool { return s.User != nil }

type authSnapshot struct {
	User    *authdomain.UserProfile `json:"user"`
	Session *authdomain.Session     `json:"session"`
}

type authModel struct {
	user     *authdomain.UserProfile
	session  *authdomain.Session
	inflight int
	err      *string
	// applied is the token of the last result that set user/session.
	applied uint64
}

type authMsg interface{ authMsg() }

type (
	authStarted struct{}

	authFailed struct {
		message string
		counted bool
		// resetToken, when set, signs the store out under that token.
		resetToken uint64
	}

	identityResolved struct {
		token   uint64
		user    *authdomain.UserProfile
		session *authdomain.Session
		counted bool
	}

	profileReplaced struct {
		token uint64
		user  *authdomain.UserProfile
	}

	sessionRefreshed struct {
		token   uint64
		session *authdomain.Session
	}

	authErrorCleared struct{}

	authHydrated struct{ snap authSnapshot }
)

func (authStarted) authMsg()      {}
func (authFailed) authMsg()       {}
func (identityResolved) authMsg() {}
func (profileReplaced) authMsg()  {}
func (sessionRefreshed) authMsg() {}
func (authErrorCleared) authMsg() {}
func (authHydrated) authMsg()     {}

func (m *authModel) done(counted bool) {
	if counted && m.inflight > 0 {
		m.inflight--
	}
}

func (m *authModel) apply(msg authMsg) {
	switch msg := msg.(type) {
	case authStarted:
		m.inflight++
		m.err = nil

	case authFailed:
		m.done(msg.counted)
		text := msg.message
		m.err = &text
		if msg.resetToken != 0 && msg.resetToken >= m.applied {
			m.user, m.session, m.applied = nil, nil, msg.resetToken
		}

	case identityResolved:
		m.done(msg.counted)
		if msg.token < m.applied {
			return
		}
		m.user, m.session, m.applied = msg.user.Clone(), msg.session.Clone(), msg.token

	case profileReplaced:
		m.done(true)
		if msg.user == nil || msg.token < m.applied || m.user == nil || m.user.ID != msg.user.ID {
			return
		}
		m.user, m.applied = msg.user.Clone(), msg.token

	case sessionRefreshed:
		if msg.session == nil || msg.token < m.applied || m.session == nil || m.session.User.ID != msg.session.User.ID {
			return
		}
		m.session, m.applied = msg.session.Clone(), msg.token

	case authErrorCleared:
		m.err = nil

	case authHydrated:
		if m.applied != 0 || m.user != nil || m.session != nil {
			return
		}
		m.user, m.session = msg.snap.User.Clone(), msg.snap.Session.Clone()
	}
}

func (m *authModel) state() AuthState {
	st := AuthState{
		User:    m.user.Clone(),
		Session: m.session.Clone(),
		Loading: m.inflight > 0,
	}
	if m.err != nil {
		text := *m.err
		st.Error = &text
	}
	return st
}

func (m *authModel) snapshot() authSnapshot {
	return authSnapshot{User: m.user, Session: m.session}
}

// AuthStore is the single authority for who is signed in. It is safe for
// concurrent use.
type AuthStore struct {
	remote  AuthRemote
	opts    options
	persist *persister[authSnapshot]
	tokens  atomic.Uint64

	mu        sync.Mutex
	model     authModel
	listeners listeners[AuthState]
	sub       remote.Subscription
	closed    bool
	// aborted holds accounts of failed sign-ups whose session events are ignored.
	aborted map[string]struct{}

	eventCtx    context.Context
	cancelEvent context.CancelFunc
}

// NewAuthStore returns a store starting from the persisted {user, session}
// snapshot, if any. Call Initialize to reconcile it with the remote session.
func NewAuthStore(rem AuthRemote, opts ...Option) *AuthStore {
	o := buildOptions(opts)
	ctx, cancel := context.WithCancel(context.Background())
	s := &AuthStore{
		remote:      rem,
		opts:        o,
		persist:     newPersister[authSnapshot](o.storage, AuthSnapshotKey, o.log.Named("auth")),
		aborted:     make(map[string]struct{}),
		eventCtx:    ctx,
		cancelEvent: cancel,
	}
	if snap, ok := s.persist.load(ctx); ok {
		s.model.apply(authHydrated{snap: snap})
	}
	return s
}

func (s *AuthStore) dispatch(msg authMsg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model.apply(msg)
	s.persist.save(s.model.snapshot())
	s.listeners.notify(s.model.state())
}

// State returns a copy of the current state.
func (s *AuthStore) State() AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.state()
}

// Subscribe calls fn with the current state and again after every change
// until the returned function is called. fn runs with the store locked and
// must not call back into it.
func (s *AuthStore) Subscribe(fn func(AuthState)) (unsubscribe func()) {
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

func (s *AuthStore) begin(name string) op {
	o := op{name: name, token: s.tokens.Add(1), start: time.Now()}
	s.dispatch(authStarted{})
	return o
}

func (s *AuthStore) fail(ctx context.Context, o op, err error, fallback string) error {
	msg := messageOf(err, fallback)
	s.dispatch(authFailed{message: msg, counted: true})
	logging.New(ctx, s.opts.log).Error(o.name, err, zap.Duration("took", time.Since(o.start)))
	s.opts.observe("auth", o.name, err)
	return &Error{Op: o.name, Message: msg, Err: err}
}

func (s *AuthStore) succeed(o op, user *authdomain.UserProfile, session *authdomain.Session) {
	if session != nil {
		s.mu.Lock()
		delete(s.aborted, session.User.ID)
		s.mu.Unlock()
	}
	s.dispatch(identityResolved{token: o.token, user: user, session: session, counted: true})
	s.opts.observe("auth", o.name, nil)
}

// profileFor loads the profile row of the session's user. When there is no
// row yet a minimal profile is synthesized from the session identity; it is
// kept in memory only.
func (s *AuthStore) profileFor(ctx context.Context, session *authdomain.Session) *authdomain.UserProfile {
	profile, err := s.remote.GetProfile(ctx, session, session.User.ID)
	if err == nil && profile != nil {
		return profile
	}
	log := logging.New(ctx, s.opts.log)
	if err == nil || errors.Is(err, remote.ErrNotFound) {
		log.Warn("load_profile", "profile not found, user may need to complete setup",
			zap.String("user_id", session.User.ID))
	} else {
		log.Error("load_profile", err, zap.String("user_id", session.User.ID))
	}
	return authdomain.FallbackProfile(session.User)
}

// SignIn authenticates with email and password and loads the user's profile.
func (s *AuthStore) SignIn(ctx context.Context, email, password string) error {
	o := s.begin("sign_in")
	session, err := s.remote.SignIn(ctx, authdomain.Credentials{Email: email, Password: password})
	if err != nil {
		return s.fail(ctx, o, err, "Failed to sign in")
	}
	s.succeed(o, s.profileFor(ctx, session), session)
	return nil
}

// SignUp registers a new account, creates its profile row and loads it back.
// If a step after the credential record was created fails, the credential
// record is deleted again and the store stays signed out.
func (s *AuthStore) SignUp(ctx context.Context, req authdomain.SignUpRequest) error {
	o := s.begin("sign_up")
	session, err := s.remote.SignUp(ctx, authdomain.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		return s.fail(ctx, o, err, "Failed to sign up")
	}

	if _, err := s.remote.InsertProfile(ctx, session, newProfile(session, req)); err != nil {
		return s.abortSignUp(ctx, o, session, err)
	}

	// The re-fetch decides the identity, so it is ordered by its own start.
	o.token = s.tokens.Add(1)
	profile, err := s.remote.GetProfile(ctx, session, session.User.ID)
	if err != nil {
		return s.abortSignUp(ctx, o, session, err)
	}
	s.succeed(o, profile, session)
	return nil
}

func newProfile(session *authdomain.Session, req authdomain.SignUpRequest) authdomain.NewProfile {
	p := authdomain.NewProfile{
		ID:                session.User.ID,
		Email:             req.Email,
		ResearchInterests: req.ResearchInterests,
	}
	if p.ResearchInterests == nil {
		p.ResearchInterests = []string{}
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		p.Name = &name
	}
	if req.AcademicLevel != "" {
		level := req.AcademicLevel
		p.AcademicLevel = &level
	}
	return p
}

// abortSignUp removes the credential record created by a failed sign-up and
// records cause as the store error. Session events for the aborted account
// are ignored until it signs in again through the store. If the record cannot
// be removed, the remote session is ended instead.
func (s *AuthStore) abortSignUp(ctx context.Context, o op, session *authdomain.Session, cause error) error {
	uid := session.User.ID
	log := logging.New(ctx, s.opts.log)
	log.Error(o.name, cause, zap.String("user_id", uid))

	s.mu.Lock()
	s.aborted[uid] = struct{}{}
	s.mu.Unlock()

	returned := cause
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensateTimeout)
	defer cancel()
	if err := s.remote.DeleteUser(cctx, session); err != nil {
		log.Error("sign_up_compensate", err, zap.String("user_id", uid))
		returned = errors.Join(cause, fmt.Errorf("remove orphaned credential: %w", err))
		if err := s.remote.SignOut(cctx); err != nil {
			log.Error("sign_up_sign_out", err, zap.String("user_id", uid))
		}
	} else {
		log.Info("sign_up_compensate", "removed credential record of failed sign-up",
			zap.String("user_id", uid))
	}

	msg := messageOf(cause, "Failed to sign up")
	s.dispatch(authFailed{
		message:    msg,
		counted:    true,
		resetToken: s.tokens.Add(1),
	})
	s.opts.observe("auth", o.name, returned)
	return &Error{Op: o.name, Message: msg, Err: returned}
}

// SignOut ends the remote session. On failure the current user is kept.
func (s *AuthStore) SignOut(ctx context.Context) error {
	o := s.begin("sign_out")
	if err := s.remote.SignOut(ctx); err != nil {
		return s.fail(ctx, o, err, "Failed to sign out")
	}
	s.succeed(o, nil, nil)
	return nil
}

// UpdateProfile sends a partial update of the signed-in user's profile and
// replaces the user with the row returned by the server.
func (s *AuthStore) UpdateProfile(ctx context.Context, update authdomain.ProfileUpdate) error {
	current := s.State()
	if current.User == nil {
		s.dispatch(authFailed{message: ErrNoUser.Error()})
		s.opts.observe("auth", "update_profile", ErrNoUser)
		return &Error{Op: "update_profile", Message: ErrNoUser.Error(), Err: ErrNoUser}
	}

	o := s.begin("update_profile")
	profile, err := s.remote.UpdateProfile(ctx, current.Session, current.User.ID, update)
	if err != nil {
		return s.fail(ctx, o, err, "Failed to update profile")
	}
	s.dispatch(profileReplaced{token: o.token, user: profile})
	s.opts.observe("auth", o.name, nil)
	return nil
}

// Initialize resolves the remote session, if any, and starts following
// session changes. The subscription lives until Close.
func (s *AuthStore) Initialize(ctx context.Context) error {
	s.listen()

	o := s.begin("initialize")
	session, err := s.remote.CurrentSession(ctx)
	if err != nil {
		return s.fail(ctx, o, err, "Failed to initialize auth")
	}
	if session == nil || session.User.ID == "" {
		s.succeed(o, nil, nil)
		return nil
	}
	s.succeed(o, s.profileFor(ctx, session), session)
	return nil
}

func (s *AuthStore) listen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != nil || s.closed {
		return
	}
	s.sub = s.remote.Subscribe(s.onAuthEvent)
}

func (s *AuthStore) onAuthEvent(ev authdomain.AuthEvent) {
	token := s.tokens.Add(1)
	ctx := s.eventCtx
	if ctx.Err() != nil {
		return
	}
	log := logging.New(ctx, s.opts.log)
	log.Debug("auth_event", "session changed", zap.String("event", string(ev.Type)))

	switch ev.Type {
	case authdomain.EventSignedIn, authdomain.EventUserUpdated:
		if ev.Session == nil || ev.Session.User.ID == "" {
			return
		}
		if s.isAborted(ev.Session.User.ID) {
			log.Debug("auth_event", "ignoring session of aborted sign-up", zap.String("user_id", ev.Session.User.ID))
			return
		}
		s.dispatch(identityResolved{token: token, user: s.profileFor(ctx, ev.Session), session: ev.Session})
	case authdomain.EventSignedOut:
		s.dispatch(identityResolved{token: token})
	case authdomain.EventTokenRefreshed:
		if ev.Session != nil {
			s.dispatch(sessionRefreshed{token: token, session: ev.Session})
		}
	}
}

func (s *AuthStore) isAborted(uid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.aborted[uid]
	return ok
}

// ClearError resets the error message.
func (s *AuthStore) ClearError() {
	s.dispatch(authErrorCleared{})
}

// Close stops following session changes.
func (s *AuthStore) Close() {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.closed = true
	s.mu.Unlock()

	s.cancelEvent()
	if sub != nil {
		sub.Unsubscribe()
	}
}
