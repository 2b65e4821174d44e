package firebase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	authdomain "github.com/GoSim-25-26J-441/research-hub/internal/auth/domain"
	"github.com/GoSim-25-26J-441/research-hub/internal/remote"
	"github.com/GoSim-25-26J-441/research-hub/internal/remote/events"
	"github.com/GoSim-25-26J-441/research-hub/internal/snapshot"
)

// SessionKey is the storage key of the persisted provider session.
const SessionKey = "research-platform-credentials"

// Credentials implements remote.Credentials. It keeps one current session per
// process, persisted so a restart resumes it, and publishes every session
// change on the event hub.
type Credentials struct {
	passwords Passwords
	admin     Admin
	storage   snapshot.Storage
	hub       events.Hub
	log       *zap.Logger
	now       func() time.Time

	mu      sync.Mutex
	current *authdomain.Session
	loaded  bool
}

var _ remote.Credentials = (*Credentials)(nil)

type Option func(*Credentials)

func WithLogger(l *zap.Logger) Option {
	return func(c *Credentials) {
		if l != nil {
			c.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Credentials) { c.now = now }
}

func NewCredentials(passwords Passwords, admin Admin, storage snapshot.Storage, hub events.Hub, opts ...Option) *Credentials {
	c := &Credentials{
		passwords: passwords,
		admin:     admin,
		storage:   storage,
		hub:       hub,
		log:       zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Credentials) session(ctx context.Context, g *Grant) *authdomain.Session {
	now := c.now().UTC()
	user := authdomain.AuthUser{ID: g.UID, Email: g.Email, CreatedAt: now, UpdatedAt: now}

	rec, err := c.admin.GetUser(ctx, g.UID)
	switch {
	case err != nil:
		c.log.Warn("user record lookup failed", zap.String("uid", g.UID), zap.Error(err))
	case rec != nil:
		if rec.UserInfo != nil && rec.Email != "" {
			user.Email = rec.Email
		}
		if rec.UserMetadata != nil && rec.UserMetadata.CreationTimestamp > 0 {
			user.CreatedAt = time.UnixMilli(rec.UserMetadata.CreationTimestamp).UTC()
			user.UpdatedAt = user.CreatedAt
		}
	}

	return &authdomain.Session{
		User: user,
		Token: &oauth2.Token{
			AccessToken:  g.IDToken,
			RefreshToken: g.RefreshToken,
			TokenType:    "Bearer",
			Expiry:       now.Add(g.ExpiresIn),
		},
	}
}

// setCurrentLocked replaces the current session and persists it. Caller holds c.mu.
func (c *Credentials) setCurrentLocked(ctx context.Context, s *authdomain.Session) {
	c.current = s
	c.loaded = true

	var err error
	if s == nil {
		err = c.storage.Remove(ctx, SessionKey)
	} else {
		var data []byte
		if data, err = json.Marshal(s); err == nil {
			err = c.storage.Save(ctx, SessionKey, data)
		}
	}
	if err != nil {
		c.log.Error("persist provider session failed", zap.Error(err))
	}
}

func (c *Credentials) publish(ctx context.Context, typ authdomain.AuthEventType, s *authdomain.Session) {
	ev := authdomain.AuthEvent{Type: typ, Session: s.Clone(), At: c.now().UTC()}
	if err := c.hub.Publish(ctx, ev); err != nil {
		c.log.Warn("publish auth event failed", zap.String("type", string(typ)), zap.Error(err))
	}
}

func (c *Credentials) SignIn(ctx context.Context, creds authdomain.Credentials) (*authdomain.Session, error) {
	g, err := c.passwords.SignIn(ctx, creds.Email, creds.Password)
	if err != nil {
		return nil, err
	}
	s := c.session(ctx, g)

	c.mu.Lock()
	c.setCurrentLocked(ctx, s)
	c.mu.Unlock()

	c.publish(ctx, authdomain.EventSignedIn, s)
	return s.Clone(), nil
}

func (c *Credentials) SignUp(ctx context.Context, creds authdomain.Credentials) (*authdomain.Session, error) {
	g, err := c.passwords.SignUp(ctx, creds.Email, creds.Password)
	if err != nil {
		return nil, err
	}
	s := c.session(ctx, g)

	c.mu.Lock()
	c.setCurrentLocked(ctx, s)
	c.mu.Unlock()

	c.publish(ctx, authdomain.EventSignedIn, s)
	return s.Clone(), nil
}

// SignOut revokes the refresh tokens of the current user. The local session is
// only dropped once the provider accepted the revocation.
func (c *Credentials) SignOut(ctx context.Context) error {
	c.mu.Lock()
	cur, err := c.loadLocked(ctx)
	if err != nil || cur == nil {
		c.mu.Unlock()
		return err
	}
	if err := c.admin.RevokeRefreshTokens(ctx, cur.User.ID); err != nil && !auth.IsUserNotFound(err) {
		c.mu.Unlock()
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}
	c.setCurrentLocked(ctx, nil)
	c.mu.Unlock()

	c.publish(ctx, authdomain.EventSignedOut, nil)
	return nil
}

// loadLocked returns the current session, reading the persisted one on first
// use. Caller holds c.mu.
func (c *Credentials) loadLocked(ctx context.Context) (*authdomain.Session, error) {
	if c.loaded {
		return c.current, nil
	}
	data, err := c.storage.Load(ctx, SessionKey)
	if errors.Is(err, snapshot.ErrNotFound) {
		c.loaded = true
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load provider session: %w", err)
	}
	var s authdomain.Session
	if err := json.Unmarshal(data, &s); err != nil || s.User.ID == "" {
		c.log.Warn("discarding unreadable provider session", zap.Error(err))
		c.setCurrentLocked(ctx, nil)
		return nil, nil
	}
	c.current = &s
	c.loaded = true
	return c.current, nil
}

// CurrentSession returns the persisted session after checking its ID token
// with the provider. An expired, revoked or foreign token ends the session.
func (c *Credentials) CurrentSession(ctx context.Context) (*authdomain.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, err := c.loadLocked(ctx)
	if err != nil || cur == nil {
		return nil, err
	}
	if cur.Token == nil || !cur.Token.Valid() {
		c.setCurrentLocked(ctx, nil)
		return nil, nil
	}

	tok, err := c.admin.VerifyIDToken(ctx, cur.Token.AccessToken)
	switch {
	case err == nil && tok.UID == cur.User.ID:
		return cur.Clone(), nil
	case err == nil, auth.IsIDTokenExpired(err), auth.IsIDTokenInvalid(err), auth.IsIDTokenRevoked(err), auth.IsUserNotFound(err):
		c.log.Info("stored session is no longer valid", zap.String("uid", cur.User.ID), zap.Error(err))
		c.setCurrentLocked(ctx, nil)
		return nil, nil
	default:
		return nil, fmt.Errorf("verify id token: %w", err)
	}
}

func (c *Credentials) Subscribe(fn func(authdomain.AuthEvent)) remote.Subscription {
	return c.hub.Subscribe(fn)
}

// DeleteUser removes the provider account behind session.
func (c *Credentials) DeleteUser(ctx context.Context, session *authdomain.Session) error {
	uid, err := remote.Owner(session)
	if err != nil {
		return err
	}
	if err := c.admin.DeleteUser(ctx, uid); err != nil {
		if auth.IsUserNotFound(err) {
			return remote.ErrNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}

	c.mu.Lock()
	signedOut := c.current != nil && c.current.User.ID == uid
	if signedOut {
		c.setCurrentLocked(ctx, nil)
	}
	c.mu.Unlock()

	if signedOut {
		c.publish(ctx, authdomain.EventSignedOut, nil)
	}
	return nil
}
