package firebase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authdomain "github.com/GoSim-25-26J-441/research-hub/internal/auth/domain"
	"github.com/GoSim-25-26J-441/research-hub/internal/remote"
	"github.com/GoSim-25-26J-441/research-hub/internal/remote/events"
	"github.com/GoSim-25-26J-441/research-hub/internal/snapshot"
)

type fakePasswords struct {
	grants map[string]*Grant // by email
	err    error
}

func (f *fakePasswords) SignIn(_ context.Context, email, password string) (*Grant, error) {
	if f.err != nil {
		return nil, f.err
	}
	g, ok := f.grants[email]
	if !ok || password != "secret1" {
		return nil, remote.ErrInvalidCredentials
	}
	return g, nil
}

func (f *fakePasswords) SignUp(_ context.Context, email, _ string) (*Grant, error) {
	if f.err != nil {
		return nil, f.err
	}
	if _, ok := f.grants[email]; ok {
		return nil, remote.ErrEmailTaken
	}
	g := &Grant{UID: "uid-" + email, Email: email, IDToken: "id-" + email, RefreshToken: "rt", ExpiresIn: time.Hour}
	f.grants[email] = g
	return g, nil
}

type fakeAdmin struct {
	mu        sync.Mutex
	created   time.Time
	verifyUID string
	verifyErr error
	revokeErr error
	deleteErr error
	revoked   []string
	deleted   []string
}

func (f *fakeAdmin) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return &auth.Token{UID: f.verifyUID}, nil
}

func (f *fakeAdmin) GetUser(_ context.Context, uid string) (*auth.UserRecord, error) {
	return &auth.UserRecord{
		UserInfo:     &auth.UserInfo{UID: uid, Email: "canonical@example.com"},
		UserMetadata: &auth.UserMetadata{CreationTimestamp: f.created.UnixMilli()},
	}, nil
}

func (f *fakeAdmin) RevokeRefreshTokens(_ context.Context, uid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.revokeErr != nil {
		return f.revokeErr
	}
	f.revoked = append(f.revoked, uid)
	return nil
}

func (f *fakeAdmin) DeleteUser(_ context.Context, uid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, uid)
	return nil
}

type fixture struct {
	creds     *Credentials
	passwords *fakePasswords
	admin     *fakeAdmin
	storage   *snapshot.Memory
	hub       *events.LocalHub

	mu     sync.Mutex
	events []authdomain.AuthEventType
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		passwords: &fakePasswords{grants: map[string]*Grant{
			"ada@example.com": {UID: "u1", Email: "ada@example.com", IDToken: "id-1", RefreshToken: "rt-1", ExpiresIn: time.Hour},
		}},
		admin:   &fakeAdmin{created: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), verifyUID: "u1"},
		storage: snapshot.NewMemory(),
		hub:     events.NewLocalHub(),
	}
	t.Cleanup(func() { _ = f.hub.Close() })
	sub := f.hub.Subscribe(func(ev authdomain.AuthEvent) {
		f.mu.Lock()
		f.events = append(f.events, ev.Type)
		f.mu.Unlock()
	})
	t.Cleanup(sub.Unsubscribe)
	f.creds = NewCredentials(f.passwords, f.admin, f.storage, f.hub)
	return f
}

func (f *fixture) seen() []authdomain.AuthEventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]authdomain.AuthEventType(nil), f.events...)
}

func TestCredentials_SignIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.creds.SignIn(ctx, authdomain.Credentials{Email: "ada@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, remote.ErrInvalidCredentials)

	s, err := f.creds.SignIn(ctx, authdomain.Credentials{Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "u1", s.User.ID)
	assert.Equal(t, "canonical@example.com", s.User.Email)
	assert.Equal(t, f.admin.created, s.User.CreatedAt)
	require.NotNil(t, s.Token)
	assert.Equal(t, "id-1", s.Token.AccessToken)
	assert.True(t, s.Token.Valid())

	data, err := f.storage.Load(ctx, SessionKey)
	require.NoError(t, err)
	var stored authdomain.Session
	require.NoError(t, json.Unmarshal(data, &stored))
	assert.Equal(t, "u1", stored.User.ID)

	assert.Eventually(t, func() bool {
		seen := f.seen()
		return len(seen) == 1 && seen[0] == authdomain.EventSignedIn
	}, time.Second, 10*time.Millisecond)
}

func TestCredentials_CurrentSessionSurvivesRestart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.creds.SignIn(ctx, authdomain.Credentials{Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)

	restarted := NewCredentials(f.passwords, f.admin, f.storage, f.hub)
	s, err := restarted.CurrentSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "u1", s.User.ID)

	t.Run("token of another user ends the session", func(t *testing.T) {
		f.admin.verifyUID = "u2"
		s, err := NewCredentials(f.passwords, f.admin, f.storage, f.hub).CurrentSession(ctx)
		require.NoError(t, err)
		assert.Nil(t, s)
		_, err = f.storage.Load(ctx, SessionKey)
		assert.ErrorIs(t, err, snapshot.ErrNotFound)
	})
}

func TestCredentials_CurrentSessionVerifyFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.creds.SignIn(ctx, authdomain.Credentials{Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)

	f.admin.verifyErr = errors.New("dial tcp: i/o timeout")
	_, err = f.creds.CurrentSession(ctx)
	require.Error(t, err)

	// A transport failure keeps the stored session for the next attempt.
	_, err = f.storage.Load(ctx, SessionKey)
	assert.NoError(t, err)
}

func TestCredentials_CurrentSessionWithoutStoredSession(t *testing.T) {
	f := newFixture(t)
	s, err := f.creds.CurrentSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestCredentials_SignOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.creds.SignOut(ctx), "signing out nobody is a no-op")
	assert.Empty(t, f.admin.revoked)

	_, err := f.creds.SignIn(ctx, authdomain.Credentials{Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)

	f.admin.revokeErr = errors.New("backend unavailable")
	require.Error(t, f.creds.SignOut(ctx))
	s, err := f.creds.CurrentSession(ctx)
	require.NoError(t, err)
	assert.NotNil(t, s, "failed sign-out keeps the session")

	f.admin.revokeErr = nil
	require.NoError(t, f.creds.SignOut(ctx))
	assert.Equal(t, []string{"u1"}, f.admin.revoked)
	s, err = f.creds.CurrentSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)

	assert.Eventually(t, func() bool {
		seen := f.seen()
		return len(seen) == 2 && seen[1] == authdomain.EventSignedOut
	}, time.Second, 10*time.Millisecond)
}

func TestCredentials_SignUpAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.creds.SignUp(ctx, authdomain.Credentials{Email: "ada@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, remote.ErrEmailTaken)

	s, err := f.creds.SignUp(ctx, authdomain.Credentials{Email: "grace@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "uid-grace@example.com", s.User.ID)

	require.NoError(t, f.creds.DeleteUser(ctx, s))
	assert.Equal(t, []string{"uid-grace@example.com"}, f.admin.deleted)

	f.admin.verifyUID = s.User.ID
	cur, err := f.creds.CurrentSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, cur, "deleting the current user signs out")

	assert.ErrorIs(t, f.creds.DeleteUser(ctx, nil), remote.ErrNoSession)
}

func TestCredentials_DiscardsUnreadableSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.storage.Save(ctx, SessionKey, []byte(`{"user":`)))

	s, err := f.creds.CurrentSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)
	_, err = f.storage.Load(ctx, SessionKey)
	assert.ErrorIs(t, err, snapshot.ErrNotFound)
}
