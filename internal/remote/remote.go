// Package remote defines the contract of the hosted data service the stores
// sit in front of: credential operations, the profiles table and the projects
// table. Implementations enforce row ownership; callers never filter rows by
// owner themselves.
package remote

import (
	"context"
	"errors"

	authdomain "github.com/GoSim-25-26J-441/research-hub/internal/auth/domain"
	projectdomain "github.com/GoSim-25-26J-441/research-hub/internal/projects/domain"
)

var (
	ErrNotFound           = errors.New("row not found")
	ErrInvalidCredentials = errors.New("Invalid login credentials")
	ErrEmailTaken         = errors.New("User already registered")
	ErrNoSession          = errors.New("Auth session missing")
	ErrUnavailable        = errors.New("remote service unavailable")
	ErrPolicyViolation    = errors.New("new row violates row-level security policy")
	ErrDuplicate          = errors.New("duplicate key value violates unique constraint")
	// ErrRejected wraps any other request the service refused as invalid.
	ErrRejected = errors.New("request rejected")
)

// Subscription is the handle returned by Credentials.Subscribe.
type Subscription interface {
	Unsubscribe()
}

// SubscriptionFunc adapts a function to Subscription.
type SubscriptionFunc func()

func (f SubscriptionFunc) Unsubscribe() { f() }

// Credentials is the auth side of the remote service.
type Credentials interface {
	SignIn(ctx context.Context, creds authdomain.Credentials) (*authdomain.Session, error)
	SignUp(ctx context.Context, creds authdomain.Credentials) (*authdomain.Session, error)
	SignOut(ctx context.Context) error
	// CurrentSession returns nil without error when nobody is signed in.
	CurrentSession(ctx context.Context) (*authdomain.Session, error)
	// Subscribe registers fn for session changes until the subscription is released.
	Subscribe(fn func(authdomain.AuthEvent)) Subscription
	// DeleteUser removes the credential record behind session.
	DeleteUser(ctx context.Context, session *authdomain.Session) error
}

// Profiles is the profiles table. Rows are readable and writable only by their owner.
type Profiles interface {
	GetProfile(ctx context.Context, session *authdomain.Session, id string) (*authdomain.UserProfile, error)
	InsertProfile(ctx context.Context, session *authdomain.Session, p authdomain.NewProfile) (*authdomain.UserProfile, error)
	UpdateProfile(ctx context.Context, session *authdomain.Session, id string, u authdomain.ProfileUpdate) (*authdomain.UserProfile, error)
}

// Projects is the projects table. Rows are visible only to the user in user_id.
type Projects interface {
	// ListProjects returns the caller's projects ordered by updated_at descending.
	ListProjects(ctx context.Context, session *authdomain.Session) ([]projectdomain.ResearchProject, error)
	InsertProject(ctx context.Context, session *authdomain.Session, p projectdomain.NewProject) (*projectdomain.ResearchProject, error)
	UpdateProject(ctx context.Context, session *authdomain.Session, id string, u projectdomain.ProjectUpdate) (*projectdomain.ResearchProject, error)
	DeleteProject(ctx context.Context, session *authdomain.Session, id string) error
}

// Rows groups the two tables.
type Rows interface {
	Profiles
	Projects
}

// Service is the whole remote data service.
type Service interface {
	Credentials
	Rows
}

type composite struct {
	Credentials
	Rows
}

// Compose builds a Service from a credential provider and a row store
// that live in different backends.
func Compose(creds Credentials, rows Rows) Service {
	return composite{Credentials: creds, Rows: rows}
}

// Owner returns the user id a session acts as, or ErrNoSession.
func Owner(session *authdomain.Session) (string, error) {
	if session == nil || session.User.ID == "" {
		return "", ErrNoSession
	}
	return session.User.ID, nil
}
