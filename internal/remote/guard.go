package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	authdomain "github.com/GoSim-25-26J-441/research-hub/internal/auth/domain"
	projectdomain "github.com/GoSim-25-26J-441/research-hub/internal/projects/domain"
)

// Observer is told about every remote call once it returns.
type Observer func(op string, took time.Duration, err error)

// GuardOptions configures Guard.
type GuardOptions struct {
	Name          string
	MaxRequests   uint32        // requests allowed while half-open
	Interval      time.Duration // closed-state counter reset
	Timeout       time.Duration // open-state duration before half-open
	Observe       Observer
	OnStateChange func(name string, from, to gobreaker.State)
}

type guarded struct {
	next    Service
	cb      *gobreaker.CircuitBreaker
	observe Observer
}

// Guard wraps next with a circuit breaker and a call observer. Only transport
// and server failures count against the breaker; answers such as "row not
// found" or "invalid credentials" do not.
func Guard(next Service, opts GuardOptions) Service {
	if opts.Name == "" {
		opts.Name = "remote"
	}
	if opts.MaxRequests == 0 {
		opts.MaxRequests = 3
	}
	if opts.Interval == 0 {
		opts.Interval = 60 * time.Second
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	observe := opts.Observe
	if observe == nil {
		observe = func(string, time.Duration, error) {}
	}

	settings := gobreaker.Settings{
		Name:        opts.Name,
		MaxRequests: opts.MaxRequests,
		Interval:    opts.Interval,
		Timeout:     opts.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		OnStateChange: opts.OnStateChange,
		IsSuccessful:  isAnswer,
	}

	return &guarded{next: next, cb: gobreaker.NewCircuitBreaker(settings), observe: observe}
}

// isAnswer reports whether err is a definite answer from the service rather
// than a failure to reach it.
func isAnswer(err error) bool {
	if err == nil {
		return true
	}
	for _, target := range []error{
		ErrNotFound, ErrInvalidCredentials, ErrEmailTaken, ErrNoSession,
		ErrPolicyViolation, ErrDuplicate, ErrRejected, context.Canceled,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func call[T any](g *guarded, op string, fn func() (T, error)) (T, error) {
	start := time.Now()
	out, err := g.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	g.observe(op, time.Since(start), err)

	var zero T
	if err != nil {
		return zero, err
	}
	if out == nil {
		return zero, nil
	}
	return out.(T), nil
}

func (g *guarded) SignIn(ctx context.Context, creds authdomain.Credentials) (*authdomain.Session, error) {
	return call(g, "sign_in", func() (*authdomain.Session, error) { return g.next.SignIn(ctx, creds) })
}

func (g *guarded) SignUp(ctx context.Context, creds authdomain.Credentials) (*authdomain.Session, error) {
	return call(g, "sign_up", func() (*authdomain.Session, error) { return g.next.SignUp(ctx, creds) })
}

func (g *guarded) SignOut(ctx context.Context) error {
	_, err := call(g, "sign_out", func() (struct{}, error) { return struct{}{}, g.next.SignOut(ctx) })
	return err
}

func (g *guarded) CurrentSession(ctx context.Context) (*authdomain.Session, error) {
	return call(g, "current_session", func() (*authdomain.Session, error) { return g.next.CurrentSession(ctx) })
}

func (g *guarded) Subscribe(fn func(authdomain.AuthEvent)) Subscription {
	return g.next.Subscribe(fn)
}

func (g *guarded) DeleteUser(ctx context.Context, session *authdomain.Session) error {
	_, err := call(g, "delete_user", func() (struct{}, error) { return struct{}{}, g.next.DeleteUser(ctx, session) })
	return err
}

func (g *guarded) GetProfile(ctx context.Context, session *authdomain.Session, id string) (*authdomain.UserProfile, error) {
	return call(g, "get_profile", func() (*authdomain.UserProfile, error) { return g.next.GetProfile(ctx, session, id) })
}

func (g *guarded) InsertProfile(ctx context.Context, session *authdomain.Session, p authdomain.NewProfile) (*authdomain.UserProfile, error) {
	return call(g, "insert_profile", func() (*authdomain.UserProfile, error) { return g.next.InsertProfile(ctx, session, p) })
}

func (g *guarded) UpdateProfile(ctx context.Context, session *authdomain.Session, id string, u authdomain.ProfileUpdate) (*authdomain.UserProfile, error) {
	return call(g, "update_profile", func() (*authdomain.UserProfile, error) { return g.next.UpdateProfile(ctx, session, id, u) })
}

func (g *guarded) ListProjects(ctx context.Context, session *authdomain.Session) ([]projectdomain.ResearchProject, error) {
	return call(g, "list_projects", func() ([]projectdomain.ResearchProject, error) { return g.next.ListProjects(ctx, session) })
}

func (g *guarded) InsertProject(ctx context.Context, session *authdomain.Session, p projectdomain.NewProject) (*projectdomain.ResearchProject, error) {
	return call(g, "insert_project", func() (*projectdomain.ResearchProject, error) { return g.next.InsertProject(ctx, session, p) })
}

func (g *guarded) UpdateProject(ctx context.Context, session *authdomain.Session, id string, u projectdomain.ProjectUpdate) (*projectdomain.ResearchProject, error) {
	return call(g, "update_project", func() (*projectdomain.ResearchProject, error) { return g.next.UpdateProject(ctx, session, id, u) })
}

func (g *guarded) DeleteProject(ctx context.Context, session *authdomain.Session, id string) error {
	_, err := call(g, "delete_project", func() (struct{}, error) { return struct{}{}, g.next.DeleteProject(ctx, session, id) })
	return err
}
