package remote_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	authdomain "github.com/GoSim-25-26J-441/research-hub/internal/auth/domain"
	projectdomain "github.com/GoSim-25-26J-441/research-hub/internal/projects/domain"
	"github.com/GoSim-25-26J-441/research-hub/internal/remote"
	"github.com/GoSim-25-26J-441/research-hub/internal/remote/memory"
)

type call struct {
	op  string
	err error
}

func TestGuard_PassesThroughAndObserves(t *testing.T) {
	mem := memory.New(memory.WithBcryptCost(bcrypt.MinCost))
	defer mem.Close()

	var calls []call
	svc := remote.Guard(mem, remote.GuardOptions{
		Observe: func(op string, _ time.Duration, err error) { calls = append(calls, call{op, err}) },
	})

	ctx := context.Background()
	session, err := svc.SignUp(ctx, authdomain.Credentials{Email: "ada@example.com", Password: "secret123"})
	require.NoError(t, err)

	_, err = svc.GetProfile(ctx, session, session.User.ID)
	assert.ErrorIs(t, err, remote.ErrNotFound)

	p, err := svc.InsertProject(ctx, session, projectdomain.NewProject{Title: "Guarded", UserID: session.User.ID})
	require.NoError(t, err)
	list, err := svc.ListProjects(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, []projectdomain.ResearchProject{*p}, list)

	current, err := svc.CurrentSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	require.NoError(t, svc.SignOut(ctx))
	current, err = svc.CurrentSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, current, "nil results come back as typed nils")

	require.Len(t, calls, 7)
	assert.Equal(t, "sign_up", calls[0].op)
	assert.Equal(t, "get_profile", calls[1].op)
	assert.ErrorIs(t, calls[1].err, remote.ErrNotFound)
}

func TestGuard_OpensOnFailures(t *testing.T) {
	mem := memory.New(memory.WithBcryptCost(bcrypt.MinCost))
	defer mem.Close()

	var states []gobreaker.State
	svc := remote.Guard(mem, remote.GuardOptions{
		Timeout:       time.Hour,
		OnStateChange: func(_ string, _, to gobreaker.State) { states = append(states, to) },
	})

	ctx := context.Background()
	session, err := svc.SignUp(ctx, authdomain.Credentials{Email: "ada@example.com", Password: "secret123"})
	require.NoError(t, err)

	// answers from the service never trip the breaker
	for i := 0; i < 10; i++ {
		_, err := svc.GetProfile(ctx, session, session.User.ID)
		require.ErrorIs(t, err, remote.ErrNotFound)
	}
	assert.Empty(t, states)

	down := errors.New("connection refused")
	mem.SetHook(memory.OpListProjects, memory.Fail(down))
	for i := 0; i < 6; i++ {
		_, err := svc.ListProjects(ctx, session)
		require.ErrorIs(t, err, down)
	}

	_, err = svc.ListProjects(ctx, session)
	assert.ErrorIs(t, err, remote.ErrUnavailable)
	assert.Equal(t, []gobreaker.State{gobreaker.StateOpen}, states)
}
