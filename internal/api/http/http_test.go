package http

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	authdomain "github.com/GoSim-25-26J-441/research-hub/internal/auth/domain"
	projectdomain "github.com/GoSim-25-26J-441/research-hub/internal/projects/domain"
	"github.com/GoSim-25-26J-441/research-hub/internal/remote/memory"
	"github.com/GoSim-25-26J-441/research-hub/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stores struct {
	auth     *store.AuthStore
	projects *store.ProjectStore
}

func newStores(t *testing.T) stores {
	t.Helper()
	rem := memory.New(memory.WithBcryptCost(bcrypt.MinCost))
	auth := store.NewAuthStore(rem)
	projects := store.NewProjectStore(rem, auth)
	t.Cleanup(func() {
		projects.Close()
		auth.Close()
		rem.Close()
	})
	return stores{auth: auth, projects: projects}
}

func (s stores) signUp(t *testing.T) {
	t.Helper()
	require.NoError(t, s.auth.SignUp(context.Background(), authdomain.SignUpRequest{
		Email:         "ada@example.com",
		Password:      "secret123",
		Name:          "Ada",
		AcademicLevel: authdomain.LevelResearcher,
	}))
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	tests := []struct {
		name string
		db   Pinger
		path string
		code int
		want string
	}{
		{"liveness ignores the database", pinger{errors.New("down")}, "/health", http.StatusOK, ""},
		{"no database", nil, "/healthz", http.StatusOK, "disabled"},
		{"database up", pinger{}, "/healthz", http.StatusOK, "up"},
		{"database down", pinger{errors.New("down")}, "/healthz", http.StatusServiceUnavailable, "down"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			NewHealthHandler("research-hub", "1.2.3", "postgres", tt.db).RegisterRoutes(r)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.Equal(t, tt.code, w.Code)

			var body HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.want, body.DB)
			assert.Equal(t, "1.2.3", body.Version)
			assert.Equal(t, "postgres", body.Remote)
		})
	}
}

func TestDashboard(t *testing.T) {
	s := newStores(t)
	r := gin.New()
	r.GET("/dashboard", NewDashboardHandler(s.auth, s.projects).Get)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	s.signUp(t)
	ctx := context.Background()
	for i, st := range []projectdomain.Status{projectdomain.StatusActive, projectdomain.StatusActive, projectdomain.StatusDraft} {
		_, err := s.projects.CreateProject(ctx, projectdomain.NewProject{Title: string(rune('A' + i)), Status: st})
		require.NoError(t, err)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Summary struct {
			Total    int            `json:"total"`
			ByStatus map[string]int `json:"by_status"`
		} `json:"summary"`
		Recent []projectdomain.ResearchProject `json:"recent"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Summary.Total)
	assert.Equal(t, map[string]int{"draft": 1, "active": 2, "completed": 0, "archived": 0}, body.Summary.ByStatus)
	require.Len(t, body.Recent, 3)
	assert.Equal(t, "C", body.Recent[0].Title)
}

type sseEvent struct {
	name string
	data string
}

func readEvent(t *testing.T, r *bufio.Reader) sseEvent {
	t.Helper()
	var ev sseEvent
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "" && ev.name != "":
			return ev
		case strings.HasPrefix(line, "event: "):
			ev.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			ev.data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestEventsStream(t *testing.T) {
	s := newStores(t)
	r := gin.New()
	r.GET("/events", NewEventsHandler(s.auth, s.projects).Stream)
	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	first := readEvent(t, reader)
	second := readEvent(t, reader)
	assert.ElementsMatch(t, []string{"auth", "projects"}, []string{first.name, second.name})

	search := "graphs"
	s.projects.SetFilters(projectdomain.Filters{Search: &search})

	for {
		ev := readEvent(t, reader)
		if ev.name != "projects" {
			continue
		}
		var view projectsView
		require.NoError(t, json.Unmarshal([]byte(ev.data), &view))
		if view.Filters.Search != nil {
			assert.Equal(t, "graphs", *view.Filters.Search)
			break
		}
	}

	s.signUp(t)
	for {
		ev := readEvent(t, reader)
		if ev.name != "auth" {
			continue
		}
		assert.NotContains(t, ev.data, "token", "sessions are never streamed")
		var view authView
		require.NoError(t, json.Unmarshal([]byte(ev.data), &view))
		if view.SignedIn {
			assert.Equal(t, "ada@example.com", view.User.Email)
			break
		}
	}
}
