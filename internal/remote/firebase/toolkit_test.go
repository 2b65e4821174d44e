package firebase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/GoSim-25-26J-441/research-hub/internal/remote"
)

func newTestToolkit(t *testing.T, handler http.HandlerFunc) *Toolkit {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tk, err := NewToolkit(context.Background(), "test-key",
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return tk
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": code, "message": message},
	})
}

func TestToolkit_SignIn(t *testing.T) {
	tk := newTestToolkit(t, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "verifyPassword"), r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		if body["password"] != "secret1" {
			writeError(w, http.StatusBadRequest, "INVALID_PASSWORD")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"localId":"u1","email":"ada@example.com","idToken":"id","refreshToken":"rt","expiresIn":"3600"}`))
	})

	g, err := tk.SignIn(context.Background(), "ada@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "u1", g.UID)
	assert.Equal(t, "id", g.IDToken)
	assert.Equal(t, time.Hour, g.ExpiresIn)

	_, err = tk.SignIn(context.Background(), "ada@example.com", "nope")
	assert.ErrorIs(t, err, remote.ErrInvalidCredentials)
}

func TestToolkit_SignUpErrors(t *testing.T) {
	tests := []struct {
		status  int
		message string
		want    error
	}{
		{http.StatusBadRequest, "EMAIL_EXISTS", remote.ErrEmailTaken},
		{http.StatusBadRequest, "WEAK_PASSWORD : Password should be at least 6 characters", remote.ErrRejected},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			tk := newTestToolkit(t, func(w http.ResponseWriter, r *http.Request) {
				require.True(t, strings.HasSuffix(r.URL.Path, "signupNewUser"), r.URL.Path)
				writeError(w, tt.status, tt.message)
			})
			_, err := tk.SignUp(context.Background(), "ada@example.com", "123")
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("server errors are not answers", func(t *testing.T) {
		tk := newTestToolkit(t, func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusServiceUnavailable, "BACKEND_ERROR")
		})
		_, err := tk.SignUp(context.Background(), "ada@example.com", "secret1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, remote.ErrRejected)
	})

	t.Run("detail becomes the message", func(t *testing.T) {
		tk := newTestToolkit(t, func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusBadRequest, "WEAK_PASSWORD : Password should be at least 6 characters")
		})
		_, err := tk.SignUp(context.Background(), "ada@example.com", "123")
		assert.EqualError(t, err, "request rejected: Password should be at least 6 characters")
	})
}

func TestNewToolkit_RequiresKey(t *testing.T) {
	_, err := NewToolkit(context.Background(), "")
	require.Error(t, err)
}
