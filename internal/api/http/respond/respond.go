// Package respond holds the JSON envelope and error mapping shared by the
// HTTP handlers: {"ok": true, ...} on success, {"ok": false, "error": msg}
// otherwise.
package respond

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/GoSim-25-26J-441/research-hub/internal/remote"
	"github.com/GoSim-25-26J-441/research-hub/internal/store"
)

// Status maps an operation error onto an HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, store.ErrNotAuthenticated),
		errors.Is(err, store.ErrNoUser),
		errors.Is(err, remote.ErrNoSession),
		errors.Is(err, remote.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, remote.ErrPolicyViolation):
		return http.StatusForbidden
	case errors.Is(err, remote.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, remote.ErrEmailTaken), errors.Is(err, remote.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, remote.ErrRejected):
		return http.StatusBadRequest
	case errors.Is(err, remote.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// Fail writes the error envelope. message is what the store recorded for the
// failure; err.Error() is used when it is empty.
func Fail(c *gin.Context, err error, message string) {
	if message == "" {
		message = err.Error()
	}
	c.JSON(Status(err), gin.H{"ok": false, "error": message})
}

// Invalid writes a 400 for a request body or query that failed binding.
func Invalid(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body", "details": Details(err)})
}

// Details turns binding errors into one readable line per field.
func Details(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fieldMessage(fe))
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	field := toSnake(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "eqfield":
		return field + " must match " + toSnake(fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SplitList splits a comma-separated form value, trimming entries and
// dropping empty ones. It returns nil when nothing is left.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
