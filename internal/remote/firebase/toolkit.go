package firebase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"

	"github.com/GoSim-25-26J-441/research-hub/internal/remote"
)

// Grant is the token bundle returned by a password flow.
type Grant struct {
	UID          string
	Email        string
	IDToken      string
	RefreshToken string
	ExpiresIn    time.Duration
}

// Passwords runs email/password flows against the auth provider.
type Passwords interface {
	SignIn(ctx context.Context, email, password string) (*Grant, error)
	SignUp(ctx context.Context, email, password string) (*Grant, error)
}

// Toolkit implements Passwords on the Identity Toolkit v3 relying-party API.
type Toolkit struct {
	svc *identitytoolkit.Service
}

var _ Passwords = (*Toolkit)(nil)

// NewToolkit builds a Toolkit authenticated with the project's web API key.
func NewToolkit(ctx context.Context, apiKey string, opts ...option.ClientOption) (*Toolkit, error) {
	if apiKey == "" {
		return nil, errors.New("firebase API key is required")
	}
	svc, err := identitytoolkit.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("identity toolkit client: %w", err)
	}
	return &Toolkit{svc: svc}, nil
}

func (t *Toolkit) SignIn(ctx context.Context, email, password string) (*Grant, error) {
	resp, err := t.svc.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, toolkitErr(err)
	}
	return &Grant{
		UID:          resp.LocalId,
		Email:        resp.Email,
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    time.Duration(resp.ExpiresIn) * time.Second,
	}, nil
}

func (t *Toolkit) SignUp(ctx context.Context, email, password string) (*Grant, error) {
	resp, err := t.svc.Relyingparty.SignupNewUser(&identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{
		Email:    email,
		Password: password,
	}).Context(ctx).Do()
	if err != nil {
		return nil, toolkitErr(err)
	}
	return &Grant{
		UID:          resp.LocalId,
		Email:        resp.Email,
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    time.Duration(resp.ExpiresIn) * time.Second,
	}, nil
}

// toolkitErr maps Identity Toolkit error codes onto the remote error set.
// Codes arrive as the message, optionally followed by " : detail".
func toolkitErr(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	code, detail, _ := strings.Cut(gerr.Message, " : ")
	switch code {
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "USER_DISABLED":
		return remote.ErrInvalidCredentials
	case "EMAIL_EXISTS":
		return remote.ErrEmailTaken
	}
	if gerr.Code >= http.StatusBadRequest && gerr.Code < http.StatusInternalServerError && gerr.Code != http.StatusTooManyRequests {
		if detail == "" {
			detail = code
		}
		return fmt.Errorf("%w: %s", remote.ErrRejected, detail)
	}
	return err
}
