// Package firebase implements the credential side of the remote service on
// Firebase Authentication: password sign-in and sign-up through the Identity
// Toolkit REST API, token checks and account management through the Admin SDK.
package firebase

import (
	"context"
	"fmt"

	fb "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// Admin is the subset of the Admin SDK auth client used here.
// *auth.Client satisfies it.
type Admin interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
	GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
	DeleteUser(ctx context.Context, uid string) error
}

var _ Admin = (*auth.Client)(nil)

// NewAdmin initializes the Firebase Admin SDK and returns its Auth client.
// Without a credentials file the SDK falls back to application default credentials.
func NewAdmin(ctx context.Context, projectID, credentialsFile string) (*auth.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	var conf *fb.Config
	if projectID != "" {
		conf = &fb.Config{ProjectID: projectID}
	}

	app, err := fb.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Auth client: %w", err)
	}
	return client, nil
}
