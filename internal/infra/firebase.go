// README: Firebase Admin SDK: ID-token verification for the API and the FCM client for push.
package infra

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FirebaseToken is the part of a verified ID token the API relies on.
type FirebaseToken struct {
	UID    string
	Claims map[string]interface{}
}

type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*FirebaseToken, error)
}

type Firebase struct {
	app *firebase.App
}

// NewFirebase initialises the SDK for projectID. An empty credentialsFile
// falls back to application-default credentials.
func NewFirebase(ctx context.Context, projectID, credentialsFile string) (*Firebase, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	return &Firebase{app: app}, nil
}

func (f *Firebase) Verifier(ctx context.Context) (TokenVerifier, error) {
	client, err := f.app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth client: %w", err)
	}
	return authVerifier{client: client}, nil
}

func (f *Firebase) Messaging(ctx context.Context) (*messaging.Client, error) {
	client, err := f.app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase messaging client: %w", err)
	}
	return client, nil
}

type authVerifier struct {
	client *auth.Client
}

func (v authVerifier) VerifyIDToken(ctx context.Context, idToken string) (*FirebaseToken, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, err
	}
	return &FirebaseToken{UID: token.UID, Claims: token.Claims}, nil
}
