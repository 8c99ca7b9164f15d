// Package firebaseapp builds the single Firebase app shared by Firestore,
// Auth and Cloud Messaging clients.
package firebaseapp

import (
	"context"
	"fmt"

	"chattrix-backend/pkg/logger"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

func New(ctx context.Context, projectID, credentialsFile string) (*firebase.App, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	var conf *firebase.Config
	if projectID != "" {
		conf = &firebase.Config{ProjectID: projectID}
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}
	l := logger.Component("firebase")
	l.Info().Str("project", projectID).Msg("app initialized")
	return app, nil
}
