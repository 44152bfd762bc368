package db

import (
	"context"
	"fmt"

	"foodshare/pkg/types"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"google.golang.org/api/option"
)

// ConnectFirestore builds a Firestore client through a firebase app. Without a
// credentials file the application default credentials are used.
func ConnectFirestore(ctx context.Context, config *types.Config) (*firestore.Client, error) {
	if config.FirestoreProjectID == "" {
		return nil, fmt.Errorf("set FIRESTORE_PROJECT_ID")
	}

	firebaseConfig := &firebase.Config{
		ProjectID: config.FirestoreProjectID,
	}

	var opts []option.ClientOption
	if config.GoogleCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(config.GoogleCredentialsFile))
	}

	app, err := firebase.NewApp(ctx, firebaseConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("initializing firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("initializing firestore client: %w", err)
	}

	return client, nil
}
