package firestore

import (
	"context"
	"rental/config"
	"rental/shared/constant"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// New opens the Firestore client of the configured Firebase project. It returns nil unless
// firestore is the selected store driver.
func New(cfg *config.Config) *firestore.Client {
	if cfg.Store.Driver != constant.StoreDriverFirestore {
		return nil
	}

	ctx := context.Background()

	var opts []option.ClientOption
	if cfg.External.Firebase.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.External.Firebase.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.External.Firebase.ProjectID}, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Firebase app")
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open Firestore client")
	}

	log.Info().Str("project", cfg.External.Firebase.ProjectID).Msg("Connected to Firestore")

	return client
}
