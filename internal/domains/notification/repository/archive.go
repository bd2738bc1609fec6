package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"rental/config"
	"rental/infras/s3"
	"rental/internal/events"
	"rental/shared/constant"
)

type s3Archive struct {
	storage s3.S3
	prefix  string
}

// NewArchive writes events to {prefix}/{bookingId}/{eventId}.json in the configured bucket.
// With archiving disabled it keeps nothing.
func NewArchive(cfg *config.Config, storage s3.S3) Archive {
	if !cfg.Notification.Archive.Enable || storage == nil {
		return noopArchive{}
	}

	return &s3Archive{
		storage: storage,
		prefix:  cfg.Notification.Archive.Prefix,
	}
}

func (a *s3Archive) Store(ctx context.Context, event events.LifecycleEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode lifecycle event: %w", err)
	}

	_, err = a.storage.UploadFileBytes(ctx, constant.Empty, path.Join(a.prefix, event.BookingID), event.ID+".json", constant.ContentTypeJSON, data)

	return err //nolint:wrapcheck
}

type noopArchive struct{}

func (noopArchive) Store(_ context.Context, _ events.LifecycleEvent) error { return nil }
