package jobstore

import (
	"context"
	"fmt"

	"github.com/imamik/launchpad/internal/config"
	"github.com/imamik/launchpad/internal/platform/s3"
)

// Open opens the store selected by settings.
func Open(ctx context.Context, settings *config.Settings) (Store, error) {
	ttl := WithLeaseTTL(config.LoadTimeouts().LockTTL)
	switch settings.Store {
	case config.StoreFile, "":
		return NewFileStore(settings.JobsDir())
	case config.StoreSQLite:
		return OpenSQLStore(ctx, settings.DatabasePath(), ttl)
	case config.StoreS3:
		client, err := s3.NewClient(ctx, s3.Options{
			Endpoint:  settings.S3Endpoint,
			Region:    settings.S3Region,
			AccessKey: settings.S3AccessKey,
			SecretKey: settings.S3SecretKey,
			PathStyle: settings.S3Endpoint != "",
		})
		if err != nil {
			return nil, err
		}
		if err := client.EnsureBucket(ctx, settings.S3Bucket); err != nil {
			return nil, err
		}
		return NewS3Store(client, settings.S3Bucket, settings.S3Prefix, ttl), nil
	default:
		return nil, fmt.Errorf("unknown store %q", settings.Store)
	}
}
