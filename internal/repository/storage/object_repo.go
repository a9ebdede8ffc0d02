package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
)

// ObjectRepository stores private objects and hands out temporary URLs
type ObjectRepository interface {
	Upload(ctx context.Context, key string, data io.Reader, contentType string, size int64) (string, error)
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// Object kinds
const (
	KindAvatar = "avatars"
	KindExport = "exports"
)

// ObjectKey creates a unique object key for a user's object of the given kind
func ObjectKey(userID uuid.UUID, kind, variant, ext string) string {
	filename := fmt.Sprintf("%s_%s%s", uuid.New().String(), variant, ext)
	return path.Join(userID.String(), kind, filename)
}
