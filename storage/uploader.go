package storage

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/google/uuid"
)

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader хранит скриншоты матчей и отдаёт их публичные адреса.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}

// MatchImageKey returns a fresh object key for a screenshot of the match.
func MatchImageKey(matchID, ext string) string {
	return path.Join("matches", matchID, fmt.Sprintf("%s%s", uuid.NewString(), ext))
}
