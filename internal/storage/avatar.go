package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"
)

// AvatarStore persists profile images and returns a public URL for them.
type AvatarStore interface {
	Upload(ctx context.Context, userID string, data []byte, contentType string) (string, error)
}

type GCSAvatarStore struct {
	client *gcs.Client
	bucket string
}

func NewGCSAvatarStore(ctx context.Context, bucket string) (*GCSAvatarStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("avatar bucket is not set")
	}
	client, err := gcs.NewClient(ctx, option.WithScopes(gcs.ScopeReadWrite))
	if err != nil {
		return nil, err
	}
	return &GCSAvatarStore{client: client, bucket: bucket}, nil
}

func (s *GCSAvatarStore) Close() error {
	return s.client.Close()
}

func (s *GCSAvatarStore) Upload(ctx context.Context, userID string, data []byte, contentType string) (string, error) {
	ext := "jpg"
	switch contentType {
	case "image/png":
		ext = "png"
	case "image/webp":
		ext = "webp"
	case "image/gif":
		ext = "gif"
	}
	if !strings.HasPrefix(contentType, "image/") {
		contentType = "image/jpeg"
	}

	token := uuid.NewString()
	objectPath := fmt.Sprintf("profiles/%s-%s.%s", userID, token[:8], ext)
	obj := s.client.Bucket(s.bucket).Object(objectPath)
	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=3600"
	w.Metadata = map[string]string{
		"firebaseStorageDownloadTokens": token,
	}
	if _, err := w.Write(data); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	escapedPath := url.PathEscape(objectPath)
	publicURL := fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s",
		s.bucket, escapedPath, token)
	return publicURL, nil
}
