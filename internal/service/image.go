package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pageza/foodgram/backend/config"
)

const maxImageBytes = 5 << 20

// imageExtensions lists accepted content types
var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageStore turns image bytes into a stable reference
type ImageStore interface {
	Save(ctx context.Context, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, ref string) error
	URL(ref string) string
}

// DecodeImage decodes a data URI or bare base64 payload and sniffs its type
func DecodeImage(encoded string) ([]byte, string, error) {
	payload := strings.TrimSpace(encoded)
	if strings.HasPrefix(payload, "data:") {
		comma := strings.Index(payload, ",")
		if comma < 0 || !strings.HasSuffix(payload[:comma], ";base64") {
			return nil, "", invalid("image", "malformed data URI")
		}
		payload = payload[comma+1:]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", invalid("image", "image is not valid base64")
	}
	if len(data) == 0 {
		return nil, "", invalid("image", "image is empty")
	}
	if len(data) > maxImageBytes {
		return nil, "", invalid("image", "image exceeds %d bytes", maxImageBytes)
	}

	contentType := http.DetectContentType(data)
	if _, ok := imageExtensions[contentType]; !ok {
		return nil, "", invalid("image", "unsupported image type %s", contentType)
	}
	return data, contentType, nil
}

func imageKey(contentType string) string {
	return path.Join("recipes", "images", uuid.NewString()+imageExtensions[contentType])
}

// LocalImageStore writes images under a media directory served by the API
type LocalImageStore struct {
	dir     string
	baseURL string
	log     *zap.Logger
}

func NewLocalImageStore(dir, baseURL string, log *zap.Logger) *LocalImageStore {
	return &LocalImageStore{
		dir:     dir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		log:     log.Named("images"),
	}
}

func (s *LocalImageStore) Save(ctx context.Context, data []byte, contentType string) (string, error) {
	key := imageKey(contentType)
	full := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create media directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	s.log.Debug("stored image", zap.String("key", key))
	return key, nil
}

func (s *LocalImageStore) Delete(ctx context.Context, ref string) error {
	if ref == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(ref)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

func (s *LocalImageStore) URL(ref string) string {
	if ref == "" {
		return ""
	}
	return s.baseURL + "/" + ref
}

// S3ImageStore uploads images to an S3 bucket
type S3ImageStore struct {
	s3  *config.S3Config
	log *zap.Logger
}

func NewS3ImageStore(s3Config *config.S3Config, log *zap.Logger) *S3ImageStore {
	return &S3ImageStore{s3: s3Config, log: log.Named("images")}
}

func (s *S3ImageStore) Save(ctx context.Context, data []byte, contentType string) (string, error) {
	key := imageKey(contentType)
	_, err := s.s3.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.s3.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	s.log.Info("uploaded image to s3", zap.String("bucket", s.s3.BucketName), zap.String("key", key))
	return key, nil
}

func (s *S3ImageStore) Delete(ctx context.Context, ref string) error {
	if ref == "" {
		return nil
	}
	_, err := s.s3.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.s3.BucketName),
		Key:    aws.String(ref),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}

func (s *S3ImageStore) URL(ref string) string {
	if ref == "" {
		return ""
	}
	return s.s3.PublicURL(ref)
}
