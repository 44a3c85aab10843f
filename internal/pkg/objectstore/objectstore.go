package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appcfg "github.com/CJCR07/veridicus/internal/config"
)

// Store wraps the S3-compatible evidence blob store. The external store
// exposes its storage buckets through an S3 API; path-style addressing is
// used so custom endpoints resolve without bucket DNS.
type Store struct {
	client *s3.Client
	bucket string
}

func New(opts appcfg.StorageConfig) (*Store, error) {
	bucket := strings.TrimSpace(opts.Bucket)
	if bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if strings.TrimSpace(opts.AccessKey) == "" || strings.TrimSpace(opts.SecretKey) == "" {
		return nil, errors.New("storage credentials are required")
	}

	region := strings.TrimSpace(opts.Region)
	if region == "" {
		region = "us-east-1"
	}

	s3opts := s3.Options{
		Region:       region,
		Credentials:  credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		UsePathStyle: true,
	}
	if endpoint := strings.TrimSpace(opts.Endpoint); endpoint != "" {
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			endpoint = "https://" + endpoint
		}
		s3opts.BaseEndpoint = aws.String(strings.TrimSuffix(endpoint, "/"))
	}

	return &Store{client: s3.New(s3opts), bucket: bucket}, nil
}

// Upload stores payload under key and returns the key.
func (s *Store) Upload(ctx context.Context, key string, payload []byte, contentType string) (string, error) {
	key = normalizeKey(key)
	if key == "" {
		return "", errors.New("invalid object key")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("object upload failed: %w", err)
	}
	return key, nil
}

// Download fetches an object's full contents.
func (s *Store) Download(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(normalizeKey(key)),
	})
	if err != nil {
		return nil, fmt.Errorf("object download failed: %w", err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// Delete removes an object. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(normalizeKey(key)),
	})
	return err
}

func normalizeKey(key string) string {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	key = strings.TrimPrefix(key, "/")
	for strings.Contains(key, "//") {
		key = strings.ReplaceAll(key, "//", "/")
	}
	return key
}
