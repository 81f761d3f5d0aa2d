package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStore writes objects to an S3-compatible bucket.
type ObjectStore interface {
	Upload(ctx context.Context, req UploadRequest) error
	BucketExists(ctx context.Context, bucket string) (bool, error)
}

// StoreConfig describes how to reach the storage endpoint. Access and secret
// keys are optional; without them credentials are discovered the way the AWS
// tooling does.
type StoreConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

type minioStore struct {
	client *minio.Client
}

// NewMinioStore builds the storage client. No network call is made here;
// buckets are chosen per request.
func NewMinioStore(cfg StoreConfig) (ObjectStore, error) {
	endpoint, secure, err := normaliseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("storage endpoint: %w", err)
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  storeCredentials(cfg),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}
	return &minioStore{client: client}, nil
}

func storeCredentials(cfg StoreConfig) *credentials.Credentials {
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		return credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	}
	return credentials.NewChainCredentials([]credentials.Provider{
		&credentials.EnvAWS{},
		&credentials.EnvMinio{},
		&credentials.FileAWSCredentials{},
		&credentials.IAM{Client: &http.Client{Transport: http.DefaultTransport}},
	})
}

// Upload streams the body to bucket/filename. The key is the filename as
// submitted.
func (s *minioStore) Upload(ctx context.Context, req UploadRequest) error {
	_, err := s.client.PutObject(ctx, req.Bucket, req.Filename, req.Body, req.Size,
		minio.PutObjectOptions{ContentType: req.ContentType})
	return err
}

func (s *minioStore) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return s.client.BucketExists(ctx, bucket)
}

// objectURL is the public address reported after an upload.
func objectURL(bucket, key string) string {
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", bucket, key)
}

func normaliseEndpoint(raw string) (endpoint string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("empty endpoint")
	}

	// Accept either "minio:9000" or "http://minio:9000" / "https://minio:9000".
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false, err
		}
		if u.Host == "" {
			return "", false, fmt.Errorf("invalid endpoint")
		}
		if u.Path != "" && u.Path != "/" {
			return "", false, fmt.Errorf("endpoint must not contain a path")
		}
		return u.Host, u.Scheme == "https", nil
	}

	// No scheme: host:port, insecure, as for a local MinIO.
	return raw, false, nil
}
