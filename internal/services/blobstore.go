package services

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"pixelnest/internal/config"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ImageFile is an uploaded image as the post service sees it.
type ImageFile struct {
	Filename    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// UploadResult is the stable reference returned by the blob store.
type UploadResult struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"` // deletion key
}

type BlobStore interface {
	Upload(ctx context.Context, file ImageFile) (*UploadResult, error)
	Delete(ctx context.Context, publicID string) error
}

// MinioBlobStore stores images in an S3-compatible bucket.
type MinioBlobStore struct {
	client    *minio.Client
	bucket    string
	folder    string
	publicURL string
}

func NewMinioBlobStore(cfg config.S3Config) (*MinioBlobStore, error) {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "http://"), "https://")
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return &MinioBlobStore{
		client:    client,
		bucket:    cfg.Bucket,
		folder:    strings.Trim(cfg.Folder, "/"),
		publicURL: cfg.PublicURL,
	}, nil
}

// EnsureBucket creates the bucket on first start and makes the image folder
// anonymously readable so retrieval URLs work without signing.
func (s *MinioBlobStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.bucket, err)
		}
	}

	if err := s.client.SetBucketPolicy(ctx, s.bucket, publicReadPolicy(s.bucket, s.folder)); err != nil {
		return fmt.Errorf("set bucket policy: %w", err)
	}
	return nil
}

// publicReadPolicy grants anonymous GetObject on the keys Upload writes.
func publicReadPolicy(bucket, folder string) string {
	resource := path.Join(bucket, folder, "*")
	return fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s"]}]}`, resource)
}

func (s *MinioBlobStore) Upload(ctx context.Context, file ImageFile) (*UploadResult, error) {
	ext := strings.ToLower(path.Ext(file.Filename))
	key := path.Join(s.folder, uuid.NewString()+ext)

	contentType := file.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		if t := mime.TypeByExtension(ext); t != "" {
			contentType = t
		}
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, file.Reader, file.Size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("put object %s: %w", key, err)
	}

	return &UploadResult{
		URL:      s.objectURL(key),
		PublicID: key,
	}, nil
}

func (s *MinioBlobStore) Delete(ctx context.Context, publicID string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, publicID, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", publicID, err)
	}
	return nil
}

func (s *MinioBlobStore) objectURL(key string) string {
	if s.publicURL != "" {
		return s.publicURL + "/" + key
	}
	return strings.TrimSuffix(s.client.EndpointURL().String(), "/") + "/" + s.bucket + "/" + key
}
