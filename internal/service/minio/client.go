// Package minio stores listing attachments in a MinIO (or any S3
// compatible) bucket.
package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"vistahomes/internal/storage"
)

// objectAPI is the subset of *minio.Client the blob store uses.
type objectAPI interface {
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Storage is a storage.BlobStore over one bucket.
type Storage struct {
	client objectAPI
	bucket string
}

var _ storage.BlobStore = (*Storage)(nil)

// New creates a MinIO client from conf and makes sure the bucket exists.
func New(ctx context.Context, conf *Config) (*Storage, error) {
	client, err := minio.New(conf.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(conf.AccessKey, conf.SecretKey, ""),
		Secure: conf.UseSSL,
		Region: conf.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}

	exists, err := client.BucketExists(ctx, conf.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", conf.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, conf.Bucket, minio.MakeBucketOptions{Region: conf.Region}); err != nil {
			return nil, fmt.Errorf("make bucket %s: %w", conf.Bucket, err)
		}
	}

	return &Storage{client: client, bucket: conf.Bucket}, nil
}

// Create uploads data under name unless an object with that name already
// exists. The commit message is stored as object metadata.
func (s *Storage) Create(ctx context.Context, name string, data []byte, contentType, message string) error {
	_, err := s.client.StatObject(ctx, s.bucket, name, minio.StatObjectOptions{})
	if err == nil {
		return &storage.ConflictError{Path: name, Reason: "object already exists"}
	}
	if code := minio.ToErrorResponse(err).Code; code != "NoSuchKey" && code != "NotFound" {
		return fmt.Errorf("stat object %s: %w", name, err)
	}

	opts := minio.PutObjectOptions{ContentType: contentType}
	if message != "" {
		opts.UserMetadata = map[string]string{"Message": message}
	}
	if _, err := s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)), opts); err != nil {
		return fmt.Errorf("upload object %s: %w", name, err)
	}
	return nil
}
