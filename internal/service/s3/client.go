package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"vistahomes/internal/storage"
)

const defaultTimeout = 30 * time.Second

// objectAPI is the subset of the S3 API the client uses.
type objectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Client is a storage.ContentStore over an S3-compatible bucket. The
// object ETag is the version token; conditional writes use If-Match and
// If-None-Match.
type Client struct {
	client objectAPI
	bucket string
}

var _ storage.ContentStore = (*Client)(nil)

// NewClient creates an S3 client and checks that the bucket is reachable.
func NewClient(conf *Config) (*Client, error) {
	if conf == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	if conf.AccessKeyID == "" || conf.SecretAccessKey == "" || conf.Bucket == "" {
		return nil, fmt.Errorf("missing required configuration: accessKeyID, secretAccessKey, and bucket are required")
	}

	creds := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
		conf.AccessKeyID,
		conf.SecretAccessKey,
		"",
	))

	client := s3.New(s3.Options{
		BaseEndpoint:     aws.String(conf.Endpoint),
		Region:           conf.Region,
		Credentials:      creds,
		UsePathStyle:     conf.UsePathStyle,
		RetryMode:        aws.RetryModeAdaptive,
		RetryMaxAttempts: 3,
	})

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	_, err := client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(conf.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to access bucket %s: %w", conf.Bucket, err)
	}

	return &Client{client: client, bucket: conf.Bucket}, nil
}

// Get fetches an object and its ETag.
func (h *Client) Get(ctx context.Context, key string) (*storage.Object, error) {
	result, err := h.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}
	defer result.Body.Close()

	content, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}

	return &storage.Object{
		Content: content,
		Version: aws.ToString(result.ETag),
	}, nil
}

// Put writes an object. S3 has no commit history, so opts.Message is
// ignored.
func (h *Client) Put(ctx context.Context, key string, content []byte, opts storage.PutOptions) (string, error) {
	if key == "" {
		return "", fmt.Errorf("key is required")
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(content),
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	switch {
	case opts.IfNoneMatch:
		input.IfNoneMatch = aws.String("*")
	case opts.IfMatch != "":
		input.IfMatch = aws.String(opts.IfMatch)
	}

	result, err := h.client.PutObject(ctx, input)
	if err != nil {
		if reason, ok := preconditionFailure(err); ok {
			return "", &storage.ConflictError{Path: key, Expected: opts.IfMatch, Reason: reason}
		}
		return "", fmt.Errorf("failed to upload data to S3: %w", err)
	}

	return aws.ToString(result.ETag), nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound"
}

// preconditionFailure recognises a rejected If-Match / If-None-Match write.
// S3 answers 412 PreconditionFailed for a stale ETag or an existing key and
// 409 ConditionalRequestConflict when another conditional write raced it.
func preconditionFailure(err error) (string, bool) {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "PreconditionFailed", "ConditionalRequestConflict":
			return apiErr.ErrorMessage(), true
		}
	}
	var respErr interface{ HTTPStatusCode() int }
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusPreconditionFailed {
		return "precondition failed", true
	}
	return "", false
}
