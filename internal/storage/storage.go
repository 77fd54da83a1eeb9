// Package storage defines the remote persistence surface the listing
// pipeline writes through: a versioned content store for the collection
// and a create-only blob store for attachments.
package storage

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Get when nothing is stored under the path.
	ErrNotFound = errors.New("object not found")
	// ErrVersionConflict is returned by Put when its precondition does not
	// hold against the currently stored version.
	ErrVersionConflict = errors.New("version conflict")
)

// ConflictError carries the details of a rejected conditional write.
type ConflictError struct {
	Path     string
	Expected string
	Reason   string
}

func (e *ConflictError) Error() string {
	if e.Expected == "" {
		return fmt.Sprintf("version conflict on %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("version conflict on %s (expected %s): %s", e.Path, e.Expected, e.Reason)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrVersionConflict
}

// Object is a stored document together with its version token.
type Object struct {
	Content []byte
	Version string
}

// PutOptions controls a write. IfMatch and IfNoneMatch are mutually
// exclusive; with neither set the write is unconditional.
type PutOptions struct {
	// IfMatch makes the write succeed only while the stored version equals it.
	IfMatch string
	// IfNoneMatch makes the write succeed only if the path does not exist yet.
	IfNoneMatch bool
	// Message is recorded by stores that keep a history (commit message).
	Message     string
	ContentType string
}

// ContentStore is a remote, versioned key/value store addressed by path.
type ContentStore interface {
	Get(ctx context.Context, path string) (*Object, error)
	Put(ctx context.Context, path string, content []byte, opts PutOptions) (string, error)
}

// BlobStore persists immutable binary objects.
type BlobStore interface {
	Create(ctx context.Context, name string, data []byte, contentType, message string) error
}

// ContentBlobs stores attachments in the same content store as the
// collection, as create-only objects.
type ContentBlobs struct {
	Store ContentStore
}

// NewContentBlobs wraps store as a BlobStore.
func NewContentBlobs(store ContentStore) *ContentBlobs {
	return &ContentBlobs{Store: store}
}

func (b *ContentBlobs) Create(ctx context.Context, name string, data []byte, contentType, message string) error {
	_, err := b.Store.Put(ctx, name, data, PutOptions{
		IfNoneMatch: true,
		Message:     message,
		ContentType: contentType,
	})
	return err
}
