package domain

import "errors"

var (
	ErrInvalidPayload        = errors.New("invalid payload")
	ErrAttachmentWriteFailed = errors.New("attachment write failed")
	ErrStoreUnreachable      = errors.New("content store unreachable")
	ErrVersionConflict       = errors.New("collection was modified concurrently")
	ErrSerializationFailure  = errors.New("listing could not be serialized")
)

// IsRetryable reports whether resubmitting the same request may succeed.
// A version conflict means another writer got in first; a fresh
// read-append-write cycle is expected to go through.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrVersionConflict) || errors.Is(err, ErrStoreUnreachable)
}
