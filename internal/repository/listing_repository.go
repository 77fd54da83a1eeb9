package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"vistahomes/internal/domain"
	"vistahomes/internal/storage"
)

// ListingRepository keeps the whole listing collection as one JSON array
// in a versioned content store. Appends are read-modify-write cycles
// guarded by the version token of the read; there is no lock and no retry.
type ListingRepository struct {
	store  storage.ContentStore
	path   string
	logger *slog.Logger
}

func NewListingRepository(store storage.ContentStore, path string, logger *slog.Logger) *ListingRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &ListingRepository{
		store:  store,
		path:   path,
		logger: logger,
	}
}

// Path returns where the collection is stored.
func (r *ListingRepository) Path() string {
	return r.path
}

// List returns the stored collection elements verbatim together with the
// version token they were read at. A missing collection is empty with no
// version.
func (r *ListingRepository) List(ctx context.Context) ([]json.RawMessage, string, error) {
	items, version, _, err := r.read(ctx)
	return items, version, err
}

// Append adds listing to the end of the collection and returns the new
// version token. Existing elements are written back exactly as they were
// read. A write that loses a race with another writer fails with
// domain.ErrVersionConflict.
func (r *ListingRepository) Append(ctx context.Context, listing *domain.Listing) (string, error) {
	encoded, err := marshal(listing, "")
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSerializationFailure, err)
	}

	items, version, exists, err := r.read(ctx)
	if err != nil {
		return "", err
	}

	items = append(items, json.RawMessage(encoded))
	content, err := marshal(items, "  ")
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrSerializationFailure, err)
	}

	opts := storage.PutOptions{
		Message:     fmt.Sprintf("Add listing %d", listing.ID),
		ContentType: "application/json",
	}
	if exists {
		opts.IfMatch = version
	} else {
		opts.IfNoneMatch = true
		opts.Message = fmt.Sprintf("Create %s with first entry", r.path)
	}

	newVersion, err := r.store.Put(ctx, r.path, content, opts)
	if err != nil {
		if errors.Is(err, storage.ErrVersionConflict) {
			return "", fmt.Errorf("%w: %v", domain.ErrVersionConflict, err)
		}
		return "", fmt.Errorf("%w: writing %s: %v", domain.ErrStoreUnreachable, r.path, err)
	}

	r.logger.Info("listing appended",
		"listing_id", listing.ID,
		"path", r.path,
		"count", len(items),
		"previous_version", version,
		"version", newVersion,
	)
	return newVersion, nil
}

// read fetches and decodes the collection. Content that does not decode
// to an array is treated as an empty collection so a damaged file never
// blocks new submissions; the version is still returned so the rewrite
// stays conditional.
func (r *ListingRepository) read(ctx context.Context) ([]json.RawMessage, string, bool, error) {
	obj, err := r.store.Get(ctx, r.path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return []json.RawMessage{}, "", false, nil
		}
		return nil, "", false, fmt.Errorf("%w: reading %s: %v", domain.ErrStoreUnreachable, r.path, err)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(obj.Content, &items); err != nil || items == nil {
		r.logger.Warn("collection is not a JSON array, treating as empty",
			"path", r.path,
			"version", obj.Version,
			"error", err,
		)
		items = []json.RawMessage{}
	}
	return items, obj.Version, true, nil
}

// marshal encodes v without HTML escaping so stored elements containing
// '&', '<' or '>' are written back with the bytes they were read with.
func marshal(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
