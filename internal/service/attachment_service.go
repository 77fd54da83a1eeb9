package service

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"

	"vistahomes/internal/domain"
	"vistahomes/internal/storage"
)

const maxConcurrentUploads = 5

// AttachmentService writes listing attachments as immutable blobs and
// records where each one landed.
type AttachmentService struct {
	blobs  storage.BlobStore
	dir    string
	logger *slog.Logger
}

func NewAttachmentService(blobs storage.BlobStore, dir string, logger *slog.Logger) *AttachmentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AttachmentService{
		blobs:  blobs,
		dir:    strings.TrimSuffix(dir, "/"),
		logger: logger,
	}
}

// Write stores every payload and fills listing.Attachments with one entry
// per payload, in input order: the blob name on success or nil on
// failure. It returns how many entries are nil. A failed attachment never
// fails the submission.
func (s *AttachmentService) Write(ctx context.Context, listing *domain.Listing, payloads []domain.AttachmentPayload) int {
	refs := make([]*string, len(payloads))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, maxConcurrentUploads)

	for i, payload := range payloads {
		if payload.Rejected || len(payload.Data) == 0 {
			s.logger.Warn("attachment rejected",
				"listing_id", listing.ID,
				"index", i,
				"media_type", payload.MediaType,
			)
			continue
		}

		wg.Add(1)
		semaphore <- struct{}{}

		go func(i int, payload domain.AttachmentPayload) {
			defer wg.Done()
			defer func() { <-semaphore }()

			name := s.blobName(listing.ID, i, payload.MediaType)
			message := fmt.Sprintf("Add image for listing %d (%d)", listing.ID, i+1)
			if err := s.blobs.Create(ctx, name, payload.Data, payload.MediaType, message); err != nil {
				s.logger.Error("attachment write failed",
					"listing_id", listing.ID,
					"index", i,
					"name", name,
					"error", fmt.Errorf("%w: %v", domain.ErrAttachmentWriteFailed, err),
				)
				return
			}
			refs[i] = &name
		}(i, payload)
	}

	wg.Wait()

	listing.Attachments = refs
	return len(refs) - listing.ResolvedAttachments()
}

// blobName returns "<dir>/<id>-<n>.<ext>" with n counted from 1.
func (s *AttachmentService) blobName(id int64, index int, mediaType string) string {
	name := fmt.Sprintf("%d-%d.%s", id, index+1, extension(mediaType))
	if s.dir == "" {
		return name
	}
	return path.Join(s.dir, name)
}

// extension derives a file extension from an image media type:
// image/jpeg is "jpeg", image/svg+xml is "svg".
func extension(mediaType string) string {
	_, subtype, ok := strings.Cut(mediaType, "/")
	if !ok || subtype == "" {
		return "bin"
	}
	subtype, _, _ = strings.Cut(subtype, "+")
	subtype, _, _ = strings.Cut(subtype, ";")
	subtype = strings.ToLower(strings.TrimSpace(subtype))
	if subtype == "" {
		return "bin"
	}
	return subtype
}
