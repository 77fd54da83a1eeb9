package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"vistahomes/internal/domain"
)

// listingStore is the collection the service appends to.
type listingStore interface {
	Append(ctx context.Context, listing *domain.Listing) (string, error)
	List(ctx context.Context) ([]json.RawMessage, string, error)
}

// SubmitResult describes an accepted submission.
type SubmitResult struct {
	Listing           *domain.Listing
	FailedAttachments int
	Version           string
}

// ListingService runs the submission pipeline: normalize, write
// attachments, then append the record to the collection. Attachments are
// always written before the collection is read.
type ListingService struct {
	normalizer  *Normalizer
	attachments *AttachmentService
	listings    listingStore
	logger      *slog.Logger
}

func NewListingService(normalizer *Normalizer, attachments *AttachmentService, listings listingStore, logger *slog.Logger) *ListingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ListingService{
		normalizer:  normalizer,
		attachments: attachments,
		listings:    listings,
		logger:      logger,
	}
}

// Submit handles a JSON submission.
func (s *ListingService) Submit(ctx context.Context, raw []byte) (*SubmitResult, error) {
	listing, payloads, err := s.normalizer.Normalize(raw)
	if err != nil {
		return nil, err
	}
	return s.store(ctx, listing, payloads)
}

// SubmitFields handles a submission whose fields were already decoded,
// such as a multipart form.
func (s *ListingService) SubmitFields(ctx context.Context, fields map[string]any, payloads []domain.AttachmentPayload) (*SubmitResult, error) {
	return s.store(ctx, s.normalizer.NormalizeFields(fields, payloads), payloads)
}

// List returns the stored collection verbatim.
func (s *ListingService) List(ctx context.Context) ([]json.RawMessage, error) {
	items, _, err := s.listings.List(ctx)
	return items, err
}

func (s *ListingService) store(ctx context.Context, listing *domain.Listing, payloads []domain.AttachmentPayload) (*SubmitResult, error) {
	failed := 0
	switch {
	case len(payloads) == 0:
	case s.attachments == nil:
		listing.Attachments = make([]*string, len(payloads))
		failed = len(payloads)
	default:
		failed = s.attachments.Write(ctx, listing, payloads)
	}

	version, err := s.listings.Append(ctx, listing)
	if err != nil {
		s.logger.Error("listing not stored",
			"listing_id", listing.ID,
			"attachments_written", listing.ResolvedAttachments(),
			"retryable", domain.IsRetryable(err),
			"error", err,
		)
		return nil, err
	}

	return &SubmitResult{
		Listing:           listing,
		FailedAttachments: failed,
		Version:           version,
	}, nil
}
