package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"vistahomes/internal/auth"
	"vistahomes/internal/domain"
	"vistahomes/internal/service"
)

// Multipart file fields that carry listing photos.
var attachmentFields = []string{"photos", "images", "attachments"}

const multipartMemory = 8 << 20

type ListingHandler struct {
	listings     *service.ListingService
	maxBodyBytes int64
	sharedToken  string
}

type SubmitResponse struct {
	OK                bool            `json:"ok"`
	Listing           *domain.Listing `json:"listing"`
	FailedAttachments int             `json:"failedAttachments"`
	Version           string          `json:"version"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func NewListingHandler(listings *service.ListingService, maxBodyBytes int64, sharedToken string) *ListingHandler {
	return &ListingHandler{
		listings:     listings,
		maxBodyBytes: maxBodyBytes,
		sharedToken:  sharedToken,
	}
}

// SubmitListing accepts a JSON object or a multipart form and appends the
// normalized listing to the collection.
func (h *ListingHandler) SubmitListing(w http.ResponseWriter, r *http.Request) {
	logger := LoggerFrom(r.Context())

	if err := auth.VerifyToken(r, h.sharedToken); err != nil {
		respondError(w, http.StatusUnauthorized, err.Error())
		return
	}

	if h.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}

	// Writes that were already issued must be allowed to land even if the
	// client goes away.
	ctx := context.WithoutCancel(r.Context())

	var (
		result *service.SubmitResult
		err    error
	)
	if isMultipart(r) {
		var fields map[string]any
		var payloads []domain.AttachmentPayload
		fields, payloads, err = readMultipart(r)
		if err == nil {
			result, err = h.listings.SubmitFields(ctx, fields, payloads)
		}
	} else {
		var body []byte
		body, err = io.ReadAll(r.Body)
		if err == nil {
			result, err = h.listings.Submit(ctx, body)
		}
	}

	if err != nil {
		status := statusFor(err)
		logger.Error("listing submission failed", "status", status, "retryable", domain.IsRetryable(err), "error", err)
		respondError(w, status, err.Error())
		return
	}

	logger.Info("listing submitted",
		"listing_id", result.Listing.ID,
		"attachments", len(result.Listing.Attachments),
		"failed_attachments", result.FailedAttachments,
		"version", result.Version,
	)
	respondJSON(w, http.StatusOK, SubmitResponse{
		OK:                true,
		Listing:           result.Listing,
		FailedAttachments: result.FailedAttachments,
		Version:           result.Version,
	})
}

// ListListings returns the stored collection as is.
func (h *ListingHandler) ListListings(w http.ResponseWriter, r *http.Request) {
	items, err := h.listings.List(r.Context())
	if err != nil {
		LoggerFrom(r.Context()).Error("listing read failed", "error", err)
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// Preflight answers a bare OPTIONS request. CORS preflights are answered
// by the cors middleware before reaching it.
func (h *ListingHandler) Preflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func NotFound(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusNotFound, "not found")
}

func Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func statusFor(err error) int {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrInvalidPayload):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrStoreUnreachable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// readMultipart collects the first value of every text field and every
// attachment file part, in the order they were sent per field name.
func readMultipart(r *http.Request) (map[string]any, []domain.AttachmentPayload, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	defer r.MultipartForm.RemoveAll()

	fields := make(map[string]any, len(r.MultipartForm.Value))
	for key, values := range r.MultipartForm.Value {
		if len(values) > 0 {
			fields[key] = values[0]
		}
	}

	var payloads []domain.AttachmentPayload
	for _, field := range attachmentFields {
		for _, header := range r.MultipartForm.File[field] {
			payload, err := readAttachment(header)
			if err != nil {
				return nil, nil, err
			}
			payloads = append(payloads, payload)
		}
	}
	return fields, payloads, nil
}

func readAttachment(header *multipart.FileHeader) (domain.AttachmentPayload, error) {
	file, err := header.Open()
	if err != nil {
		return domain.AttachmentPayload{}, fmt.Errorf("%w: open %s: %v", domain.ErrInvalidPayload, header.Filename, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return domain.AttachmentPayload{}, fmt.Errorf("%w: read %s: %v", domain.ErrInvalidPayload, header.Filename, err)
	}

	mediaType, _, err := mime.ParseMediaType(header.Header.Get("Content-Type"))
	if err != nil || mediaType == "application/octet-stream" {
		mediaType, _, _ = mime.ParseMediaType(http.DetectContentType(data))
	}

	payload := domain.AttachmentPayload{MediaType: mediaType, Data: data}
	if !strings.HasPrefix(mediaType, "image/") || len(data) == 0 {
		payload.Rejected = true
	}
	return payload, nil
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		slog.Error("encode json failed", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}
