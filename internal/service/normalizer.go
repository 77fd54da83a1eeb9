package service

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"mime"
	"strconv"
	"strings"
	"time"

	"vistahomes/internal/domain"
)

// Normalizer turns an untrusted submission into a canonical listing. It
// only fails when the submission is not an object at all; every field
// level problem degrades to an unknown (null) value.
type Normalizer struct {
	now func() time.Time
}

func NewNormalizer(now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{now: now}
}

// Normalize decodes a JSON submission. Attachments are read from the
// "attachments" or "images" array as data URLs.
func (n *Normalizer) Normalize(raw []byte) (*domain.Listing, []domain.AttachmentPayload, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		raw = []byte("{}")
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	if decoder.More() {
		return nil, nil, fmt.Errorf("%w: trailing data after object", domain.ErrInvalidPayload)
	}
	fields, ok := value.(map[string]any)
	if !ok {
		return nil, nil, fmt.Errorf("%w: submission must be a JSON object", domain.ErrInvalidPayload)
	}

	var attachments []domain.AttachmentPayload
	if list, ok := firstOf(fields, "attachments", "images").([]any); ok {
		attachments = make([]domain.AttachmentPayload, len(list))
		for i, item := range list {
			attachments[i] = decodeDataURL(item)
		}
	}

	return n.NormalizeFields(fields, attachments), attachments, nil
}

// NormalizeFields builds a listing from already decoded fields. It is used
// directly for multipart submissions, whose attachments arrive as file
// parts.
func (n *Normalizer) NormalizeFields(fields map[string]any, attachments []domain.AttachmentPayload) *domain.Listing {
	now := n.now().UTC()

	listing := &domain.Listing{
		ID:            now.UnixMilli(),
		Price:         parseNumber(fields["price"]),
		Bedrooms:      parseNumber(fields["bedrooms"]),
		Bathrooms:     parseNumber(fields["bathrooms"]),
		SquareFootage: parseNumber(firstOf(fields, "squareFootage", "sqft")),
		Address:       parseString(fields["address"]),
		PropertyType:  parseString(firstOf(fields, "propertyType", "type")),
		Realtor:       parseString(fields["realtor"]),
		Seller: domain.Seller{
			FirstName: parseString(fields["firstName"]),
			LastName:  parseString(fields["lastName"]),
			Email:     parseString(fields["email"]),
			Phone:     parseString(fields["phone"]),
		},
		CreatedAt:   now,
		Attachments: make([]*string, 0, len(attachments)),
	}

	if seller, ok := fields["seller"].(map[string]any); ok {
		overrideString(&listing.Seller.FirstName, seller["firstName"])
		overrideString(&listing.Seller.LastName, seller["lastName"])
		overrideString(&listing.Seller.Email, seller["email"])
		overrideString(&listing.Seller.Phone, seller["phone"])
	}

	return listing
}

// firstOf returns the first key present with a non-null value.
func firstOf(fields map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := fields[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func overrideString(dst **string, v any) {
	if s := parseString(v); s != nil {
		*dst = s
	}
}

var numberCleaner = strings.NewReplacer("$", "", ",", "", "_", "", " ", "")

// parseNumber accepts JSON numbers and numeric strings such as "250000"
// or "$250,000". Anything else, including negative and non-finite
// values, is unknown.
func parseNumber(v any) *float64 {
	var f float64
	switch value := v.(type) {
	case json.Number:
		parsed, err := value.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case float64:
		f = value
	case int:
		f = float64(value)
	case int64:
		f = float64(value)
	case string:
		cleaned := numberCleaner.Replace(strings.TrimSpace(value))
		if cleaned == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return nil
	}
	return &f
}

func parseString(v any) *string {
	var s string
	switch value := v.(type) {
	case string:
		s = strings.TrimSpace(value)
	case json.Number:
		s = value.String()
	case float64:
		s = strconv.FormatFloat(value, 'f', -1, 64)
	default:
		return nil
	}
	if s == "" || s == "null" || s == "undefined" {
		return nil
	}
	return &s
}

// decodeDataURL decodes "data:image/png;base64,...". Anything that is not
// a base64 image data URL is rejected but keeps its position.
func decodeDataURL(v any) domain.AttachmentPayload {
	s, ok := v.(string)
	if !ok {
		return domain.AttachmentPayload{Rejected: true}
	}
	rest, ok := strings.CutPrefix(strings.TrimSpace(s), "data:")
	if !ok {
		return domain.AttachmentPayload{Rejected: true}
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return domain.AttachmentPayload{Rejected: true}
	}
	mediaType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return domain.AttachmentPayload{Rejected: true}
	}
	mediaType, _, err := mime.ParseMediaType(mediaType)
	if err != nil || !isImage(mediaType) {
		return domain.AttachmentPayload{MediaType: mediaType, Rejected: true}
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(data) == 0 {
		return domain.AttachmentPayload{MediaType: mediaType, Rejected: true}
	}
	return domain.AttachmentPayload{MediaType: mediaType, Data: data}
}

func isImage(mediaType string) bool {
	return strings.HasPrefix(mediaType, "image/") && len(mediaType) > len("image/")
}
