package service

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vistahomes/internal/domain"
)

var fixedNow = time.Date(2026, 10, 17, 9, 30, 0, 123_000_000, time.FixedZone("EST", -5*3600))

func newTestNormalizer() *Normalizer {
	return NewNormalizer(func() time.Time { return fixedNow })
}

func TestNormalizeMinimalSubmission(t *testing.T) {
	listing, payloads, err := newTestNormalizer().Normalize([]byte(`{"address":"1 Main St","price":"250000","bedrooms":3}`))
	require.NoError(t, err)
	assert.Empty(t, payloads)

	require.NotNil(t, listing.Address)
	assert.Equal(t, "1 Main St", *listing.Address)
	require.NotNil(t, listing.Price)
	assert.Equal(t, 250000.0, *listing.Price)
	require.NotNil(t, listing.Bedrooms)
	assert.Equal(t, 3.0, *listing.Bedrooms)

	assert.Nil(t, listing.Bathrooms)
	assert.Nil(t, listing.SquareFootage)
	assert.Nil(t, listing.PropertyType)
	assert.Nil(t, listing.Realtor)
	assert.Equal(t, domain.Seller{}, listing.Seller)
	assert.Empty(t, listing.Attachments)
	assert.NotNil(t, listing.Attachments)

	assert.Equal(t, fixedNow.UnixMilli(), listing.ID)
	assert.Equal(t, time.UTC, listing.CreatedAt.Location())
	assert.True(t, fixedNow.Equal(listing.CreatedAt))
}

func TestNormalizeSerializesUnknownAsNull(t *testing.T) {
	listing, _, err := newTestNormalizer().Normalize([]byte(`{"address":"1 Main St","bedrooms":"abc"}`))
	require.NoError(t, err)

	encoded, err := json.Marshal(listing)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(encoded, &fields))
	for _, key := range []string{"price", "bedrooms", "bathrooms", "squareFootage", "propertyType", "realtor"} {
		value, present := fields[key]
		assert.True(t, present, key)
		assert.Nil(t, value, key)
	}
	seller := fields["seller"].(map[string]any)
	for _, key := range []string{"firstName", "lastName", "email", "phone"} {
		value, present := seller[key]
		assert.True(t, present, key)
		assert.Nil(t, value, key)
	}
	assert.Equal(t, []any{}, fields["attachments"])
}

func TestNormalizeNumbers(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want *float64
	}{
		{name: "json number", in: `250000`, want: ptr(250000)},
		{name: "numeric string", in: `"250000"`, want: ptr(250000)},
		{name: "currency string", in: `"$250,000"`, want: ptr(250000)},
		{name: "fraction", in: `"1.5"`, want: ptr(1.5)},
		{name: "zero is known", in: `0`, want: ptr(0)},
		{name: "garbage", in: `"abc"`},
		{name: "empty string", in: `""`},
		{name: "boolean", in: `true`},
		{name: "negative", in: `-3`},
		{name: "null", in: `null`},
		{name: "infinity", in: `"Inf"`},
		{name: "not a number", in: `"NaN"`},
		{name: "object", in: `{"value":3}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listing, _, err := newTestNormalizer().Normalize([]byte(`{"price":` + tt.in + `}`))
			require.NoError(t, err)
			assert.Equal(t, tt.want, listing.Price)
		})
	}
}

func TestNormalizeNeverSubstitutesZeroForUnknown(t *testing.T) {
	listing, _, err := newTestNormalizer().Normalize([]byte(`{"price":"n/a","bedrooms":"","bathrooms":false,"sqft":"lots"}`))
	require.NoError(t, err)
	assert.Nil(t, listing.Price)
	assert.Nil(t, listing.Bedrooms)
	assert.Nil(t, listing.Bathrooms)
	assert.Nil(t, listing.SquareFootage)
}

func TestNormalizeAliasesAndSeller(t *testing.T) {
	raw := `{
		"sqft": "1,200",
		"type": "condo",
		"realtor": "  Jane Realty  ",
		"firstName": "Flat",
		"email": "flat@example.com",
		"phone": 5551234,
		"seller": {"firstName": "Nested", "lastName": "Owner"}
	}`
	listing, _, err := newTestNormalizer().Normalize([]byte(raw))
	require.NoError(t, err)

	assert.Equal(t, ptr(1200), listing.SquareFootage)
	assert.Equal(t, "condo", *listing.PropertyType)
	assert.Equal(t, "Jane Realty", *listing.Realtor)
	assert.Equal(t, "Nested", *listing.Seller.FirstName)
	assert.Equal(t, "Owner", *listing.Seller.LastName)
	assert.Equal(t, "flat@example.com", *listing.Seller.Email)
	assert.Equal(t, "5551234", *listing.Seller.Phone)
}

func TestNormalizeRejectsNonObjects(t *testing.T) {
	for _, raw := range []string{`[1,2]`, `"text"`, `42`, `null`, `{"a":1`, `not json`, `{} {}`} {
		t.Run(raw, func(t *testing.T) {
			_, _, err := newTestNormalizer().Normalize([]byte(raw))
			assert.ErrorIs(t, err, domain.ErrInvalidPayload)
		})
	}
}

func TestNormalizeEmptyBodyIsEmptyObject(t *testing.T) {
	listing, payloads, err := newTestNormalizer().Normalize(nil)
	require.NoError(t, err)
	assert.Empty(t, payloads)
	assert.Nil(t, listing.Address)
	assert.NotZero(t, listing.ID)
}

func TestNormalizeAttachments(t *testing.T) {
	png := base64.StdEncoding.EncodeToString([]byte("\x89PNG fake"))
	raw := `{"images": [
		"data:image/png;base64,` + png + `",
		"data:text/plain;base64,aGVsbG8=",
		"https://example.com/photo.jpg",
		"data:image/jpeg;base64,***",
		42,
		"data:image/svg+xml;charset=utf-8;base64,PHN2Zy8+"
	]}`
	_, payloads, err := newTestNormalizer().Normalize([]byte(raw))
	require.NoError(t, err)
	require.Len(t, payloads, 6)

	assert.False(t, payloads[0].Rejected)
	assert.Equal(t, "image/png", payloads[0].MediaType)
	assert.Equal(t, []byte("\x89PNG fake"), payloads[0].Data)

	assert.True(t, payloads[1].Rejected)
	assert.True(t, payloads[2].Rejected)
	assert.True(t, payloads[3].Rejected)
	assert.True(t, payloads[4].Rejected)

	assert.False(t, payloads[5].Rejected)
	assert.Equal(t, "image/svg+xml", payloads[5].MediaType)
	assert.Equal(t, []byte("<svg/>"), payloads[5].Data)
}

func ptr(f float64) *float64 {
	return &f
}
