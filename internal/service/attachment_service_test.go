package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vistahomes/internal/domain"
	"vistahomes/internal/storage"
)

// fakeBlobs records created blobs and fails names listed in failOn.
type fakeBlobs struct {
	mu       sync.Mutex
	created  map[string][]byte
	types    map[string]string
	messages map[string]string
	failOn   map[string]bool

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	delay       time.Duration
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{
		created:  make(map[string][]byte),
		types:    make(map[string]string),
		messages: make(map[string]string),
		failOn:   make(map[string]bool),
	}
}

func (f *fakeBlobs) Create(_ context.Context, name string, data []byte, contentType, message string) error {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.maxInFlight.Load()
		if n <= peak || f.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn[name] {
		return errors.New("remote write failed")
	}
	f.created[name] = data
	f.types[name] = contentType
	f.messages[name] = message
	return nil
}

func image(mediaType, data string) domain.AttachmentPayload {
	return domain.AttachmentPayload{MediaType: mediaType, Data: []byte(data)}
}

func TestWriteNamesBlobsByListingAndPosition(t *testing.T) {
	blobs := newFakeBlobs()
	svc := NewAttachmentService(blobs, "data/images/", nil)
	listing := &domain.Listing{ID: 1700000000000}

	failed := svc.Write(context.Background(), listing, []domain.AttachmentPayload{
		image("image/jpeg", "a"),
		image("image/png", "b"),
		image("image/svg+xml", "c"),
	})

	assert.Equal(t, 0, failed)
	require.Len(t, listing.Attachments, 3)
	want := []string{
		"data/images/1700000000000-1.jpeg",
		"data/images/1700000000000-2.png",
		"data/images/1700000000000-3.svg",
	}
	for i, name := range want {
		require.NotNil(t, listing.Attachments[i])
		assert.Equal(t, name, *listing.Attachments[i])
	}
	assert.Equal(t, []byte("b"), blobs.created[want[1]])
	assert.Equal(t, "image/png", blobs.types[want[1]])
	assert.Equal(t, "Add image for listing 1700000000000 (2)", blobs.messages[want[1]])
}

func TestWriteKeepsFailureMarkersInPlace(t *testing.T) {
	blobs := newFakeBlobs()
	blobs.failOn["data/images/5-2.png"] = true
	svc := NewAttachmentService(blobs, "data/images", nil)
	listing := &domain.Listing{ID: 5}

	failed := svc.Write(context.Background(), listing, []domain.AttachmentPayload{
		image("image/png", "first"),
		image("image/png", "second"),
		{MediaType: "text/plain", Rejected: true},
		image("image/png", "fourth"),
	})

	assert.Equal(t, 2, failed)
	require.Len(t, listing.Attachments, 4)
	assert.Equal(t, "data/images/5-1.png", *listing.Attachments[0])
	assert.Nil(t, listing.Attachments[1])
	assert.Nil(t, listing.Attachments[2])
	assert.Equal(t, "data/images/5-4.png", *listing.Attachments[3])
	assert.Equal(t, 2, listing.ResolvedAttachments())
}

func TestWriteSurvivesCreateOnlyCollision(t *testing.T) {
	store := storage.NewMemoryStore()
	_, err := store.Put(context.Background(), "data/images/9-1.png", []byte("old"), storage.PutOptions{})
	require.NoError(t, err)

	svc := NewAttachmentService(storage.NewContentBlobs(store), "data/images", nil)
	listing := &domain.Listing{ID: 9}
	failed := svc.Write(context.Background(), listing, []domain.AttachmentPayload{image("image/png", "new")})

	assert.Equal(t, 1, failed)
	assert.Nil(t, listing.Attachments[0])
	obj, err := store.Get(context.Background(), "data/images/9-1.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("old"), obj.Content)
}

func TestWriteBoundsConcurrency(t *testing.T) {
	blobs := newFakeBlobs()
	blobs.delay = 5 * time.Millisecond
	svc := NewAttachmentService(blobs, "img", nil)

	payloads := make([]domain.AttachmentPayload, 3*maxConcurrentUploads)
	for i := range payloads {
		payloads[i] = image("image/webp", strings.Repeat("x", i+1))
	}
	listing := &domain.Listing{ID: 3}

	failed := svc.Write(context.Background(), listing, payloads)
	assert.Equal(t, 0, failed)
	assert.Len(t, blobs.created, len(payloads))
	assert.LessOrEqual(t, blobs.maxInFlight.Load(), int32(maxConcurrentUploads))
	for i, ref := range listing.Attachments {
		require.NotNil(t, ref)
		assert.Equal(t, strings.Repeat("x", i+1), string(blobs.created[*ref]))
	}
}

func TestExtension(t *testing.T) {
	tests := map[string]string{
		"image/jpeg":    "jpeg",
		"image/png":     "png",
		"image/svg+xml": "svg",
		"image/WEBP":    "webp",
		"image/":        "bin",
		"":              "bin",
	}
	for mediaType, want := range tests {
		assert.Equal(t, want, extension(mediaType), mediaType)
	}
}
