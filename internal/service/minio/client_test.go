package minio

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vistahomes/internal/storage"
)

type fakeObjectAPI struct {
	statErr error
	putErr  error
	puts    map[string][]byte
	opts    minio.PutObjectOptions
}

func (f *fakeObjectAPI) StatObject(_ context.Context, _, _ string, _ minio.StatObjectOptions) (minio.ObjectInfo, error) {
	return minio.ObjectInfo{}, f.statErr
}

func (f *fakeObjectAPI) PutObject(_ context.Context, _, objectName string, reader io.Reader, _ int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	data, _ := io.ReadAll(reader)
	if f.puts == nil {
		f.puts = make(map[string][]byte)
	}
	f.puts[objectName] = data
	f.opts = opts
	return minio.UploadInfo{Key: objectName}, nil
}

func TestCreateUploadsMissingObject(t *testing.T) {
	api := &fakeObjectAPI{statErr: minio.ErrorResponse{Code: "NoSuchKey"}}
	s := &Storage{client: api, bucket: "images"}

	err := s.Create(context.Background(), "data/images/7-1.png", []byte{1, 2, 3}, "image/png", "Add image for listing 7 (1)")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, api.puts["data/images/7-1.png"])
	assert.Equal(t, "image/png", api.opts.ContentType)
	assert.Equal(t, "Add image for listing 7 (1)", api.opts.UserMetadata["Message"])
}

func TestCreateRefusesExistingObject(t *testing.T) {
	api := &fakeObjectAPI{}
	s := &Storage{client: api, bucket: "images"}

	err := s.Create(context.Background(), "data/images/7-1.png", []byte{1}, "image/png", "")
	assert.ErrorIs(t, err, storage.ErrVersionConflict)
	assert.Empty(t, api.puts)
}

func TestCreateSurfacesStatFailure(t *testing.T) {
	api := &fakeObjectAPI{statErr: errors.New("connection refused")}
	s := &Storage{client: api, bucket: "images"}

	err := s.Create(context.Background(), "data/images/7-1.png", []byte{1}, "image/png", "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrVersionConflict)
	assert.Empty(t, api.puts)
}

func TestCreateSurfacesUploadFailure(t *testing.T) {
	api := &fakeObjectAPI{
		statErr: minio.ErrorResponse{Code: "NoSuchKey"},
		putErr:  errors.New("access denied"),
	}
	s := &Storage{client: api, bucket: "images"}

	assert.Error(t, s.Create(context.Background(), "data/images/7-1.png", []byte{1}, "image/png", ""))
}
