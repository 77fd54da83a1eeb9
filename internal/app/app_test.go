package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vistahomes/internal/config"
	"vistahomes/internal/storage"
)

func testFiles(t *testing.T) Files {
	dir := t.TempDir()
	return Files{
		App:    filepath.Join(dir, ".app.env"),
		GitHub: filepath.Join(dir, ".github.env"),
		S3:     filepath.Join(dir, ".s3.env"),
		MinIO:  filepath.Join(dir, ".minio.env"),
	}
}

func TestNewWithMemoryBackend(t *testing.T) {
	files := testFiles(t)
	require.NoError(t, os.WriteFile(files.App, []byte("STORE_BACKEND=memory\nTARGET_PATH=data/test.json\n"), 0o600))

	a, err := New(context.Background(), files, nil)
	require.NoError(t, err)
	assert.IsType(t, &storage.MemoryStore{}, a.Store)
	assert.IsType(t, &storage.ContentBlobs{}, a.Blobs)
	assert.Equal(t, "data/test.json", a.Repo.Path())

	result, err := a.Listings.Submit(context.Background(), []byte(`{"address":"1 Main St"}`))
	require.NoError(t, err)
	assert.NotEmpty(t, result.Version)

	items, err := a.Listings.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestOpenStoreReportsMisconfiguredGitHub(t *testing.T) {
	files := testFiles(t)
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("GITHUB_OWNER", "")
	t.Setenv("GITHUB_REPO", "")

	cfg := &config.Config{Store: config.StoreConfig{Backend: config.BackendGitHub}}
	_, err := OpenStore(cfg, files, nil)
	assert.ErrorContains(t, err, "server misconfigured")
}

func TestOpenStoreBuildsGitHubClient(t *testing.T) {
	files := testFiles(t)
	require.NoError(t, os.WriteFile(files.GitHub, []byte("GITHUB_TOKEN=t\nGITHUB_OWNER=vista\nGITHUB_REPO=homes\n"), 0o600))

	cfg := &config.Config{Store: config.StoreConfig{Backend: config.BackendGitHub}}
	store, err := OpenStore(cfg, files, nil)
	require.NoError(t, err)
	assert.NotNil(t, store)
}

func TestOpenBlobsDefaultsToContentStore(t *testing.T) {
	store := storage.NewMemoryStore()
	cfg := &config.Config{Store: config.StoreConfig{BlobBackend: config.BlobsStore}}

	blobs, err := OpenBlobs(context.Background(), cfg, testFiles(t), store)
	require.NoError(t, err)
	require.NoError(t, blobs.Create(context.Background(), "data/images/1-1.png", []byte{1}, "image/png", "Add image for listing 1 (1)"))
	assert.Equal(t, 1, store.Len())
}

func TestOpenBlobsRequiresMinIOSettings(t *testing.T) {
	t.Setenv("MINIO_ENDPOINT", "")
	t.Setenv("MINIO_ACCESS_KEY", "")
	t.Setenv("MINIO_SECRET_KEY", "")
	cfg := &config.Config{Store: config.StoreConfig{BlobBackend: config.BlobsMinIO}}

	_, err := OpenBlobs(context.Background(), cfg, testFiles(t), storage.NewMemoryStore())
	assert.ErrorContains(t, err, "server misconfigured")
}
