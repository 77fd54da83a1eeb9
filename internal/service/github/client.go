// Package github is a storage.ContentStore backed by the GitHub
// repository contents API. Every write is a commit; the blob SHA of a file
// is its version token.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v68/github"

	"vistahomes/internal/storage"
)

// Client talks to the contents endpoints of a single repository.
type Client struct {
	api    *gh.Client
	owner  string
	repo   string
	branch string
	logger *slog.Logger
}

var _ storage.ContentStore = (*Client)(nil)

// NewClient validates conf and returns a Client.
func NewClient(conf *Config) (*Client, error) {
	if conf == nil {
		return nil, fmt.Errorf("github: configuration is required")
	}

	baseURL := conf.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	if !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("github: API client requires HTTPS (got %q)", baseURL)
	}
	if conf.Token == "" {
		return nil, fmt.Errorf("github: no authentication configured (set Token)")
	}
	if conf.Owner == "" || conf.Repo == "" {
		return nil, fmt.Errorf("github: owner and repo are required")
	}

	// go-github resolves endpoints relative to BaseURL, which must end in a slash.
	parsed, err := url.Parse(baseURL + "/")
	if err != nil {
		return nil, fmt.Errorf("github: parsing base URL %q: %w", baseURL, err)
	}

	api := gh.NewClient(conf.HTTPClient).WithAuthToken(conf.Token)
	api.BaseURL = parsed

	logger := conf.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		api:    api,
		owner:  conf.Owner,
		repo:   conf.Repo,
		branch: conf.Branch,
		logger: logger,
	}, nil
}

// Get fetches a file and its blob SHA. Files over 1 MB come back from the
// contents endpoint without inline content and are read through the git
// blobs endpoint instead.
func (client *Client) Get(ctx context.Context, path string) (*storage.Object, error) {
	var opts *gh.RepositoryContentGetOptions
	if client.branch != "" {
		opts = &gh.RepositoryContentGetOptions{Ref: client.branch}
	}

	file, dir, _, err := client.api.Repositories.GetContents(ctx, client.owner, client.repo, cleanPath(path), opts)
	if err != nil {
		if IsNotFound(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("reading %s from %s/%s: %w", path, client.owner, client.repo, err)
	}
	if file == nil {
		return nil, fmt.Errorf("reading %s from %s/%s: path is a directory with %d entries, not a file", path, client.owner, client.repo, len(dir))
	}

	sha := file.GetSHA()
	if file.GetEncoding() == "none" || file.Content == nil {
		blob, _, err := client.api.Git.GetBlobRaw(ctx, client.owner, client.repo, sha)
		if err != nil {
			return nil, fmt.Errorf("reading blob %s of %s: %w", sha, path, err)
		}
		return &storage.Object{Content: blob, Version: sha}, nil
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return &storage.Object{Content: []byte(content), Version: sha}, nil
}

// Put commits content to path. Without IfMatch the request omits the SHA,
// which GitHub only accepts when the file does not exist yet, so every
// write through this client is conditional.
func (client *Client) Put(ctx context.Context, path string, content []byte, opts storage.PutOptions) (string, error) {
	message := opts.Message
	if message == "" {
		message = "Update " + path
	}
	fileOpts := &gh.RepositoryContentFileOptions{
		Message: gh.Ptr(message),
		Content: content,
	}
	if client.branch != "" {
		fileOpts.Branch = gh.Ptr(client.branch)
	}

	var (
		result *gh.RepositoryContentResponse
		err    error
	)
	if opts.IfMatch != "" && !opts.IfNoneMatch {
		fileOpts.SHA = gh.Ptr(opts.IfMatch)
		result, _, err = client.api.Repositories.UpdateFile(ctx, client.owner, client.repo, cleanPath(path), fileOpts)
	} else {
		result, _, err = client.api.Repositories.CreateFile(ctx, client.owner, client.repo, cleanPath(path), fileOpts)
	}
	if err != nil {
		if IsConflict(err) {
			return "", &storage.ConflictError{Path: path, Expected: opts.IfMatch, Reason: errorMessage(err)}
		}
		return "", fmt.Errorf("writing %s to %s/%s: %w", path, client.owner, client.repo, err)
	}

	sha := result.GetContent().GetSHA()
	client.logger.Debug("committed file",
		"path", path,
		"sha", sha,
		"commit", result.Commit.GetSHA(),
	)
	return sha, nil
}

func cleanPath(path string) string {
	return strings.Trim(path, "/")
}
