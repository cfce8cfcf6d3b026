// Package resume finds the resume PDF among an ordered list of candidate
// locations and prepares it for a save-as download.
package resume

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

var (
	// ErrNotFound means no candidate location holds the asset.
	ErrNotFound = errors.New("resume: no candidate asset found")
	// ErrMissing is returned (wrapped) by a Source that answered "no such asset".
	ErrMissing = errors.New("resume: asset missing")
	// ErrInvalidPath rejects candidates that escape the asset root.
	ErrInvalidPath = errors.New("resume: invalid asset path")
	// ErrTooLarge is returned when the asset exceeds MaxSize.
	ErrTooLarge = errors.New("resume: asset too large")
)

// MaxSize bounds the bytes buffered for one download.
const MaxSize = 25 << 20

// Blob is the fetched binary content of an asset.
type Blob struct {
	Data        []byte
	ContentType string
}

// Source is a store that can answer existence probes and return content.
type Source interface {
	// Exists returns nil when path exists. Implementations must not serve the
	// answer from a cache.
	Exists(ctx context.Context, path string) error
	// Fetch returns the full content at path.
	Fetch(ctx context.Context, path string) (*Blob, error)
	// URL is where a browser can open path directly.
	URL(path string) string
}

// Resolver picks the first existing candidate in list order.
type Resolver struct {
	source     Source
	candidates []string
	logger     *slog.Logger
}

// NewResolver copies candidates; later changes to the slice have no effect.
func NewResolver(source Source, candidates []string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		source:     source,
		candidates: append([]string(nil), candidates...),
		logger:     logger,
	}
}

// Candidates returns the configured candidate paths in priority order.
func (r *Resolver) Candidates() []string {
	return append([]string(nil), r.candidates...)
}

// Resolve probes candidates one at a time and stops at the first that exists.
// A failed probe, whether the store said "missing" or the request itself
// failed, moves on to the next candidate.
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	for _, p := range r.candidates {
		err := r.source.Exists(ctx, p)
		if err == nil {
			return p, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if errors.Is(err, ErrMissing) {
			r.logger.DebugContext(ctx, "resume candidate missing", "path", p)
		} else {
			r.logger.DebugContext(ctx, "resume candidate probe failed", "path", p, "error", err)
		}
	}
	return "", ErrNotFound
}

// Outcome labels what a download request ended up doing.
type Outcome string

const (
	OutcomeServed   Outcome = "served"
	OutcomeFallback Outcome = "fallback"
	OutcomeNotFound Outcome = "not_found"
	// OutcomeAborted means the request went away before an answer was ready.
	OutcomeAborted Outcome = "aborted"
)

// Download is a prepared save-as action. Blob is nil on fallback, in which case
// the caller should send the browser to FallbackURL instead.
type Download struct {
	Path        string
	Filename    string
	Blob        *Blob
	FallbackURL string
	Outcome     Outcome
}

// Downloader resolves the asset and fetches it under a fixed filename.
type Downloader struct {
	resolver *Resolver
	source   Source
	filename string
	logger   *slog.Logger
}

func NewDownloader(resolver *Resolver, source Source, filename string, logger *slog.Logger) *Downloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Downloader{resolver: resolver, source: source, filename: filename, logger: logger}
}

// Filename is the save-as name used for every download.
func (d *Downloader) Filename() string { return d.filename }

// Candidates lists the probed paths in priority order.
func (d *Downloader) Candidates() []string { return d.resolver.Candidates() }

// Prepare resolves and fetches the asset. The only error returned is
// ErrNotFound (or a context error, with OutcomeAborted); a failed fetch
// degrades to a fallback Download pointing at the resolved asset.
func (d *Downloader) Prepare(ctx context.Context) (*Download, error) {
	path, err := d.resolver.Resolve(ctx)
	if err != nil {
		outcome := OutcomeNotFound
		if !errors.Is(err, ErrNotFound) {
			outcome = OutcomeAborted
		}
		return &Download{Filename: d.filename, Outcome: outcome}, err
	}

	dl := &Download{Path: path, Filename: d.filename}

	blob, err := d.source.Fetch(ctx, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			dl.Outcome = OutcomeAborted
			return dl, ctxErr
		}
		d.logger.WarnContext(ctx, "resume fetch failed, falling back to direct link", "path", path, "error", err)
		dl.FallbackURL = d.source.URL(path)
		dl.Outcome = OutcomeFallback
		return dl, nil
	}

	if blob.ContentType == "" {
		blob.ContentType = "application/pdf"
	}
	dl.Blob = blob
	dl.Outcome = OutcomeServed
	return dl, nil
}

// cleanKey turns a URL-encoded candidate path into a slash-separated key with
// no leading slash. Traversal outside the root is rejected.
func cleanKey(p string) (string, error) {
	decoded, err := url.PathUnescape(p)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidPath, p, err)
	}
	key := strings.TrimLeft(decoded, "/")
	if key == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
		}
	}
	return key, nil
}
