// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// MaxImageBytes caps downloads; larger images are rejected rather than
// truncated so the classifier never sees a partial file.
const MaxImageBytes = 10 << 20

// ErrTooLarge is returned when an image exceeds MaxImageBytes.
var ErrTooLarge = errors.New("image exceeds maximum size")

// ErrNotImage is returned when the response is not an image content type.
var ErrNotImage = errors.New("resource is not an image")

// Image is a downloaded image ready for classification.
type Image struct {
	Content     []byte
	ContentType string
}

// Fetcher downloads candidate images with size and type enforcement.
type Fetcher struct {
	httpc    *http.Client
	maxBytes int64
}

// NewFetcher creates a fetcher with the default size cap.
func NewFetcher() *Fetcher {
	return &Fetcher{
		httpc:    &http.Client{Timeout: 20 * time.Second},
		maxBytes: MaxImageBytes,
	}
}

// Fetch downloads imageURL. It fails with ErrNotImage for non-image
// responses and ErrTooLarge when the body exceeds the cap, whether or
// not the server declared a Content-Length.
func (f *Fetcher) Fetch(ctx context.Context, imageURL string) (*Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image fetch returned status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%w: content type %q", ErrNotImage, contentType)
	}

	if resp.ContentLength > f.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, resp.ContentLength)
	}

	// Read one byte past the cap to detect oversize bodies with no
	// Content-Length header.
	content, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image body: %w", err)
	}
	if int64(len(content)) > f.maxBytes {
		return nil, fmt.Errorf("%w: body larger than %d bytes", ErrTooLarge, f.maxBytes)
	}

	return &Image{Content: content, ContentType: contentType}, nil
}
