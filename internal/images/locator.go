// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

// Package images discovers and downloads candidate images for a page.
//
// Discovery is a narrow adapter: it reads social-preview metadata
// (og:image, twitter:image) from the page head. Richer product-image
// heuristics are out of scope for the scoring core; anything implementing
// Locator can be swapped in.
package images

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// userAgent is sent on page and image fetches; some sites block
// default Go client identifiers.
const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// Candidate is the outcome of image discovery for one page.
type Candidate struct {
	// ImageURL is the absolute URL of the chosen image, or empty when no
	// candidate was found.
	ImageURL string

	// DebugReason explains the choice (or the absence of one).
	DebugReason string
}

// Locator supplies a candidate image to classify for a page URL.
type Locator interface {
	Locate(ctx context.Context, pageURL string) (Candidate, error)
}

// HTMLLocator implements Locator by scanning the page's meta tags.
type HTMLLocator struct {
	httpc *http.Client
}

// NewHTMLLocator creates a locator with a bounded HTTP client.
func NewHTMLLocator() *HTMLLocator {
	return &HTMLLocator{httpc: &http.Client{Timeout: 10 * time.Second}}
}

// metaImageProperties are checked in preference order.
var metaImageProperties = []string{
	"og:image",
	"og:image:url",
	"twitter:image",
	"twitter:image:src",
}

// Locate fetches pageURL and returns the first social-preview image found.
// A page without one yields an empty Candidate, not an error.
func (l *HTMLLocator) Locate(ctx context.Context, pageURL string) (Candidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return Candidate{}, fmt.Errorf("build page request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := l.httpc.Do(req)
	if err != nil {
		return Candidate{DebugReason: "page fetch failed"}, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Candidate{DebugReason: fmt.Sprintf("page returned status %d", resp.StatusCode)}, nil
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "text/html") {
		return Candidate{DebugReason: "page is not HTML"}, nil
	}

	metaImages := extractMetaImages(resp.Body)
	for _, property := range metaImageProperties {
		if raw, ok := metaImages[property]; ok {
			absolute, err := resolveImageURL(pageURL, raw)
			if err != nil {
				continue
			}
			return Candidate{ImageURL: absolute, DebugReason: "matched " + property}, nil
		}
	}

	return Candidate{DebugReason: "no social-preview image metadata"}, nil
}

// extractMetaImages tokenizes the document and collects image meta tags.
// Parsing stops at the end of <head>; candidates never appear later.
func extractMetaImages(body io.Reader) map[string]string {
	found := make(map[string]string)
	tokenizer := html.NewTokenizer(body)

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return found

		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if string(name) == "head" {
				return found
			}

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := tokenizer.TagName()
			if string(name) != "meta" || !hasAttr {
				continue
			}

			var property, content string
			for {
				key, val, more := tokenizer.TagAttr()
				switch string(key) {
				case "property", "name":
					property = strings.ToLower(string(val))
				case "content":
					content = string(val)
				}
				if !more {
					break
				}
			}

			if property != "" && content != "" {
				if _, exists := found[property]; !exists {
					found[property] = content
				}
			}
		}
	}
}

// resolveImageURL makes raw absolute relative to the page URL and checks
// the scheme.
func resolveImageURL(pageURL, raw string) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}

	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", fmt.Errorf("unsupported image scheme %q", resolved.Scheme)
	}
	return resolved.String(), nil
}
