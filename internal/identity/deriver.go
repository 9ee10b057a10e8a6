// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidResource indicates the input is not a well-formed http/https URL.
var ErrInvalidResource = errors.New("invalid resource: not a well-formed http or https URL")

// Key is an opaque, deterministic identifier for a scoring target.
type Key string

// Resource is the canonical form of a URL plus its derived key.
type Resource struct {
	// Key is the salted hash of the canonical URL.
	Key Key

	// CanonicalURL is scheme://host/path with query and fragment stripped.
	CanonicalURL string

	// Domain is the lowercased hostname.
	Domain string

	// URL is the parsed input, retained for rule evaluation.
	URL *url.URL
}

// Deriver computes keys for URLs and byte buffers.
// A Deriver is immutable and safe for concurrent use.
type Deriver struct {
	salt []byte
}

// NewDeriver creates a Deriver with the given secret salt.
// An empty salt is permitted but keys then become guessable from public
// URLs; production deployments should always configure one.
func NewDeriver(salt string) *Deriver {
	return &Deriver{salt: []byte(salt)}
}

// DeriveURL canonicalizes rawURL and returns its resource identity.
// Returns ErrInvalidResource for anything that is not an absolute
// http/https URL with a host.
func (d *Deriver) DeriveURL(rawURL string) (*Resource, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidResource, rawURL)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q", ErrInvalidResource, parsed.Scheme)
	}
	if parsed.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidResource)
	}

	host := strings.ToLower(parsed.Host)
	canonical := scheme + "://" + host + parsed.EscapedPath()

	return &Resource{
		Key:          d.hash([]byte(canonical)),
		CanonicalURL: canonical,
		Domain:       strings.ToLower(parsed.Hostname()),
		URL:          parsed,
	}, nil
}

// DeriveBytes returns the key for a raw content buffer.
// Deterministic: the same bytes always produce the same key.
func (d *Deriver) DeriveBytes(content []byte) Key {
	return d.hash(content)
}

// hash computes the salted SHA-256 of input, hex encoded.
func (d *Deriver) hash(input []byte) Key {
	h := sha256.New()
	h.Write(d.salt)
	h.Write(input)
	return Key(hex.EncodeToString(h.Sum(nil)))
}
