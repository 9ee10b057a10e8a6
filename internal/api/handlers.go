// SiteWarden - URL and Image Risk Scoring Service
// Copyright 2026 SiteWarden contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sitewarden/sitewarden

package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/sitewarden/sitewarden/internal/audit"
	"github.com/sitewarden/sitewarden/internal/identity"
	"github.com/sitewarden/sitewarden/internal/images"
	"github.com/sitewarden/sitewarden/internal/intel"
	"github.com/sitewarden/sitewarden/internal/logging"
	"github.com/sitewarden/sitewarden/internal/scoring"
	"github.com/sitewarden/sitewarden/internal/validation"
)

// maxScoreBodyBytes bounds the JSON body of a score request.
const maxScoreBodyBytes = 64 << 10

// maxDetectBodyBytes bounds a multipart detect request: the image cap
// plus form overhead.
const maxDetectBodyBytes = images.MaxImageBytes + (64 << 10)

// defaultListLimit applies when a list endpoint gets no explicit limit.
const defaultListLimit = 50

// maxListLimit bounds list endpoints.
const maxListLimit = 500

// Handler serves the scoring API endpoints.
type Handler struct {
	engine   *scoring.Engine
	auditLog *audit.Logger
	intel    intel.Store
	ready    func() error
}

// NewHandler creates an API handler. ready reports whether dependencies
// are available; nil means always ready.
func NewHandler(engine *scoring.Engine, auditLog *audit.Logger, intelStore intel.Store, ready func() error) *Handler {
	return &Handler{
		engine:   engine,
		auditLog: auditLog,
		intel:    intelStore,
		ready:    ready,
	}
}

// ScoreRequest is the body of POST /api/v1/score.
type ScoreRequest struct {
	URL          string `json:"url" validate:"required,max=2048"`
	ForceRefresh bool   `json:"force_refresh"`
}

// Score handles POST /api/v1/score.
func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req ScoreRequest
	body := http.MaxBytesReader(w, r.Body, maxScoreBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		rw.BadRequest("request body must be valid JSON")
		return
	}

	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	result, err := h.engine.ScoreURL(r.Context(), req.URL, scoring.Options{ForceRefresh: req.ForceRefresh})
	if err != nil {
		h.respondScoreError(rw, r, err)
		return
	}

	rw.Success(result)
}

// Detect handles POST /api/v1/detect. The image arrives as the "image"
// part of a multipart form.
func (h *Handler) Detect(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	r.Body = http.MaxBytesReader(w, r.Body, maxDetectBodyBytes)
	if err := r.ParseMultipartForm(maxDetectBodyBytes); err != nil {
		rw.PayloadTooLarge("multipart form exceeds size limit or is malformed")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		rw.BadRequest("multipart form must carry an \"image\" file")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !validation.IsScoreableImageType(contentType) {
		rw.UnsupportedMediaType("image must be jpeg, png, gif, or webp")
		return
	}

	content, err := io.ReadAll(io.LimitReader(file, images.MaxImageBytes+1))
	if err != nil {
		rw.InternalError("could not read image content")
		return
	}
	if len(content) > images.MaxImageBytes {
		rw.PayloadTooLarge("image exceeds maximum size")
		return
	}

	force := r.URL.Query().Get("force_refresh") == "true"
	result, err := h.engine.ScoreImage(r.Context(), content, contentType, scoring.Options{ForceRefresh: force})
	if err != nil {
		h.respondScoreError(rw, r, err)
		return
	}

	rw.Success(result)
}

// respondScoreError maps engine errors to HTTP responses.
func (h *Handler) respondScoreError(rw *ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, identity.ErrInvalidResource):
		rw.BadRequest("url must be a well-formed http or https URL")
	case errors.Is(err, scoring.ErrInvalidImage):
		rw.BadRequest(err.Error())
	case errors.Is(err, scoring.ErrNoSignals):
		rw.ExternalServiceError("detector", err)
	default:
		logger := logging.Ctx(r.Context())
		logger.Error().Err(err).Msg("scoring request failed")
		rw.InternalError("scoring failed")
	}
}

// Indicators handles GET /api/v1/intel/indicators.
func (h *Handler) Indicators(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	limit := parseLimit(r.URL.Query().Get("limit"))
	list, err := h.intel.ListIndicators(r.Context(), limit)
	if err != nil {
		logger := logging.Ctx(r.Context())
		logger.Error().Err(err).Msg("indicator list failed")
		rw.InternalError("could not list indicators")
		return
	}

	rw.SuccessWithMeta(list, &APIMeta{Count: len(list)})
}

// IndicatorByDomain handles GET /api/v1/intel/indicators/{domain}.
func (h *Handler) IndicatorByDomain(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	domain := chi.URLParam(r, "domain")
	ind, err := h.intel.GetIndicator(r.Context(), domain)
	if err != nil {
		if errors.Is(err, intel.ErrNotFound) {
			rw.NotFound("no indicator for domain")
			return
		}
		logger := logging.Ctx(r.Context())
		logger.Error().Err(err).Str("domain", domain).Msg("indicator lookup failed")
		rw.InternalError("could not load indicator")
		return
	}

	rw.Success(ind)
}

// AuditEvents handles GET /api/v1/audit/events.
func (h *Handler) AuditEvents(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	filter := audit.QueryFilter{
		Limit:  parseLimit(r.URL.Query().Get("limit")),
		Domain: r.URL.Query().Get("domain"),
	}
	if t := r.URL.Query().Get("type"); t != "" {
		filter.Types = []audit.EventType{audit.EventType(t)}
	}

	events, err := h.auditLog.Query(r.Context(), filter)
	if err != nil {
		logger := logging.Ctx(r.Context())
		logger.Error().Err(err).Msg("audit query failed")
		rw.InternalError("could not query audit events")
		return
	}

	rw.SuccessWithMeta(events, &APIMeta{Count: len(events)})
}

// HealthLive handles GET /api/v1/health/live.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "alive"})
}

// HealthReady handles GET /api/v1/health/ready.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if h.ready != nil {
		if err := h.ready(); err != nil {
			rw.ServiceUnavailable("dependencies not ready: " + err.Error())
			return
		}
	}

	rw.Success(map[string]string{"status": "ready"})
}

// parseLimit clamps the limit query parameter to [1, maxListLimit].
func parseLimit(raw string) int {
	if raw == "" {
		return defaultListLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultListLimit
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}
