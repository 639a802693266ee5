// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/splay/internal/database"
	"github.com/tomtom215/splay/internal/logging"
	"github.com/tomtom215/splay/internal/models"
)

// ListBuckets handles GET /buckets.
func (h *Handler) ListBuckets(w http.ResponseWriter, r *http.Request) {
	owner, err := requireOwner(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	page, err := h.pageParams(r, database.DefaultBucketsPerPage)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	result, err := h.store.ListBuckets(r.Context(), owner, page.Page, page.PerPage)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, result)
}

// CreateBucket handles POST /buckets.
func (h *Handler) CreateBucket(w http.ResponseWriter, r *http.Request) {
	owner, err := requireOwner(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var req CreateBucketRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	bucket := &models.Bucket{
		Slug:        req.Slug,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		User:        owner,
	}
	if err := h.store.CreateBucket(r.Context(), bucket); err != nil {
		writeServiceError(w, r, err)
		return
	}
	logging.Ctx(r.Context()).Info().Str("bucket", bucket.ID).Str("slug", bucket.Slug).Msg("Bucket created")
	NewResponseWriter(w, r).Created(bucket)
}

// GetBucket handles GET /buckets/{id}.
func (h *Handler) GetBucket(w http.ResponseWriter, r *http.Request) {
	owner, err := requireOwner(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	bucket, err := h.store.GetBucket(r.Context(), owner, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, bucket)
}

// GetBucketBySlug handles GET /buckets/slug/{slug}.
func (h *Handler) GetBucketBySlug(w http.ResponseWriter, r *http.Request) {
	owner, err := requireOwner(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	bucket, err := h.store.GetBucketBySlug(r.Context(), owner, chi.URLParam(r, "slug"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, bucket)
}

// UpdateBucket handles PATCH /buckets/{id}.
func (h *Handler) UpdateBucket(w http.ResponseWriter, r *http.Request) {
	owner, err := requireOwner(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var req UpdateBucketRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		req.Name = &name
	}

	bucket, err := h.store.UpdateBucket(r.Context(), owner, chi.URLParam(r, "id"), database.BucketUpdate{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, bucket)
}

// DeleteBucket handles DELETE /buckets/{id}. Forward settings and logs go
// with it.
func (h *Handler) DeleteBucket(w http.ResponseWriter, r *http.Request) {
	owner, err := requireOwner(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.store.DeleteBucket(r.Context(), owner, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	logging.Ctx(r.Context()).Info().Str("bucket", id).Msg("Bucket deleted")
	NewResponseWriter(w, r).NoContent()
}

// ListForwardSettings handles GET /buckets/{id}/forward-settings.
func (h *Handler) ListForwardSettings(w http.ResponseWriter, r *http.Request) {
	owner, err := requireOwner(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	settings, err := h.store.ListForwardSettings(r.Context(), owner, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if settings == nil {
		settings = []models.ForwardSetting{}
	}
	WriteSuccess(w, r, settings)
}

// CreateForwardSetting handles POST /buckets/{id}/forward-settings.
func (h *Handler) CreateForwardSetting(w http.ResponseWriter, r *http.Request) {
	owner, err := requireOwner(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var req CreateForwardSettingRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	setting := &models.ForwardSetting{
		Bucket: chi.URLParam(r, "id"),
		Name:   strings.TrimSpace(req.Name),
		URL:    strings.TrimSpace(req.URL),
	}
	if err := h.store.CreateForwardSetting(r.Context(), owner, setting); err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(setting)
}

// GetForwardSetting handles GET /forward-settings/{id}.
func (h *Handler) GetForwardSetting(w http.ResponseWriter, r *http.Request) {
	owner, err := requireOwner(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	setting, err := h.store.GetForwardSetting(r.Context(), owner, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, setting)
}

// UpdateForwardSetting handles PATCH /forward-settings/{id}.
func (h *Handler) UpdateForwardSetting(w http.ResponseWriter, r *http.Request) {
	owner, err := requireOwner(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var req UpdateForwardSettingRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	setting, err := h.store.UpdateForwardSetting(r.Context(), owner, chi.URLParam(r, "id"), database.ForwardSettingUpdate{
		Name: req.Name,
		URL:  req.URL,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, setting)
}

// DeleteForwardSetting handles DELETE /forward-settings/{id}.
func (h *Handler) DeleteForwardSetting(w http.ResponseWriter, r *http.Request) {
	owner, err := requireOwner(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := h.store.DeleteForwardSetting(r.Context(), owner, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	NewResponseWriter(w, r).NoContent()
}
