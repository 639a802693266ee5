// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/splay/internal/database"
	"github.com/tomtom215/splay/internal/models"
)

// logFilter builds the owner scoped filter from start, end, page and perPage.
func (h *Handler) logFilter(r *http.Request) (models.LogFilter, error) {
	owner, err := requireOwner(r)
	if err != nil {
		return models.LogFilter{}, err
	}
	start, err := parseTimeParam(r, "start")
	if err != nil {
		return models.LogFilter{}, err
	}
	end, err := parseTimeParam(r, "end")
	if err != nil {
		return models.LogFilter{}, err
	}
	page, err := h.pageParams(r, database.DefaultLogsPerPage)
	if err != nil {
		return models.LogFilter{}, err
	}
	return models.LogFilter{
		Owner:   owner,
		Start:   start,
		End:     end,
		Page:    page.Page,
		PerPage: page.PerPage,
	}, nil
}

// ListReceiveLogs handles GET /buckets/{id}/receive-logs. Items carry their
// forward logs. The range defaults to the last 24 hours.
func (h *Handler) ListReceiveLogs(w http.ResponseWriter, r *http.Request) {
	filter, err := h.logFilter(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	filter.Bucket = chi.URLParam(r, "id")
	if _, err := h.store.GetBucket(r.Context(), filter.Owner, filter.Bucket); err != nil {
		writeServiceError(w, r, err)
		return
	}

	result, err := h.store.ListReceiveLogs(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, result)
}

// GetReceiveLog handles GET /receive-logs/{id}.
func (h *Handler) GetReceiveLog(w http.ResponseWriter, r *http.Request) {
	owner, err := requireOwner(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	entry, err := h.store.GetReceiveLog(r.Context(), owner, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, entry)
}

// ListBucketForwardLogs handles GET /buckets/{id}/forward-logs.
func (h *Handler) ListBucketForwardLogs(w http.ResponseWriter, r *http.Request) {
	filter, err := h.logFilter(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	filter.Bucket = chi.URLParam(r, "id")
	if _, err := h.store.GetBucket(r.Context(), filter.Owner, filter.Bucket); err != nil {
		writeServiceError(w, r, err)
		return
	}

	result, err := h.store.ListForwardLogsByBucket(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, result)
}

// ListReceiveLogForwardLogs handles GET /receive-logs/{id}/forward-logs.
func (h *Handler) ListReceiveLogForwardLogs(w http.ResponseWriter, r *http.Request) {
	filter, err := h.logFilter(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	filter.ReceiveLog = chi.URLParam(r, "id")
	if _, err := h.store.GetReceiveLog(r.Context(), filter.Owner, filter.ReceiveLog); err != nil {
		writeServiceError(w, r, err)
		return
	}

	result, err := h.store.ListForwardLogsByReceiveLog(r.Context(), filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, result)
}

// GetForwardLog handles GET /forward-logs/{id}.
func (h *Handler) GetForwardLog(w http.ResponseWriter, r *http.Request) {
	owner, err := requireOwner(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	entry, err := h.store.GetForwardLog(r.Context(), owner, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, r, entry)
}
