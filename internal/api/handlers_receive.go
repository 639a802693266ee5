// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/splay/internal/database"
	"github.com/tomtom215/splay/internal/logging"
	"github.com/tomtom215/splay/internal/metrics"
	"github.com/tomtom215/splay/internal/models"
)

// maxWebhookBodyBytes bounds a single received webhook.
const maxWebhookBodyBytes = 5 << 20

// receiveAck is the body returned to webhook senders.
var receiveAck = []byte(`{"success":"true"}` + "\n")

// ReceiveWebhook handles POST /buckets/{slug}. The body must be a JSON
// object. It is stored as a receive log and handed to the forwarder through
// the event bus before the sender gets its acknowledgement.
func (h *Handler) ReceiveWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slug := chi.URLParam(r, "slug")

	bucket, err := h.store.GetBucketForReceive(ctx, slug)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			metrics.RecordWebhook("unknown_bucket", 0)
			NewResponseWriter(w, r).NotFound("bucket not found")
			return
		}
		metrics.RecordWebhook("error", 0)
		writeServiceError(w, r, err)
		return
	}

	body, err := readJSONObject(w, r)
	if err != nil {
		metrics.RecordWebhook("bad_request", 0)
		logging.Ctx(ctx).Debug().Err(err).Str("slug", sanitizeLogValue(slug)).Msg("Rejected webhook body")
		NewResponseWriter(w, r).BadRequest("body is not json")
		return
	}

	ip := receiverIP(r)
	entry := &models.BucketReceiveLog{
		Bucket:  bucket.ID,
		Body:    body,
		Headers: r.Header.Clone(),
		IP:      ip,
	}
	if err := h.store.InsertReceiveLog(ctx, entry); err != nil {
		metrics.RecordWebhook("error", 0)
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}
	metrics.RecordWebhook("stored", len(body))

	h.dispatch(ctx, &models.ReceiveJob{
		Log:       *entry,
		Owner:     bucket.User,
		ClientIP:  ip,
		RequestID: logging.RequestIDFromContext(ctx),
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(receiveAck)
}

// dispatch publishes job for the forwarder and the websocket bridge. When
// the bus refuses it the forwarder is called directly so the webhook is
// still relayed.
func (h *Handler) dispatch(ctx context.Context, job *models.ReceiveJob) {
	log := logging.Ctx(ctx)
	if h.events != nil {
		err := h.events.PublishReceiveLog(ctx, job)
		if err == nil {
			return
		}
		log.Error().Err(err).Str("receive_log", job.Log.ID).Msg("Failed to publish receive log")
	}
	if h.forwarder == nil {
		return
	}
	// The request context ends with the response; forwarding outlives it.
	if err := h.forwarder.Enqueue(context.WithoutCancel(ctx), job); err != nil {
		log.Error().Err(err).Str("receive_log", job.Log.ID).Msg("Failed to enqueue receive log")
	}
}

// readJSONObject reads the request body and checks that it is one JSON
// object. The bytes are returned compacted.
func readJSONObject(w http.ResponseWriter, r *http.Request) (json.RawMessage, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		return nil, err
	}
	var object map[string]json.RawMessage
	if err := json.Unmarshal(raw, &object); err != nil {
		return nil, err
	}
	if object == nil {
		return nil, ErrInvalidBody
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, err
	}
	return json.RawMessage(buf.Bytes()), nil
}

// receiverIP returns X-Forwarded-For when the sender came through a proxy
// and the connection address otherwise.
func receiverIP(r *http.Request) string {
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		return forwarded
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
