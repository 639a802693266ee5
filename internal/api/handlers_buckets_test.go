// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package api

import (
	"net/http"
	"testing"

	"github.com/tomtom215/splay/internal/models"
)

func TestBuckets_CRUD(t *testing.T) {
	env := newTestEnv(t)
	token, userID := env.signup(t, "owner@example.com")

	created := env.createBucket(t, token, "stripe-events")
	if created.User != userID || created.Slug != "stripe-events" || created.ID == "" {
		t.Fatalf("created = %+v", created)
	}

	rec := env.do(t, http.MethodGet, "/api/v1/buckets/"+created.ID, nil, token)
	var got models.Bucket
	decodeData(t, rec, &got)
	if got.ID != created.ID {
		t.Errorf("get id = %q, want %q", got.ID, created.ID)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/buckets/slug/stripe-events", nil, token)
	decodeData(t, rec, &got)
	if got.ID != created.ID {
		t.Errorf("get by slug id = %q, want %q", got.ID, created.ID)
	}

	rec = env.do(t, http.MethodPatch, "/api/v1/buckets/"+created.ID, map[string]string{"description": "payments"}, token)
	decodeData(t, rec, &got)
	if got.Description != "payments" || got.Name != created.Name {
		t.Errorf("updated = %+v", got)
	}

	rec = env.do(t, http.MethodDelete, "/api/v1/buckets/"+created.ID, nil, token)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, body %s", rec.Code, rec.Body.String())
	}
	rec = env.do(t, http.MethodGet, "/api/v1/buckets/"+created.ID, nil, token)
	expectError(t, rec, http.StatusNotFound, ErrCodeNotFound)

	// The receiver forgets deleted buckets too.
	rec = env.do(t, http.MethodPost, "/buckets/stripe-events", `{"a":1}`, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("receive after delete = %d, want 404", rec.Code)
	}
}

func TestBuckets_List(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signup(t, "owner@example.com")
	for _, slug := range []string{"bucket-one", "bucket-two", "bucket-three"} {
		env.createBucket(t, token, slug)
	}

	rec := env.do(t, http.MethodGet, "/api/v1/buckets?perPage=2", nil, token)
	var page models.ListResult[models.Bucket]
	decodeData(t, rec, &page)
	if page.TotalItems != 3 || page.TotalPages != 2 || page.PerPage != 2 || len(page.Items) != 2 {
		t.Errorf("page = %+v", page)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/buckets?page=2&perPage=2", nil, token)
	decodeData(t, rec, &page)
	if page.Page != 2 || len(page.Items) != 1 {
		t.Errorf("second page = %+v", page)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/buckets?page=0", nil, token)
	expectError(t, rec, http.StatusBadRequest, ErrCodeValidationFailed)
}

func TestBuckets_Validation(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signup(t, "owner@example.com")

	tests := []struct {
		name string
		body map[string]string
	}{
		{"short slug", map[string]string{"name": "Valid", "slug": "abc"}},
		{"bad slug chars", map[string]string{"name": "Valid", "slug": "has spaces here"}},
		{"double dash", map[string]string{"name": "Valid", "slug": "bad--slug"}},
		{"short name", map[string]string{"name": "x", "slug": "good-slug"}},
		{"missing slug", map[string]string{"name": "Valid"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/buckets", tt.body, token)
			expectError(t, rec, http.StatusBadRequest, ErrCodeValidationFailed)
		})
	}
}

func TestBuckets_SlugConflict(t *testing.T) {
	env := newTestEnv(t)
	alice, _ := env.signup(t, "alice@example.com")
	bob, _ := env.signup(t, "bob@example.com")
	env.createBucket(t, alice, "shared-slug")

	// Slugs are global because the receiver looks them up without an owner.
	rec := env.do(t, http.MethodPost, "/api/v1/buckets", map[string]string{"name": "Mine", "slug": "shared-slug"}, bob)
	expectError(t, rec, http.StatusConflict, ErrCodeConflict)
}

func TestBuckets_OwnerIsolation(t *testing.T) {
	env := newTestEnv(t)
	alice, _ := env.signup(t, "alice@example.com")
	bob, _ := env.signup(t, "bob@example.com")
	bucket := env.createBucket(t, alice, "alice-bucket")

	paths := []struct {
		method string
		path   string
		body   interface{}
	}{
		{http.MethodGet, "/api/v1/buckets/" + bucket.ID, nil},
		{http.MethodGet, "/api/v1/buckets/slug/alice-bucket", nil},
		{http.MethodPatch, "/api/v1/buckets/" + bucket.ID, map[string]string{"name": "Stolen"}},
		{http.MethodDelete, "/api/v1/buckets/" + bucket.ID, nil},
		{http.MethodPost, "/api/v1/buckets/" + bucket.ID + "/forward-settings", map[string]string{"name": "x", "url": "https://evil.example.com"}},
		{http.MethodGet, "/api/v1/buckets/" + bucket.ID + "/receive-logs", nil},
		{http.MethodGet, "/api/v1/buckets/" + bucket.ID + "/forward-logs", nil},
	}
	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			rec := env.do(t, p.method, p.path, p.body, bob)
			expectError(t, rec, http.StatusNotFound, ErrCodeNotFound)
		})
	}

	rec := env.do(t, http.MethodGet, "/api/v1/buckets", nil, bob)
	var page models.ListResult[models.Bucket]
	decodeData(t, rec, &page)
	if page.TotalItems != 0 {
		t.Errorf("bob sees %d buckets", page.TotalItems)
	}
}

func TestBuckets_RequireAuth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/buckets", nil, "")
	expectError(t, rec, http.StatusUnauthorized, ErrCodeUnauthorized)
}

func TestForwardSettings_CRUD(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signup(t, "owner@example.com")
	bucket := env.createBucket(t, token, "with-forwards")

	rec := env.do(t, http.MethodPost, "/api/v1/buckets/"+bucket.ID+"/forward-settings", map[string]string{
		"name": "staging",
		"url":  "https://staging.example.com/hooks",
	}, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var setting models.ForwardSetting
	decodeData(t, rec, &setting)
	if setting.Bucket != bucket.ID || setting.URL != "https://staging.example.com/hooks" {
		t.Errorf("setting = %+v", setting)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/buckets/"+bucket.ID+"/forward-settings", nil, token)
	var settings []models.ForwardSetting
	decodeData(t, rec, &settings)
	if len(settings) != 1 || settings[0].ID != setting.ID {
		t.Errorf("settings = %+v", settings)
	}

	rec = env.do(t, http.MethodPatch, "/api/v1/forward-settings/"+setting.ID, map[string]string{"url": "http://localhost:9090/"}, token)
	decodeData(t, rec, &setting)
	if setting.URL != "http://localhost:9090/" || setting.Name != "staging" {
		t.Errorf("updated = %+v", setting)
	}

	rec = env.do(t, http.MethodGet, "/api/v1/forward-settings/"+setting.ID, nil, token)
	if rec.Code != http.StatusOK {
		t.Errorf("get status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodDelete, "/api/v1/forward-settings/"+setting.ID, nil, token)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/v1/forward-settings/"+setting.ID, nil, token)
	expectError(t, rec, http.StatusNotFound, ErrCodeNotFound)
}

func TestForwardSettings_RejectsBadURL(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.signup(t, "owner@example.com")
	bucket := env.createBucket(t, token, "with-forwards")

	for _, url := range []string{"ftp://example.com/", "not a url", "/relative/path", "https://"} {
		t.Run(url, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/buckets/"+bucket.ID+"/forward-settings", map[string]string{"name": "bad", "url": url}, token)
			expectError(t, rec, http.StatusBadRequest, ErrCodeValidationFailed)
		})
	}
}
