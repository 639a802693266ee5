// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package api

// Request bodies with go-playground/validator tags. The bounds mirror the
// forms of the web app so the API rejects what the UI would.
//
// Custom tags registered by the validation package:
//   - slug: letters and digits with single dashes between them
//   - httpurl: absolute http or https URL with a host

// SignupRequest is the body of POST /auth/signup.
type SignupRequest struct {
	Email           string `json:"email" validate:"required,email,max=255"`
	Password        string `json:"password" validate:"required,min=8,max=71"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
	Name            string `json:"name" validate:"omitempty,max=200"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=71"`
}

// PasswordResetRequest is the body of POST /auth/password-reset.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetConfirmRequest is the body of POST /auth/password-reset/confirm.
type PasswordResetConfirmRequest struct {
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required,min=8,max=71"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

// CreateBucketRequest is the body of POST /buckets.
type CreateBucketRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=200"`
	Slug        string `json:"slug" validate:"required,min=6,max=256,slug"`
	Description string `json:"description" validate:"omitempty,max=2000"`
}

// UpdateBucketRequest is the body of PATCH /buckets/{id}. The slug is fixed
// at creation.
type UpdateBucketRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
}

// CreateForwardSettingRequest is the body of POST /buckets/{id}/forward-settings.
type CreateForwardSettingRequest struct {
	Name string `json:"name" validate:"required,min=1,max=200"`
	URL  string `json:"url" validate:"required,max=3000,httpurl"`
}

// UpdateForwardSettingRequest is the body of PATCH /forward-settings/{id}.
type UpdateForwardSettingRequest struct {
	Name *string `json:"name" validate:"omitempty,min=1,max=200"`
	URL  *string `json:"url" validate:"omitempty,max=3000,httpurl"`
}

// PageRequest holds the pagination query parameters.
type PageRequest struct {
	Page    int `validate:"min=1,max=1000000"`
	PerPage int `validate:"min=1,max=500"`
}
