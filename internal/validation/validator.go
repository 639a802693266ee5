// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

// Package validation provides struct validation using go-playground/validator v10.
//
// A thread-safe singleton validator caches struct metadata and carries the
// custom tags Splay's request types use:
//   - slug: lowercase/uppercase alphanumerics separated by single dashes
//   - httpurl: absolute http or https URL with a host
//
// Field names in error messages come from the struct's json tag so clients
// see the same names they sent.
//
//	type CreateBucketRequest struct {
//	    Name string `json:"name" validate:"required,min=2,max=200"`
//	    Slug string `json:"slug" validate:"required,min=6,max=256,slug"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    ...
//	}
package validation

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// SlugPattern is the accepted bucket slug format.
var SlugPattern = regexp.MustCompile(`^[a-zA-Z0-9]+(-[a-zA-Z0-9]+)*$`)

// ValidationError describes one field that failed validation.
type ValidationError struct {
	field   string
	tag     string
	param   string
	value   interface{}
	message string
}

// Field returns the json name of the field that failed.
func (e *ValidationError) Field() string { return e.field }

// Tag returns the validation tag that failed.
func (e *ValidationError) Tag() string { return e.tag }

// Param returns the tag parameter, e.g. "200" for "max=200".
func (e *ValidationError) Param() string { return e.param }

// Error returns a human-readable error message.
func (e *ValidationError) Error() string { return e.message }

// RequestValidationError collects every field error of one request.
type RequestValidationError struct {
	errors []ValidationError
}

// Errors returns the individual field errors.
func (ve *RequestValidationError) Errors() []ValidationError {
	return ve.errors
}

// Error joins all field messages.
func (ve *RequestValidationError) Error() string {
	if len(ve.errors) == 0 {
		return "validation failed"
	}
	messages := make([]string, 0, len(ve.errors))
	for _, err := range ve.errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// APIError mirrors the API error envelope without importing the api package.
type APIError struct {
	Code    string
	Message string
	Details map[string]interface{}
}

// ToAPIError converts validation errors to the VALIDATION_ERROR envelope.
// Details maps each failing field to its message.
func (ve *RequestValidationError) ToAPIError() *APIError {
	apiErr := &APIError{Code: "VALIDATION_ERROR", Message: "Validation failed"}
	if len(ve.errors) == 0 {
		return apiErr
	}

	fields := make(map[string]interface{}, len(ve.errors))
	for _, err := range ve.errors {
		if _, seen := fields[err.field]; !seen {
			fields[err.field] = err.message
		}
	}
	apiErr.Message = ve.Error()
	apiErr.Details = map[string]interface{}{"fields": fields}
	return apiErr
}

// GetValidator returns the singleton validator instance.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})

		// Registration only fails for empty tags or nil funcs.
		_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
			return SlugPattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("httpurl", func(fl validator.FieldLevel) bool {
			return IsHTTPURL(fl.Field().String())
		})

		validate = v
	})

	return validate
}

// IsHTTPURL reports whether raw is an absolute http(s) URL with a host.
func IsHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ValidateStruct validates s, returning nil or *RequestValidationError.
func ValidateStruct(s interface{}) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return &RequestValidationError{
			errors: []ValidationError{{field: "unknown", tag: "unknown", message: err.Error()}},
		}
	}

	fieldErrors := make([]ValidationError, len(validationErrs))
	for i, fieldErr := range validationErrs {
		fieldErrors[i] = ValidationError{
			field:   fieldErr.Field(),
			tag:     fieldErr.Tag(),
			param:   fieldErr.Param(),
			value:   fieldErr.Value(),
			message: translateError(fieldErr),
		}
	}

	return &RequestValidationError{errors: fieldErrors}
}

// errorMessageTemplates maps validation tags to message templates.
var errorMessageTemplates = map[string]string{
	"required": "%s is required",
	"email":    "%s must be a valid email address",
	"slug":     "%s may only contain letters, digits and single dashes between them",
	"httpurl":  "%s must be an http or https URL",
	"uuid":     "%s must be a valid id",
}

// errorMessageWithParam maps validation tags to templates that include param.
var errorMessageWithParam = map[string]string{
	"oneof":   "%s must be one of: %s",
	"eqfield": "%s must match %s",
	"gte":     "%s must be greater than or equal to %s",
	"lte":     "%s must be less than or equal to %s",
}

func translateError(fe validator.FieldError) string {
	field := fe.Field()
	tag := fe.Tag()
	param := fe.Param()

	if template, ok := errorMessageTemplates[tag]; ok {
		return fmt.Sprintf(template, field)
	}

	if template, ok := errorMessageWithParam[tag]; ok {
		if tag == "eqfield" {
			param = jsonFieldName(fe)
		}
		return fmt.Sprintf(template, field, param)
	}

	isString := fe.Kind() == reflect.String
	switch tag {
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at most %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, tag)
	}
}

// jsonFieldName lowercases the first letter of the compared Go field name so
// eqfield messages read like the request body ("password").
func jsonFieldName(fe validator.FieldError) string {
	p := fe.Param()
	if p == "" {
		return p
	}
	return strings.ToLower(p[:1]) + p[1:]
}
