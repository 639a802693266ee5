// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

package api

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger/v2"
	"github.com/swaggo/swag"
)

// SwaggerInfo describes the HTTP API. It is registered under swag's default
// instance name so /swagger/doc.json serves it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Splay API",
	Description:      "Webhook buckets with forwarding. Authenticate with a Bearer token or the splay_token cookie.",
	InfoInstanceName: swag.Name,
	SwaggerTemplate:  docTemplate,
}

//nolint:gochecknoinits // registration mirrors swag-generated docs packages
func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

// swaggerHandler serves the Swagger UI and doc.json under /swagger/.
func swaggerHandler() http.HandlerFunc {
	return httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	)
}

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{escape .Description}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "schemes": {{ marshal .Schemes }},
    "securityDefinitions": {
        "Bearer": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/buckets/{slug}": {
            "post": {
                "tags": ["receiver"],
                "summary": "Receive a webhook",
                "description": "Stores the JSON object body as a receive log and relays it to the bucket's forward settings. Limited to 150 requests per 3s per sender IP.",
                "consumes": ["application/json"],
                "parameters": [
                    {"name": "slug", "in": "path", "required": true, "type": "string"},
                    {"name": "body", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "Stored: {\"success\":\"true\"}"},
                    "400": {"description": "Body is not a JSON object"},
                    "404": {"description": "Unknown slug"},
                    "429": {"description": "Rate limited"}
                }
            }
        },
        "/api/v1/auth/signup": {
            "post": {
                "tags": ["auth"],
                "summary": "Create an account",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SignupRequest"}}],
                "responses": {
                    "201": {"description": "Session", "schema": {"$ref": "#/definitions/Session"}},
                    "400": {"description": "Validation failed"},
                    "409": {"description": "Email already registered"}
                }
            }
        },
        "/api/v1/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Log in with email and password",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
                "responses": {
                    "200": {"description": "Session", "schema": {"$ref": "#/definitions/Session"}},
                    "400": {"description": "Invalid credentials"},
                    "429": {"description": "Account locked"}
                }
            }
        },
        "/api/v1/auth/logout": {
            "post": {"tags": ["auth"], "summary": "Revoke the current session", "security": [{"Bearer": []}], "responses": {"204": {"description": "Logged out"}}}
        },
        "/api/v1/auth/refresh": {
            "post": {"tags": ["auth"], "summary": "Exchange the session for a new one", "security": [{"Bearer": []}], "responses": {"200": {"description": "Session", "schema": {"$ref": "#/definitions/Session"}}}}
        },
        "/api/v1/auth/me": {
            "get": {"tags": ["auth"], "summary": "Current user", "security": [{"Bearer": []}], "responses": {"200": {"description": "User", "schema": {"$ref": "#/definitions/User"}}}}
        },
        "/api/v1/auth/password-reset": {
            "post": {"tags": ["auth"], "summary": "Mail a password reset link", "responses": {"204": {"description": "Always, whether or not the email exists"}}}
        },
        "/api/v1/auth/password-reset/confirm": {
            "post": {"tags": ["auth"], "summary": "Set a new password with a reset token", "responses": {"204": {"description": "Password changed"}, "400": {"description": "Invalid or used token"}}}
        },
        "/api/v1/auth/providers": {
            "get": {"tags": ["auth"], "summary": "Configured OAuth providers", "responses": {"200": {"description": "Provider names"}}}
        },
        "/api/v1/auth/oauth/{provider}": {
            "get": {"tags": ["auth"], "summary": "Start OAuth login", "parameters": [{"name": "provider", "in": "path", "required": true, "type": "string"}], "responses": {"302": {"description": "Redirect to the provider"}, "404": {"description": "Unknown provider"}}}
        },
        "/api/v1/auth/oauth/{provider}/callback": {
            "get": {"tags": ["auth"], "summary": "OAuth callback", "parameters": [{"name": "provider", "in": "path", "required": true, "type": "string"}], "responses": {"302": {"description": "Redirect to the app with the session cookie set"}}}
        },
        "/api/v1/buckets": {
            "get": {
                "tags": ["buckets"], "summary": "List buckets", "security": [{"Bearer": []}],
                "parameters": [
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "perPage", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "Paginated buckets"}}
            },
            "post": {
                "tags": ["buckets"], "summary": "Create a bucket", "security": [{"Bearer": []}],
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/Bucket"}}],
                "responses": {"201": {"description": "Bucket", "schema": {"$ref": "#/definitions/Bucket"}}, "409": {"description": "Slug taken"}}
            }
        },
        "/api/v1/buckets/{id}": {
            "get": {"tags": ["buckets"], "summary": "Get a bucket", "security": [{"Bearer": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "Bucket", "schema": {"$ref": "#/definitions/Bucket"}}, "404": {"description": "Not found"}}},
            "patch": {"tags": ["buckets"], "summary": "Update name or description", "security": [{"Bearer": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "Bucket", "schema": {"$ref": "#/definitions/Bucket"}}}},
            "delete": {"tags": ["buckets"], "summary": "Delete a bucket with its settings and logs", "security": [{"Bearer": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"204": {"description": "Deleted"}}}
        },
        "/api/v1/buckets/slug/{slug}": {
            "get": {"tags": ["buckets"], "summary": "Get a bucket by slug", "security": [{"Bearer": []}], "parameters": [{"name": "slug", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "Bucket", "schema": {"$ref": "#/definitions/Bucket"}}}}
        },
        "/api/v1/buckets/{id}/forward-settings": {
            "get": {"tags": ["forward settings"], "summary": "List forward settings", "security": [{"Bearer": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "Forward settings"}}},
            "post": {"tags": ["forward settings"], "summary": "Add a forward destination", "security": [{"Bearer": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ForwardSetting"}}], "responses": {"201": {"description": "Forward setting", "schema": {"$ref": "#/definitions/ForwardSetting"}}}}
        },
        "/api/v1/forward-settings/{id}": {
            "get": {"tags": ["forward settings"], "summary": "Get a forward setting", "security": [{"Bearer": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "Forward setting", "schema": {"$ref": "#/definitions/ForwardSetting"}}}},
            "patch": {"tags": ["forward settings"], "summary": "Update a forward setting", "security": [{"Bearer": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "Forward setting", "schema": {"$ref": "#/definitions/ForwardSetting"}}}},
            "delete": {"tags": ["forward settings"], "summary": "Delete a forward setting", "security": [{"Bearer": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"204": {"description": "Deleted"}}}
        },
        "/api/v1/buckets/{id}/receive-logs": {
            "get": {
                "tags": ["logs"], "summary": "List receive logs with their forward logs", "security": [{"Bearer": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "start", "in": "query", "type": "string", "description": "RFC3339 or YYYY-MM-DD HH:MM:SS.sssZ, default 24h ago"},
                    {"name": "end", "in": "query", "type": "string", "description": "RFC3339 or YYYY-MM-DD HH:MM:SS.sssZ, default now"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "perPage", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "Paginated receive logs"}, "400": {"description": "Invalid time range"}}
            }
        },
        "/api/v1/receive-logs/{id}": {
            "get": {"tags": ["logs"], "summary": "Get a receive log", "security": [{"Bearer": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "Receive log", "schema": {"$ref": "#/definitions/ReceiveLog"}}}}
        },
        "/api/v1/buckets/{id}/forward-logs": {
            "get": {"tags": ["logs"], "summary": "List forward logs of a bucket", "security": [{"Bearer": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "Paginated forward logs"}}}
        },
        "/api/v1/receive-logs/{id}/forward-logs": {
            "get": {"tags": ["logs"], "summary": "List forward attempts of a receive log", "security": [{"Bearer": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "Paginated forward logs"}}}
        },
        "/api/v1/forward-logs/{id}": {
            "get": {"tags": ["logs"], "summary": "Get a forward log", "security": [{"Bearer": []}], "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "Forward log", "schema": {"$ref": "#/definitions/ForwardLog"}}}}
        },
        "/api/v1/ws": {
            "get": {"tags": ["realtime"], "summary": "Websocket of log events for the caller's buckets", "parameters": [{"name": "token", "in": "query", "type": "string"}], "responses": {"101": {"description": "Switching protocols"}, "401": {"description": "No valid session"}}}
        },
        "/api/v1/health": {
            "get": {"tags": ["ops"], "summary": "Health", "responses": {"200": {"description": "Healthy"}, "503": {"description": "Degraded"}}}
        }
    },
    "definitions": {
        "SignupRequest": {
            "type": "object",
            "required": ["email", "password", "passwordConfirm"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string", "minLength": 8, "maxLength": 71},
                "passwordConfirm": {"type": "string"},
                "name": {"type": "string"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "Session": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "expiresAt": {"type": "string", "format": "date-time"},
                "record": {"$ref": "#/definitions/User"}
            }
        },
        "User": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "email": {"type": "string"},
                "name": {"type": "string"},
                "verified": {"type": "boolean"}
            }
        },
        "Bucket": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "slug": {"type": "string", "minLength": 6, "maxLength": 256, "pattern": "^[a-zA-Z0-9]+(-[a-zA-Z0-9]+)*$"},
                "name": {"type": "string", "minLength": 2, "maxLength": 200},
                "description": {"type": "string", "maxLength": 2000}
            }
        },
        "ForwardSetting": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "bucket": {"type": "string"},
                "name": {"type": "string", "minLength": 1, "maxLength": 200},
                "url": {"type": "string", "maxLength": 3000}
            }
        },
        "ReceiveLog": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "bucket": {"type": "string"},
                "body": {"type": "object"},
                "headers": {"type": "object"},
                "ip": {"type": "string"},
                "forward_logs": {"type": "array", "items": {"$ref": "#/definitions/ForwardLog"}}
            }
        },
        "ForwardLog": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "bucket_receive_log": {"type": "string"},
                "destination_url": {"type": "string"},
                "status_code": {"type": "integer"},
                "attempt": {"type": "integer"},
                "error": {"type": "string"}
            }
        }
    }
}`
