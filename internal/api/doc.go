// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

/*
Package api provides the HTTP layer of Splay: the public webhook receiver,
the authenticated JSON API used by the web app, the realtime websocket and
the web app itself.

Routes:

	POST /buckets/{slug}                          webhook receiver (public)
	/api/v1/auth/...                              signup, login, sessions, password reset, OAuth
	/api/v1/buckets[/{id}]                        bucket CRUD
	/api/v1/buckets/{id}/forward-settings         forward settings of a bucket
	/api/v1/forward-settings/{id}                 forward setting CRUD
	/api/v1/buckets/{id}/receive-logs             receive logs with their forward logs
	/api/v1/{receive,forward}-logs/{id}           single log lookups
	/api/v1/ws                                    log events for the caller's buckets
	/api/v1/health, /metrics                      monitoring
	/*                                            the web app

The receiver accepts a JSON object, stores it as a receive log and answers
{"success":"true"} before anything is forwarded. Forwarding happens in the
forward package, fed through the event bus.

Every /api/v1 response uses the APIResponse envelope:

	{"success": true, "data": {...}, "meta": {"request_id": "...", "timestamp": "..."}}
	{"success": false, "error": {"code": "NOT_FOUND", "message": "..."}, "meta": {...}}

Errors from the service layer are mapped to status codes and error codes in
one place, writeServiceError.
*/
package api
