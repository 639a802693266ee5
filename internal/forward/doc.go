// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

/*
Package forward relays received webhooks to each forward setting of their
bucket.

Every stored receive log becomes one Job per destination. Jobs go through a
bounded queue to a fixed pool of workers. When the queue is full the job is
dropped and a forward log with status 0 and error "queue full" is written.

Each attempt is an HTTP POST carrying the original body and headers plus
X-Forwarded-For. Requests to a host are paced by a token bucket
(golang.org/x/time/rate) and guarded by a sony/gobreaker circuit breaker;
an open breaker short-circuits the attempt and counts as a failure.

Failed attempts (non-2xx, transport errors, open breaker) are retried up to
MaxRetries times. Delays follow cenkalti/backoff exponential backoff between
MinBackoff and MaxBackoff, and pending retries wait in a RetryQueue ordered
by due time and deduplicated by job ID.

Every attempt writes a forward log and publishes a forward log event.
*/
package forward
