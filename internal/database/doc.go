// Splay - Webhook Buckets and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/splay

/*
Package database stores Splay's users, buckets, forward settings and webhook
logs in DuckDB.

# Ownership

Every read used by the API takes the requesting user's ID and joins through
the buckets table, so a record owned by someone else is indistinguishable from
a missing one (ErrNotFound). The webhook receiver and the forwarder use the
unscoped lookups GetBucketForReceive and ListForwardSettingsForBucket.

# Logs

Receive logs store the JSON body and request headers as VARCHAR JSON text.
ListReceiveLogs defaults to the last 24 hours, returns newest first and merges
each item's forward logs into ForwardLogs with a single IN query per page.

# Deletes

DuckDB has no ON DELETE CASCADE, so DeleteBucket and DeleteLogsBefore remove
child rows inside one transaction. Rows written for a bucket after its
delete committed are orphans; DeleteLogsBefore removes those on every sweep.

# Testing

Tests open ":memory:" databases. See setupTestDB.
*/
package database
