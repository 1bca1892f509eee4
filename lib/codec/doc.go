// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the CBOR configuration shared by the presence
// engine (reaction broadcast payloads) and the relay wire protocol
// (frame payloads).
//
// Encoding uses Core Deterministic Encoding (RFC 8949 §4.2), so the
// same value always yields the same bytes. Decoding ignores unknown
// fields: a newer client may add fields to a broadcast without
// breaking older receivers.
//
// Types that only ever cross the relay carry `cbor` struct tags. Types
// that are also written as JSON (presence snapshots in logs) carry
// `json` tags, which fxamacker/cbor reads when no `cbor` tag exists.
// A field never carries both.
package codec
