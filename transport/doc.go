// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport carries presence and reaction broadcasts between
// the participants of a canvas room.
//
// Two implementations of [presence.Room] live here:
//
//   - [MemoryHub] connects participants inside one process. Delivery is
//     synchronous, which makes it the transport of choice for tests.
//   - [Client] connects to a [Server] (the livecanvas-relay binary) over
//     a stream socket.
//
// The relay speaks a framed protocol: each frame is a 5-byte header (1
// byte type, 4 byte big-endian payload length) followed by a CBOR
// payload. A connection opens with Hello from the client and Welcome
// from the server; after that the client sends Presence and Broadcast
// frames and the server sends Presence, Broadcast and Leave frames
// describing the other participants.
//
// Everything is fire-and-forget. A full outbox drops the frame on
// either side; nothing is acknowledged or retried.
package transport
