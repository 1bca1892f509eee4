// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds test helpers shared across packages.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern. They are the only places tests wait on wall-clock time;
// everything else runs on a fake clock. [SocketDir] returns a short
// directory for unix sockets, whose paths are limited to 108 bytes.
package testutil
