// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package comments orders pinned comment threads drawn over a shared
// canvas.
//
// Threads and their metadata belong to an external [ThreadStore]; this
// package only reads the list and writes one field back. [Overlay.Raise]
// brings a thread to the front by writing a stacking value one above the
// current maximum, and never lowers a value. [Visible] selects the
// threads a renderer should draw: unresolved ones, back to front.
//
// Stacking values are not globally unique. Two participants raising
// different threads at the same moment can both write the same value;
// [Visible] breaks such ties by thread ID so every participant draws
// the same order.
package comments
