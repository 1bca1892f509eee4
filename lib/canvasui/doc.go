// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package canvasui is a bubbletea front end for a presence session: a
// terminal canvas where each participant's cursor, chat bubble and
// reactions are drawn in shared cell coordinates.
//
// The first screen row is a header and the last is a footer holding
// help text or, while choosing a reaction, the palette. Everything in
// between is canvas; its origin is the cell just below the header, so
// a mouse event at screen (x, y) is canvas point (x, y-1).
//
// Comment threads, when a store is configured, are drawn as pins under
// everything else. Clicking a pin raises it above the pins it overlaps.
//
// The model never blocks on the network. Input is forwarded to the
// [Engine] (normally a *presence.Session), whose change callback
// stores snapshots in a [Latest]; the model re-reads it on every frame
// tick. Calling tea.Program.Send from the change callback would
// deadlock, since the program may itself be waiting on the session.
package canvasui
