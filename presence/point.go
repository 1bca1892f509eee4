// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package presence

// Point is a position in canvas-local coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PointerEvent is a raw pointer sample from the drawing surface.
// Client is in device space; Origin is the canvas element's offset in
// the same space.
type PointerEvent struct {
	Client Point
	Origin Point
}

// Local translates the event into canvas-local coordinates.
func (event PointerEvent) Local() Point {
	return Point{
		X: event.Client.X - event.Origin.X,
		Y: event.Client.Y - event.Origin.Y,
	}
}
