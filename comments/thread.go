// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package comments

import (
	"context"
	"errors"
)

var (
	// ErrThreadNotFound is returned when a thread ID names no thread.
	ErrThreadNotFound = errors.New("comment thread not found")

	// ErrThreadsLoading is returned while the thread list has not been
	// fetched yet. Renderers show a loading state, not an error.
	ErrThreadsLoading = errors.New("comment threads loading")
)

// Metadata is the per-thread record the overlay reads and writes.
type Metadata struct {
	Resolved bool    `json:"resolved" yaml:"resolved"`
	ZIndex   int     `json:"z_index" yaml:"z_index"`
	X        float64 `json:"x" yaml:"x"`
	Y        float64 `json:"y" yaml:"y"`
}

// MetadataPatch is a partial metadata write. Nil fields are left
// unchanged.
type MetadataPatch struct {
	Resolved *bool
	ZIndex   *int
	X        *float64
	Y        *float64
}

// Apply returns metadata with the patch's non-nil fields written.
func (m Metadata) Apply(patch MetadataPatch) Metadata {
	if patch.Resolved != nil {
		m.Resolved = *patch.Resolved
	}
	if patch.ZIndex != nil {
		m.ZIndex = *patch.ZIndex
	}
	if patch.X != nil {
		m.X = *patch.X
	}
	if patch.Y != nil {
		m.Y = *patch.Y
	}
	return m
}

// Comment is one message in a thread.
type Comment struct {
	ID     string `json:"id" yaml:"id"`
	UserID string `json:"user_id" yaml:"user_id"`
	Body   string `json:"body" yaml:"body"`
}

// Thread is a pinned comment thread.
type Thread struct {
	ID       string    `json:"id" yaml:"id"`
	Metadata Metadata  `json:"metadata" yaml:"metadata"`
	Comments []Comment `json:"comments" yaml:"comments"`
}

// ThreadList is the collaborator's current view of the threads. While
// Loading is true, Threads is not meaningful. Err reports a persistent
// failure fetching the list.
type ThreadList struct {
	Threads []Thread
	Loading bool
	Err     error
}

// ThreadStore is the comment-thread collaborator. Threads and their
// comments are owned by it.
type ThreadStore interface {
	// Threads returns the current thread list. A list still being
	// fetched is reported through ThreadList.Loading, not an error.
	Threads(ctx context.Context) (ThreadList, error)

	// EditMetadata overwrites the fields named in patch. Returns
	// ErrThreadNotFound for an unknown thread ID.
	EditMetadata(ctx context.Context, threadID string, patch MetadataPatch) error
}

// UserResolver reports whether a comment author's profile is still
// being fetched.
type UserResolver interface {
	Loading(userID string) bool
}
