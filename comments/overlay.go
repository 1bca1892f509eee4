// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package comments

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/bureau-foundation/livecanvas/lib/logging"
)

// Overlay raises threads in a ThreadStore.
type Overlay struct {
	store  ThreadStore
	logger *slog.Logger
}

// NewOverlay returns an Overlay writing through store. A nil logger
// discards.
func NewOverlay(store ThreadStore, logger *slog.Logger) *Overlay {
	return &Overlay{store: store, logger: logging.OrDiscard(logger)}
}

// Raise brings a thread to the front. The maximum is taken over every
// thread in the list, resolved or not, so a reopened thread never
// shares a value with one drawn above it. If the thread already holds
// the maximum nothing is written and Raise returns false.
func (o *Overlay) Raise(ctx context.Context, threadID string) (bool, error) {
	list, err := o.store.Threads(ctx)
	if err != nil {
		return false, fmt.Errorf("listing threads: %w", err)
	}
	if list.Loading {
		return false, ErrThreadsLoading
	}
	if list.Err != nil {
		return false, fmt.Errorf("listing threads: %w", list.Err)
	}

	index := slices.IndexFunc(list.Threads, func(thread Thread) bool { return thread.ID == threadID })
	if index < 0 {
		return false, fmt.Errorf("raising %q: %w", threadID, ErrThreadNotFound)
	}

	highest := MaxZIndex(list.Threads)
	current := list.Threads[index].Metadata.ZIndex
	if current == highest {
		return false, nil
	}

	raised := highest + 1
	if err := o.store.EditMetadata(ctx, threadID, MetadataPatch{ZIndex: &raised}); err != nil {
		return false, fmt.Errorf("raising %q to %d: %w", threadID, raised, err)
	}
	o.logger.Debug("raised thread", "thread", threadID, "from", current, "to", raised)
	return true, nil
}

// MaxZIndex returns the highest stacking value among threads, or 0 for
// an empty list.
func MaxZIndex(threads []Thread) int {
	highest := 0
	for _, thread := range threads {
		highest = max(highest, thread.Metadata.ZIndex)
	}
	return highest
}

// VisibleSet is the threads to draw, back to front, plus the number
// held back while their authors load.
type VisibleSet struct {
	Threads  []Thread
	Deferred int
}

// Visible selects the unresolved threads in ascending stacking order,
// ties broken by ID. A thread whose first comment's author is still
// loading is left out and counted in Deferred. users may be nil.
func Visible(list ThreadList, users UserResolver) (VisibleSet, error) {
	if list.Loading {
		return VisibleSet{}, ErrThreadsLoading
	}
	if list.Err != nil {
		return VisibleSet{}, fmt.Errorf("thread list: %w", list.Err)
	}

	var set VisibleSet
	for _, thread := range list.Threads {
		if thread.Metadata.Resolved {
			continue
		}
		if users != nil && len(thread.Comments) > 0 && users.Loading(thread.Comments[0].UserID) {
			set.Deferred++
			continue
		}
		set.Threads = append(set.Threads, thread)
	}
	slices.SortFunc(set.Threads, func(a, b Thread) int {
		return cmp.Or(cmp.Compare(a.Metadata.ZIndex, b.Metadata.ZIndex), cmp.Compare(a.ID, b.ID))
	})
	return set, nil
}
