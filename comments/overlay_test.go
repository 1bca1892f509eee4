// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package comments

import (
	"context"
	"errors"
	"slices"
	"testing"
)

func thread(id string, zIndex int, resolved bool) Thread {
	return Thread{ID: id, Metadata: Metadata{ZIndex: zIndex, Resolved: resolved}}
}

func zIndexOf(t *testing.T, store *MemoryThreads, id string) int {
	t.Helper()
	list, err := store.Threads(context.Background())
	if err != nil {
		t.Fatalf("Threads: %v", err)
	}
	for _, thread := range list.Threads {
		if thread.ID == id {
			return thread.Metadata.ZIndex
		}
	}
	t.Fatalf("thread %q missing", id)
	return 0
}

func TestRaiseIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryThreads(thread("a", 0, false), thread("b", 2, false))
	overlay := NewOverlay(store, nil)

	raised, err := overlay.Raise(ctx, "a")
	if err != nil {
		t.Fatalf("Raise: %v", err)
	}
	if !raised {
		t.Error("first Raise reported no change")
	}
	if got := zIndexOf(t, store, "a"); got != 3 {
		t.Errorf("z-index after first Raise = %d, want 3", got)
	}

	raised, err = overlay.Raise(ctx, "a")
	if err != nil {
		t.Fatalf("Raise: %v", err)
	}
	if raised {
		t.Error("second Raise wrote again")
	}
	if got := zIndexOf(t, store, "a"); got != 3 {
		t.Errorf("z-index after second Raise = %d, want 3", got)
	}
	if edits := store.Edits(); edits != 1 {
		t.Errorf("edits = %d, want 1", edits)
	}
}

func TestRaiseCountsResolvedThreads(t *testing.T) {
	t.Parallel()
	store := NewMemoryThreads(thread("open", 1, false), thread("closed", 7, true))
	overlay := NewOverlay(store, nil)

	if _, err := overlay.Raise(context.Background(), "open"); err != nil {
		t.Fatalf("Raise: %v", err)
	}
	if got := zIndexOf(t, store, "open"); got != 8 {
		t.Errorf("z-index = %d, want 8", got)
	}
}

func TestRaiseNeverLowers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemoryThreads(thread("a", 5, false), thread("b", 1, false), thread("c", 3, false))
	overlay := NewOverlay(store, nil)

	for _, id := range []string{"b", "c", "a", "b"} {
		before := zIndexOf(t, store, id)
		if _, err := overlay.Raise(ctx, id); err != nil {
			t.Fatalf("Raise(%q): %v", id, err)
		}
		if after := zIndexOf(t, store, id); after < before {
			t.Errorf("Raise(%q) lowered %d to %d", id, before, after)
		}
	}
	if got := zIndexOf(t, store, "b"); got != 9 {
		t.Errorf("final z-index of b = %d, want 9", got)
	}
}

func TestRaiseErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := NewMemoryThreads(thread("a", 0, false))
	overlay := NewOverlay(store, nil)
	if _, err := overlay.Raise(ctx, "missing"); !errors.Is(err, ErrThreadNotFound) {
		t.Errorf("Raise(missing) = %v, want ErrThreadNotFound", err)
	}

	store.SetLoading(true)
	if _, err := overlay.Raise(ctx, "a"); !errors.Is(err, ErrThreadsLoading) {
		t.Errorf("Raise while loading = %v, want ErrThreadsLoading", err)
	}

	store.SetLoading(false)
	failure := errors.New("backend offline")
	store.SetListError(failure)
	if _, err := overlay.Raise(ctx, "a"); !errors.Is(err, failure) {
		t.Errorf("Raise with list error = %v, want %v", err, failure)
	}
	if edits := store.Edits(); edits != 0 {
		t.Errorf("edits = %d, want 0", edits)
	}
}

type loadingUsers map[string]bool

func (users loadingUsers) Loading(userID string) bool { return users[userID] }

func TestVisible(t *testing.T) {
	t.Parallel()

	withAuthor := func(thread Thread, userID string) Thread {
		thread.Comments = []Comment{{ID: thread.ID + "-1", UserID: userID, Body: "hi"}}
		return thread
	}

	tests := []struct {
		name         string
		threads      []Thread
		users        UserResolver
		wantIDs      []string
		wantDeferred int
	}{
		{
			name:    "resolved hidden",
			threads: []Thread{thread("a", 0, false), thread("b", 1, true), thread("c", 2, false)},
			wantIDs: []string{"a", "c"},
		},
		{
			name:    "ascending z-index",
			threads: []Thread{thread("top", 9, false), thread("bottom", 1, false), thread("middle", 4, false)},
			wantIDs: []string{"bottom", "middle", "top"},
		},
		{
			name:    "ties by id",
			threads: []Thread{thread("y", 3, false), thread("x", 3, false), thread("w", 2, false)},
			wantIDs: []string{"w", "x", "y"},
		},
		{
			name: "author loading deferred",
			threads: []Thread{
				withAuthor(thread("a", 0, false), "alice"),
				withAuthor(thread("b", 1, false), "bob"),
			},
			users:        loadingUsers{"bob": true},
			wantIDs:      []string{"a"},
			wantDeferred: 1,
		},
		{
			name:    "empty",
			wantIDs: nil,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			set, err := Visible(ThreadList{Threads: test.threads}, test.users)
			if err != nil {
				t.Fatalf("Visible: %v", err)
			}
			var ids []string
			for _, thread := range set.Threads {
				ids = append(ids, thread.ID)
			}
			if !slices.Equal(ids, test.wantIDs) {
				t.Errorf("visible = %v, want %v", ids, test.wantIDs)
			}
			if set.Deferred != test.wantDeferred {
				t.Errorf("deferred = %d, want %d", set.Deferred, test.wantDeferred)
			}
		})
	}
}

func TestVisibleListStates(t *testing.T) {
	t.Parallel()

	if _, err := Visible(ThreadList{Loading: true}, nil); !errors.Is(err, ErrThreadsLoading) {
		t.Errorf("loading list: got %v, want ErrThreadsLoading", err)
	}
	failure := errors.New("fetch failed")
	if _, err := Visible(ThreadList{Err: failure}, nil); !errors.Is(err, failure) {
		t.Errorf("failed list: got %v, want %v", err, failure)
	}
}

func TestMetadataApply(t *testing.T) {
	t.Parallel()

	resolved := true
	x := 12.5
	got := Metadata{ZIndex: 4, X: 1, Y: 2}.Apply(MetadataPatch{Resolved: &resolved, X: &x})
	want := Metadata{Resolved: true, ZIndex: 4, X: 12.5, Y: 2}
	if got != want {
		t.Errorf("Apply = %+v, want %+v", got, want)
	}
}

func TestMemoryThreadsCopies(t *testing.T) {
	t.Parallel()

	original := Thread{ID: "a", Comments: []Comment{{ID: "1", Body: "first"}}}
	store := NewMemoryThreads(original)
	original.Comments[0].Body = "changed"

	list, err := store.Threads(context.Background())
	if err != nil {
		t.Fatalf("Threads: %v", err)
	}
	if body := list.Threads[0].Comments[0].Body; body != "first" {
		t.Errorf("stored body = %q, want first", body)
	}
	if err := store.EditMetadata(context.Background(), "nope", MetadataPatch{}); !errors.Is(err, ErrThreadNotFound) {
		t.Errorf("EditMetadata(nope) = %v, want ErrThreadNotFound", err)
	}
}
