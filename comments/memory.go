// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package comments

import (
	"context"
	"slices"
	"sync"
)

var _ ThreadStore = (*MemoryThreads)(nil)

// MemoryThreads is an in-process ThreadStore for tests and single
// process demos. Threads are listed in insertion order.
type MemoryThreads struct {
	mu      sync.Mutex
	threads []Thread
	loading bool
	listErr error
	edits   int
}

// NewMemoryThreads returns a store holding copies of threads.
func NewMemoryThreads(threads ...Thread) *MemoryThreads {
	store := &MemoryThreads{}
	for _, thread := range threads {
		store.Put(thread)
	}
	return store
}

// Put inserts or replaces a thread.
func (m *MemoryThreads) Put(thread Thread) {
	m.mu.Lock()
	defer m.mu.Unlock()

	thread.Comments = slices.Clone(thread.Comments)
	if index := m.indexLocked(thread.ID); index >= 0 {
		m.threads[index] = thread
		return
	}
	m.threads = append(m.threads, thread)
}

// SetLoading makes Threads report a list still being fetched.
func (m *MemoryThreads) SetLoading(loading bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = loading
}

// SetListError makes Threads report err in ThreadList.Err.
func (m *MemoryThreads) SetListError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listErr = err
}

// Edits returns how many EditMetadata calls have succeeded.
func (m *MemoryThreads) Edits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.edits
}

func (m *MemoryThreads) Threads(ctx context.Context) (ThreadList, error) {
	if err := ctx.Err(); err != nil {
		return ThreadList{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loading {
		return ThreadList{Loading: true}, nil
	}
	threads := make([]Thread, len(m.threads))
	for index, thread := range m.threads {
		thread.Comments = slices.Clone(thread.Comments)
		threads[index] = thread
	}
	return ThreadList{Threads: threads, Err: m.listErr}, nil
}

func (m *MemoryThreads) EditMetadata(ctx context.Context, threadID string, patch MetadataPatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	index := m.indexLocked(threadID)
	if index < 0 {
		return ErrThreadNotFound
	}
	m.threads[index].Metadata = m.threads[index].Metadata.Apply(patch)
	m.edits++
	return nil
}

func (m *MemoryThreads) indexLocked(threadID string) int {
	return slices.IndexFunc(m.threads, func(thread Thread) bool { return thread.ID == threadID })
}
