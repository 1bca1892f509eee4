// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package comments

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// threadsFile is the on-disk shape read by LoadFile.
type threadsFile struct {
	Threads []Thread `yaml:"threads"`
}

// LoadFile reads threads from a YAML (or JSON) file into a
// MemoryThreads. Metadata edits stay in memory; the file is not
// written back.
func LoadFile(path string) (*MemoryThreads, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading threads: %w", err)
	}
	var file threadsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing threads %s: %w", path, err)
	}

	seen := make(map[string]bool, len(file.Threads))
	var errs []error
	for index, thread := range file.Threads {
		switch {
		case thread.ID == "":
			errs = append(errs, fmt.Errorf("threads[%d]: id is required", index))
		case seen[thread.ID]:
			errs = append(errs, fmt.Errorf("threads[%d]: duplicate id %q", index, thread.ID))
		}
		seen[thread.ID] = true
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("threads %s: %w", path, err)
	}
	return NewMemoryThreads(file.Threads...), nil
}
