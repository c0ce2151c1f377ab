// Copyright 2025 the original author or authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package idmap tracks the mapping from placeholder element ids, as they
// appear in an input file, to the permanent ids assigned by the server.
// The mapping survives process restarts so an interrupted upload can be
// resumed without re-creating elements the server already accepted.
package idmap

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Beakerboy/OSM-bulk-upload/model"
)

// ErrConflict is returned when a recorded mapping would be overwritten
// with a different permanent id. Normal operation never triggers this;
// it indicates corrupted state or a logic bug upstream.
var ErrConflict = errors.New("idmap: conflicting mapping")

// Store is a durable mapping from (element type, placeholder id) to the
// permanent id assigned by the server. Mappings are recorded only on
// confirmed server acceptance and saved after every accepted diff upload.
type Store struct {
	path string
	m    map[model.ElementType]map[model.ID]model.ID
}

// New creates an empty Store backed by the file at path.
func New(path string) *Store {
	m := make(map[model.ElementType]map[model.ID]model.ID, len(model.ElementTypes))
	for _, et := range model.ElementTypes {
		m[et] = make(map[model.ID]model.ID)
	}

	return &Store{path: path, m: m}
}

// Load restores the mapping from the backing file. A missing or unreadable
// file leaves the store empty; resuming with no prior state is not an
// error.
func (s *Store) Load() {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("id map unreadable, starting empty", "path", s.path, "error", err)
		}

		return
	}

	var decoded map[string]map[model.ID]model.ID
	if err := yaml.Unmarshal(raw, &decoded); err != nil {
		slog.Warn("id map corrupt, starting empty", "path", s.path, "error", err)

		return
	}

	for name, ids := range decoded {
		et, err := model.ParseElementType(name)
		if err != nil {
			slog.Warn("id map contains unknown element type", "type", name)

			continue
		}

		for src, perm := range ids {
			s.m[et][src] = perm
		}
	}
}

// Lookup returns the permanent id recorded for the given element, if any.
func (s *Store) Lookup(t model.ElementType, src model.ID) (model.ID, bool) {
	perm, ok := s.m[t][src]

	return perm, ok
}

// Record stores the permanent id assigned to a placeholder id. Recording
// the same mapping twice is a no-op; recording a different permanent id
// for an already-mapped placeholder fails with ErrConflict.
func (s *Store) Record(t model.ElementType, src, perm model.ID) error {
	if existing, ok := s.m[t][src]; ok {
		if existing != perm {
			return fmt.Errorf("%w: %s %d already maps to %d, refusing %d",
				ErrConflict, t, src, existing, perm)
		}

		return nil
	}

	s.m[t][src] = perm

	return nil
}

// RecordDeleted marks an element as confirmed deleted by mapping its id to
// itself, so later runs treat it as already processed.
func (s *Store) RecordDeleted(t model.ElementType, src model.ID) error {
	return s.Record(t, src, src)
}

// Len returns the total number of recorded mappings.
func (s *Store) Len() int {
	var n int
	for _, ids := range s.m {
		n += len(ids)
	}

	return n
}

// Save durably writes the whole mapping. The write goes to a temporary
// file which is renamed over the target, so an interrupted save leaves the
// previous file intact.
func (s *Store) Save() error {
	encoded := make(map[string]map[model.ID]model.ID, len(s.m))
	for et, ids := range s.m {
		encoded[et.String()] = ids
	}

	raw, err := yaml.Marshal(encoded)
	if err != nil {
		return fmt.Errorf("idmap: encoding %s: %w", s.path, err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("idmap: writing %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("idmap: replacing %s: %w", s.path, err)
	}

	return nil
}
