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

package idmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Beakerboy/OSM-bulk-upload/model"
)

func TestRecordAndLookup(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "test.db"))

	_, ok := s.Lookup(model.NODE, -1)
	assert.False(t, ok)

	require.NoError(t, s.Record(model.NODE, -1, 4242))

	perm, ok := s.Lookup(model.NODE, -1)
	require.True(t, ok)
	assert.Equal(t, model.ID(4242), perm)

	// same placeholder id for another type is independent
	_, ok = s.Lookup(model.WAY, -1)
	assert.False(t, ok)
}

func TestRecordIdempotent(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "test.db"))

	require.NoError(t, s.Record(model.WAY, -7, 100))
	require.NoError(t, s.Record(model.WAY, -7, 100))
	assert.Equal(t, 1, s.Len())
}

func TestRecordConflict(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "test.db"))

	require.NoError(t, s.Record(model.WAY, -7, 100))

	err := s.Record(model.WAY, -7, 101)
	assert.ErrorIs(t, err, ErrConflict)

	// original mapping untouched
	perm, ok := s.Lookup(model.WAY, -7)
	require.True(t, ok)
	assert.Equal(t, model.ID(100), perm)
}

func TestRecordDeleted(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "test.db"))

	require.NoError(t, s.RecordDeleted(model.RELATION, 512))

	perm, ok := s.Lookup(model.RELATION, 512)
	require.True(t, ok)
	assert.Equal(t, model.ID(512), perm)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roundtrip.db")

	s := New(path)
	require.NoError(t, s.Record(model.NODE, -1, 1001))
	require.NoError(t, s.Record(model.NODE, -2, 1002))
	require.NoError(t, s.Record(model.WAY, -1, 2001))
	require.NoError(t, s.RecordDeleted(model.RELATION, 17))
	require.NoError(t, s.Save())

	restored := New(path)
	restored.Load()

	assert.Equal(t, s.m, restored.m)
}

func TestLoadMissingFile(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "absent.db"))
	s.Load()
	assert.Equal(t, 0, s.Len())
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.db")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0o644))

	s := New(path)
	s.Load()
	assert.Equal(t, 0, s.Len())
}

func TestSaveLeavesOldFileOnTempWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "atomic.db")

	s := New(path)
	require.NoError(t, s.Record(model.NODE, -1, 1001))
	require.NoError(t, s.Save())

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	// an abandoned temp file from an interrupted save must not disturb
	// the committed state
	require.NoError(t, os.WriteFile(path+".tmp", []byte("garbage"), 0o644))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	restored := New(path)
	restored.Load()

	perm, ok := restored.Lookup(model.NODE, -1)
	require.True(t, ok)
	assert.Equal(t, model.ID(1001), perm)
}
