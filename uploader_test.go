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

package osmup

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Beakerboy/OSM-bulk-upload/internal/changeset"
	"github.com/Beakerboy/OSM-bulk-upload/internal/idmap"
	"github.com/Beakerboy/OSM-bulk-upload/model"
)

// uploadedElement is a flattened record of one element as the fake server
// saw it.
type uploadedElement struct {
	el     *model.Element
	refs   []model.ID
	action model.Action
}

// fakeServer implements changeset.Transport, assigning sequential
// permanent ids starting at 1000.
type fakeServer struct {
	nextChangeset int64
	nextID        model.ID

	creates  int
	closes   []int64
	uploads  int
	received []uploadedElement
}

func newFakeServer() *fakeServer {
	return &fakeServer{nextChangeset: 500, nextID: 1000}
}

func (f *fakeServer) CreateChangeset(tags map[string]string) (int64, error) {
	f.creates++
	f.nextChangeset++

	return f.nextChangeset, nil
}

func (f *fakeServer) record(action model.Action, els []*model.Element) {
	for _, el := range els {
		var refs []model.ID

		switch el.Type {
		case model.WAY:
			refs = append(refs, el.NodeIDs...)
		case model.RELATION:
			for _, m := range el.Members {
				refs = append(refs, m.Ref)
			}
		}

		f.received = append(f.received, uploadedElement{el: el, refs: refs, action: action})
	}
}

func (f *fakeServer) UploadDiff(changesetID int64, creates, modifies, deletes []*model.Element) ([]changeset.Result, error) {
	f.uploads++
	f.record(model.CREATE, creates)
	f.record(model.MODIFY, modifies)
	f.record(model.DELETE, deletes)

	var results []changeset.Result

	for _, el := range creates {
		f.nextID++
		results = append(results, changeset.Result{Type: el.Type, OldID: el.ID, NewID: f.nextID})
	}

	for _, el := range modifies {
		results = append(results, changeset.Result{Type: el.Type, OldID: el.ID, NewID: el.ID})
	}

	for _, el := range deletes {
		results = append(results, changeset.Result{Type: el.Type, OldID: el.ID, Deleted: true})
	}

	return results, nil
}

func (f *fakeServer) CloseChangeset(changesetID int64) error {
	f.closes = append(f.closes, changesetID)

	return nil
}

func (f *fakeServer) receivedIDs() []model.ID {
	ids := make([]model.ID, 0, len(f.received))
	for _, u := range f.received {
		ids = append(ids, u.el.ID)
	}

	return ids
}

func newTestUploader(t *testing.T, server changeset.Transport, opts ...UploaderOption) (*Uploader, *idmap.Store) {
	t.Helper()

	ids := idmap.New(filepath.Join(t.TempDir(), "test.db"))

	return NewUploader(server, ids, map[string]string{"comment": "test"}, opts...), ids
}

func testNode(id model.ID) *model.Element {
	return &model.Element{Type: model.NODE, ID: id, Lat: 53, Lon: -1}
}

func TestRunUploadsEverythingInOrder(t *testing.T) {
	server := newFakeServer()
	u, _ := newTestUploader(t, server)

	doc := &Document{
		Nodes: []*model.Element{testNode(-1), testNode(-2)},
		Ways: []*model.Element{
			{Type: model.WAY, ID: -10, NodeIDs: []model.ID{-1, -2}},
		},
	}

	sum, err := u.Run(doc)
	require.NoError(t, err)

	assert.Equal(t, []model.ID{-1, -2, -10}, server.receivedIDs())

	// references within the same diff set stay as placeholders; the
	// server resolves them
	assert.Equal(t, []model.ID{-1, -2}, server.received[2].refs)

	assert.Equal(t, Summary{
		DiffSetsUploaded:  1,
		ChangesetsUsed:    1,
		ElementsSubmitted: 3,
	}, sum)
	assert.Len(t, server.closes, 1)
}

func TestRunRewritesMappedReferences(t *testing.T) {
	server := newFakeServer()
	u, ids := newTestUploader(t, server)

	// node -1 was accepted by an earlier run
	require.NoError(t, ids.Record(model.NODE, -1, 1001))

	doc := &Document{
		Nodes: []*model.Element{testNode(-1), testNode(-2)},
		Ways: []*model.Element{
			{Type: model.WAY, ID: -10, NodeIDs: []model.ID{-1, -2}},
		},
	}

	sum, err := u.Run(doc)
	require.NoError(t, err)

	// node -1 skipped, way uploaded with the mapped ref and the
	// unmapped one untouched
	assert.Equal(t, []model.ID{-2, -10}, server.receivedIDs())
	assert.Equal(t, []model.ID{1001, -2}, server.received[1].refs)
	assert.Equal(t, 1, sum.ElementsSkipped)
}

func TestRunIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.db")

	doc := func() *Document {
		return &Document{
			Nodes: []*model.Element{testNode(-1), testNode(-2)},
			Ways: []*model.Element{
				{Type: model.WAY, ID: -10, NodeIDs: []model.ID{-1, -2}},
			},
			Relations: []*model.Element{
				{Type: model.RELATION, ID: -20, Members: []model.Member{{Type: model.WAY, Ref: -10}}},
			},
		}
	}

	first := newFakeServer()
	ids := idmap.New(path)
	ids.Load()

	_, err := NewUploader(first, ids, nil).Run(doc())
	require.NoError(t, err)
	require.NotEmpty(t, first.received)

	// fresh process: reload the map from disk and run the same input
	second := newFakeServer()
	resumed := idmap.New(path)
	resumed.Load()

	sum, err := NewUploader(second, resumed, nil).Run(doc())
	require.NoError(t, err)

	assert.Empty(t, second.received)
	assert.Zero(t, second.creates)
	assert.Equal(t, 4, sum.ElementsSkipped)
	assert.Zero(t, sum.ChangesetsUsed)
}

func TestRunOrdersSelfReferencingRelations(t *testing.T) {
	server := newFakeServer()
	// one-element diff sets: every upload completes before the next add,
	// so later relations see the permanent ids of earlier ones
	u, _ := newTestUploader(t, server, WithDiffSetLimit(1))

	doc := &Document{
		Relations: []*model.Element{
			{Type: model.RELATION, ID: -1, Members: []model.Member{{Type: model.RELATION, Ref: -2}}},
			{Type: model.RELATION, ID: -2, Members: []model.Member{{Type: model.RELATION, Ref: -3}}},
			{Type: model.RELATION, ID: -3},
		},
	}

	_, err := u.Run(doc)
	require.NoError(t, err)

	require.Equal(t, []model.ID{-3, -2, -1}, server.receivedIDs())

	// -3 became 1001 before -2 went up, -2 became 1002 before -1
	assert.Equal(t, []model.ID{1001}, server.received[1].refs)
	assert.Equal(t, []model.ID{1002}, server.received[2].refs)
}

func TestRunRelationsDocumentOrderWithoutSelfRefs(t *testing.T) {
	server := newFakeServer()
	u, _ := newTestUploader(t, server)

	doc := &Document{
		Relations: []*model.Element{
			{Type: model.RELATION, ID: -1, Members: []model.Member{{Type: model.WAY, Ref: -10}}},
			{Type: model.RELATION, ID: -2},
			{Type: model.RELATION, ID: -3},
		},
	}

	_, err := u.Run(doc)
	require.NoError(t, err)

	assert.Equal(t, []model.ID{-1, -2, -3}, server.receivedIDs())
}

func TestRunReportsRelationCycle(t *testing.T) {
	server := newFakeServer()
	u, _ := newTestUploader(t, server)

	doc := &Document{
		Relations: []*model.Element{
			{Type: model.RELATION, ID: -1, Members: []model.Member{{Type: model.RELATION, Ref: -2}}},
			{Type: model.RELATION, ID: -2, Members: []model.Member{{Type: model.RELATION, Ref: -1}}},
		},
	}

	_, err := u.Run(doc)
	assert.ErrorIs(t, err, ErrRelationCycle)
}

func TestRunChangesetRollover(t *testing.T) {
	server := newFakeServer()
	u, _ := newTestUploader(t, server, WithDiffSetLimit(5), WithChangesetLimit(10))

	doc := &Document{}
	for i := 1; i <= 11; i++ {
		doc.Nodes = append(doc.Nodes, testNode(model.ID(-i)))
	}

	sum, err := u.Run(doc)
	require.NoError(t, err)

	assert.Equal(t, 2, server.creates)
	assert.Len(t, server.closes, 2)
	assert.Equal(t, 2, sum.ChangesetsUsed)

	// the boundary edit lands in the second changeset
	last := server.received[len(server.received)-1]
	assert.Equal(t, model.ID(-11), last.el.ID)
	assert.Equal(t, int64(502), last.el.Changeset)
}

func TestRunRejectsOversizedWay(t *testing.T) {
	server := newFakeServer()
	u, _ := newTestUploader(t, server, WithWayNodeLimit(2))

	doc := &Document{
		Nodes: []*model.Element{testNode(-1)},
		Ways: []*model.Element{
			{Type: model.WAY, ID: -10, NodeIDs: []model.ID{-1, -2, -3}},
		},
	}

	_, err := u.Run(doc)
	require.ErrorIs(t, err, ErrOversizedElement)

	// rejected before any network call
	assert.Zero(t, server.creates)
	assert.Zero(t, server.uploads)
}

func TestRunEmptyDocumentOpensNothing(t *testing.T) {
	server := newFakeServer()
	u, _ := newTestUploader(t, server)

	sum, err := u.Run(&Document{})
	require.NoError(t, err)

	assert.Zero(t, server.creates)
	assert.Equal(t, Summary{}, sum)
}

func TestRunHonorsActions(t *testing.T) {
	server := newFakeServer()
	u, _ := newTestUploader(t, server)

	doc := &Document{
		Nodes: []*model.Element{
			testNode(-1),
			{Type: model.NODE, ID: 42, Action: model.MODIFY, Version: 2, Lat: 53, Lon: -1},
			{Type: model.NODE, ID: 43, Action: model.DELETE, Version: 1},
		},
	}

	_, err := u.Run(doc)
	require.NoError(t, err)

	// the wire groups by action: creates, then modifies, then deletes
	require.Len(t, server.received, 3)
	assert.Equal(t, model.CREATE, server.received[0].action)
	assert.Equal(t, model.MODIFY, server.received[1].action)
	assert.Equal(t, model.ID(42), server.received[1].el.ID)
	assert.Equal(t, model.DELETE, server.received[2].action)
	assert.Equal(t, model.ID(43), server.received[2].el.ID)
}
