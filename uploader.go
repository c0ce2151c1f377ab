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

// Package osmup bulk-uploads a JOSM-style .osm edit file to the OSM 0.6
// API. Edits are fed through sequentially-numbered changesets in bounded
// diff sets; placeholder ids are mapped to the permanent ids the server
// assigns, durably, so an interrupted run resumes where it stopped.
package osmup

import (
	"errors"
	"fmt"

	"github.com/Beakerboy/OSM-bulk-upload/internal/changeset"
	"github.com/Beakerboy/OSM-bulk-upload/internal/depgraph"
	"github.com/Beakerboy/OSM-bulk-upload/internal/idmap"
	"github.com/Beakerboy/OSM-bulk-upload/model"
)

// ErrOversizedElement rejects an element the server would refuse anyway:
// failing up front beats failing after hours of uploading.
var ErrOversizedElement = errors.New("osmup: element exceeds server limits")

// ErrRelationCycle reports relations that reference each other in a true
// cycle; no upload order can satisfy them.
var ErrRelationCycle = depgraph.ErrCycle

// Summary describes what one run did.
type Summary struct {
	DiffSetsUploaded  int
	ChangesetsUsed    int
	ElementsSubmitted int
	ElementsSkipped   int
}

// Uploader walks a Document in dependency-safe order, rewriting references
// through the id map, and feeds every element into the current changeset,
// rotating to a fresh one whenever the server-imposed bound closes it.
type Uploader struct {
	transport changeset.Transport
	ids       *idmap.Store
	tags      map[string]string
	cfg       uploaderOptions

	current *changeset.Changeset
	summary Summary
}

// NewUploader creates an Uploader. The tags describe the run and are
// attached to every changeset it opens.
func NewUploader(transport changeset.Transport, ids *idmap.Store, tags map[string]string, opts ...UploaderOption) *Uploader {
	cfg := defaultUploaderConfig

	for _, opt := range opts {
		opt(&cfg)
	}

	return &Uploader{
		transport: transport,
		ids:       ids,
		tags:      tags,
		cfg:       cfg,
	}
}

// Run uploads the whole document. Elements whose placeholder id is already
// mapped were accepted by an earlier run and are skipped. Nodes and ways
// go up in document order; relations follow, reordered only when they
// reference other relations. The final changeset is closed before Run
// returns, flushing any partial diff set.
func (u *Uploader) Run(doc *Document) (Summary, error) {
	if err := u.validate(doc); err != nil {
		return u.summary, err
	}

	u.rotate()

	for _, el := range doc.Nodes {
		if u.skip(el) {
			continue
		}

		if err := u.add(el); err != nil {
			return u.summary, err
		}
	}

	for _, el := range doc.Ways {
		if u.skip(el) {
			continue
		}

		u.rewriteWayRefs(el)

		if err := u.add(el); err != nil {
			return u.summary, err
		}
	}

	if err := u.runRelations(doc.Relations); err != nil {
		return u.summary, err
	}

	if err := u.current.Close(); err != nil {
		return u.summary, err
	}

	u.collect()

	return u.summary, nil
}

// validate runs the well-formedness checks that must fail before the first
// network call.
func (u *Uploader) validate(doc *Document) error {
	for _, el := range doc.Ways {
		if len(el.NodeIDs) > u.cfg.wayNodeLimit {
			return fmt.Errorf("%w: way %d has %d node references (limit %d)",
				ErrOversizedElement, el.ID, len(el.NodeIDs), u.cfg.wayNodeLimit)
		}
	}

	return nil
}

// runRelations uploads relations. When no relation references another
// relation, document order is already safe and the graph is never built.
func (u *Uploader) runRelations(relations []*model.Element) error {
	if !relationsReferenceRelations(relations) {
		for _, el := range relations {
			if u.skip(el) {
				continue
			}

			u.rewriteMemberRefs(el)

			if err := u.add(el); err != nil {
				return err
			}
		}

		return nil
	}

	pending := make(map[model.ID]*model.Element, len(relations))
	g := depgraph.New()

	for _, el := range relations {
		if u.skip(el) {
			continue
		}

		pending[el.ID] = el
		g.AddNode(el.ID)
	}

	for _, el := range relations {
		if _, ok := pending[el.ID]; !ok {
			continue
		}

		for _, m := range el.Members {
			if m.Type != model.RELATION {
				continue
			}

			// references to relations outside the pending set are
			// plain mapped or pre-existing ids, not dependencies
			if _, ok := pending[m.Ref]; !ok {
				continue
			}

			if err := g.AddEdge(el.ID, m.Ref); err != nil {
				return err
			}
		}
	}

	order, err := g.PostOrder()
	if err != nil {
		return fmt.Errorf("osmup: ordering relations: %w", err)
	}

	for _, id := range order {
		el := pending[id]
		u.rewriteMemberRefs(el)

		if err := u.add(el); err != nil {
			return err
		}
	}

	return nil
}

// skip reports whether the element was already accepted by the server in
// an earlier run.
func (u *Uploader) skip(el *model.Element) bool {
	if _, ok := u.ids.Lookup(el.Type, el.ID); ok {
		u.summary.ElementsSkipped++

		return true
	}

	return false
}

// rewriteWayRefs replaces node references that already have a permanent
// id. Unmapped references stay as they are; they point at nodes uploaded
// earlier in this same changeset, which the server resolves itself.
func (u *Uploader) rewriteWayRefs(el *model.Element) {
	for i, ref := range el.NodeIDs {
		if perm, ok := u.ids.Lookup(model.NODE, ref); ok {
			el.NodeIDs[i] = perm
		}
	}
}

// rewriteMemberRefs does the same for relation members, consulting the map
// for each member's own type.
func (u *Uploader) rewriteMemberRefs(el *model.Element) {
	for i := range el.Members {
		m := &el.Members[i]
		if perm, ok := u.ids.Lookup(m.Type, m.Ref); ok {
			m.Ref = perm
		}
	}
}

// add submits one element, rotating to a fresh changeset when the current
// one has closed at its edit bound. The retry happens exactly once; a
// freshly-rotated changeset cannot be closed.
func (u *Uploader) add(el *model.Element) error {
	err := u.current.Add(el.Action, el)
	if errors.Is(err, changeset.ErrChangesetClosed) {
		u.rotate()
		err = u.current.Add(el.Action, el)
	}

	if err != nil {
		return err
	}

	u.summary.ElementsSubmitted++

	return nil
}

func (u *Uploader) rotate() {
	if u.current != nil {
		u.collect()
	}

	u.current = changeset.New(u.transport, u.ids, u.tags, u.cfg.limits)
}

func (u *Uploader) collect() {
	u.summary.DiffSetsUploaded += u.current.Uploads()
	if u.current.Opened() {
		u.summary.ChangesetsUsed++
	}
}

// relationsReferenceRelations reports whether any relation has a
// relation-type member.
func relationsReferenceRelations(relations []*model.Element) bool {
	for _, el := range relations {
		for _, m := range el.Members {
			if m.Type == model.RELATION {
				return true
			}
		}
	}

	return false
}
