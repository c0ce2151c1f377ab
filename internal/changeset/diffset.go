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

package changeset

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Beakerboy/OSM-bulk-upload/model"
)

// ErrDiffSetClosed is returned by DiffSet.Add once the diff set has been
// uploaded. The owning Changeset reacts by rotating to a fresh diff set;
// the error never reaches the caller of Changeset.Add.
var ErrDiffSetClosed = errors.New("changeset: diff set closed")

// DiffSet accumulates one bounded group of edits which is uploaded
// atomically. Reaching the limit uploads immediately; an uploaded diff set
// is terminal.
type DiffSet struct {
	owner *Changeset
	limit int

	creates  []*model.Element
	modifies []*model.Element
	deletes  []*model.Element

	count  int
	closed bool
}

func newDiffSet(owner *Changeset, limit int) *DiffSet {
	return &DiffSet{owner: owner, limit: limit}
}

// Add appends the element to the sequence selected by action. Filling the
// diff set triggers the upload before Add returns.
func (d *DiffSet) Add(action model.Action, el *model.Element) error {
	if d.closed {
		return ErrDiffSetClosed
	}

	switch action {
	case model.CREATE:
		d.creates = append(d.creates, el)
	case model.MODIFY:
		d.modifies = append(d.modifies, el)
	case model.DELETE:
		d.deletes = append(d.deletes, el)
	default:
		return fmt.Errorf("changeset: unknown action %v", action)
	}

	d.count++
	if d.count >= d.limit {
		return d.Upload()
	}

	return nil
}

// Upload sends the accumulated edits, records the id assignments the
// server returns, and durably saves the id map. Empty or already-uploaded
// diff sets are a no-op. A non-success response is fatal to the run; once
// the upload is accepted the id map is saved before anything else happens,
// keeping the window of accepted-but-unsaved mappings to this one diff
// set.
func (d *DiffSet) Upload() error {
	if d.count == 0 || d.closed {
		return nil
	}

	slog.Info("uploading diff set", "changeset", d.owner.id,
		"creates", len(d.creates), "modifies", len(d.modifies), "deletes", len(d.deletes))

	results, err := d.owner.transport.UploadDiff(d.owner.id, d.creates, d.modifies, d.deletes)
	if err != nil {
		return fmt.Errorf("changeset %d: uploading diff set: %w", d.owner.id, err)
	}

	ids := d.owner.ids
	for _, r := range results {
		if r.Deleted {
			err = ids.RecordDeleted(r.Type, r.OldID)
		} else {
			err = ids.Record(r.Type, r.OldID, r.NewID)
		}

		if err != nil {
			return err
		}
	}

	slog.Info("saving id map", "mappings", ids.Len())

	if err := ids.Save(); err != nil {
		return err
	}

	slog.Info("saved id map", "mappings", ids.Len())

	d.closed = true
	d.owner.uploads++

	return nil
}
