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
	"github.com/Beakerboy/OSM-bulk-upload/model"
)

// Result is the per-element outcome of an accepted diff upload. Deleted
// elements carry no new id.
type Result struct {
	Type    model.ElementType
	OldID   model.ID
	NewID   model.ID
	Deleted bool
}

// Transport performs the server calls a changeset needs. Calls block until
// the server answers; there is deliberately no overlap between uploads, as
// a diff may reference ids assigned by the previous one.
type Transport interface {
	// CreateChangeset opens a server-side changeset carrying the given
	// tags and returns its id.
	CreateChangeset(tags map[string]string) (int64, error)

	// UploadDiff atomically uploads one bounded group of edits and
	// returns the server's per-element results.
	UploadDiff(changesetID int64, creates, modifies, deletes []*model.Element) ([]Result, error)

	// CloseChangeset closes the server-side changeset.
	CloseChangeset(changesetID int64) error
}
