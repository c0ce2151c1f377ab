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

// Package changeset implements the two-level chunking the OSM API imposes
// on bulk edits: a changeset groups up to a server-imposed number of edits
// and is itself uploaded in bounded diff sets. Both containers share one
// lifecycle: they open on first use, fill, and are terminal once closed.
package changeset

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Beakerboy/OSM-bulk-upload/internal/idmap"
	"github.com/Beakerboy/OSM-bulk-upload/model"
)

// Server bounds for the OSM 0.6 API.
const (
	// DefaultDiffSetLimit bounds the edits in one atomically-uploaded
	// diff set.
	DefaultDiffSetLimit = 1000

	// DefaultChangesetLimit is the server-imposed ceiling on edits per
	// changeset.
	DefaultChangesetLimit = 50000
)

// ErrChangesetClosed is returned by Add once the changeset has hit its
// edit bound and closed. The caller rotates to a fresh changeset and
// retries the add once.
var ErrChangesetClosed = errors.New("changeset: closed")

// Limits bounds the two container levels.
type Limits struct {
	DiffSet   int
	Changeset int
}

// DefaultLimits returns the OSM 0.6 API bounds.
func DefaultLimits() Limits {
	return Limits{DiffSet: DefaultDiffSetLimit, Changeset: DefaultChangesetLimit}
}

// Changeset owns a sequence of diff sets uploaded into one server-side
// changeset. The server-side changeset is opened lazily on the first add,
// so a run contributing no edits never opens one.
type Changeset struct {
	transport Transport
	ids       *idmap.Store
	tags      map[string]string
	limits    Limits

	id      int64
	opened  bool
	closed  bool
	count   int
	uploads int

	current *DiffSet
}

// New creates an unopened Changeset. The tags map is copied; changesets
// never share tag state.
func New(transport Transport, ids *idmap.Store, tags map[string]string, limits Limits) *Changeset {
	owned := make(map[string]string, len(tags))
	for k, v := range tags {
		owned[k] = v
	}

	c := &Changeset{
		transport: transport,
		ids:       ids,
		tags:      owned,
		limits:    limits,
	}
	c.current = newDiffSet(c, limits.DiffSet)

	return c
}

// ID returns the server-assigned changeset id, zero until opened.
func (c *Changeset) ID() int64 { return c.id }

// Opened reports whether a server-side changeset was created.
func (c *Changeset) Opened() bool { return c.opened }

// Uploads returns the number of diff sets uploaded so far.
func (c *Changeset) Uploads() int { return c.uploads }

// open creates the server-side changeset.
func (c *Changeset) open() error {
	id, err := c.transport.CreateChangeset(c.tags)
	if err != nil {
		return fmt.Errorf("creating changeset: %w", err)
	}

	c.id = id
	c.opened = true

	slog.Info("created changeset", "changeset", c.id)

	return nil
}

// Add stamps the element with the changeset id and forwards it to the
// current diff set, rotating to a fresh diff set when the current one has
// been uploaded. Hitting the changeset edit bound uploads the pending diff
// set and closes the changeset; the next Add fails with
// ErrChangesetClosed.
func (c *Changeset) Add(action model.Action, el *model.Element) error {
	if c.closed {
		return ErrChangesetClosed
	}

	if !c.opened {
		if err := c.open(); err != nil {
			return err
		}
	}

	el.Changeset = c.id

	err := c.current.Add(action, el)
	if errors.Is(err, ErrDiffSetClosed) {
		c.current = newDiffSet(c, c.limits.DiffSet)
		err = c.current.Add(action, el)
	}

	if err != nil {
		return err
	}

	c.count++
	if c.count >= c.limits.Changeset {
		if err := c.current.Upload(); err != nil {
			return err
		}

		return c.Close()
	}

	return nil
}

// Close uploads any pending partial diff set and closes the server-side
// changeset. A changeset that never opened has nothing to close. A failed
// close request is logged, not returned: the uploaded edits are already
// durably accepted, and the server expires open changesets on its own.
func (c *Changeset) Close() error {
	if !c.opened || c.closed {
		return nil
	}

	if err := c.current.Upload(); err != nil {
		return err
	}

	if err := c.transport.CloseChangeset(c.id); err != nil {
		slog.Warn("closing changeset failed", "changeset", c.id, "error", err)
	} else {
		slog.Info("closed changeset", "changeset", c.id)
	}

	c.closed = true

	return nil
}
