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
	"github.com/Beakerboy/OSM-bulk-upload/internal/changeset"
)

// DefaultWayNodeLimit is the server-imposed bound on node references per
// way.
const DefaultWayNodeLimit = 2000

// uploaderOptions provides optional configuration parameters for Uploader construction.
type uploaderOptions struct {
	limits       changeset.Limits
	wayNodeLimit int
}

// UploaderOption configures how we set up the uploader.
type UploaderOption func(*uploaderOptions)

// WithDiffSetLimit bounds the edits per atomically-uploaded diff set.
func WithDiffSetLimit(n int) UploaderOption {
	return func(o *uploaderOptions) {
		o.limits.DiffSet = n
	}
}

// WithChangesetLimit bounds the edits per server-side changeset.
func WithChangesetLimit(n int) UploaderOption {
	return func(o *uploaderOptions) {
		o.limits.Changeset = n
	}
}

// WithWayNodeLimit overrides the node-reference bound a way is validated
// against.
func WithWayNodeLimit(n int) UploaderOption {
	return func(o *uploaderOptions) {
		o.wayNodeLimit = n
	}
}

// defaultUploaderConfig provides a default configuration for uploaders.
var defaultUploaderConfig = uploaderOptions{
	limits:       changeset.DefaultLimits(),
	wayNodeLimit: DefaultWayNodeLimit,
}
