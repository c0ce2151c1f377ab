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

package osmup_test

import (
	"fmt"
	"log"
	"strings"

	osmup "github.com/Beakerboy/OSM-bulk-upload"
)

func ExampleReadDocument() {
	const data = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="JOSM">
  <node id="-1" lat="51.5074" lon="-0.1278">
    <tag k="amenity" v="cafe"/>
  </node>
  <node id="-2" lat="51.5075" lon="-0.1279"/>
  <way id="-3">
    <nd ref="-1"/>
    <nd ref="-2"/>
  </way>
</osm>`

	doc, err := osmup.ReadDocument(strings.NewReader(data))
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Nodes: %d, Ways: %d, Relations: %d\n",
		len(doc.Nodes), len(doc.Ways), len(doc.Relations))
	// Output:
	// Nodes: 2, Ways: 1, Relations: 0
}
