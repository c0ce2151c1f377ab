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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Beakerboy/OSM-bulk-upload/model"
)

const sampleOSM = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="JOSM">
  <bounds minlat="53.0" minlon="-1.5" maxlat="54.0" maxlon="-1.0"/>
  <node id="-1" lat="53.5" lon="-1.25">
    <tag k="natural" v="tree"/>
  </node>
  <node id="-2" lat="53.6" lon="-1.26"/>
  <node id="101" action="delete" version="4" lat="53.7" lon="-1.27"/>
  <way id="-10" action="create">
    <nd ref="-1"/>
    <nd ref="-2"/>
    <tag k="highway" v="path"/>
  </way>
  <relation id="-20">
    <member type="way" ref="-10" role="outer"/>
    <member type="node" ref="-1" role=""/>
    <tag k="type" v="multipolygon"/>
  </relation>
  <relation id="-21" action="modify">
    <member type="relation" ref="-20" role="subarea"/>
  </relation>
</osm>`

func TestReadDocument(t *testing.T) {
	doc, err := ReadDocument(strings.NewReader(sampleOSM))
	require.NoError(t, err)

	require.Len(t, doc.Nodes, 3)
	require.Len(t, doc.Ways, 1)
	require.Len(t, doc.Relations, 2)
	assert.Equal(t, 6, doc.Len())

	n := doc.Nodes[0]
	assert.Equal(t, model.NODE, n.Type)
	assert.Equal(t, model.ID(-1), n.ID)
	assert.Equal(t, model.CREATE, n.Action)
	assert.True(t, n.Lat.EqualWithin(model.Degrees(53.5), model.E7))
	assert.True(t, n.Lon.EqualWithin(model.Degrees(-1.25), model.E7))
	assert.Equal(t, map[string]string{"natural": "tree"}, n.Tags)

	del := doc.Nodes[2]
	assert.Equal(t, model.DELETE, del.Action)
	assert.Equal(t, int32(4), del.Version)

	w := doc.Ways[0]
	assert.Equal(t, []model.ID{-1, -2}, w.NodeIDs)

	r := doc.Relations[0]
	require.Len(t, r.Members, 2)
	assert.Equal(t, model.Member{Type: model.WAY, Ref: -10, Role: "outer"}, r.Members[0])

	assert.Equal(t, model.MODIFY, doc.Relations[1].Action)
	assert.Equal(t, model.Member{Type: model.RELATION, Ref: -20, Role: "subarea"}, doc.Relations[1].Members[0])
}

func TestReadDocumentRejectsOsmChangeRoot(t *testing.T) {
	in := `<osmChange version="0.6"><create><node id="-1" lat="0" lon="0"/></create></osmChange>`

	_, err := ReadDocument(strings.NewReader(in))
	assert.ErrorIs(t, err, ErrNotOSMFile)
}

func TestReadDocumentRejectsChangeMarkers(t *testing.T) {
	for _, marker := range []string{"create", "modify", "delete", "add"} {
		in := `<osm version="0.6"><` + marker + `><node id="-1" lat="0" lon="0"/></` + marker + `></osm>`

		_, err := ReadDocument(strings.NewReader(in))
		assert.ErrorIs(t, err, ErrChangeFile, "marker %q", marker)
	}
}

func TestReadDocumentRejectsNonXML(t *testing.T) {
	_, err := ReadDocument(strings.NewReader("not xml at all"))
	assert.Error(t, err)
}

func TestReadDocumentRejectsEmptyInput(t *testing.T) {
	_, err := ReadDocument(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNotOSMFile)
}

func TestReadDocumentRejectsUnknownAction(t *testing.T) {
	in := `<osm version="0.6"><node id="-1" action="upsert" lat="0" lon="0"/></osm>`

	_, err := ReadDocument(strings.NewReader(in))
	assert.Error(t, err)
}

func TestReadDocumentBadCoordinate(t *testing.T) {
	in := `<osm version="0.6"><node id="-1" lat="fifty" lon="0"/></osm>`

	_, err := ReadDocument(strings.NewReader(in))
	assert.Error(t, err)
}
