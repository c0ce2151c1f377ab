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

package osmapi

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/Beakerboy/OSM-bulk-upload/internal/changeset"
	"github.com/Beakerboy/OSM-bulk-upload/model"
)

type tagXML struct {
	K string `xml:"k,attr"`
	V string `xml:"v,attr"`
}

type ndXML struct {
	Ref int64 `xml:"ref,attr"`
}

type memberXML struct {
	Type string `xml:"type,attr"`
	Ref  int64  `xml:"ref,attr"`
	Role string `xml:"role,attr"`
}

type elementXML struct {
	XMLName   xml.Name
	ID        int64       `xml:"id,attr"`
	Version   int32       `xml:"version,attr,omitempty"`
	Changeset int64       `xml:"changeset,attr"`
	Lat       string      `xml:"lat,attr,omitempty"`
	Lon       string      `xml:"lon,attr,omitempty"`
	Nds       []ndXML     `xml:"nd"`
	Members   []memberXML `xml:"member"`
	Tags      []tagXML    `xml:"tag"`
}

type changeBlockXML struct {
	Elements []elementXML
}

type osmChangeXML struct {
	XMLName   xml.Name       `xml:"osmChange"`
	Version   string         `xml:"version,attr"`
	Generator string         `xml:"generator,attr"`
	Create    changeBlockXML `xml:"create"`
	Modify    changeBlockXML `xml:"modify"`
	Delete    changeBlockXML `xml:"delete"`
}

type changesetXML struct {
	Tags []tagXML `xml:"tag"`
}

type osmXML struct {
	XMLName   xml.Name     `xml:"osm"`
	Version   string       `xml:"version,attr"`
	Generator string       `xml:"generator,attr"`
	Changeset changesetXML `xml:"changeset"`
}

// sortedTags renders a tag map in key order so payloads are deterministic.
func sortedTags(tags map[string]string) []tagXML {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	out := make([]tagXML, 0, len(keys))
	for _, k := range keys {
		out = append(out, tagXML{K: k, V: tags[k]})
	}

	return out
}

func encodeElement(el *model.Element) elementXML {
	e := elementXML{
		XMLName:   xml.Name{Local: el.Type.String()},
		ID:        int64(el.ID),
		Version:   el.Version,
		Changeset: el.Changeset,
		Tags:      sortedTags(el.Tags),
	}

	switch el.Type {
	case model.NODE:
		e.Lat = el.Lat.Attr()
		e.Lon = el.Lon.Attr()
	case model.WAY:
		e.Nds = make([]ndXML, 0, len(el.NodeIDs))
		for _, ref := range el.NodeIDs {
			e.Nds = append(e.Nds, ndXML{Ref: int64(ref)})
		}
	case model.RELATION:
		e.Members = make([]memberXML, 0, len(el.Members))
		for _, m := range el.Members {
			e.Members = append(e.Members, memberXML{
				Type: m.Type.String(),
				Ref:  int64(m.Ref),
				Role: m.Role,
			})
		}
	}

	return e
}

func encodeBlock(els []*model.Element) changeBlockXML {
	block := changeBlockXML{Elements: make([]elementXML, 0, len(els))}
	for _, el := range els {
		block.Elements = append(block.Elements, encodeElement(el))
	}

	return block
}

// encodeOsmChange serializes the three edit sequences into one osmChange
// payload.
func encodeOsmChange(generator string, creates, modifies, deletes []*model.Element) ([]byte, error) {
	doc := osmChangeXML{
		Version:   apiVersion,
		Generator: generator,
		Create:    encodeBlock(creates),
		Modify:    encodeBlock(modifies),
		Delete:    encodeBlock(deletes),
	}

	return xml.Marshal(doc)
}

// encodeChangeset serializes the changeset-create payload.
func encodeChangeset(generator string, tags map[string]string) ([]byte, error) {
	doc := osmXML{
		Version:   apiVersion,
		Generator: generator,
		Changeset: changesetXML{Tags: sortedTags(tags)},
	}

	return xml.Marshal(doc)
}

// parseDiffResult reads the server's <diffResult> response. Each child is
// named after the element type and maps old_id to new_id; a child without
// new_id confirms a deletion.
func parseDiffResult(r io.Reader) ([]changeset.Result, error) {
	dec := xml.NewDecoder(r)

	var (
		results []changeset.Result
		inRoot  bool
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("parsing diffResult: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		if !inRoot {
			if start.Name.Local != "diffResult" {
				return nil, fmt.Errorf("expected diffResult root, got <%s>", start.Name.Local)
			}

			inRoot = true

			continue
		}

		et, err := model.ParseElementType(start.Name.Local)
		if err != nil {
			return nil, fmt.Errorf("parsing diffResult: %w", err)
		}

		res := changeset.Result{Type: et, Deleted: true}

		for _, attr := range start.Attr {
			switch attr.Name.Local {
			case "old_id":
				v, err := strconv.ParseInt(attr.Value, 10, 64)
				if err != nil {
					return nil, fmt.Errorf("parsing diffResult old_id: %w", err)
				}

				res.OldID = model.ID(v)
			case "new_id":
				v, err := strconv.ParseInt(attr.Value, 10, 64)
				if err != nil {
					return nil, fmt.Errorf("parsing diffResult new_id: %w", err)
				}

				res.NewID = model.ID(v)
				res.Deleted = false
			}
		}

		results = append(results, res)

		if err := dec.Skip(); err != nil {
			return nil, fmt.Errorf("parsing diffResult: %w", err)
		}
	}

	return results, nil
}
