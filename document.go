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
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"github.com/Beakerboy/OSM-bulk-upload/model"
)

// ErrNotOSMFile rejects input whose root element is not <osm>.
var ErrNotOSMFile = errors.New("osmup: input must be a JOSM-style .osm file")

// ErrChangeFile rejects osmChange content smuggled inside an <osm> root.
// Uploading an osmChange file through this pipeline would re-apply its
// edits as fresh creates and corrupt the server state.
var ErrChangeFile = errors.New("osmup: input is an osmChange file, refusing to upload it")

// Document is a parsed full-snapshot .osm file, the three element
// sequences each in document order.
type Document struct {
	Nodes     []*model.Element
	Ways      []*model.Element
	Relations []*model.Element
}

// Len returns the total number of elements.
func (d *Document) Len() int {
	return len(d.Nodes) + len(d.Ways) + len(d.Relations)
}

type xmlTag struct {
	K string `xml:"k,attr"`
	V string `xml:"v,attr"`
}

type xmlNd struct {
	Ref int64 `xml:"ref,attr"`
}

type xmlMember struct {
	Type string `xml:"type,attr"`
	Ref  int64  `xml:"ref,attr"`
	Role string `xml:"role,attr"`
}

type xmlElement struct {
	ID      int64       `xml:"id,attr"`
	Action  string      `xml:"action,attr"`
	Version int32       `xml:"version,attr"`
	Lat     string      `xml:"lat,attr"`
	Lon     string      `xml:"lon,attr"`
	Tags    []xmlTag    `xml:"tag"`
	Nds     []xmlNd     `xml:"nd"`
	Members []xmlMember `xml:"member"`
}

// ReadDocument parses a .osm XML stream. Only full-snapshot documents are
// accepted: an osmChange-style <create>/<modify>/<delete>/<add> grouping
// element anywhere under the root fails with ErrChangeFile before anything
// is uploaded.
func ReadDocument(r io.Reader) (*Document, error) {
	dec := xml.NewDecoder(r)
	doc := &Document{}

	var inRoot bool

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, fmt.Errorf("osmup: parsing input: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		if !inRoot {
			if start.Name.Local != "osm" {
				return nil, fmt.Errorf("%w: root element is <%s>", ErrNotOSMFile, start.Name.Local)
			}

			inRoot = true

			continue
		}

		switch start.Name.Local {
		case "node", "way", "relation":
			el, err := decodeElement(dec, start)
			if err != nil {
				return nil, err
			}

			switch el.Type {
			case model.NODE:
				doc.Nodes = append(doc.Nodes, el)
			case model.WAY:
				doc.Ways = append(doc.Ways, el)
			case model.RELATION:
				doc.Relations = append(doc.Relations, el)
			}
		case "create", "modify", "delete", "add":
			return nil, fmt.Errorf("%w: found <%s> element", ErrChangeFile, start.Name.Local)
		default:
			// bounds and friends
			if err := dec.Skip(); err != nil {
				return nil, fmt.Errorf("osmup: parsing input: %w", err)
			}
		}
	}

	if !inRoot {
		return nil, ErrNotOSMFile
	}

	return doc, nil
}

func decodeElement(dec *xml.Decoder, start xml.StartElement) (*model.Element, error) {
	var raw xmlElement
	if err := dec.DecodeElement(&raw, &start); err != nil {
		return nil, fmt.Errorf("osmup: parsing <%s>: %w", start.Name.Local, err)
	}

	et, err := model.ParseElementType(start.Name.Local)
	if err != nil {
		return nil, err
	}

	action, err := model.ParseAction(raw.Action)
	if err != nil {
		return nil, fmt.Errorf("osmup: %s %d: %w", et, raw.ID, err)
	}

	el := &model.Element{
		Type:    et,
		ID:      model.ID(raw.ID),
		Action:  action,
		Version: raw.Version,
	}

	if len(raw.Tags) > 0 {
		el.Tags = make(map[string]string, len(raw.Tags))
		for _, tag := range raw.Tags {
			el.Tags[tag.K] = tag.V
		}
	}

	switch et {
	case model.NODE:
		// deleted nodes may omit coordinates
		if raw.Lat != "" {
			if el.Lat, err = model.ParseDegrees(raw.Lat); err != nil {
				return nil, fmt.Errorf("osmup: node %d: bad lat %q", raw.ID, raw.Lat)
			}
		}

		if raw.Lon != "" {
			if el.Lon, err = model.ParseDegrees(raw.Lon); err != nil {
				return nil, fmt.Errorf("osmup: node %d: bad lon %q", raw.ID, raw.Lon)
			}
		}
	case model.WAY:
		el.NodeIDs = make([]model.ID, 0, len(raw.Nds))
		for _, nd := range raw.Nds {
			el.NodeIDs = append(el.NodeIDs, model.ID(nd.Ref))
		}
	case model.RELATION:
		el.Members = make([]model.Member, 0, len(raw.Members))
		for _, m := range raw.Members {
			mt, err := model.ParseElementType(m.Type)
			if err != nil {
				return nil, fmt.Errorf("osmup: relation %d: %w", raw.ID, err)
			}

			el.Members = append(el.Members, model.Member{
				Type: mt,
				Ref:  model.ID(m.Ref),
				Role: m.Role,
			})
		}
	}

	return el, nil
}
