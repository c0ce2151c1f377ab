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

// Package model contains the shared model for OpenStreetMap edit elements.
package model

import (
	"fmt"
)

// ID is the identifier of an element. Elements not yet accepted by the
// server carry placeholder ids, valid only within one input file; the
// server assigns the permanent id on acceptance.
type ID int64

// ElementType is an enumeration of OSM element types.
type ElementType int32

const (
	// NODE denotes a node element.
	NODE ElementType = iota

	// WAY denotes a way element.
	WAY

	// RELATION denotes a relation element.
	RELATION
)

// ElementTypes lists all element types in upload order: nodes and ways
// carry no same-type references, relations may.
var ElementTypes = []ElementType{NODE, WAY, RELATION}

func (t ElementType) String() string {
	switch t {
	case NODE:
		return "node"
	case WAY:
		return "way"
	case RELATION:
		return "relation"
	default:
		return fmt.Sprintf("ElementType(%d)", int32(t))
	}
}

// ParseElementType converts the XML name of an element type into an
// ElementType.
func ParseElementType(s string) (ElementType, error) {
	switch s {
	case "node":
		return NODE, nil
	case "way":
		return WAY, nil
	case "relation":
		return RELATION, nil
	default:
		return 0, fmt.Errorf("unknown element type %q", s)
	}
}

// Action is the edit action an element requests of the server.
type Action int32

const (
	// CREATE requests creation; the server assigns a permanent id.
	CREATE Action = iota

	// MODIFY requests an update of an existing element.
	MODIFY

	// DELETE requests deletion of an existing element.
	DELETE
)

func (a Action) String() string {
	switch a {
	case CREATE:
		return "create"
	case MODIFY:
		return "modify"
	case DELETE:
		return "delete"
	default:
		return fmt.Sprintf("Action(%d)", int32(a))
	}
}

// ParseAction converts the JOSM-style action attribute into an Action.
// Elements without an action attribute are creates.
func ParseAction(s string) (Action, error) {
	switch s {
	case "", "create":
		return CREATE, nil
	case "modify":
		return MODIFY, nil
	case "delete":
		return DELETE, nil
	default:
		return 0, fmt.Errorf("unknown action %q", s)
	}
}

// Member represents a reference from a relation to another element.
type Member struct {
	Type ElementType
	Ref  ID
	Role string
}

// Element is one typed edit unit: a node, way, or relation together with
// the action requested for it. Ways reference nodes through NodeIDs,
// relations reference arbitrary elements through Members; both kinds of
// reference are rewritten in place as permanent ids become known.
type Element struct {
	Type      ElementType
	ID        ID
	Action    Action
	Version   int32
	Changeset int64
	Tags      map[string]string
	Lat       Degrees
	Lon       Degrees
	NodeIDs   []ID
	Members   []Member
}
