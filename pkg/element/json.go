package element

import (
	"fmt"

	"github.com/ajitpratap0/graphkv/pkg/json"
)

type wireElement struct {
	Class       string      `json:"class"`
	Group       string      `json:"group"`
	Vertex      interface{} `json:"vertex,omitempty"`
	Source      interface{} `json:"source,omitempty"`
	Destination interface{} `json:"destination,omitempty"`
	Directed    *bool       `json:"directed,omitempty"`
	Properties  Properties  `json:"properties,omitempty"`
}

// MarshalJSON encodes e in the wire form used by the CLI:
//
//	{"class":"edge","group":"knows","source":"alice","destination":"bob","directed":true,"properties":{...}}
func (e *Element) MarshalJSON() ([]byte, error) {
	w := wireElement{
		Class:      e.Kind.String(),
		Group:      e.Group,
		Properties: e.Properties,
	}
	switch e.Kind {
	case KindEntity:
		w.Vertex = e.Vertex
	case KindEdge:
		directed := e.Directed
		w.Source = e.Source
		w.Destination = e.Destination
		w.Directed = &directed
	default:
		return nil, fmt.Errorf("cannot marshal element of %s", e.Kind)
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the wire form. Numbers stay json.Number until a
// schema coerces them.
func (e *Element) UnmarshalJSON(data []byte) error {
	var w wireElement
	if err := json.UnmarshalUseNumber(data, &w); err != nil {
		return err
	}
	kind, err := ParseKind(w.Class)
	if err != nil {
		return err
	}
	if w.Group == "" {
		return fmt.Errorf("%s without group", kind)
	}
	*e = Element{Kind: kind, Group: w.Group, Properties: w.Properties}
	if e.Properties == nil {
		e.Properties = Properties{}
	}
	switch kind {
	case KindEntity:
		if w.Vertex == nil {
			return fmt.Errorf("entity of group %q without vertex", w.Group)
		}
		e.Vertex = w.Vertex
	case KindEdge:
		if w.Source == nil || w.Destination == nil {
			return fmt.Errorf("edge of group %q needs source and destination", w.Group)
		}
		e.Source = w.Source
		e.Destination = w.Destination
		e.Directed = w.Directed != nil && *w.Directed
	}
	return nil
}

// UnmarshalElements decodes a JSON array of elements.
func UnmarshalElements(data []byte) ([]*Element, error) {
	var out []*Element
	if err := json.UnmarshalUseNumber(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
