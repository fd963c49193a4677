package content

import (
	"encoding/json"
	"fmt"
)

// Element is one node inside a block's value tree. Elements with an ID and Type
// are addressable; text leaves carry Text and formatting marks in Extra.
type Element struct {
	ID       string
	Type     string
	Props    map[string]any
	Children []Element
	Text     *string
	// Extra keeps keys this package does not interpret (marks, editor state)
	// so a load/save cycle never drops them.
	Extra map[string]json.RawMessage
}

var elementKeys = []string{"id", "type", "props", "children", "text"}

func (e Element) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Extra)+5)
	for k, v := range e.Extra {
		out[k] = v
	}
	if e.ID != "" {
		out["id"] = e.ID
	}
	if e.Type != "" {
		out["type"] = e.Type
	}
	if e.Props != nil {
		out["props"] = e.Props
	}
	if e.Children != nil {
		out["children"] = e.Children
	}
	if e.Text != nil {
		out["text"] = *e.Text
	}
	return json.Marshal(out)
}

func (e *Element) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding element: %w", err)
	}
	*e = Element{}
	if v, ok := raw["id"]; ok {
		if err := json.Unmarshal(v, &e.ID); err != nil {
			return fmt.Errorf("decoding element id: %w", err)
		}
	}
	if v, ok := raw["type"]; ok {
		if err := json.Unmarshal(v, &e.Type); err != nil {
			return fmt.Errorf("decoding element type: %w", err)
		}
	}
	if v, ok := raw["props"]; ok && string(v) != "null" {
		if err := json.Unmarshal(v, &e.Props); err != nil {
			return fmt.Errorf("decoding element props: %w", err)
		}
	}
	if v, ok := raw["children"]; ok && string(v) != "null" {
		if err := json.Unmarshal(v, &e.Children); err != nil {
			return fmt.Errorf("decoding element children: %w", err)
		}
	}
	if v, ok := raw["text"]; ok && string(v) != "null" {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return fmt.Errorf("decoding element text: %w", err)
		}
		e.Text = &s
	}
	for _, k := range elementKeys {
		delete(raw, k)
	}
	if len(raw) > 0 {
		e.Extra = raw
	}
	return nil
}

// at follows path (child indices) below e.
func (e *Element) at(path []int) *Element {
	cur := e
	for _, i := range path {
		if i < 0 || i >= len(cur.Children) {
			return nil
		}
		cur = &cur.Children[i]
	}
	return cur
}

func (e *Element) text(buf *[]string) {
	if e.Text != nil && *e.Text != "" {
		*buf = append(*buf, *e.Text)
	}
	for i := range e.Children {
		e.Children[i].text(buf)
	}
}

func mergeProps(dst map[string]any, partial map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(partial))
	}
	for k, v := range partial {
		dst[k] = v
	}
	return dst
}
