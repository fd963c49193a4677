package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"mycelica/folio/internal/apperr"
)

// TypeSubPage marks a block (or element) that links to another page.
const TypeSubPage = "SubPage"

var (
	ErrBlockNotFound  = apperr.New(apperr.CategoryNotFound, "block not found")
	ErrDuplicateBlock = apperr.New(apperr.CategoryConflict, "block id already exists")
	ErrInvalidBlock   = apperr.New(apperr.CategoryValidation, "block id and type are required")
)

// Meta is the editor bookkeeping stored next to every block.
type Meta struct {
	Order int `json:"order"`
	Depth int `json:"depth"`
}

// Block is one top-level entry of a page's content map.
type Block struct {
	ID    string         `json:"id"`
	Type  string         `json:"type"`
	Value []Element      `json:"value,omitempty"`
	Props map[string]any `json:"props,omitempty"`
	Meta  Meta           `json:"meta"`
}

// Location addresses a block or a nested element. An empty Path is the block
// itself; otherwise Path[0] indexes Value and the rest index Children.
type Location struct {
	BlockID string
	Path    []int
}

// Document is a page's block map plus a blockId -> Location index that is
// rebuilt after every mutation.
type Document struct {
	blocks map[string]*Block
	index  map[string]Location
}

// New returns an empty document.
func New() *Document {
	d := &Document{blocks: make(map[string]*Block)}
	d.reindex()
	return d
}

// Parse decodes a stored content map. Empty input and JSON null give an empty document.
func Parse(raw []byte) (*Document, error) {
	d := New()
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return d, nil
	}
	if err := json.Unmarshal(trimmed, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Document) MarshalJSON() ([]byte, error) {
	if d == nil || d.blocks == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(d.blocks)
}

func (d *Document) UnmarshalJSON(data []byte) error {
	var blocks map[string]*Block
	if err := json.Unmarshal(data, &blocks); err != nil {
		return fmt.Errorf("decoding content: %w", err)
	}
	if blocks == nil {
		blocks = make(map[string]*Block)
	}
	for id, b := range blocks {
		if b == nil {
			delete(blocks, id)
			continue
		}
		// The map key is authoritative.
		b.ID = id
	}
	d.blocks = blocks
	d.reindex()
	return nil
}

// Bytes encodes the document for storage.
func (d *Document) Bytes() ([]byte, error) {
	return d.MarshalJSON()
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	raw, err := d.MarshalJSON()
	if err != nil {
		return New()
	}
	c, err := Parse(raw)
	if err != nil {
		return New()
	}
	return c
}

// Len reports the number of top-level blocks.
func (d *Document) Len() int {
	return len(d.blocks)
}

// Block returns a top-level block by id.
func (d *Document) Block(id string) (*Block, bool) {
	b, ok := d.blocks[id]
	return b, ok
}

// Blocks returns the top-level blocks in display order (meta.order, then id).
func (d *Document) Blocks() []*Block {
	out := make([]*Block, 0, len(d.blocks))
	for _, b := range d.blocks {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Meta.Order != out[j].Meta.Order {
			return out[i].Meta.Order < out[j].Meta.Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Lookup finds a block or nested element by id in O(1).
func (d *Document) Lookup(id string) (Location, bool) {
	loc, ok := d.index[id]
	return loc, ok
}

// Props returns the props of the block or element with the given id.
func (d *Document) Props(id string) (map[string]any, error) {
	loc, ok := d.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBlockNotFound, id)
	}
	b := d.blocks[loc.BlockID]
	if len(loc.Path) == 0 {
		return b.Props, nil
	}
	el := elementAt(b, loc.Path)
	if el == nil {
		return nil, fmt.Errorf("%w: %s", ErrBlockNotFound, id)
	}
	return el.Props, nil
}

// MergeProps merges partial into the props of the block or nested element with
// the given id. Sibling blocks and elements are left untouched.
func (d *Document) MergeProps(id string, partial map[string]any) error {
	loc, ok := d.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrBlockNotFound, id)
	}
	b := d.blocks[loc.BlockID]
	if len(loc.Path) == 0 {
		b.Props = mergeProps(b.Props, partial)
	} else {
		el := elementAt(b, loc.Path)
		if el == nil {
			return fmt.Errorf("%w: %s", ErrBlockNotFound, id)
		}
		el.Props = mergeProps(el.Props, partial)
	}
	d.reindex()
	return nil
}

// InsertBlock adds a new top-level block.
func (d *Document) InsertBlock(b *Block) error {
	if b == nil || b.ID == "" || b.Type == "" {
		return ErrInvalidBlock
	}
	if _, exists := d.index[b.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateBlock, b.ID)
	}
	d.blocks[b.ID] = b
	d.reindex()
	return nil
}

// RemoveBlock removes a top-level block, or a nested element from its parent.
func (d *Document) RemoveBlock(id string) error {
	loc, ok := d.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrBlockNotFound, id)
	}
	if len(loc.Path) == 0 {
		delete(d.blocks, loc.BlockID)
		d.reindex()
		return nil
	}

	b := d.blocks[loc.BlockID]
	last := loc.Path[len(loc.Path)-1]
	if len(loc.Path) == 1 {
		b.Value = append(b.Value[:last:last], b.Value[last+1:]...)
	} else {
		parent := elementAt(b, loc.Path[:len(loc.Path)-1])
		if parent == nil {
			return fmt.Errorf("%w: %s", ErrBlockNotFound, id)
		}
		parent.Children = append(parent.Children[:last:last], parent.Children[last+1:]...)
	}
	d.reindex()
	return nil
}

// PlainText concatenates the text leaves of all blocks in display order.
func (d *Document) PlainText() string {
	var parts []string
	for _, b := range d.Blocks() {
		for i := range b.Value {
			b.Value[i].text(&parts)
		}
		if t, ok := b.Props["title"].(string); ok && IsSubPage(b.Type) && t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// reindex rebuilds the id index. Blocks are visited in sorted id order so that
// a duplicated element id always resolves to the same location.
func (d *Document) reindex() {
	idx := make(map[string]Location, len(d.blocks))
	ids := make([]string, 0, len(d.blocks))
	for id := range d.blocks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		idx[id] = Location{BlockID: id}
	}
	for _, id := range ids {
		b := d.blocks[id]
		for i := range b.Value {
			indexElement(idx, id, &b.Value[i], []int{i})
		}
	}
	d.index = idx
}

func indexElement(idx map[string]Location, blockID string, el *Element, path []int) {
	if el.ID != "" {
		if _, taken := idx[el.ID]; !taken {
			p := make([]int, len(path))
			copy(p, path)
			idx[el.ID] = Location{BlockID: blockID, Path: p}
		}
	}
	for i := range el.Children {
		indexElement(idx, blockID, &el.Children[i], append(path, i))
	}
}

func elementAt(b *Block, path []int) *Element {
	if len(path) == 0 || path[0] < 0 || path[0] >= len(b.Value) {
		return nil
	}
	return b.Value[path[0]].at(path[1:])
}

// IsSubPage reports whether a block or element type is a page link.
func IsSubPage(blockType string) bool {
	return blockType == TypeSubPage
}
