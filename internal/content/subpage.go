package content

import "sort"

// Props keys understood on sub-page blocks.
const (
	PropPageID = "pageId"
	PropTitle  = "title"
)

// SubPageReference is a page link found inside a page's content.
type SubPageReference struct {
	BlockID string `json:"block_id"`
	PageID  string `json:"page_id,omitempty"`
	Title   string `json:"title,omitempty"`
	Order   int    `json:"order"`
}

// NewSubPageBlock builds an uninitialized sub-page block: no pageId yet.
func NewSubPageBlock(id, title string, order int) *Block {
	props := map[string]any{}
	if title != "" {
		props[PropTitle] = title
	}
	return &Block{
		ID:    id,
		Type:  TypeSubPage,
		Props: props,
		Meta:  Meta{Order: order},
	}
}

// SubPageProps returns the linked page id and cached title of a sub-page block.
// Block-level props win; otherwise the first sub-page element carrying a
// pageId is used.
func (b *Block) SubPageProps() (pageID, title string) {
	pageID, _ = b.Props[PropPageID].(string)
	title, _ = b.Props[PropTitle].(string)
	if pageID != "" {
		return pageID, title
	}
	for i := range b.Value {
		if el := findSubPageElement(&b.Value[i]); el != nil {
			pid, _ := el.Props[PropPageID].(string)
			t, _ := el.Props[PropTitle].(string)
			if title == "" {
				title = t
			}
			return pid, title
		}
	}
	return "", title
}

func findSubPageElement(el *Element) *Element {
	if IsSubPage(el.Type) {
		if pid, _ := el.Props[PropPageID].(string); pid != "" {
			return el
		}
	}
	for i := range el.Children {
		if found := findSubPageElement(&el.Children[i]); found != nil {
			return found
		}
	}
	return nil
}

// ExtractSubPageReferences returns every sub-page block in the document,
// sorted by meta.order (missing order counts as 0), then block id.
func (d *Document) ExtractSubPageReferences() []SubPageReference {
	refs := []SubPageReference{}
	for id, b := range d.blocks {
		if !IsSubPage(b.Type) {
			continue
		}
		pageID, title := b.SubPageProps()
		refs = append(refs, SubPageReference{
			BlockID: id,
			PageID:  pageID,
			Title:   title,
			Order:   b.Meta.Order,
		})
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Order != refs[j].Order {
			return refs[i].Order < refs[j].Order
		}
		return refs[i].BlockID < refs[j].BlockID
	})
	return refs
}

// ReferencesTo lists the sub-page blocks linking to pageID.
func (d *Document) ReferencesTo(pageID string) []SubPageReference {
	var out []SubPageReference
	for _, r := range d.ExtractSubPageReferences() {
		if r.PageID == pageID {
			out = append(out, r)
		}
	}
	return out
}
