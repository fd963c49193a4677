package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSubPageReferences_SortedByOrder(t *testing.T) {
	d := mustParse(t, `{
		"x": {"type": "SubPage", "meta": {"order": 2}, "props": {"pageId": "p2", "title": "Two"}},
		"y": {"type": "SubPage", "meta": {"order": 0}, "props": {"pageId": "p0", "title": "Zero"}},
		"z": {"type": "SubPage", "meta": {"order": 1}, "props": {"pageId": "p1", "title": "One"}},
		"para": {"type": "Paragraph", "meta": {"order": 5}}
	}`)

	refs := d.ExtractSubPageReferences()
	require.Len(t, refs, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{refs[0].Order, refs[1].Order, refs[2].Order})
	assert.Equal(t, "p0", refs[0].PageID)
	assert.Equal(t, "y", refs[0].BlockID)
	assert.Equal(t, "Two", refs[2].Title)
}

func TestExtractSubPageReferences_MissingOrderDefaultsToZero(t *testing.T) {
	d := mustParse(t, `{
		"b": {"type": "SubPage", "meta": {"order": 1}, "props": {"pageId": "p1"}},
		"a": {"type": "SubPage", "props": {"pageId": "p0"}}
	}`)
	refs := d.ExtractSubPageReferences()
	require.Len(t, refs, 2)
	assert.Equal(t, "a", refs[0].BlockID)
	assert.Equal(t, 0, refs[0].Order)
}

func TestExtractSubPageReferences_Empty(t *testing.T) {
	refs := New().ExtractSubPageReferences()
	assert.NotNil(t, refs)
	assert.Empty(t, refs)
}

func TestSubPageProps_FromElement(t *testing.T) {
	d := mustParse(t, `{
		"s": {"type": "SubPage", "value": [
			{"id": "el", "type": "SubPage", "props": {"pageId": "p7", "title": "Nested"}, "children": [{"text": ""}]}
		]}
	}`)
	b, ok := d.Block("s")
	require.True(t, ok)
	pid, title := b.SubPageProps()
	assert.Equal(t, "p7", pid)
	assert.Equal(t, "Nested", title)
}

func TestSubPageProps_Uninitialized(t *testing.T) {
	b := NewSubPageBlock("s", "Draft link", 0)
	pid, title := b.SubPageProps()
	assert.Empty(t, pid)
	assert.Equal(t, "Draft link", title)
}

func TestReferencesTo(t *testing.T) {
	d := mustParse(t, `{
		"a": {"type": "SubPage", "props": {"pageId": "p1"}},
		"b": {"type": "SubPage", "props": {"pageId": "p2"}},
		"c": {"type": "SubPage", "meta": {"order": 3}, "props": {"pageId": "p1"}}
	}`)
	refs := d.ReferencesTo("p1")
	require.Len(t, refs, 2)
	assert.Equal(t, "a", refs[0].BlockID)
	assert.Equal(t, "c", refs[1].BlockID)
}
