package tree

import (
	"strings"

	"mycelica/folio/internal/content"
	"mycelica/folio/internal/db"
)

// Node is a read-only view of a page with its computed position in the
// hierarchy. Nodes are rebuilt on every read and never persisted.
type Node struct {
	db.Page
	Level           int                        `json:"level"`
	Path            string                     `json:"path"`
	Children        []*Node                    `json:"children"`
	ContentChildren []content.SubPageReference `json:"content_children,omitempty"`
}

// Forest is the result of Build. Orphans are pages whose parent is not part
// of the input (deleted, or in another project) or whose parent chain loops.
// They are built like roots, with level 0, but kept apart from Roots.
type Forest struct {
	Roots   []*Node `json:"roots"`
	Orphans []*Node `json:"orphans"`
}

// PathOf joins slugs from the root down into "/a/b/c".
func PathOf(slugs ...string) string {
	return "/" + strings.Join(slugs, "/")
}

// Build links a flat page list into a forest. Root and child order follow the
// input order, so callers pre-sort by order_index.
func Build(pages []db.Page) *Forest {
	nodes := make(map[string]*Node, len(pages))
	order := make([]*Node, 0, len(pages))
	for _, p := range pages {
		if _, dup := nodes[p.ID]; dup {
			continue
		}
		n := &Node{Page: p, Children: []*Node{}}
		n.ContentChildren = contentChildren(p.Content)
		nodes[p.ID] = n
		order = append(order, n)
	}

	f := &Forest{Roots: []*Node{}, Orphans: []*Node{}}
	for _, n := range order {
		switch {
		case n.ParentPageID == nil:
			f.Roots = append(f.Roots, n)
		case nodes[*n.ParentPageID] != nil && *n.ParentPageID != n.ID:
			parent := nodes[*n.ParentPageID]
			parent.Children = append(parent.Children, n)
		default:
			f.Orphans = append(f.Orphans, n)
		}
	}

	visited := make(map[string]bool, len(order))
	for _, r := range f.Roots {
		assign(r, 0, "", visited)
	}
	for _, o := range f.Orphans {
		assign(o, 0, "", visited)
	}

	// Whatever is still unvisited hangs off a parent cycle. Cut the cycle at
	// the first such node in input order and report it as an orphan.
	for _, n := range order {
		if visited[n.ID] {
			continue
		}
		if parent := nodes[*n.ParentPageID]; parent != nil {
			parent.Children = removeChild(parent.Children, n.ID)
		}
		f.Orphans = append(f.Orphans, n)
		assign(n, 0, "", visited)
	}
	return f
}

func assign(n *Node, level int, parentPath string, visited map[string]bool) {
	if visited[n.ID] {
		return
	}
	visited[n.ID] = true
	n.Level = level
	n.Path = parentPath + "/" + n.Slug
	for _, c := range n.Children {
		assign(c, level+1, n.Path, visited)
	}
}

func removeChild(children []*Node, id string) []*Node {
	out := children[:0]
	for _, c := range children {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}

func contentChildren(raw []byte) []content.SubPageReference {
	if len(raw) == 0 {
		return nil
	}
	doc, err := content.Parse(raw)
	if err != nil {
		return nil
	}
	refs := doc.ExtractSubPageReferences()
	if len(refs) == 0 {
		return nil
	}
	return refs
}

// Flatten lists nodes in pre-order.
func Flatten(nodes []*Node) []*Node {
	var out []*Node
	var walk func([]*Node)
	walk = func(ns []*Node) {
		for _, n := range ns {
			out = append(out, n)
			walk(n.Children)
		}
	}
	walk(nodes)
	return out
}

// All lists every node of the forest, roots first, then orphans.
func (f *Forest) All() []*Node {
	return append(Flatten(f.Roots), Flatten(f.Orphans)...)
}

// Find returns the node with the given id, or nil.
func Find(nodes []*Node, id string) *Node {
	for _, n := range nodes {
		if n.ID == id {
			return n
		}
		if found := Find(n.Children, id); found != nil {
			return found
		}
	}
	return nil
}

// Find searches roots, then orphans.
func (f *Forest) Find(id string) *Node {
	if n := Find(f.Roots, id); n != nil {
		return n
	}
	return Find(f.Orphans, id)
}

// FilterPublished returns copies of nodes without unpublished pages. An
// unpublished page hides its whole subtree.
func FilterPublished(nodes []*Node) []*Node {
	out := []*Node{}
	for _, n := range nodes {
		if !n.IsPublished {
			continue
		}
		c := *n
		c.Children = FilterPublished(n.Children)
		out = append(out, &c)
	}
	return out
}

// Published is the public view of the forest.
func (f *Forest) Published() *Forest {
	return &Forest{
		Roots:   FilterPublished(f.Roots),
		Orphans: FilterPublished(f.Orphans),
	}
}
