package tree

import (
	"fmt"
	"math/rand"
	"testing"

	"mycelica/folio/internal/db"
)

func strPtr(s string) *string { return &s }

func page(id string, parent *string, slug string) db.Page {
	return db.Page{ID: id, ProjectID: "p", ParentPageID: parent, Title: "Page " + id, Slug: slug}
}

func TestPathOf(t *testing.T) {
	tests := []struct {
		slugs []string
		want  string
	}{
		{[]string{"a"}, "/a"},
		{[]string{"a", "b", "c"}, "/a/b/c"},
	}
	for _, tt := range tests {
		if got := PathOf(tt.slugs...); got != tt.want {
			t.Errorf("PathOf(%v) = %q, want %q", tt.slugs, got, tt.want)
		}
	}
}

func TestBuild_LevelsAndPaths(t *testing.T) {
	f := Build([]db.Page{
		page("a", nil, "a"),
		page("b", strPtr("a"), "b"),
		page("c", strPtr("b"), "c"),
		page("d", nil, "d"),
	})
	if len(f.Roots) != 2 || f.Roots[0].ID != "a" || f.Roots[1].ID != "d" {
		t.Fatalf("roots should keep input order, got %v", ids(f.Roots))
	}
	c := f.Find("c")
	if c == nil {
		t.Fatal("c not found")
	}
	if c.Path != "/a/b/c" || c.Level != 2 {
		t.Errorf("c: path=%q level=%d, want /a/b/c level 2", c.Path, c.Level)
	}
	if len(f.Orphans) != 0 {
		t.Errorf("expected no orphans, got %v", ids(f.Orphans))
	}
}

func TestBuild_ChildOrderFollowsInput(t *testing.T) {
	f := Build([]db.Page{
		page("root", nil, "root"),
		page("second", strPtr("root"), "second"),
		page("first", strPtr("root"), "first"),
	})
	got := ids(f.Roots[0].Children)
	if fmt.Sprint(got) != "[second first]" {
		t.Errorf("children = %v", got)
	}
}

func TestBuild_OrphansKeptApart(t *testing.T) {
	f := Build([]db.Page{
		page("a", nil, "a"),
		page("lost", strPtr("deleted-parent"), "lost"),
		page("under-lost", strPtr("lost"), "under"),
	})
	if len(f.Roots) != 1 {
		t.Fatalf("roots = %v, want [a]", ids(f.Roots))
	}
	if len(f.Orphans) != 1 || f.Orphans[0].ID != "lost" {
		t.Fatalf("orphans = %v, want [lost]", ids(f.Orphans))
	}
	lost := f.Orphans[0]
	if lost.Level != 0 || lost.Path != "/lost" {
		t.Errorf("orphan: level=%d path=%q", lost.Level, lost.Path)
	}
	if n := f.Find("under-lost"); n == nil || n.Path != "/lost/under" || n.Level != 1 {
		t.Errorf("orphan child not built under its orphan: %+v", n)
	}
}

func TestBuild_ParentCycleDoesNotLoop(t *testing.T) {
	f := Build([]db.Page{
		page("root", nil, "root"),
		page("x", strPtr("y"), "x"),
		page("y", strPtr("x"), "y"),
		page("self", strPtr("self"), "self"),
	})
	all := f.All()
	if len(all) != 4 {
		t.Fatalf("every page appears exactly once, got %v", ids(all))
	}
	if len(f.Orphans) != 2 {
		t.Fatalf("orphans = %v, want the cut cycle and the self loop", ids(f.Orphans))
	}
	y := f.Find("y")
	if y == nil || y.Level != 1 || y.Path != "/x/y" {
		t.Errorf("y should hang below the cut point x: %+v", y)
	}
}

func TestBuild_ContentChildren(t *testing.T) {
	p := page("a", nil, "a")
	p.Content = []byte(`{
		"s2":{"type":"SubPage","props":{"pageId":"z","title":"Z"},"meta":{"order":2,"depth":0}},
		"s0":{"type":"SubPage","props":{"pageId":"x","title":"X"},"meta":{"order":0,"depth":0}},
		"p":{"type":"Paragraph","meta":{"order":1,"depth":0}}
	}`)
	f := Build([]db.Page{p})
	refs := f.Roots[0].ContentChildren
	if len(refs) != 2 || refs[0].PageID != "x" || refs[1].PageID != "z" {
		t.Errorf("content children = %+v", refs)
	}
}

// Round trip: any valid forest flattens back to the same ids, parents and levels.
func TestBuild_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 25; trial++ {
		var pages []db.Page
		for i := 0; i < 40; i++ {
			id := fmt.Sprintf("n%d", i)
			var parent *string
			if i > 0 && rng.Intn(4) != 0 {
				parent = strPtr(fmt.Sprintf("n%d", rng.Intn(i)))
			}
			pages = append(pages, page(id, parent, id))
		}
		byID := map[string]db.Page{}
		for _, p := range pages {
			byID[p.ID] = p
		}

		f := Build(pages)
		flat := Flatten(f.Roots)
		if len(flat) != len(pages) || len(f.Orphans) != 0 {
			t.Fatalf("trial %d: %d nodes, %d orphans, want %d nodes", trial, len(flat), len(f.Orphans), len(pages))
		}
		for _, n := range flat {
			src := byID[n.ID]
			if !db.SameParent(n.ParentPageID, src.ParentPageID) {
				t.Fatalf("trial %d: parent of %s changed", trial, n.ID)
			}
			chain := 0
			for p := src.ParentPageID; p != nil; p = byID[*p].ParentPageID {
				chain++
			}
			if n.Level != chain {
				t.Fatalf("trial %d: %s level %d, ancestor chain %d", trial, n.ID, n.Level, chain)
			}
			for _, c := range n.Children {
				if *c.ParentPageID != n.ID {
					t.Fatalf("trial %d: %s listed under %s", trial, c.ID, n.ID)
				}
			}
		}
	}
}

func TestFilterPublished_HidesSubtrees(t *testing.T) {
	pub := func(p db.Page) db.Page { p.IsPublished = true; return p }
	f := Build([]db.Page{
		pub(page("a", nil, "a")),
		page("draft", strPtr("a"), "draft"),
		pub(page("under-draft", strPtr("draft"), "u")),
		pub(page("b", strPtr("a"), "b")),
	})
	public := f.Published()
	got := ids(public.All())
	if fmt.Sprint(got) != "[a b]" {
		t.Errorf("published view = %v, want [a b]", got)
	}
	if len(f.Roots[0].Children) != 2 {
		t.Error("filtering must not modify the source forest")
	}
}

func ids(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}
