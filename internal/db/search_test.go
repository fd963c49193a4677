package db

import (
	"context"
	"testing"
)

func TestBuildFTSQuery_StopwordRemoval(t *testing.T) {
	got := BuildFTSQuery("Add the page to a project for publishing")
	want := `"Add" OR "page" OR "project" OR "publishing"`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBuildFTSQuery_ShortWords(t *testing.T) {
	got := BuildFTSQuery("go do run fast")
	want := `"run" OR "fast"`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBuildFTSQuery_PunctuationTrimming(t *testing.T) {
	got := BuildFTSQuery("install_guide() section, (setup.md)")
	want := `"install_guide" OR "section" OR "setup.md"`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBuildFTSQuery_AllStopwords(t *testing.T) {
	got := BuildFTSQuery("the a an in on at")
	if got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}

func TestBuildFTSQuery_MixedCase(t *testing.T) {
	got := BuildFTSQuery("The AND From THIS guide")
	want := `"guide"`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBuildFTSQuery_Empty(t *testing.T) {
	got := BuildFTSQuery("")
	if got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}

func TestBuildFTSQuery_AccentedWords(t *testing.T) {
	got := BuildFTSQuery("guía rápida")
	want := `"guía" OR "rápida"`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSearchPages(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	insertTestProject(t, d, "proj")
	insertTestProject(t, d, "other")

	install := testPage("p1", "proj", nil, "Install", "install", 0)
	install.IsPublished = true
	draft := testPage("p2", "proj", nil, "Install notes", "install-notes", 1)
	elsewhere := testPage("p3", "other", nil, "Install", "install", 0)
	for _, p := range []*Page{install, draft, elsewhere} {
		if err := d.InsertPage(ctx, p); err != nil {
			t.Fatal(err)
		}
		if err := d.IndexPage(ctx, p.ID, p.Title, "", "run the installer"); err != nil {
			t.Fatal(err)
		}
	}

	got, err := d.SearchPages(ctx, "proj", "install", false, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results in project, got %d", len(got))
	}

	got, err = d.SearchPages(ctx, "proj", "install", true, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].ID != "p1" {
		t.Fatalf("expected only the published page, got %+v", got)
	}

	got, err = d.SearchPages(ctx, "proj", "the a", false, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("stopword-only query should return an empty slice, got %v", got)
	}
}

func TestSearchPages_DeletedPageDropsOut(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	insertTestProject(t, d, "proj")

	p := testPage("p1", "proj", nil, "Deployment", "deployment", 0)
	if err := d.InsertPage(ctx, p); err != nil {
		t.Fatal(err)
	}
	if err := d.IndexPage(ctx, p.ID, p.Title, "", ""); err != nil {
		t.Fatal(err)
	}
	if err := d.DeletePage(ctx, p.ID); err != nil {
		t.Fatal(err)
	}

	got, err := d.SearchPages(ctx, "proj", "deployment", false, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("deleted page still searchable: %+v", got)
	}
}
