package slug

import "testing"

func TestGenerate(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"accents and punctuation", "Título Con Ñ y Acentos!", "titulo-con-n-y-acentos"},
		{"plain", "Getting Started", "getting-started"},
		{"collapses whitespace", "  many   spaces\there  ", "many-spaces-here"},
		{"collapses hyphens", "a -- b---c", "a-b-c"},
		{"trims hyphens", "-leading and trailing-", "leading-and-trailing"},
		{"digits kept", "Version 2.0 Release", "version-20-release"},
		{"german", "Über Größe", "uber-groe"},
		{"empty", "", ""},
		{"all symbols", "!!! ??? ***", ""},
		{"non latin dropped", "日本語", ""},
		{"already a slug", "install", "install"},
		{"no-break space", "foo\u00a0bar", "foo-bar"},
		{"ideographic space", "Guide\u3000Two", "guide-two"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Generate(tt.title); got != tt.want {
				t.Errorf("Generate(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	in := "Título Con Ñ y Acentos!"
	first := Generate(in)
	for i := 0; i < 10; i++ {
		if got := Generate(in); got != first {
			t.Fatalf("run %d: got %q, want %q", i, got, first)
		}
	}
}

func TestCandidate(t *testing.T) {
	if got := Candidate("foo", 0); got != "foo" {
		t.Errorf("attempt 0: got %q", got)
	}
	if got := Candidate("foo", 1); got != "foo-1" {
		t.Errorf("attempt 1: got %q", got)
	}
	if got := Candidate("foo", 12); got != "foo-12" {
		t.Errorf("attempt 12: got %q", got)
	}
}
