package db

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "in": true, "on": true,
	"at": true, "to": true, "for": true, "of": true, "is": true,
	"it": true, "and": true, "or": true, "with": true, "from": true,
	"by": true, "this": true, "that": true, "as": true, "be": true,
}

// BuildFTSQuery preprocesses a natural language query for FTS5.
// Splits on whitespace, removes stopwords and words < 3 chars, trims punctuation,
// quotes each term and joins with " OR ".
func BuildFTSQuery(query string) string {
	words := strings.Fields(query)
	var filtered []string
	for _, w := range words {
		// Trim non-letter/digit chars from both ends
		trimmed := strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
		})
		if len([]rune(trimmed)) < 3 {
			continue
		}
		if stopwords[strings.ToLower(trimmed)] {
			continue
		}
		filtered = append(filtered, `"`+strings.ReplaceAll(trimmed, `"`, `""`)+`"`)
	}
	return strings.Join(filtered, " OR ")
}

// IndexPage replaces the search entry of a page.
func (d *DB) IndexPage(ctx context.Context, pageID, title, description, body string) error {
	if _, err := d.q.ExecContext(ctx, `DELETE FROM pages_fts WHERE page_id = ?`, pageID); err != nil {
		return fmt.Errorf("unindexing page %s: %w", pageID, err)
	}
	_, err := d.q.ExecContext(ctx,
		`INSERT INTO pages_fts (page_id, title, description, body) VALUES (?, ?, ?, ?)`,
		pageID, title, description, body,
	)
	if err != nil {
		return fmt.Errorf("indexing page %s: %w", pageID, err)
	}
	return nil
}

// SearchPages performs FTS5 search within a project and returns matching pages
// ranked by relevance. Returns an empty slice when the preprocessed query is empty.
func (d *DB) SearchPages(ctx context.Context, projectID, query string, publishedOnly bool, limit int) ([]Page, error) {
	ftsQuery := BuildFTSQuery(query)
	if ftsQuery == "" {
		return []Page{}, nil
	}
	if limit <= 0 {
		limit = 50
	}

	published := ""
	if publishedOnly {
		published = " AND p.is_published = 1"
	}

	rows, err := d.q.QueryContext(ctx, `
		SELECT p.id, p.project_id, p.parent_page_id, p.title, p.slug, p.order_index,
		       p.content, p.content_version, p.is_published, p.icon, p.description,
		       p.created_by, p.updated_by, p.created_at, p.updated_at
		FROM pages_fts fts
		JOIN pages p ON p.id = fts.page_id
		WHERE pages_fts MATCH ? AND p.project_id = ?`+published+`
		ORDER BY rank
		LIMIT ?
	`, ftsQuery, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("searching pages: %w", err)
	}
	pages, err := collectPages(rows)
	if err != nil {
		return nil, err
	}
	if pages == nil {
		pages = []Page{}
	}
	return pages, nil
}
