package db

import "encoding/json"

// Project represents a row in the projects table
type Project struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description *string `json:"description"`
	IsPublic    bool    `json:"is_public"`
	CreatedBy   *string `json:"created_by"`
	CreatedAt   int64   `json:"created_at"` // Unix millis
	UpdatedAt   int64   `json:"updated_at"` // Unix millis
}

// Page represents a row in the pages table
type Page struct {
	ID             string          `json:"id"`
	ProjectID      string          `json:"project_id"`
	ParentPageID   *string         `json:"parent_page_id"` // nil = root level
	Title          string          `json:"title"`
	Slug           string          `json:"slug"`
	OrderIndex     int             `json:"order_index"`
	Content        json.RawMessage `json:"content"` // block map JSON, nil when unset
	ContentVersion int64           `json:"content_version"`
	IsPublished    bool            `json:"is_published"`
	Icon           *string         `json:"icon"`
	Description    *string         `json:"description"`
	CreatedBy      *string         `json:"created_by"`
	UpdatedBy      *string         `json:"updated_by"`
	CreatedAt      int64           `json:"created_at"` // Unix millis
	UpdatedAt      int64           `json:"updated_at"` // Unix millis
}

// PageVersion is a snapshot of a page's content taken before it was overwritten
type PageVersion struct {
	ID        string          `json:"id"`
	PageID    string          `json:"page_id"`
	Version   int             `json:"version"`
	Title     string          `json:"title"`
	Content   json.RawMessage `json:"content"`
	CreatedBy *string         `json:"created_by"`
	CreatedAt int64           `json:"created_at"` // Unix millis
}

// SameParent reports whether two nullable parent ids denote the same sibling group.
func SameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
