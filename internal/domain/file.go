package domain

import (
	"time"
)

// FileInfo описывает один объект хранилища в ответах листинга и поиска
type FileInfo struct {
	Key          string    `json:"key"`
	Filename     string    `json:"filename"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
	ETag         string    `json:"etag,omitempty"`
}

// ListingPage представляет одну страницу листинга каталога
type ListingPage struct {
	Prefix    string     `json:"prefix"`
	Folders   []string   `json:"folders"`
	Files     []FileInfo `json:"files"`
	Truncated bool       `json:"truncated"`
	Cursor    string     `json:"cursor,omitempty"`
}

// SearchResult представляет одну страницу рекурсивного поиска по подстроке
type SearchResult struct {
	Prefix    string     `json:"prefix"`
	Query     string     `json:"q"`
	Files     []FileInfo `json:"files"`
	Truncated bool       `json:"truncated"`
	Cursor    string     `json:"cursor,omitempty"`
}
