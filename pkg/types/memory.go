package types

import "time"

// Memory is a shared free-text note in the coordination store. Memories are
// deliberately unstructured: content plus an optional tag, searched by
// case-insensitive substring match.
type Memory struct {
	// ID is the auto-incrementing memory identifier.
	ID int64 `json:"id"`

	// Content is the remembered text.
	Content string `json:"content"`

	// Tag is an optional free-text category.
	Tag string `json:"tag,omitempty"`

	// CreatedAt is when the memory was stored.
	CreatedAt time.Time `json:"created_at"`
}
