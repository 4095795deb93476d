// Package models defines the domain types for zettelnav.
package models

import "github.com/starford/zettelnav/internal/address"

// Note is a note declared by a level one heading of the form `id - title`.
type Note struct {
	ID    string            `json:"id"`
	Title string            `json:"title"`
	Line  int               `json:"line"` // 0-based line of the declaring heading
	Links []address.Address `json:"links"`
}
