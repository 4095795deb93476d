package api

import (
	"github.com/starford/zettelnav/internal/catalog"
	"github.com/starford/zettelnav/internal/models"
	"github.com/starford/zettelnav/internal/noteservice"
)

// ContentRequest is the request body for replacing the indexed content.
type ContentRequest struct {
	Content string `json:"content" example:"# asdf - First note\n" validate:"required"`
}

// RebuildResponse is returned after a successful rebuild.
type RebuildResponse = noteservice.RebuildResult

// JumpRequest is the cursor payload of POST /api/jump.
type JumpRequest = models.JumpRequest

// JumpResponse carries the resolved target. An empty object means no link
// was under the cursor.
type JumpResponse struct {
	Target models.Target `json:"target" validate:"required"`
}

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []models.Note `json:"notes" validate:"required"`
	Total int           `json:"total" example:"42" validate:"required"`
}

// BacklinksResponse lists the notes linking to an address.
type BacklinksResponse struct {
	Address   string   `json:"address" example:"@asdf" validate:"required"`
	Backlinks []string `json:"backlinks" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []catalog.SearchResult `json:"results" validate:"required"`
}

// GraphResponse wraps the note graph.
type GraphResponse struct {
	Nodes []catalog.GraphNode `json:"nodes" validate:"required"`
	Links []catalog.GraphEdge `json:"links" validate:"required"`
}
