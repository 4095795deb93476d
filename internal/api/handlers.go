package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starford/zettelnav/internal/apperr"
	"github.com/starford/zettelnav/internal/noteservice"
)

// maxBody caps request bodies carrying corpus content.
const maxBody = 10 << 20

// suggestions is how many similar ids accompany a missing_note error.
const suggestions = 3

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

func decodeContent(w http.ResponseWriter, r *http.Request) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	var req ContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return "", false
	}
	return req.Content, true
}

// UpdateContent handles PUT /api/content.
//
//	@Summary		Rebuild the index from the given content
//	@Tags			index
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ContentRequest	true	"Full corpus text"
//	@Success		200		{object}	RebuildResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/content [put]
func (h *Handler) UpdateContent(w http.ResponseWriter, r *http.Request) {
	content, ok := decodeContent(w, r)
	if !ok {
		return
	}
	res, err := h.svc.Rebuild(r.Context(), content)
	if err != nil {
		writeError(w, "rebuild", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetCorpus handles GET /api/corpus.
//
//	@Summary		Read the corpus file
//	@Tags			index
//	@Produce		plain
//	@Success		200	{string}	string
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/corpus [get]
func (h *Handler) GetCorpus(w http.ResponseWriter, r *http.Request) {
	data, sum, err := h.svc.Corpus(r.Context())
	if err != nil {
		writeError(w, "read corpus", err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("ETag", strconv.Quote(sum))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// SaveCorpus handles PUT /api/corpus.
//
//	@Summary		Write the corpus file with optimistic concurrency and rebuild
//	@Tags			index
//	@Accept			json
//	@Produce		json
//	@Param			If-Match	header	string			false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body	ContentRequest	true	"Full corpus text"
//	@Success		200		{object}	RebuildResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/corpus [put]
func (h *Handler) SaveCorpus(w http.ResponseWriter, r *http.Request) {
	content, ok := decodeContent(w, r)
	if !ok {
		return
	}
	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	res, err := h.svc.SaveCorpus(r.Context(), []byte(content), ifMatch)
	if err != nil {
		writeError(w, "save corpus", err)
		return
	}
	w.Header().Set("ETag", strconv.Quote(res.Checksum))
	writeJSON(w, http.StatusOK, res)
}

// Jump handles POST /api/jump.
//
//	@Summary		Resolve a cursor position to a navigation target
//	@Tags			navigation
//	@Accept			json
//	@Produce		json
//	@Param			body	body		JumpRequest	true	"Mode and cursor"
//	@Success		200		{object}	JumpResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/jump [post]
func (h *Handler) Jump(w http.ResponseWriter, r *http.Request) {
	var req JumpRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	target, err := h.svc.Jump(r.Context(), req)
	if err != nil {
		var me *apperr.MissingNoteError
		if errors.As(err, &me) {
			writeJSON(w, http.StatusNotFound, errResponse{
				Error:       err.Error(),
				Kind:        apperr.Kind(err),
				Suggestions: h.svc.Suggest(me.ID, suggestions),
			})
			return
		}
		writeError(w, "jump", err)
		return
	}
	writeJSON(w, http.StatusOK, JumpResponse{Target: target})
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes in declaration order
//	@Tags			notes
//	@Produce		json
//	@Success		200	{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	notes := h.svc.ListNotes(r.Context())
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: len(notes)})
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a single note by id
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	NoteDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	note, err := h.svc.GetNote(r.Context(), id)
	if err != nil {
		writeError(w, "get note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// Backlinks handles GET /api/backlinks.
//
//	@Summary		List notes linking to an address
//	@Tags			notes
//	@Produce		json
//	@Param			address	query		string	true	"Link address, e.g. @asdf or file.md@asdf"
//	@Success		200		{object}	BacklinksResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/backlinks [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("address")
	bl, err := h.svc.Backlinks(r.Context(), raw)
	if err != nil {
		writeError(w, "backlinks", err)
		return
	}
	writeJSON(w, http.StatusOK, BacklinksResponse{Address: raw, Backlinks: bl})
}

// Search handles GET /api/search.
//
//	@Summary		Search note ids and titles
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Graph handles GET /api/graph.
//
//	@Summary		Get the note graph
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	GraphResponse
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	nodes, links, err := h.svc.Graph(r.Context())
	if err != nil {
		writeError(w, "graph", err)
		return
	}
	writeJSON(w, http.StatusOK, GraphResponse{Nodes: nodes, Links: links})
}
