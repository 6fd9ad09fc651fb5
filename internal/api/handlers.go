package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/holocron/internal/catalog"
	"github.com/starford/holocron/internal/checksum"
	"github.com/starford/holocron/internal/models"
	"github.com/starford/holocron/internal/session"
	"github.com/starford/holocron/internal/validate"
)

// Handler holds API route handlers.
type Handler struct {
	catalog    *catalog.Service
	sessions   *session.Registry
	controller func() *session.Controller
}

// NewHandler creates a new Handler. newController builds the throwaway
// controllers used by the one-shot edit and reset endpoints; it must share
// its lock registry with the session registry's controllers.
func NewHandler(cat *catalog.Service, sessions *session.Registry, newController func() *session.Controller) *Handler {
	return &Handler{catalog: cat, sessions: sessions, controller: newController}
}

func characterID(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "id"))
}

// ListCharacters handles GET /api/characters.
//
//	@Summary		List or search characters with local edits applied
//	@Tags			characters
//	@Produce		json
//	@Param			page	query		int		false	"Page number, 1-based"
//	@Param			search	query		string	false	"Name search; takes precedence over page"
//	@Success		200		{object}	models.EffectivePage
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/characters [get]
func (h *Handler) ListCharacters(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		page models.EffectivePage
		err  error
	)
	if q.Has("search") {
		page, err = h.catalog.Search(r.Context(), q.Get("search"))
	} else {
		n, _ := strconv.Atoi(q.Get("page"))
		page, err = h.catalog.List(r.Context(), n)
	}
	if err != nil {
		writeError(w, "list characters", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GetCharacter handles GET /api/characters/{id}.
//
//	@Summary		Get one character with local edits applied
//	@Tags			characters
//	@Produce		json
//	@Param			id	path		string	true	"Character id"
//	@Param			If-None-Match	header	string	false	"ETag from a previous response"
//	@Success		200	{object}	models.EffectiveRecord
//	@Success		304
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/characters/{id} [get]
func (h *Handler) GetCharacter(w http.ResponseWriter, r *http.Request) {
	rec, err := h.catalog.Get(r.Context(), characterID(r))
	if err != nil {
		writeError(w, "get character", err)
		return
	}
	if etag, err := checksum.ETag(rec); err == nil {
		w.Header().Set("ETag", etag)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	writeJSON(w, http.StatusOK, rec)
}

// EditCharacter handles PUT /api/characters/{id}.
//
//	@Summary		Apply field edits and save the resulting patch
//	@Tags			characters
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Character id"
//	@Param			body	body		EditRequest	true	"Field values"
//	@Success		200		{object}	models.EffectiveRecord
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/characters/{id} [put]
func (h *Handler) EditCharacter(w http.ResponseWriter, r *http.Request) {
	var req EditRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Fields) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("fields are required"))
		return
	}
	snap, err := session.Edit(r.Context(), h.controller(), characterID(r), toFields(req.Fields))
	if err != nil {
		writeError(w, "edit character", err)
		return
	}
	writeJSON(w, http.StatusOK, snap.Effective)
}

// ResetCharacter handles DELETE /api/characters/{id}/patch.
//
//	@Summary		Drop local edits and return the canonical record
//	@Tags			characters
//	@Produce		json
//	@Param			id	path		string	true	"Character id"
//	@Success		200	{object}	models.EffectiveRecord
//	@Failure		404	{object}	errResponse
//	@Failure		409	{object}	errResponse
//	@Failure		500	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/characters/{id}/patch [delete]
func (h *Handler) ResetCharacter(w http.ResponseWriter, r *http.Request) {
	ctrl := h.controller()
	if _, err := ctrl.Load(r.Context(), characterID(r)); err != nil {
		writeError(w, "reset character", err)
		return
	}
	snap, err := ctrl.ResetToCanonical(r.Context())
	if err != nil {
		writeError(w, "reset character", err)
		return
	}
	writeJSON(w, http.StatusOK, snap.Effective)
}

// ListPatches handles GET /api/patches.
//
//	@Summary		List locally modified characters
//	@Tags			characters
//	@Produce		json
//	@Success		200	{object}	PatchListResponse
//	@Security		BearerAuth
//	@Router			/patches [get]
func (h *Handler) ListPatches(w http.ResponseWriter, r *http.Request) {
	recs, err := h.catalog.Modified(r.Context())
	if err != nil {
		writeError(w, "list patches", err)
		return
	}
	writeJSON(w, http.StatusOK, PatchListResponse{Records: recs, Total: len(recs)})
}

// Validate handles POST /api/validate.
//
//	@Summary		Check field values without saving
//	@Tags			characters
//	@Accept			json
//	@Produce		json
//	@Param			body	body		EditRequest	true	"Field values"
//	@Success		200		{object}	ValidateResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/validate [post]
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req EditRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	for k := range req.Fields {
		if _, err := models.ParseField(k); err != nil {
			writeError(w, "validate", err)
			return
		}
	}

	res := validate.Validate(toFields(req.Fields))
	out := ValidateResponse{
		Valid:    res.Valid(),
		Errors:   make(map[string]string, len(res.Errors)),
		Warnings: make(map[string]string, len(res.Warnings)),
	}
	for f, msg := range res.Errors {
		out.Errors[string(f)] = msg
	}
	for f, msg := range res.Warnings {
		out.Warnings[string(f)] = msg
	}
	writeJSON(w, http.StatusOK, out)
}
