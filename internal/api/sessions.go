package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/holocron/internal/models"
	"github.com/starford/holocron/internal/session"
)

func (h *Handler) sessionFor(w http.ResponseWriter, r *http.Request) (string, *session.Controller, bool) {
	sid := chi.URLParam(r, "sid")
	ctrl, ok := h.sessions.Get(sid)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("session not found"))
		return "", nil, false
	}
	return sid, ctrl, true
}

func writeSession(w http.ResponseWriter, status int, sid string, snap session.Snapshot) {
	writeJSON(w, status, SessionResponse{SessionID: sid, Snapshot: snap})
}

// CreateSession handles POST /api/sessions.
//
//	@Summary		Open an edit session on a character
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateSessionRequest	true	"Character to load"
//	@Success		201		{object}	SessionResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions [post]
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}

	sid, ctrl := h.sessions.Create()
	snap, err := ctrl.Load(r.Context(), req.ID)
	if err != nil {
		h.sessions.Delete(sid)
		writeError(w, "create session", err)
		return
	}
	writeSession(w, http.StatusCreated, sid, snap)
}

// GetSession handles GET /api/sessions/{sid}.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sid, ctrl, ok := h.sessionFor(w, r)
	if !ok {
		return
	}
	writeSession(w, http.StatusOK, sid, ctrl.Snapshot())
}

// DeleteSession handles DELETE /api/sessions/{sid}.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if !h.sessions.Delete(chi.URLParam(r, "sid")) {
		writeJSON(w, http.StatusNotFound, errorBody("session not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LoadSession handles POST /api/sessions/{sid}/load. Any draft is dropped.
func (h *Handler) LoadSession(w http.ResponseWriter, r *http.Request) {
	sid, ctrl, ok := h.sessionFor(w, r)
	if !ok {
		return
	}
	var req LoadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	snap, err := ctrl.Load(r.Context(), req.ID)
	if err != nil {
		writeError(w, "load session", err)
		return
	}
	writeSession(w, http.StatusOK, sid, snap)
}

// BeginEdit handles POST /api/sessions/{sid}/edit.
func (h *Handler) BeginEdit(w http.ResponseWriter, r *http.Request) {
	sid, ctrl, ok := h.sessionFor(w, r)
	if !ok {
		return
	}
	if err := ctrl.BeginEdit(); err != nil {
		writeError(w, "begin edit", err)
		return
	}
	writeSession(w, http.StatusOK, sid, ctrl.Snapshot())
}

// UpdateField handles PUT /api/sessions/{sid}/fields/{field}.
//
//	@Summary		Set one draft field
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			sid		path		string				true	"Session id"
//	@Param			field	path		string				true	"Field name"
//	@Param			body	body		FieldUpdateRequest	true	"New value"
//	@Success		200		{object}	SessionResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sid}/fields/{field} [put]
func (h *Handler) UpdateField(w http.ResponseWriter, r *http.Request) {
	sid, ctrl, ok := h.sessionFor(w, r)
	if !ok {
		return
	}
	var req FieldUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := ctrl.UpdateField(models.Field(chi.URLParam(r, "field")), req.Value); err != nil {
		writeError(w, "update field", err)
		return
	}
	writeSession(w, http.StatusOK, sid, ctrl.Snapshot())
}

// CancelEdit handles POST /api/sessions/{sid}/cancel.
func (h *Handler) CancelEdit(w http.ResponseWriter, r *http.Request) {
	sid, ctrl, ok := h.sessionFor(w, r)
	if !ok {
		return
	}
	ctrl.CancelEdit()
	writeSession(w, http.StatusOK, sid, ctrl.Snapshot())
}

// SaveSession handles POST /api/sessions/{sid}/save.
//
//	@Summary		Validate the draft and persist the minimal patch
//	@Tags			sessions
//	@Produce		json
//	@Param			sid	path		string	true	"Session id"
//	@Success		200	{object}	SessionResponse
//	@Failure		409	{object}	errResponse
//	@Failure		422	{object}	errResponse
//	@Failure		500	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{sid}/save [post]
func (h *Handler) SaveSession(w http.ResponseWriter, r *http.Request) {
	sid, ctrl, ok := h.sessionFor(w, r)
	if !ok {
		return
	}
	snap, err := ctrl.Save(r.Context())
	if err != nil {
		writeError(w, "save session", err)
		return
	}
	writeSession(w, http.StatusOK, sid, snap)
}

// ResetSession handles POST /api/sessions/{sid}/reset.
func (h *Handler) ResetSession(w http.ResponseWriter, r *http.Request) {
	sid, ctrl, ok := h.sessionFor(w, r)
	if !ok {
		return
	}
	snap, err := ctrl.ResetToCanonical(r.Context())
	if err != nil {
		writeError(w, "reset session", err)
		return
	}
	writeSession(w, http.StatusOK, sid, snap)
}
