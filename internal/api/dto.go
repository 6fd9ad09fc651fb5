package api

import (
	"github.com/starford/holocron/internal/models"
	"github.com/starford/holocron/internal/session"
)

// EditRequest carries field values keyed by field name.
type EditRequest struct {
	Fields map[string]string `json:"fields" validate:"required"`
}

// CreateSessionRequest opens a session on a record.
type CreateSessionRequest struct {
	ID string `json:"id" example:"1" validate:"required"`
}

// LoadRequest points an existing session at another record.
type LoadRequest struct {
	ID string `json:"id" example:"4" validate:"required"`
}

// FieldUpdateRequest sets one draft value.
type FieldUpdateRequest struct {
	Value string `json:"value" example:"175"`
}

// SessionResponse is a session snapshot with its id.
type SessionResponse struct {
	SessionID string `json:"session_id" example:"7d9c0f7e-5b1a-4d0e-9c53-0d3a4c1b2e77" validate:"required"`
	session.Snapshot
}

// PatchListResponse lists locally modified records.
type PatchListResponse struct {
	Records []models.EffectiveRecord `json:"records" validate:"required"`
	Total   int                      `json:"total" example:"2" validate:"required"`
}

// ValidateResponse reports per-field errors and warnings.
type ValidateResponse struct {
	Valid    bool              `json:"valid"`
	Errors   map[string]string `json:"errors"`
	Warnings map[string]string `json:"warnings"`
}

func toFields(in map[string]string) models.Fields {
	out := make(models.Fields, len(in))
	for k, v := range in {
		out[models.Field(k)] = v
	}
	return out
}
