package models

import "time"

// Patch is a sparse set of field overrides for one record.
type Patch map[Field]string

// Empty reports whether p carries no overrides.
func (p Patch) Empty() bool {
	return len(p) == 0
}

// Clone returns a copy of p.
func (p Patch) Clone() Patch {
	if p == nil {
		return nil
	}
	out := make(Patch, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// LocalPatch is the persisted form of a Patch.
type LocalPatch struct {
	ID           string    `json:"id"`
	Data         Patch     `json:"data"`
	LastModified time.Time `json:"last_modified"`
}

// EffectiveRecord is a canonical record with its local patch applied.
type EffectiveRecord struct {
	ID              string     `json:"id"`
	Character       Character  `json:"character"`
	LocallyModified bool       `json:"locally_modified"`
	LastModified    *time.Time `json:"last_modified,omitempty"`
	ModifiedFields  []Field    `json:"modified_fields"`
}

// Page is one page of canonical records from the remote source.
type Page struct {
	Count    int         `json:"count"`
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
	Results  []Character `json:"results"`
}

// EffectivePage is a Page whose records have their patches applied.
type EffectivePage struct {
	Count      int               `json:"count"`
	Page       int               `json:"page"`
	TotalPages int               `json:"total_pages"`
	Results    []EffectiveRecord `json:"results"`
}
