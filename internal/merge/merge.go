// Package merge combines canonical records with local patches and computes
// the minimal patch for an edited draft. Every function is pure.
//
// Comparison is literal: no trimming, case folding or sentinel translation
// happens here. Presentation formatting lives in package display and must not
// be applied to values before they reach this package.
package merge

import "github.com/starford/holocron/internal/models"

// Merge returns canonical with every editable field in patch applied on top.
// A nil or empty patch yields an unchanged copy.
func Merge(canonical models.Character, patch models.Patch) models.Character {
	out := canonical.Clone()
	for f, v := range patch {
		if !f.Editable() {
			continue
		}
		out.Set(f, v)
	}
	return out
}

// Diff returns the editable fields of edited whose value differs from
// canonical. Fields missing from edited are treated as unchanged. The result
// is empty, never nil, when nothing differs; callers must not persist it.
func Diff(canonical models.Character, edited models.Fields) models.Patch {
	out := models.Patch{}
	for _, f := range models.EditableFields {
		v, ok := edited[f]
		if !ok {
			continue
		}
		if v != canonical.Get(f) {
			out[f] = v
		}
	}
	return out
}

// ModifiedFields lists the editable fields whose values differ between a and
// b, in models.EditableFields order. A field missing from one side compares
// as the empty string.
func ModifiedFields(a, b models.Fields) []models.Field {
	var out []models.Field
	for _, f := range models.EditableFields {
		if a[f] != b[f] {
			out = append(out, f)
		}
	}
	return out
}

// Equal reports whether a and b agree on every editable field.
func Equal(a, b models.Fields) bool {
	return len(ModifiedFields(a, b)) == 0
}

// Effective builds the effective view of canonical under the stored patch.
// A nil patch means the record is not locally modified.
func Effective(canonical models.Character, patch *models.LocalPatch) models.EffectiveRecord {
	rec := models.EffectiveRecord{
		ID:             canonical.ID(),
		Character:      canonical.Clone(),
		ModifiedFields: []models.Field{},
	}
	if patch == nil {
		return rec
	}

	rec.Character = Merge(canonical, patch.Data)
	rec.LocallyModified = true
	ts := patch.LastModified
	rec.LastModified = &ts
	if mod := ModifiedFields(canonical.Fields(), rec.Character.Fields()); mod != nil {
		rec.ModifiedFields = mod
	}
	if patch.ID != "" {
		rec.ID = patch.ID
	}
	return rec
}
