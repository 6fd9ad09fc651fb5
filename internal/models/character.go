// Package models defines the domain types for Holocron.
package models

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"

	"github.com/starford/holocron/internal/apperr"
)

// Field names an editable character attribute.
type Field string

const (
	FieldName      Field = "name"
	FieldHeight    Field = "height"
	FieldMass      Field = "mass"
	FieldHairColor Field = "hair_color"
	FieldSkinColor Field = "skin_color"
	FieldEyeColor  Field = "eye_color"
	FieldBirthYear Field = "birth_year"
	FieldGender    Field = "gender"
)

// EditableFields lists every field a user may override, in display order.
var EditableFields = []Field{
	FieldName,
	FieldHeight,
	FieldMass,
	FieldHairColor,
	FieldSkinColor,
	FieldEyeColor,
	FieldBirthYear,
	FieldGender,
}

// Editable reports whether f is one of EditableFields.
func (f Field) Editable() bool {
	switch f {
	case FieldName, FieldHeight, FieldMass, FieldHairColor,
		FieldSkinColor, FieldEyeColor, FieldBirthYear, FieldGender:
		return true
	}
	return false
}

// ParseField converts s into a Field, failing for anything not editable.
func ParseField(s string) (Field, error) {
	f := Field(s)
	if !f.Editable() {
		return "", fmt.Errorf("%w: %q is not editable", apperr.ErrUnknownField, s)
	}
	return f, nil
}

// Character is a canonical record as served by the remote source.
// Members the service does not model are kept verbatim in Extra and
// re-emitted on encode.
type Character struct {
	Name      string
	Height    string
	Mass      string
	HairColor string
	SkinColor string
	EyeColor  string
	BirthYear string
	Gender    string
	URL       string
	Extra     map[string]json.RawMessage
}

// ID returns the record identifier derived from the resource URL.
func (c Character) ID() string {
	return IDFromURL(c.URL)
}

// Get returns the value of an editable field, or "" for unknown fields.
func (c Character) Get(f Field) string {
	switch f {
	case FieldName:
		return c.Name
	case FieldHeight:
		return c.Height
	case FieldMass:
		return c.Mass
	case FieldHairColor:
		return c.HairColor
	case FieldSkinColor:
		return c.SkinColor
	case FieldEyeColor:
		return c.EyeColor
	case FieldBirthYear:
		return c.BirthYear
	case FieldGender:
		return c.Gender
	}
	return ""
}

// Set assigns an editable field. Unknown fields are ignored.
func (c *Character) Set(f Field, v string) {
	switch f {
	case FieldName:
		c.Name = v
	case FieldHeight:
		c.Height = v
	case FieldMass:
		c.Mass = v
	case FieldHairColor:
		c.HairColor = v
	case FieldSkinColor:
		c.SkinColor = v
	case FieldEyeColor:
		c.EyeColor = v
	case FieldBirthYear:
		c.BirthYear = v
	case FieldGender:
		c.Gender = v
	}
}

// Fields returns the editable projection of c.
func (c Character) Fields() Fields {
	out := make(Fields, len(EditableFields))
	for _, f := range EditableFields {
		out[f] = c.Get(f)
	}
	return out
}

// Clone returns a copy that shares no mutable state with c.
func (c Character) Clone() Character {
	out := c
	if c.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(c.Extra))
		for k, v := range c.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

const urlKey = "url"

// UnmarshalJSON decodes the known string members and keeps the rest in Extra.
func (c *Character) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := Character{}
	for _, f := range EditableFields {
		v, ok := raw[string(f)]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return fmt.Errorf("character field %s: %w", f, err)
		}
		out.Set(f, s)
		delete(raw, string(f))
	}
	if v, ok := raw[urlKey]; ok {
		if err := json.Unmarshal(v, &out.URL); err != nil {
			return fmt.Errorf("character field url: %w", err)
		}
		delete(raw, urlKey)
	}
	if len(raw) > 0 {
		out.Extra = raw
	}

	*c = out
	return nil
}

// MarshalJSON encodes c as a flat object, passthrough members included.
func (c Character) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(c.Extra)+len(EditableFields)+1)
	for k, v := range c.Extra {
		obj[k] = v
	}
	for _, f := range EditableFields {
		obj[string(f)] = c.Get(f)
	}
	obj[urlKey] = c.URL
	return json.Marshal(obj)
}

var (
	peopleIDRe = regexp.MustCompile(`/people/(\d+)/`)
	anyDigitRe = regexp.MustCompile(`(\d+)`)
)

// IDFromURL extracts the identifier from a resource URL such as
// https://swapi.py4e.com/api/people/1/. When no people segment is present the
// first run of digits is used, and failing that the URL itself.
func IDFromURL(url string) string {
	if m := peopleIDRe.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	if m := anyDigitRe.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	return url
}

// Fields maps editable fields to values. It is used for drafts and for the
// editable projection of a record.
type Fields map[Field]string

// Clone returns a copy of f.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Keys returns the fields present in f in EditableFields order, followed by
// any non-editable keys sorted by name.
func (f Fields) Keys() []Field {
	out := make([]Field, 0, len(f))
	for _, k := range EditableFields {
		if _, ok := f[k]; ok {
			out = append(out, k)
		}
	}
	var rest []Field
	for k := range f {
		if !k.Editable() {
			rest = append(rest, k)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	return append(out, rest...)
}
