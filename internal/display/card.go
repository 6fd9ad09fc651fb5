package display

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/starford/holocron/internal/models"
)

var labels = map[models.Field]string{
	models.FieldHeight:    "Height",
	models.FieldMass:      "Mass",
	models.FieldHairColor: "Hair color",
	models.FieldSkinColor: "Skin color",
	models.FieldEyeColor:  "Eye color",
	models.FieldBirthYear: "Birth year",
	models.FieldGender:    "Gender",
}

// Card renders an effective record as a short text block. Locally modified
// fields are marked with an asterisk.
func Card(rec models.EffectiveRecord, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s (#%s)", Name(rec.Character.Name), rec.ID)
	if rec.LocallyModified {
		b.WriteString(" [locally modified")
		if rec.LastModified != nil {
			b.WriteString(", " + LastModified(*rec.LastModified, now))
		}
		b.WriteString("]")
	}
	if slices.Contains(rec.ModifiedFields, models.FieldName) {
		b.WriteString(" *")
	}
	b.WriteString("\n")

	for _, f := range models.EditableFields[1:] {
		v := rec.Character.Get(f)
		switch f {
		case models.FieldHeight:
			v = Height(v)
		case models.FieldMass:
			v = Mass(v)
		default:
			v = Value(v)
		}
		mark := ""
		if slices.Contains(rec.ModifiedFields, f) {
			mark = " *"
		}
		fmt.Fprintf(&b, "  %-11s %s%s\n", labels[f]+":", v, mark)
	}
	return b.String()
}

// Row renders a record as one line for listings.
func Row(rec models.EffectiveRecord) string {
	mark := " "
	if rec.LocallyModified {
		mark = "*"
	}
	return fmt.Sprintf("%s %4s  %-3s %s", mark, rec.ID, Initials(rec.Character.Name), Name(rec.Character.Name))
}
