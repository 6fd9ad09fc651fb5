package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/holocron/internal/apperr"
	"github.com/starford/holocron/internal/models"
)

func validLuke() models.Fields {
	return models.Fields{
		models.FieldName:      "Luke Skywalker",
		models.FieldHeight:    "172",
		models.FieldMass:      "77",
		models.FieldHairColor: "blond",
		models.FieldSkinColor: "fair",
		models.FieldEyeColor:  "blue",
		models.FieldBirthYear: "19BBY",
		models.FieldGender:    "male",
	}
}

func TestValidDraftPasses(t *testing.T) {
	res := Validate(validLuke())
	assert.True(t, res.Valid())
	assert.NoError(t, res.Err())
	assert.Empty(t, res.Warnings)
}

func TestFieldRules(t *testing.T) {
	cases := []struct {
		field models.Field
		value string
		ok    bool
	}{
		{models.FieldName, "Leia", true},
		{models.FieldName, "   ", false},
		{models.FieldName, "", false},

		{models.FieldHeight, "175", true},
		{models.FieldHeight, " 175 ", true},
		{models.FieldHeight, "66.5", true},
		{models.FieldHeight, "unknown", true},
		{models.FieldHeight, "abc", false},
		{models.FieldHeight, "", false},
		{models.FieldMass, "1,358", false},
		{models.FieldMass, "Unknown", true},
		{models.FieldMass, "NaN", false},

		{models.FieldGender, "", true},
		{models.FieldGender, "Female", true},
		{models.FieldGender, "n/a", true},
		{models.FieldGender, "hermaphrodite", false},

		{models.FieldBirthYear, "", true},
		{models.FieldBirthYear, "unknown", true},
		{models.FieldBirthYear, "19BBY", true},
		{models.FieldBirthYear, "41.9ABY", true},
		{models.FieldBirthYear, "19bby", true},
		{models.FieldBirthYear, "19", false},
		{models.FieldBirthYear, "BBY", false},
		{models.FieldBirthYear, "19.BBY", false},

		{models.FieldHairColor, strings.Repeat("x", 80), true},
	}

	for _, tc := range cases {
		res := Validate(models.Fields{tc.field: tc.value})
		if tc.ok {
			assert.True(t, res.Valid(), "%s=%q should pass, got %v", tc.field, tc.value, res.Errors)
		} else {
			assert.Contains(t, res.Errors, tc.field, "%s=%q should fail", tc.field, tc.value)
		}
	}
}

func TestAllErrorsCollected(t *testing.T) {
	f := validLuke()
	f[models.FieldName] = ""
	f[models.FieldHeight] = "tall"
	f[models.FieldMass] = "heavy"
	f[models.FieldGender] = "droid"
	f[models.FieldBirthYear] = "yesterday"

	res := Validate(f)
	assert.Len(t, res.Errors, 5)

	err := res.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "height")
	assert.Contains(t, ve.Fields, "birth_year")
}

func TestLongColorIsWarningOnly(t *testing.T) {
	f := validLuke()
	f[models.FieldEyeColor] = strings.Repeat("b", 51)

	res := Validate(f)
	assert.True(t, res.Valid())
	assert.Contains(t, res.Warnings, models.FieldEyeColor)
}

func TestNonNumericHeightRejected(t *testing.T) {
	f := validLuke()
	f[models.FieldHeight] = "abc"

	res := Validate(f)
	assert.Equal(t, []models.Field{models.FieldHeight}, keys(res.Errors))
}

func keys(m map[models.Field]string) []models.Field {
	out := make([]models.Field, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
