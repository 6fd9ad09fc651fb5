package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/holocron/internal/apperr"
	"github.com/starford/holocron/internal/models"
)

func TestParseAssignments(t *testing.T) {
	fields, err := parseAssignments([]string{"height=175", "hair_color=", "name=A=B"})
	require.NoError(t, err)
	assert.Equal(t, models.Fields{
		models.FieldHeight:    "175",
		models.FieldHairColor: "",
		models.FieldName:      "A=B",
	}, fields)
}

func TestParseAssignmentsErrors(t *testing.T) {
	_, err := parseAssignments(nil)
	assert.Error(t, err)

	_, err = parseAssignments([]string{"height"})
	assert.Error(t, err)

	_, err = parseAssignments([]string{"homeworld=Tatooine"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrUnknownField))
}

func TestWritePage(t *testing.T) {
	var buf bytes.Buffer
	writePage(&buf, models.EffectivePage{})
	assert.Equal(t, "no characters found\n", buf.String())

	buf.Reset()
	writePage(&buf, models.EffectivePage{
		Count: 1, Page: 1, TotalPages: 1,
		Results: []models.EffectiveRecord{{ID: "1", Character: models.Character{Name: "Luke Skywalker"}}},
	})
	assert.Contains(t, buf.String(), "Luke Skywalker")
	assert.Contains(t, buf.String(), "page 1 of 1 (1 characters)")
}
