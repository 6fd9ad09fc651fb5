// Package validate holds the field-level rules applied to a draft before it is
// saved. Rules are independent: every failing field is reported, and soft
// warnings never block a save.
package validate

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/holocron/internal/apperr"
	"github.com/starford/holocron/internal/models"
)

const (
	sentinelUnknown = "unknown"
	maxColorLength  = 50
)

var (
	birthYearRe = regexp.MustCompile(`(?i)^\d+(\.\d+)?(BBY|ABY)$`)
	genders     = []string{"male", "female", "n/a", "unknown"}
	colorFields = []models.Field{models.FieldHairColor, models.FieldSkinColor, models.FieldEyeColor}
)

// Result is the outcome of validating a set of fields.
type Result struct {
	Errors   map[models.Field]string `json:"errors"`
	Warnings map[models.Field]string `json:"warnings"`
}

// Valid reports whether no field failed.
func (r Result) Valid() bool {
	return len(r.Errors) == 0
}

// Err returns a *apperr.ValidationError describing every failed field, or nil.
func (r Result) Err() error {
	if r.Valid() {
		return nil
	}
	fields := make(map[string]string, len(r.Errors))
	for f, msg := range r.Errors {
		fields[string(f)] = msg
	}
	return &apperr.ValidationError{Fields: fields}
}

// Validate checks every field present in fields. Missing fields are not
// checked.
func Validate(fields models.Fields) Result {
	res := Result{
		Errors:   map[models.Field]string{},
		Warnings: map[models.Field]string{},
	}

	for f, v := range fields {
		rules := Rules(f)
		if len(rules) == 0 {
			continue
		}
		if err := validation.Validate(v, rules...); err != nil {
			res.Errors[f] = message(err)
		}
	}

	for _, f := range colorFields {
		if v, ok := fields[f]; ok && len([]rune(v)) > maxColorLength {
			res.Warnings[f] = fmt.Sprintf("value is unusually long (over %d characters)", maxColorLength)
		}
	}

	return res
}

// Rules returns the ozzo rules for a field. Fields without format
// constraints return nil.
func Rules(f models.Field) []validation.Rule {
	switch f {
	case models.FieldName:
		return []validation.Rule{validation.By(notBlank)}
	case models.FieldHeight, models.FieldMass:
		return []validation.Rule{validation.By(numberOrUnknown)}
	case models.FieldGender:
		return []validation.Rule{validation.By(knownGender)}
	case models.FieldBirthYear:
		return []validation.Rule{validation.By(birthYear)}
	}
	return nil
}

func notBlank(value any) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return errors.New("cannot be empty")
	}
	return nil
}

func numberOrUnknown(value any) error {
	s, _ := value.(string)
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, sentinelUnknown) {
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return errors.New(`must be a number or "unknown"`)
	}
	return nil
}

func knownGender(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	for _, g := range genders {
		if strings.EqualFold(s, g) {
			return nil
		}
	}
	return fmt.Errorf("must be one of: %s", strings.Join(genders, ", "))
}

func birthYear(value any) error {
	s, _ := value.(string)
	if s == "" || strings.EqualFold(s, sentinelUnknown) {
		return nil
	}
	if !birthYearRe.MatchString(s) {
		return errors.New(`must look like "19BBY" or "41.9ABY", or be "unknown"`)
	}
	return nil
}

func message(err error) string {
	var ve validation.Error
	if errors.As(err, &ve) {
		return ve.Error()
	}
	return err.Error()
}
