package mcpserver

// FieldRules describes the editable character fields and the checks a value
// must pass before an edit is saved.
const FieldRules = `# Holocron Field Rules

Edits are stored locally as a patch over the upstream Star Wars API record.
Only values that differ from the upstream record are stored, and only those
values are checked.

## Editable fields

| Field        | Rule                                                            |
|--------------|-----------------------------------------------------------------|
| name         | REQUIRED, must not be blank                                     |
| height       | a number (centimetres) or ` + "`unknown`" + `                                 |
| mass         | a number (kilograms) or ` + "`unknown`" + `                                   |
| gender       | one of ` + "`male`, `female`, `n/a`, `unknown`" + `, or empty              |
| birth_year   | ` + "`<number>BBY`" + ` or ` + "`<number>ABY`" + ` (e.g. ` + "`19BBY`, `41.9BBY`" + `), ` + "`unknown`" + `, or empty |
| hair_color   | free text; values over 50 characters produce a warning          |
| skin_color   | free text; values over 50 characters produce a warning          |
| eye_color    | free text; values over 50 characters produce a warning          |

Any other field name is rejected.

## Notes

1. Comparison is literal: ` + "`19bby`" + ` differs from ` + "`19BBY`" + ` and is stored as an edit.
2. ` + "`unknown`" + ` is accepted in any letter case for height, mass, gender and birth_year.
3. Setting a field back to its upstream value removes it from the patch.
4. ` + "`reset_character`" + ` drops every local edit of a character.

## Example

` + "```" + `json
{"id": "1", "fields": {"height": "175", "eye_color": "green"}}
` + "```" + `
`
