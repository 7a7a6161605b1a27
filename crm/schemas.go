package crm

import (
	"github.com/tav360/crm-backend/core/schema"
)

// ContactSchemaID identifies the JSON schema contact payloads are
// validated against.
const ContactSchemaID = "https://tav360.com/schemas/contact.json"

const contactSchema = `{
	"$id": "https://tav360.com/schemas/contact.json",
	"type": "object",
	"properties": {
		"full_name": {
			"type": "string",
			"minLength": 1
		},
		"phone": {
			"type": ["string", "null"],
			"pattern": "^[0-9+\\-() ]*$"
		},
		"email": {
			"type": ["string", "null"]
		},
		"address": {
			"type": ["string", "null"]
		},
		"notes": {
			"type": ["string", "null"]
		}
	}
}`

// NewJSONValidator returns the validator holding the catalogue's JSON
// schemas.
func NewJSONValidator() (*schema.Validator, error) {
	return schema.NewValidator([]string{contactSchema}, nil)
}
