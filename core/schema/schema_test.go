package schema_test

import (
	"testing"

	"github.com/tav360/crm-backend/core/schema"
)

const (
	phoneRef = `{ "$id" : "https://tav360.com/schemas/refs/phone.json",
		"type" : "string", "pattern" : "^[0-9+\\-]*$" }`

	contactSchema = `
	{ "$id" : "https://tav360.com/schemas/contact.json",
	  "type" : "object",
	  "required" : ["full_name"],
	  "properties" : {
		"full_name" : { "type" : "string", "minLength" : 1 },
		"phone" : { "$ref" : "https://tav360.com/schemas/refs/phone.json" }
	  }
	}`
)

func TestValidateString(t *testing.T) {
	v, err := schema.NewValidator([]string{contactSchema}, []string{phoneRef})
	if err != nil {
		t.Fatalf("No error expected when creating validator, got %v", err)
	}

	schemaID := "https://tav360.com/schemas/contact.json"

	// Valid json
	if err := v.ValidateString(`{"full_name":"Dana","phone":"054-1234567"}`, schemaID); err != nil {
		t.Fatalf("document is expected to be valid with schema %s. Reported error was: %v", schemaID, err)
	}

	// Missing required property
	if err := v.ValidateString(`{"phone":"054-1234567"}`, schemaID); err == nil {
		t.Fatalf("document without full_name is expected to be invalid with schema %s", schemaID)
	}

	// Reference violated
	if err := v.ValidateString(`{"full_name":"Dana","phone":"not a phone"}`, schemaID); err == nil {
		t.Fatalf("document with bad phone is expected to be invalid with schema %s", schemaID)
	}
}

func TestValidateStruct(t *testing.T) {
	type contact struct {
		FullName string `json:"full_name"`
	}
	type notAContact struct {
		FullName string `json:"fullname"`
	}

	v, err := schema.NewValidator([]string{contactSchema}, []string{phoneRef})
	if err != nil {
		t.Fatalf("No error expected when creating validator, got %v", err)
	}

	schemaID := "https://tav360.com/schemas/contact.json"
	if err := v.ValidateStruct(contact{"Dana"}, schemaID); err != nil {
		t.Fatal(err)
	}
	if err := v.ValidateStruct(notAContact{"Dana"}, schemaID); err == nil {
		t.Fatal("document with wrong property name is expected to be invalid")
	}
}

func TestHasSchema(t *testing.T) {
	v, err := schema.NewValidator([]string{contactSchema}, []string{phoneRef})
	if err != nil {
		t.Fatalf("No error expected when creating validator, got %v", err)
	}

	if !v.HasSchema("https://tav360.com/schemas/contact.json") {
		t.Fatal("contact schema is expected to be available")
	}
	if v.HasSchema("https://tav360.com/schemas/unknown.json") {
		t.Fatal("unknown schema is not expected to be available")
	}
}
