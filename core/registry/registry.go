// Package registry holds the static entity catalogue. The catalogue is
// built once at startup and never mutated afterwards; request handlers
// resolve entity names against it.
package registry

import (
	"context"
	"fmt"
	"regexp"
)

// FieldType is the declared storage type of an entity field.
type FieldType string

// all supported field types
const (
	String      FieldType = "string"
	Text        FieldType = "text"
	Integer     FieldType = "integer"
	Numeric     FieldType = "numeric"
	Boolean     FieldType = "boolean"
	Date        FieldType = "date"
	Timestamp   FieldType = "timestamp"
	StringArray FieldType = "string_array"
)

// Field declares a single entity field. References optionally names
// another entity for a foreign key constraint.
type Field struct {
	Name       string
	Type       FieldType
	Required   bool
	References string
}

// ValidatorFunc is a per-entity validation hook. For updates it receives
// the stored record merged with the request payload, for creates the
// payload alone. A non-nil error rejects the request with status 400.
type ValidatorFunc func(ctx context.Context, object map[string]interface{}) error

// EntityDescriptor describes one entity of the catalogue. Internal
// entities carry a field set and are stored in the service's own
// database. Upstream entities carry only the name to table mapping and
// are forwarded to the upstream REST service.
type EntityDescriptor struct {
	Name     string
	Table    string
	Fields   []Field
	Upstream bool
	Validate ValidatorFunc
	SchemaID string
}

// HasField returns true if the descriptor declares the named field.
func (d *EntityDescriptor) HasField(name string) bool {
	for i := range d.Fields {
		if d.Fields[i].Name == name {
			return true
		}
	}
	return false
}

// Field returns the declaration of the named field.
func (d *EntityDescriptor) Field(name string) (Field, bool) {
	for i := range d.Fields {
		if d.Fields[i].Name == name {
			return d.Fields[i], true
		}
	}
	return Field{}, false
}

// FieldNames returns the declared field names in declaration order.
func (d *EntityDescriptor) FieldNames() []string {
	names := make([]string, len(d.Fields))
	for i := range d.Fields {
		names[i] = d.Fields[i].Name
	}
	return names
}

// Registry is the immutable entity catalogue.
type Registry struct {
	descriptors []*EntityDescriptor
	byName      map[string]*EntityDescriptor
}

var (
	nameRegex       = regexp.MustCompile(`^[a-z][a-z0-9]*$`)
	identifierRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

// server-managed columns, present on every internal entity
var reservedColumns = map[string]bool{
	"id":           true,
	"created_date": true,
	"updated_date": true,
}

// New validates the descriptors and builds the catalogue. Entity names
// must be lowercase and unique, field names must be valid identifiers
// and must not collide with the server-managed columns, and foreign key
// references must point to internal entities of the catalogue.
func New(descriptors []EntityDescriptor) (*Registry, error) {
	r := &Registry{
		byName: make(map[string]*EntityDescriptor, len(descriptors)),
	}
	for i := range descriptors {
		d := descriptors[i]
		if !nameRegex.MatchString(d.Name) {
			return nil, fmt.Errorf("invalid entity name \"%s\"", d.Name)
		}
		if !identifierRegex.MatchString(d.Table) {
			return nil, fmt.Errorf("entity %s: invalid table name \"%s\"", d.Name, d.Table)
		}
		if _, ok := r.byName[d.Name]; ok {
			return nil, fmt.Errorf("duplicate entity name \"%s\"", d.Name)
		}
		if d.Upstream && len(d.Fields) > 0 {
			return nil, fmt.Errorf("upstream entity %s must not declare fields", d.Name)
		}
		seen := map[string]bool{}
		for _, f := range d.Fields {
			if !identifierRegex.MatchString(f.Name) {
				return nil, fmt.Errorf("entity %s: invalid field name \"%s\"", d.Name, f.Name)
			}
			if reservedColumns[f.Name] {
				return nil, fmt.Errorf("entity %s: field name \"%s\" is reserved", d.Name, f.Name)
			}
			if seen[f.Name] {
				return nil, fmt.Errorf("entity %s: duplicate field \"%s\"", d.Name, f.Name)
			}
			seen[f.Name] = true
			switch f.Type {
			case String, Text, Integer, Numeric, Boolean, Date, Timestamp, StringArray:
			default:
				return nil, fmt.Errorf("entity %s: field %s has unknown type \"%s\"", d.Name, f.Name, f.Type)
			}
		}
		dp := &d
		r.descriptors = append(r.descriptors, dp)
		r.byName[d.Name] = dp
	}

	// references can only be checked once all names are known
	for _, d := range r.descriptors {
		for _, f := range d.Fields {
			if f.References == "" {
				continue
			}
			target, ok := r.byName[f.References]
			if !ok {
				return nil, fmt.Errorf("entity %s: field %s references unknown entity \"%s\"", d.Name, f.Name, f.References)
			}
			if target.Upstream {
				return nil, fmt.Errorf("entity %s: field %s references upstream entity \"%s\"", d.Name, f.Name, f.References)
			}
			if f.Type != Integer {
				return nil, fmt.Errorf("entity %s: reference field %s must be of type integer", d.Name, f.Name)
			}
		}
	}
	return r, nil
}

// MustNew is like New but panics on an invalid catalogue. Intended for
// statically declared catalogues where an error is a programming mistake.
func MustNew(descriptors []EntityDescriptor) *Registry {
	r, err := New(descriptors)
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve looks up a descriptor by entity name.
func (r *Registry) Resolve(name string) (*EntityDescriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// Descriptors returns all descriptors in declaration order.
func (r *Registry) Descriptors() []*EntityDescriptor {
	return r.descriptors
}

// Internal returns the descriptors of entities stored in the service's
// own database.
func (r *Registry) Internal() []*EntityDescriptor {
	var result []*EntityDescriptor
	for _, d := range r.descriptors {
		if !d.Upstream {
			result = append(result, d)
		}
	}
	return result
}

// Upstream returns the descriptors of entities forwarded to the
// upstream REST service.
func (r *Registry) Upstream() []*EntityDescriptor {
	var result []*EntityDescriptor
	for _, d := range r.descriptors {
		if d.Upstream {
			result = append(result, d)
		}
	}
	return result
}
