// Package schema loads document-store schema descriptions into a normalized
// type/field graph and answers lookups against it.
package schema

import "sort"

// Field kinds that carry structure of their own.
const (
	TypeReference = "reference"
	TypeArray     = "array"
	TypeObject    = "object"
	TypeDocument  = "document"
)

// Field is a fully resolved schema field. A field is exactly one of primitive,
// reference, array, or nested object.
type Field struct {
	Name string `json:"name"`
	// Type is the primitive or object type name. References and arrays carry
	// "reference" / "array"; nested inline objects carry the name of the
	// synthetic type registered for them.
	Type string `json:"type"`

	IsReference      bool     `json:"isReference,omitempty"`
	ReferenceTargets []string `json:"referenceTargets,omitempty"`

	IsArray bool     `json:"isArray,omitempty"`
	ArrayOf []string `json:"arrayOf,omitempty"`

	Description string `json:"description,omitempty"`
}

// TypeNames returns the type names a value of this field can carry: element
// types for arrays, targets for references, the plain type name otherwise.
// Structureless objects yield nothing.
func (f *Field) TypeNames() []string {
	switch {
	case f == nil:
		return nil
	case f.IsArray:
		return append([]string(nil), f.ArrayOf...)
	case f.IsReference:
		return append([]string(nil), f.ReferenceTargets...)
	case f.Type == "" || f.Type == TypeObject:
		return nil
	}
	return []string{f.Type}
}

// Type is a named document or object type.
type Type struct {
	Name        string            `json:"name"`
	Kind        string            `json:"kind"`
	IsDocument  bool              `json:"isDocument"`
	Title       string            `json:"title,omitempty"`
	Description string            `json:"description,omitempty"`
	Fields      map[string]*Field `json:"fields"`
}

// Field returns the named field or nil.
func (t *Type) Field(name string) *Field {
	if t == nil {
		return nil
	}
	return t.Fields[name]
}

// SortedFields returns the type's fields ordered by name.
func (t *Type) SortedFields() []*Field {
	if t == nil {
		return nil
	}
	out := make([]*Field, 0, len(t.Fields))
	for _, f := range t.Fields {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// builtinFields are present on every stored document.
var builtinFields = []Field{
	{Name: "_id", Type: "string", Description: "Unique document identifier"},
	{Name: "_type", Type: "string", Description: "Document type name"},
	{Name: "_createdAt", Type: "datetime", Description: "Creation timestamp"},
	{Name: "_updatedAt", Type: "datetime", Description: "Last update timestamp"},
	{Name: "_rev", Type: "string", Description: "Revision identifier"},
}

// injectBuiltins adds the built-in fields to a document type without
// overriding fields the schema declares itself.
func injectBuiltins(t *Type) {
	for _, b := range builtinFields {
		if _, exists := t.Fields[b.Name]; exists {
			continue
		}
		f := b
		t.Fields[f.Name] = &f
	}
}

// Schema is an immutable snapshot of resolved types. A nil *Schema is valid
// and behaves as an empty, unloaded schema.
type Schema struct {
	types map[string]*Type
	names []string
}

// New builds a Schema from resolved types. Later duplicates of a name are
// ignored.
func New(types []*Type) *Schema {
	s := &Schema{types: make(map[string]*Type, len(types))}
	for _, t := range types {
		if t == nil || t.Name == "" {
			continue
		}
		if _, dup := s.types[t.Name]; dup {
			continue
		}
		if t.Fields == nil {
			t.Fields = make(map[string]*Field)
		}
		s.types[t.Name] = t
		s.names = append(s.names, t.Name)
	}
	sort.Strings(s.names)
	return s
}

// IsLoaded reports whether s holds a schema.
func (s *Schema) IsLoaded() bool {
	return s != nil
}

// GetType returns the named type or nil.
func (s *Schema) GetType(name string) *Type {
	if s == nil {
		return nil
	}
	return s.types[name]
}

// GetField returns a field of a type or nil.
func (s *Schema) GetField(typeName, fieldName string) *Field {
	return s.GetType(typeName).Field(fieldName)
}

// GetTypeNames returns every type name, sorted.
func (s *Schema) GetTypeNames() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.names...)
}

// GetDocumentTypeNames returns the names of top-level document types, sorted.
func (s *Schema) GetDocumentTypeNames() []string {
	if s == nil {
		return nil
	}
	var out []string
	for _, n := range s.names {
		if s.types[n].IsDocument {
			out = append(out, n)
		}
	}
	return out
}

// GetFieldsForType returns a type's fields ordered by name.
func (s *Schema) GetFieldsForType(name string) []*Field {
	return s.GetType(name).SortedFields()
}

// FieldOwner pairs a field with the type declaring it.
type FieldOwner struct {
	Type  *Type
	Field *Field
}

// FindFields returns every field named name across all types, in type-name
// order.
func (s *Schema) FindFields(name string) []FieldOwner {
	if s == nil {
		return nil
	}
	var out []FieldOwner
	for _, n := range s.names {
		t := s.types[n]
		if f := t.Fields[name]; f != nil {
			out = append(out, FieldOwner{Type: t, Field: f})
		}
	}
	return out
}

// FirstKnownType returns the first of names that names a loaded type.
func (s *Schema) FirstKnownType(names []string) *Type {
	for _, n := range names {
		if t := s.GetType(n); t != nil {
			return t
		}
	}
	return nil
}
