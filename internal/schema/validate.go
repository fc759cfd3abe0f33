package schema

import (
	"errors"
	"fmt"
)

// shape is the raw layout a schema file uses.
type shape int

const (
	// shapeDocumentStore is {"types": [{name, type, fields: [...]}, ...]}.
	shapeDocumentStore shape = iota
	// shapeCompiled is a list or dictionary of {name, type, attributes} entries.
	shapeCompiled
)

func (s shape) String() string {
	if s == shapeCompiled {
		return "compiled"
	}
	return "document-store"
}

// rawSchema is a detected schema prior to validation and resolution.
type rawSchema struct {
	shape   shape
	entries []any
}

var errUnrecognized = errors.New(`unrecognized schema format: expected an object with a "types" array, or a list or dictionary of compiled type entries`)

// detectShape classifies raw JSON. The compiled shape is checked first.
func detectShape(raw any) (*rawSchema, error) {
	switch v := raw.(type) {
	case []any:
		for _, e := range v {
			if m, ok := e.(map[string]any); ok && attributesOf(m) != nil {
				return &rawSchema{shape: shapeCompiled, entries: v}, nil
			}
		}
		if len(v) == 0 {
			return &rawSchema{shape: shapeCompiled}, nil
		}
	case map[string]any:
		if types, ok := v["types"]; ok {
			arr, isArr := types.([]any)
			if !isArr {
				return nil, errors.New(`schema "types" must be an array`)
			}
			return &rawSchema{shape: shapeDocumentStore, entries: arr}, nil
		}
		entries := make([]any, 0, len(v))
		named := false
		for _, key := range sortedKeys(v) {
			if m, ok := v[key].(map[string]any); ok {
				if _, has := m["name"]; has {
					named = true
				}
			}
			entries = append(entries, v[key])
		}
		if named {
			return &rawSchema{shape: shapeCompiled, entries: entries}, nil
		}
	}
	return nil, errUnrecognized
}

// attributesOf returns an entry's attribute dictionary, either top-level or
// under value.attributes.
func attributesOf(m map[string]any) map[string]any {
	if attrs, ok := m["attributes"].(map[string]any); ok {
		return attrs
	}
	if val, ok := m["value"].(map[string]any); ok {
		if attrs, ok := val["attributes"].(map[string]any); ok {
			return attrs
		}
	}
	return nil
}

// checkDepth fails when raw nests deeper than maxDepth containers.
func checkDepth(raw any, maxDepth int) error {
	if exceedsDepth(raw, 0, maxDepth) {
		return fmt.Errorf("schema exceeds maximum nesting depth of %d", maxDepth)
	}
	return nil
}

func exceedsDepth(v any, depth, maxDepth int) bool {
	switch x := v.(type) {
	case map[string]any:
		depth++
		if depth > maxDepth {
			return true
		}
		for _, child := range x {
			if exceedsDepth(child, depth, maxDepth) {
				return true
			}
		}
	case []any:
		depth++
		if depth > maxDepth {
			return true
		}
		for _, child := range x {
			if exceedsDepth(child, depth, maxDepth) {
				return true
			}
		}
	}
	return false
}

// checkStructure validates counts and required keys of a detected schema.
func checkStructure(rs *rawSchema, cfg ValidationConfig) error {
	if len(rs.entries) > cfg.MaxTypes {
		return fmt.Errorf("schema has %d types, which exceeds the maximum of %d", len(rs.entries), cfg.MaxTypes)
	}
	for i, e := range rs.entries {
		m, ok := e.(map[string]any)
		if !ok {
			return fmt.Errorf("type at index %d must be an object", i)
		}
		name, _ := m["name"].(string)
		if name == "" {
			return fmt.Errorf("type at index %d is missing required \"name\"", i)
		}
		if _, ok := m["type"].(string); !ok {
			return fmt.Errorf("type %q is missing required \"type\"", name)
		}
		var err error
		if rs.shape == shapeCompiled {
			err = checkAttributes(name, m, cfg)
		} else {
			err = checkFields(name, m, cfg)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func checkAttributes(name string, m map[string]any, cfg ValidationConfig) error {
	if n := len(attributesOf(m)); n > cfg.MaxFieldsPerType {
		return fmt.Errorf("type %q has %d fields, which exceeds the maximum of %d", name, n, cfg.MaxFieldsPerType)
	}
	return nil
}

func checkFields(name string, m map[string]any, cfg ValidationConfig) error {
	rawFields, present := m["fields"]
	if !present || rawFields == nil {
		return nil
	}
	fields, ok := rawFields.([]any)
	if !ok {
		return fmt.Errorf("type %q: \"fields\" must be an array", name)
	}
	if len(fields) > cfg.MaxFieldsPerType {
		return fmt.Errorf("type %q has %d fields, which exceeds the maximum of %d", name, len(fields), cfg.MaxFieldsPerType)
	}
	for i, rf := range fields {
		f, ok := rf.(map[string]any)
		if !ok {
			return fmt.Errorf("type %q: field at index %d must be an object", name, i)
		}
		fieldName, _ := f["name"].(string)
		if fieldName == "" {
			return fmt.Errorf("type %q: field at index %d is missing required \"name\"", name, i)
		}
		if _, ok := f["type"].(string); !ok {
			return fmt.Errorf("type %q: field %q is missing required \"type\"", name, fieldName)
		}
	}
	return nil
}
