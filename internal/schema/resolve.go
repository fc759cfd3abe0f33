package schema

import "sort"

// resolver converts raw schema entries into resolved types. Inline nested
// objects become synthetic types named "<owner>.<field>".
type resolver struct {
	types []*Type
}

func resolve(rs *rawSchema) *Schema {
	r := &resolver{}
	for _, e := range rs.entries {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		if rs.shape == shapeCompiled {
			r.compiledType(m)
		} else {
			r.documentStoreType(m)
		}
	}
	return New(r.types)
}

func (r *resolver) newType(name, kind string, m map[string]any) *Type {
	t := &Type{
		Name:        name,
		Kind:        kind,
		IsDocument:  kind == TypeDocument,
		Title:       stringOf(m, "title"),
		Description: stringOf(m, "description"),
		Fields:      make(map[string]*Field),
	}
	r.types = append(r.types, t)
	return t
}

// --- document-store shape ---

func (r *resolver) documentStoreType(m map[string]any) {
	name := stringOf(m, "name")
	if name == "" {
		return
	}
	t := r.newType(name, stringOf(m, "type"), m)
	r.documentStoreFields(t, m)
	if t.IsDocument {
		injectBuiltins(t)
	}
}

func (r *resolver) documentStoreFields(t *Type, m map[string]any) {
	fields, _ := m["fields"].([]any)
	for _, rf := range fields {
		fm, ok := rf.(map[string]any)
		if !ok {
			continue
		}
		if f := r.documentStoreField(t.Name, fm); f != nil {
			t.Fields[f.Name] = f
		}
	}
}

func (r *resolver) documentStoreField(owner string, fm map[string]any) *Field {
	name := stringOf(fm, "name")
	if name == "" {
		return nil
	}
	f := &Field{Name: name, Type: stringOf(fm, "type"), Description: stringOf(fm, "description")}
	switch f.Type {
	case TypeReference:
		f.IsReference = true
		f.ReferenceTargets = targetsOf(fm["to"])
	case TypeArray:
		f.IsArray = true
		items, _ := fm["of"].([]any)
		for _, ri := range items {
			im, ok := ri.(map[string]any)
			if !ok {
				continue
			}
			f.ArrayOf = appendUnique(f.ArrayOf, r.documentStoreItemNames(owner+"."+name, im)...)
		}
	default:
		if _, nested := fm["fields"].([]any); nested {
			f.Type = r.inlineObject(owner+"."+name, fm, r.documentStoreFields)
		}
	}
	return f
}

func (r *resolver) documentStoreItemNames(synthetic string, im map[string]any) []string {
	itemType := stringOf(im, "type")
	switch {
	case itemType == TypeReference:
		return targetsOf(im["to"])
	case im["fields"] != nil:
		if n := stringOf(im, "name"); n != "" {
			synthetic = n
		}
		return []string{r.inlineObject(synthetic, im, r.documentStoreFields)}
	case itemType != "":
		return []string{itemType}
	}
	return nil
}

// inlineObject registers a synthetic object type for a nested field list and
// returns its name.
func (r *resolver) inlineObject(name string, m map[string]any, fill func(*Type, map[string]any)) string {
	t := r.newType(name, TypeObject, m)
	fill(t, m)
	return name
}

// --- compiled shape ---

func (r *resolver) compiledType(m map[string]any) {
	name := stringOf(m, "name")
	if name == "" {
		return
	}
	t := r.newType(name, stringOf(m, "type"), m)
	r.compiledAttributes(t, m)
	if t.IsDocument {
		injectBuiltins(t)
	}
}

func (r *resolver) compiledAttributes(t *Type, m map[string]any) {
	attrs := attributesOf(m)
	for _, attrName := range sortedKeys(attrs) {
		am, ok := attrs[attrName].(map[string]any)
		if !ok {
			continue
		}
		desc := am
		if v, ok := am["value"].(map[string]any); ok {
			desc = v
		}
		f := r.compiledField(t.Name, attrName, desc)
		if f.Description == "" {
			f.Description = stringOf(am, "description")
		}
		t.Fields[attrName] = f
	}
}

func (r *resolver) compiledField(owner, name string, d map[string]any) *Field {
	f := &Field{Name: name, Type: stringOf(d, "type"), Description: stringOf(d, "description")}
	switch f.Type {
	case TypeReference:
		f.IsReference = true
		f.ReferenceTargets = targetsOf(d["to"])
	case TypeArray:
		f.IsArray = true
		f.ArrayOf = r.compiledItemNames(owner+"."+name, d["of"])
	case "inline":
		f.Type = stringOf(d, "name")
	case TypeObject:
		if target := stringOf(d, "dereferencesTo"); target != "" {
			f.Type = TypeReference
			f.IsReference = true
			f.ReferenceTargets = []string{target}
		} else if attributesOf(d) != nil {
			f.Type = r.inlineObject(owner+"."+name, d, r.compiledAttributes)
		}
	case "union":
		if names := r.compiledItemNames(owner+"."+name, d["of"]); len(names) == 1 {
			f.Type = names[0]
		}
	}
	return f
}

// compiledItemNames returns the type names an array element (or union
// member) descriptor resolves to.
func (r *resolver) compiledItemNames(synthetic string, raw any) []string {
	switch v := raw.(type) {
	case []any:
		var out []string
		for _, item := range v {
			out = appendUnique(out, r.compiledItemNames(synthetic, item)...)
		}
		return out
	case map[string]any:
		switch stringOf(v, "type") {
		case TypeReference:
			return targetsOf(v["to"])
		case "inline":
			if n := stringOf(v, "name"); n != "" {
				return []string{n}
			}
		case "union":
			return r.compiledItemNames(synthetic, v["of"])
		case TypeObject:
			if target := stringOf(v, "dereferencesTo"); target != "" {
				return []string{target}
			}
			if attributesOf(v) != nil {
				return []string{r.inlineObject(synthetic, v, r.compiledAttributes)}
			}
			return nil
		case "":
			return nil
		default:
			return []string{stringOf(v, "type")}
		}
	}
	return nil
}

// --- helpers ---

func stringOf(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// targetsOf reads reference targets given as [{type: x}], ["x"], {type: x}
// or "x".
func targetsOf(raw any) []string {
	switch v := raw.(type) {
	case string:
		if v != "" {
			return []string{v}
		}
	case map[string]any:
		if t := stringOf(v, "type"); t != "" {
			return []string{t}
		}
	case []any:
		var out []string
		for _, item := range v {
			out = appendUnique(out, targetsOf(item)...)
		}
		return out
	}
	return nil
}

func appendUnique(dst []string, items ...string) []string {
	for _, it := range items {
		dup := false
		for _, d := range dst {
			if d == it {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, it)
		}
	}
	return dst
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
