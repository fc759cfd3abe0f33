package analysis

import (
	"github.com/DeusData/groq-intel/internal/schema"
	"github.com/DeusData/groq-intel/internal/syntax"
)

// inferArgumentTypes returns the type names an argument expression carries
// into a call. Shapes it cannot judge yield nil.
//
//	field            the field's element, target or plain type names
//	field[]          the array field's element type names
//	a.b, a->, a->b   the resolved type of the expression
func inferArgumentTypes(arg syntax.Node, opts ResolveOptions) []string {
	switch arg.Kind() {
	case syntax.KindIdentifier:
		return lookupField(arg, opts).TypeNames()
	case syntax.KindSubscript:
		base := arg.ChildByFieldName("base")
		if arg.ChildByFieldName("index") != nil || base == nil || base.Kind() != syntax.KindIdentifier {
			return nil
		}
		if f := lookupField(base, opts); f != nil && f.IsArray {
			return append([]string(nil), f.ArrayOf...)
		}
	case syntax.KindAccess, syntax.KindDereference:
		if t := expressionType(arg, opts); t != nil {
			return []string{t.Name}
		}
	}
	return nil
}

// lookupField resolves a bare field name against the type context at ident,
// falling back to the first type anywhere in the schema declaring it.
func lookupField(ident syntax.Node, opts ResolveOptions) *schema.Field {
	if opts.Schema == nil {
		return nil
	}
	name := ident.Text()
	if t := ResolveTypeContext(ident, opts.nested()).Type; t != nil {
		if f := t.Field(name); f != nil {
			return f
		}
	}
	if owners := opts.Schema.FindFields(name); len(owners) > 0 {
		return owners[0].Field
	}
	return nil
}
