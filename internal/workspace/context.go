package workspace

import (
	"fmt"
	"strings"

	"github.com/DeusData/groq-intel/internal/analysis"
	"github.com/DeusData/groq-intel/internal/model"
	"github.com/DeusData/groq-intel/internal/schema"
	"github.com/DeusData/groq-intel/internal/syntax"
)

// FieldReport describes a schema field.
type FieldReport struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Targets     []string `json:"referenceTargets,omitempty"`
	ArrayOf     []string `json:"arrayOf,omitempty"`
	Description string   `json:"description,omitempty"`
}

// NewFieldReport describes f, or returns nil for a nil field.
func NewFieldReport(f *schema.Field) *FieldReport {
	if f == nil {
		return nil
	}
	return &FieldReport{
		Name:        f.Name,
		Type:        f.Type,
		Targets:     f.ReferenceTargets,
		ArrayOf:     f.ArrayOf,
		Description: f.Description,
	}
}

func fieldNames(fields []*schema.Field) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, f.Name)
	}
	return out
}

// ContextReport is the type context at a position.
type ContextReport struct {
	Node            string       `json:"node,omitempty"`
	Text            string       `json:"text,omitempty"`
	Type            string       `json:"type,omitempty"`
	Strategy        string       `json:"strategy,omitempty"`
	DocumentTypes   []string     `json:"documentTypes"`
	Field           *FieldReport `json:"field,omitempty"`
	IsArray         bool         `json:"isArray,omitempty"`
	Function        string       `json:"function,omitempty"`
	Parameter       string       `json:"parameter,omitempty"`
	AvailableFields []string     `json:"availableFields"`
	TargetFields    []string     `json:"referenceTargetFields,omitempty"`
}

// resolveAt resolves the node at offset. The text-pattern fallback is only
// enabled for sources that did not parse cleanly.
func (d *document) resolveAt(offset int) (syntax.Node, analysis.InferredContext) {
	node := syntax.DescendantAt(d.root, offset)
	if node != nil && node.Kind() == syntax.KindSourceFile {
		node = nil
	}
	opts := analysis.ResolveOptions{Schema: d.schema, Functions: d.functions}
	if len(d.parseErrs) > 0 {
		opts.Source = d.source
		opts.Cursor = offset
	}
	return node, analysis.ResolveTypeContext(node, opts)
}

// ContextAt reports the type context at a byte offset of source.
func (s *Service) ContextAt(source string, offset int) *ContextReport {
	doc := s.open(source)
	node, ctx := doc.resolveAt(offset)

	rep := &ContextReport{
		Strategy:        ctx.Strategy,
		DocumentTypes:   ctx.DocumentTypes,
		Field:           NewFieldReport(ctx.Field),
		IsArray:         ctx.IsArray,
		AvailableFields: fieldNames(analysis.GetAvailableFields(ctx, doc.schema)),
		TargetFields:    fieldNames(analysis.GetReferenceTargetFields(ctx.Field, doc.schema)),
	}
	if rep.DocumentTypes == nil {
		rep.DocumentTypes = []string{}
	}
	if node != nil {
		rep.Node = node.Kind()
		rep.Text = node.Text()
	}
	if ctx.Type != nil {
		rep.Type = ctx.Type.Name
	}
	if ctx.Function != nil {
		rep.Function = ctx.Function.Name
	}
	if ctx.Parameter != nil {
		rep.Parameter = ctx.Parameter.Name
	}
	return rep
}

// Hover returns markdown describing what sits at offset, or "".
func (s *Service) Hover(source string, offset int) string {
	doc := s.open(source)
	node, ctx := doc.resolveAt(offset)
	if node == nil {
		return ""
	}

	hc := model.HoverContext{Text: node.Text(), Function: ctx.Function, Schema: doc.schema}
	if ctx.Function != nil && node.Kind() == syntax.KindVariable {
		hc.Parameter = ctx.Function.ParameterByName(node.Text())
	}

	var parts []string
	switch {
	case ctx.Field != nil:
		parts = append(parts, fieldMarkdown(ctx.Field))
	case hc.Parameter != nil:
		types := doc.functions.GetParameterType(ctx.Function, hc.Parameter.Index)
		md := fmt.Sprintf("**%s** parameter of `%s`", hc.Parameter.Name, ctx.Function.Name)
		if len(types) > 0 {
			md += fmt.Sprintf("\n\nTypes: `%s`", strings.Join(types, "` | `"))
		}
		parts = append(parts, md)
	case node.Kind() == syntax.KindIdentifier && doc.functions.GetDefinition(node.Text()) != nil:
		def := doc.functions.GetDefinition(node.Text())
		parts = append(parts, fmt.Sprintf("**fn %s**(%s)", def.Name, parameterList(def)))
	}
	parts = append(parts, s.extensions.HoverContent(hc)...)
	return strings.Join(parts, "\n\n---\n\n")
}

func fieldMarkdown(f *schema.Field) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**: `%s`", f.Name, f.Type)
	switch {
	case f.IsReference:
		fmt.Fprintf(&b, " → `%s`", strings.Join(f.ReferenceTargets, "` | `"))
	case f.IsArray:
		fmt.Fprintf(&b, " of `%s`", strings.Join(f.ArrayOf, "` | `"))
	}
	if f.Description != "" {
		b.WriteString("\n\n")
		b.WriteString(f.Description)
	}
	return b.String()
}

func parameterList(def *model.FunctionDefinition) string {
	names := make([]string, len(def.Parameters))
	for i, p := range def.Parameters {
		names[i] = p.Name
	}
	return strings.Join(names, ", ")
}
