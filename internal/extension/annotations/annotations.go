// Package annotations declares function parameter types from comments:
//
//	// @param {author} $person
//	fn byAuthor($person) = *[_type == "post" && author._ref == $person._id];
//
// Only the comment lines directly above a definition are read.
package annotations

import (
	"fmt"
	"regexp"
	"strings"

	"go.lsp.dev/protocol"

	"github.com/DeusData/groq-intel/internal/extension"
	"github.com/DeusData/groq-intel/internal/model"
	"github.com/DeusData/groq-intel/internal/schema"
	"github.com/DeusData/groq-intel/internal/syntax"
)

// ID is the registry id of the extension.
const ID = "param-annotations"

const diagnosticSource = "groq"

var paramRe = regexp.MustCompile(`@param\s+\{\s*([A-Za-z_][\w.]*)(\[\])?\s*\}\s+(\$[A-Za-z_]\w*)`)

// annotation is one parsed @param line.
type annotation struct {
	typeName  string
	param     string
	typeStart int // byte offsets of the type name in source
	typeEnd   int
	start     int // byte offsets of the whole tag
	end       int
}

// New returns the extension, to be registered and enabled by the caller.
func New() *extension.Extension {
	return &extension.Extension{
		ID:                  ID,
		Description:         "declare parameter types with // @param {type} $name comments",
		DefinitionExtracted: applyAnnotations,
		ParameterType:       declaredType,
		Diagnostics:         diagnostics,
		HoverContent:        hover,
	}
}

// parse returns the annotations in the run of // comment lines ending right
// above the line containing start.
func parse(source string, start int) []annotation {
	if start < 0 || start > len(source) {
		return nil
	}
	lineStart := strings.LastIndexByte(source[:start], '\n') + 1
	var out []annotation
	for end := lineStart - 1; end > 0; {
		begin := strings.LastIndexByte(source[:end], '\n') + 1
		line := source[begin:end]
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "//") {
			break
		}
		for _, m := range paramRe.FindAllStringSubmatchIndex(line, -1) {
			out = append(out, annotation{
				typeName:  line[m[2]:m[3]],
				param:     line[m[6]:m[7]],
				typeStart: begin + m[2],
				typeEnd:   begin + m[3],
				start:     begin + m[0],
				end:       begin + m[1],
			})
		}
		end = begin - 1
	}
	// Collected bottom-up; restore source order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func applyAnnotations(def *model.FunctionDefinition, source string, start int) {
	for _, a := range parse(source, start) {
		p := def.ParameterByName(a.param)
		if p == nil || p.DeclaredType != "" {
			continue
		}
		r := syntax.SpanRange(source, a.typeStart, a.typeEnd)
		p.DeclaredType = a.typeName
		p.DeclaredRange = &r
	}
}

func declaredType(_ *model.FunctionDefinition, param *model.FunctionParameter, _ int) string {
	if param == nil {
		return ""
	}
	return param.DeclaredType
}

func diagnostics(defs []*model.FunctionDefinition, s *schema.Schema, source string) []protocol.Diagnostic {
	var out []protocol.Diagnostic
	for _, def := range defs {
		for _, a := range parse(source, def.Start) {
			if def.ParameterByName(a.param) == nil {
				out = append(out, protocol.Diagnostic{
					Range:    syntax.SpanRange(source, a.start, a.end),
					Severity: protocol.DiagnosticSeverityWarning,
					Source:   diagnosticSource,
					Message:  fmt.Sprintf("@param %s does not name a parameter of %s", a.param, def.Name),
				})
				continue
			}
			if s.IsLoaded() && s.GetType(a.typeName) == nil {
				out = append(out, protocol.Diagnostic{
					Range:    syntax.SpanRange(source, a.typeStart, a.typeEnd),
					Severity: protocol.DiagnosticSeverityWarning,
					Source:   diagnosticSource,
					Message:  fmt.Sprintf("unknown type %q in @param annotation", a.typeName),
				})
			}
		}
	}
	return out
}

func hover(ctx model.HoverContext) string {
	p := ctx.Parameter
	if p == nil || p.DeclaredType == "" {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Declared type: `%s`", p.DeclaredType)
	if t := ctx.Schema.GetType(p.DeclaredType); t != nil {
		if t.Title != "" {
			fmt.Fprintf(&b, " (%s)", t.Title)
		}
		if t.Description != "" {
			b.WriteString("\n\n")
			b.WriteString(t.Description)
		}
	}
	return b.String()
}
