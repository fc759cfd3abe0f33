package analysis

import (
	"fmt"

	"go.lsp.dev/protocol"

	"github.com/DeusData/groq-intel/internal/syntax"
)

// DiagnosticSource labels every diagnostic the engine reports.
const DiagnosticSource = "groq"

// Diagnostics reports the problems found during the last extraction followed
// by those of enabled extensions: direct recursion (error), duplicate
// definitions and arity mismatches (warnings).
func (r *FunctionRegistry) Diagnostics() []protocol.Diagnostic {
	var out []protocol.Diagnostic
	for _, rc := range r.recursive {
		out = append(out, r.diagnostic(rc.Call, protocol.DiagnosticSeverityError,
			fmt.Sprintf("recursive call to %s: GROQ functions cannot call themselves", rc.Function)))
	}
	for _, dup := range r.duplicates {
		node := dup.Node.ChildByFieldName("name")
		if node == nil {
			node = dup.Node
		}
		out = append(out, r.diagnostic(node, protocol.DiagnosticSeverityWarning,
			fmt.Sprintf("function %s is already defined", dup.Name)))
	}
	for _, cs := range r.allCalls {
		def := r.defs[cs.Name]
		if got, want := len(cs.Arguments), len(def.Parameters); got != want {
			out = append(out, r.diagnostic(cs.Node, protocol.DiagnosticSeverityWarning,
				fmt.Sprintf("%s expects %d argument(s), got %d", cs.Name, want, got)))
		}
	}
	return append(out, r.extensions.Diagnostics(r.order, r.schema, r.source)...)
}

func (r *FunctionRegistry) diagnostic(node syntax.Node, severity protocol.DiagnosticSeverity, msg string) protocol.Diagnostic {
	return protocol.Diagnostic{
		Range:    syntax.RangeOf(r.source, node),
		Severity: severity,
		Source:   DiagnosticSource,
		Message:  msg,
	}
}
