package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"go.lsp.dev/protocol"
)

// errHasErrors signals error diagnostics under --strict.
var errHasErrors = errors.New("query has error diagnostics")

func newAnalyzeCommand(opts *rootOptions) *cobra.Command {
	var (
		offset int
		strict bool
	)
	cmd := &cobra.Command{
		Use:   "analyze <query-file>",
		Short: "Print a JSON analysis report for a GROQ query",
		Long: `Analyze a GROQ query file ("-" reads stdin) against the configured schema.
Prints functions, inferred parameter types and diagnostics. With --offset,
prints the type context at that byte offset instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readQuery(cmd, args[0])
			if err != nil {
				return err
			}
			svc, st, err := newService(cmd, opts)
			if err != nil {
				return err
			}
			if _, statErr := os.Stat(st.schemaPath); statErr == nil {
				if loadErr := svc.LoadSchema(cmd.Context(), st.schemaPath); loadErr != nil {
					slog.Warn("analyze.schema", "path", st.schemaPath, "err", loadErr)
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			if cmd.Flags().Changed("offset") {
				if offset < 0 || offset > len(src) {
					return fmt.Errorf("offset %d out of range [0, %d]", offset, len(src))
				}
				return enc.Encode(svc.ContextAt(src, offset))
			}

			rep := svc.Analyze(src)
			if err := enc.Encode(rep); err != nil {
				return err
			}
			if strict {
				for _, d := range rep.Diagnostics {
					if d.Severity == protocol.DiagnosticSeverityError {
						return errHasErrors
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&offset, "offset", 0, "byte offset to report the type context for")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any error diagnostic is reported")
	return cmd
}

func readQuery(cmd *cobra.Command, name string) (string, error) {
	if name == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("read query: %w", err)
	}
	return string(b), nil
}
