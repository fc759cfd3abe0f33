package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

type checkResult struct {
	Path          string   `json:"path"`
	Valid         bool     `json:"valid"`
	Error         string   `json:"error,omitempty"`
	Types         int      `json:"types"`
	DocumentTypes []string `json:"documentTypes,omitempty"`
}

func newCheckCommand(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "check [schema.json]",
		Short: "Load and validate a schema file",
		Long: `Load a schema file the same way the server does and report whether it is
usable. Exits non-zero when the schema is rejected.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, st, err := newService(cmd, opts)
			if err != nil {
				return err
			}
			path := st.schemaPath
			if len(args) == 1 {
				path = args[0]
			}

			res := checkResult{Path: path}
			if loadErr := svc.LoadSchema(cmd.Context(), path); loadErr != nil {
				res.Error = loadErr.Error()
			} else {
				res.Valid = true
				res.Types = len(svc.Loader().GetTypeNames())
				res.DocumentTypes = svc.Loader().GetDocumentTypeNames()
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(res); encErr != nil {
					return encErr
				}
			} else if res.Valid {
				fmt.Fprintf(out, "%s: ok, %d types (%d document types)\n", path, res.Types, len(res.DocumentTypes))
			}
			if !res.Valid {
				return fmt.Errorf("%s: %s", path, res.Error)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}
