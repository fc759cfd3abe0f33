package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/DeusData/groq-intel/internal/config"
	"github.com/DeusData/groq-intel/internal/schema"
	"github.com/DeusData/groq-intel/internal/tools"
	"github.com/DeusData/groq-intel/internal/workspace"
)

var version = "dev"

// rootOptions holds the global flags. Flags that were set override the
// project's .groq-intel.yaml.
type rootOptions struct {
	dir          string
	schemaPath   string
	cacheDir     string
	noValidation bool
	noCache      bool
	extensions   []string
	verbose      bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "groq-intel",
		Short: "Schema-aware type inference for GROQ queries",
		Long: `groq-intel loads a content schema and answers type questions about GROQ
queries: the document type in scope at a cursor, the fields available there,
and the inferred types of user-defined function parameters.

Without a subcommand it serves the MCP tools over stdio.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				slog.SetLogLoggerLevel(slog.LevelDebug)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.dir, "dir", ".", "project root holding .groq-intel.yaml")
	flags.StringVar(&opts.schemaPath, "schema", "", "schema JSON file (default from config, else schema.json)")
	flags.StringVar(&opts.cacheDir, "cache-dir", "", "validation cache directory")
	flags.BoolVar(&opts.noValidation, "no-validation", false, "skip schema size and depth validation")
	flags.BoolVar(&opts.noCache, "no-cache", false, "do not read or write the validation cache")
	flags.StringSliceVar(&opts.extensions, "extensions", nil, "extension ids to enable (overrides config)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging to stderr")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newCheckCommand(opts))
	cmd.AddCommand(newAnalyzeCommand(opts))
	return cmd
}

// settings merges the config file with the flags that were set.
type settings struct {
	schemaPath string
	service    workspace.Options
}

func resolveSettings(cmd *cobra.Command, opts *rootOptions) settings {
	cfg := config.Load(opts.dir)
	flags := cmd.Flags()

	st := settings{
		schemaPath: cfg.EffectiveSchemaPath(),
		service: workspace.Options{
			Validation: cfg.EffectiveValidation(),
			CacheDir:   cfg.Schema.CacheDir,
			Extensions: cfg.EnabledExtensions(workspace.DefaultExtensions),
		},
	}
	if opts.schemaPath != "" {
		st.schemaPath = opts.schemaPath
	}
	if opts.cacheDir != "" {
		st.service.CacheDir = opts.cacheDir
	}
	patch := schema.ConfigPatch{}
	if flags.Changed("no-validation") {
		enabled := !opts.noValidation
		patch.Enabled = &enabled
	}
	if flags.Changed("no-cache") {
		cache := !opts.noCache
		patch.CacheValidation = &cache
	}
	st.service.Validation = patch.Apply(st.service.Validation)
	if flags.Changed("extensions") {
		st.service.Extensions = append([]string{}, opts.extensions...)
	}
	return st
}

func newService(cmd *cobra.Command, opts *rootOptions) (*workspace.Service, settings, error) {
	st := resolveSettings(cmd, opts)
	svc, err := workspace.New(st.service)
	if err != nil {
		return nil, st, fmt.Errorf("workspace: %w", err)
	}
	return svc, st, nil
}

func main() {
	tools.Version = version
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "groq-intel:", err)
		os.Exit(1)
	}
}
