package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/DeusData/groq-intel/internal/tools"
	"github.com/DeusData/groq-intel/internal/watcher"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the MCP tools over stdio and reload the schema on change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
}

func runServe(cmd *cobra.Command, opts *rootOptions) error {
	svc, st, err := newService(cmd, opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	path := st.schemaPath
	if abs, absErr := filepath.Abs(path); absErr == nil {
		path = abs
	}
	if _, statErr := os.Stat(path); statErr == nil {
		if loadErr := svc.LoadSchema(ctx, path); loadErr != nil {
			slog.Warn("serve.schema", "path", path, "err", loadErr)
		}
	} else {
		slog.Info("serve.schema_missing", "path", path)
	}

	w := watcher.New(svc.LoadSchema)
	w.Watch(path)
	srv := tools.NewServer(svc, tools.WithWatcher(w), tools.WithSchemaPath(path))

	g, gctx := errgroup.WithContext(ctx)
	watchCtx, cancelWatch := context.WithCancel(gctx)
	defer cancelWatch()

	g.Go(func() error {
		w.Run(watchCtx)
		return nil
	})
	g.Go(func() error {
		// The client closing stdin ends the session; stop watching too.
		defer cancelWatch()
		if runErr := srv.MCPServer().Run(gctx, &mcp.StdioTransport{}); runErr != nil && gctx.Err() == nil {
			return fmt.Errorf("server: %w", runErr)
		}
		return nil
	})
	return g.Wait()
}
