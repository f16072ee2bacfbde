package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/DeusData/importglob/internal/tools"
	"github.com/DeusData/importglob/internal/watcher"
)

func newTransformCommand(g *globalFlags) *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "transform <file>...",
		Short: "Transform files and print the result",
		Long: `Transform the glob import calls of each file. The rewritten code is printed
to stdout, or written back in place with --write. Files without calls are
printed unchanged.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(cmd, g)
			if err != nil {
				return err
			}
			for _, arg := range args {
				id, err := fileID(arg)
				if err != nil {
					return err
				}
				code, err := os.ReadFile(arg)
				if err != nil {
					return fmt.Errorf("read: %w", err)
				}
				res, err := p.transformer.Transform(cmd.Context(), code, id)
				if err != nil {
					return fmt.Errorf("%s: %w", arg, err)
				}
				out := string(code)
				if res != nil {
					out = res.Code
					slog.Info("transform.done", "file", id, "calls", len(res.Calls))
				}
				if write {
					if res == nil {
						continue
					}
					if err := os.WriteFile(arg, []byte(out), 0o644); err != nil {
						return fmt.Errorf("write: %w", err)
					}
					continue
				}
				_, _ = fmt.Fprint(cmd.OutOrStdout(), out)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "write the result back to the file")
	return cmd
}

func newBuildCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Transform every script of the project into the output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadProject(cmd, g)
			if err != nil {
				return err
			}
			b, s, err := p.builder(nil)
			if err != nil {
				return err
			}
			defer s.Close()

			stats, err := b.Run(cmd.Context())
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d files, %d transformed, %d written, %d unchanged, %d removed, %d failed\n",
				stats.Files, stats.Transformed, stats.Written, stats.Unchanged, stats.Removed, stats.Failed)
			return err
		},
	}
}

func newWatchCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Build, then rebuild importers when files matching their globs change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadProject(cmd, g)
			if err != nil {
				return err
			}
			reg := watcher.NewRegistry(p.root)
			b, s, err := p.builder(reg)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := b.LoadRegistry(); err != nil {
				return err
			}
			if _, err := b.Run(cmd.Context()); err != nil {
				slog.Warn("watch.initial", "err", err)
			}
			opts := p.discoverOptions()
			w := watcher.New(p.root, reg, b.File, &opts)
			slog.Info("watch.start", "root", p.root, "importers", len(reg.Importers()))
			w.Run(cmd.Context())
			return nil
		},
	}
}

func newServeCommand(g *globalFlags) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the transform tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadProject(cmd, g)
			if err != nil {
				return err
			}
			reg := watcher.NewRegistry(p.root)
			b, s, err := p.builder(reg)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := b.LoadRegistry(); err != nil {
				return err
			}
			srv := tools.NewServer(p.transformer, reg, b, version)
			ctx := cmd.Context()
			if watch {
				lock := srv.BuildLock()
				opts := p.discoverOptions()
				w := watcher.New(p.root, reg, lockedFile(lock, b.File), &opts)
				go func() {
					lock.Lock()
					if _, err := b.Run(ctx); err != nil {
						slog.Warn("serve.build", "err", err)
					}
					lock.Unlock()
					w.Run(ctx)
				}()
			}
			if err := srv.MCPServer().Run(ctx, &mcp.StdioTransport{}); err != nil {
				return fmt.Errorf("server: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "rebuild affected importers in the background")
	return cmd
}

func lockedFile(mu *sync.Mutex, fn watcher.TransformFunc) watcher.TransformFunc {
	return func(ctx context.Context, importer string) error {
		mu.Lock()
		defer mu.Unlock()
		return fn(ctx, importer)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "importglob %s\n", version)
		},
	}
}
