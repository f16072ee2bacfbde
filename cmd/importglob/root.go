package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/DeusData/importglob/internal/build"
	"github.com/DeusData/importglob/internal/config"
	"github.com/DeusData/importglob/internal/discover"
	"github.com/DeusData/importglob/internal/pipeline"
	"github.com/DeusData/importglob/internal/store"
	"github.com/DeusData/importglob/internal/watcher"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	root       string
	configFile string
	verbose    bool
	takeover   bool
}

// execute runs the CLI and returns the process exit code.
func execute(args []string) int {
	rootCmd := newRootCommand()
	rootCmd.SetArgs(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCommand() *cobra.Command {
	g := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:   "importglob",
		Short: "Rewrite import.meta.importGlob calls into static imports",
		Long: `importglob expands import.meta.importGlob(...) calls in JavaScript and
TypeScript modules into plain import declarations or lazy import() maps.

Configuration is read from .importglob.yaml in the project root.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if g.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&g.root, "root", "", "project root (default: current directory)")
	pf.StringVar(&g.configFile, "config", "", "config file (default: <root>/"+config.FileName+")")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVar(&g.takeover, "takeover", false, "also rewrite import.meta.glob, globEager and globEagerDefault")

	rootCmd.AddCommand(newTransformCommand(g))
	rootCmd.AddCommand(newBuildCommand(g))
	rootCmd.AddCommand(newWatchCommand(g))
	rootCmd.AddCommand(newServeCommand(g))
	rootCmd.AddCommand(newVersionCommand())
	return rootCmd
}

// project is the configured state shared by the commands.
type project struct {
	cfg         *config.Config
	root        string
	transformer *pipeline.Transformer
}

func loadProject(cmd *cobra.Command, g *globalFlags) (*project, error) {
	dir := g.root
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		dir = wd
	}
	file := g.configFile
	if file == "" {
		file = filepath.Join(dir, config.FileName)
	}
	cfg, err := config.LoadFile(file)
	if err != nil {
		return nil, err
	}
	if g.root != "" && cfg.Root == "" {
		abs, err := filepath.Abs(g.root)
		if err != nil {
			return nil, err
		}
		cfg.Root = abs
	}
	if cmd.Flags().Changed("takeover") {
		cfg.Takeover = &g.takeover
	}

	root := cfg.EffectiveRoot()
	tc := pipeline.Config{
		Root:                  root,
		Takeover:              cfg.EffectiveTakeover(),
		RestoreQueryExtension: cfg.EffectiveRestoreQueryExtension(),
		IdentifierPrefix:      cfg.EffectiveIdentifierPrefix(),
	}
	// a nil *AliasResolver must not become a non-nil interface
	if r := cfg.Resolver(); r != nil {
		tc.Resolver = r
	}
	slog.Debug("config.loaded", "root", root, "takeover", tc.Takeover, "aliases", len(cfg.Alias))
	return &project{cfg: cfg, root: root, transformer: pipeline.New(tc)}, nil
}

// discoverOptions skips the output directory when it lives inside the root.
func (p *project) discoverOptions() discover.Options {
	opts := discover.Options{
		Extensions: p.cfg.EffectiveExtensions(),
		Ignore:     append([]string(nil), p.cfg.Ignore...),
	}
	if rel, ok := strings.CutPrefix(p.cfg.EffectiveOutDir(), p.root+"/"); ok {
		opts.Ignore = append(opts.Ignore, rel)
	}
	return opts
}

// builder opens the cache and returns a Builder; the caller closes the store.
func (p *project) builder(reg *watcher.Registry) (*build.Builder, *store.Store, error) {
	s, err := store.OpenPath(filepath.FromSlash(p.cfg.EffectiveCache()))
	if err != nil {
		return nil, nil, err
	}
	return &build.Builder{
		Root:        p.root,
		OutDir:      p.cfg.EffectiveOutDir(),
		Store:       s,
		Transformer: p.transformer,
		Discover:    p.discoverOptions(),
		Registry:    reg,
	}, s, nil
}

// fileID turns a command-line path into an absolute forward-slash id.
func fileID(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return path.Clean(filepath.ToSlash(abs)), nil
}
