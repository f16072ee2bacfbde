package config

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the project root.
const FileName = ".importglob.yaml"

// Config holds user-overridable settings, loaded from .importglob.yaml.
type Config struct {
	// Root is the project root, relative to the config file's directory.
	// Default: the config file's directory.
	Root string `yaml:"root"`

	// Takeover also rewrites import.meta.glob, globEager and globEagerDefault.
	// Default: false.
	Takeover *bool `yaml:"takeover"`

	// RestoreQueryExtension appends "&lang.<ext>" to queried imports.
	// Default: false.
	RestoreQueryExtension *bool `yaml:"restore_query_extension"`

	// IdentifierPrefix prefixes eager import bindings.
	// Default: "__import_glob_".
	IdentifierPrefix *string `yaml:"identifier_prefix"`

	// Alias maps specifier prefixes to root-relative directories.
	Alias map[string]string `yaml:"alias"`

	// Extensions lists the file extensions scanned by build and watch.
	Extensions []string `yaml:"extensions"`

	// Ignore lists extra directory names skipped by discovery.
	// These are added to the built-in ignore list.
	Ignore []string `yaml:"ignore"`

	// OutDir is where build writes transformed files.
	// Default: ".importglob/out".
	OutDir *string `yaml:"out_dir"`

	// Cache is the incremental build database.
	// Default: ".importglob/cache.db".
	Cache *string `yaml:"cache"`

	dir string
}

// DefaultExtensions are the script extensions scanned when none are configured.
var DefaultExtensions = []string{".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx", ".mts", ".cts"}

// Default returns the default configuration for a project directory.
func Default(dir string) *Config {
	return &Config{dir: dir}
}

// Load reads .importglob.yaml from dir. A missing file yields the defaults.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile reads a config file. A missing file yields the defaults for
// its directory.
func LoadFile(file string) (*Config, error) {
	cfg := Default(filepath.Dir(file))

	data, err := os.ReadFile(file)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", file, err)
	}
	return cfg, nil
}

// EffectiveRoot returns the absolute, forward-slash project root.
func (c *Config) EffectiveRoot() string {
	root := c.Root
	if root == "" {
		root = c.dir
	} else if !filepath.IsAbs(root) {
		root = filepath.Join(c.dir, root)
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return filepath.ToSlash(root)
}

// EffectiveTakeover returns the takeover setting, default false.
func (c *Config) EffectiveTakeover() bool {
	return c.Takeover != nil && *c.Takeover
}

// EffectiveRestoreQueryExtension returns the setting, default false.
func (c *Config) EffectiveRestoreQueryExtension() bool {
	return c.RestoreQueryExtension != nil && *c.RestoreQueryExtension
}

// EffectiveIdentifierPrefix returns the configured prefix or "__import_glob_".
func (c *Config) EffectiveIdentifierPrefix() string {
	if c.IdentifierPrefix != nil && *c.IdentifierPrefix != "" {
		return *c.IdentifierPrefix
	}
	return "__import_glob_"
}

// EffectiveExtensions returns the configured extensions or DefaultExtensions.
func (c *Config) EffectiveExtensions() []string {
	if len(c.Extensions) > 0 {
		return c.Extensions
	}
	return DefaultExtensions
}

// EffectiveOutDir returns the absolute build output directory.
func (c *Config) EffectiveOutDir() string {
	return c.underRoot(c.OutDir, ".importglob/out")
}

// EffectiveCache returns the absolute cache database path.
func (c *Config) EffectiveCache() string {
	return c.underRoot(c.Cache, ".importglob/cache.db")
}

func (c *Config) underRoot(v *string, def string) string {
	p := def
	if v != nil && *v != "" {
		p = *v
	}
	if filepath.IsAbs(p) {
		return filepath.ToSlash(p)
	}
	return path.Join(c.EffectiveRoot(), filepath.ToSlash(p))
}

// Resolver returns an AliasResolver for the configured aliases, or nil
// when none are configured.
func (c *Config) Resolver() *AliasResolver {
	if len(c.Alias) == 0 {
		return nil
	}
	return NewAliasResolver(c.EffectiveRoot(), c.Alias)
}

type alias struct {
	find        string
	replacement string
}

// AliasResolver rewrites specifiers by prefix. The longest matching prefix
// wins; replacements are resolved against the project root.
type AliasResolver struct {
	root    string
	aliases []alias
}

// NewAliasResolver creates an AliasResolver.
func NewAliasResolver(root string, aliases map[string]string) *AliasResolver {
	r := &AliasResolver{root: strings.TrimSuffix(root, "/")}
	for find, repl := range aliases {
		r.aliases = append(r.aliases, alias{find: find, replacement: repl})
	}
	sort.Slice(r.aliases, func(i, j int) bool {
		if len(r.aliases[i].find) != len(r.aliases[j].find) {
			return len(r.aliases[i].find) > len(r.aliases[j].find)
		}
		return r.aliases[i].find < r.aliases[j].find
	})
	return r
}

// ResolveID returns the aliased path of specifier, or specifier itself
// when no alias applies.
func (r *AliasResolver) ResolveID(_ context.Context, specifier, _ string) (string, error) {
	for _, a := range r.aliases {
		rest, ok := strings.CutPrefix(specifier, a.find)
		if !ok {
			continue
		}
		target := strings.TrimPrefix(a.replacement, "/")
		joined := path.Join(r.root, target, rest)
		if r.root == "" {
			joined = "/" + strings.TrimPrefix(joined, "/")
		}
		return joined, nil
	}
	return specifier, nil
}
