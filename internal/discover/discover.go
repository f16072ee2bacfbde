package discover

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/DeusData/importglob/internal/lang"
)

// IGNORE_PATTERNS are directory names to skip during discovery.
var IGNORE_PATTERNS = map[string]bool{
	".cache": true, ".git": true, ".hg": true, ".idea": true,
	".importglob": true, ".next": true, ".nuxt": true, ".npm": true,
	".nyc_output": true, ".output": true, ".parcel-cache": true,
	".pnpm-store": true, ".svelte-kit": true, ".svn": true,
	".turbo": true, ".vite": true, ".vscode": true, ".yarn": true,
	"bower_components": true, "coverage": true, "node_modules": true,
}

// IGNORE_SUFFIXES are file suffixes to skip.
var IGNORE_SUFFIXES = map[string]bool{
	".tmp": true, "~": true, ".swp": true, ".map": true, ".d.ts": true,
}

// FileInfo represents a discovered file.
type FileInfo struct {
	Path     string        // absolute path
	RelPath  string        // relative to project root, forward slashes
	Language lang.Language // detected language, empty for other files
}

// Options configures file discovery.
type Options struct {
	IgnoreFile string   // path to .importglobignore file (optional)
	Extensions []string // script extensions to return; default lang.ScriptLanguages
	Ignore     []string // extra directory name or path patterns to skip
	AllFiles   bool     // return every file, not only scripts
}

// IgnoreFileName is the per-project ignore file.
const IgnoreFileName = ".importglobignore"

// shouldSkipDir returns true if the directory should be skipped during discovery.
func shouldSkipDir(name, rel string, extraIgnore []string) bool {
	if IGNORE_PATTERNS[name] {
		return true
	}
	for _, pattern := range extraIgnore {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}

// Discover walks a project and returns its script files, or all files
// when opts.AllFiles is set.
func Discover(ctx context.Context, root string, opts *Options) ([]FileInfo, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	// Check cancellation before starting walk
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if opts == nil {
		opts = &Options{}
	}
	ignPath := opts.IgnoreFile
	if ignPath == "" {
		ignPath = filepath.Join(root, IgnoreFileName)
	}
	extraIgnore, _ := loadIgnoreFile(ignPath)
	extraIgnore = append(extraIgnore, opts.Ignore...)

	exts := scriptExtensions(opts.Extensions)

	var files []FileInfo
	err = filepath.Walk(root, func(path string, info os.FileInfo, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if walkErr != nil {
			return filepath.SkipDir
		}

		rel, _ := filepath.Rel(root, path)

		if info.IsDir() {
			if path != root && shouldSkipDir(info.Name(), filepath.ToSlash(rel), extraIgnore) {
				return filepath.SkipDir
			}
			return nil
		}

		for suffix := range IGNORE_SUFFIXES {
			if strings.HasSuffix(path, suffix) {
				return nil
			}
		}

		ext := filepath.Ext(path)
		l, _ := lang.LanguageForExtension(ext)
		if !exts[ext] && !opts.AllFiles {
			return nil
		}
		files = append(files, FileInfo{
			Path:     filepath.ToSlash(path),
			RelPath:  filepath.ToSlash(rel),
			Language: l,
		})
		return nil
	})

	return files, err
}

func scriptExtensions(configured []string) map[string]bool {
	exts := make(map[string]bool)
	if len(configured) > 0 {
		for _, e := range configured {
			if !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			exts[e] = true
		}
		return exts
	}
	for _, l := range lang.ScriptLanguages() {
		if spec := lang.ForLanguage(l); spec != nil {
			for _, e := range spec.FileExtensions {
				exts[e] = true
			}
		}
	}
	return exts
}

func loadIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			patterns = append(patterns, line)
		}
	}
	return patterns, scanner.Err()
}
