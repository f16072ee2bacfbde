package lang

import (
	"path"
	"strings"
)

// Language represents a supported source or stylesheet language.
type Language string

const (
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	TSX        Language = "tsx"
	CSS        Language = "css"
	PostCSS    Language = "postcss"
	Less       Language = "less"
	Stylus     Language = "stylus"
	SCSS       Language = "scss"
	Sass       Language = "sass"
)

// ScriptLanguages returns the languages whose files may contain glob import call sites.
func ScriptLanguages() []Language {
	return []Language{JavaScript, TypeScript, TSX}
}

// LanguageSpec defines the tree-sitter node types for a language.
type LanguageSpec struct {
	Language       Language
	FileExtensions []string

	// Stylesheet marks languages whose generated imports carry the "used" query flag.
	Stylesheet bool

	// CallNodeTypes lists call expression node kinds.
	CallNodeTypes []string
	// LiteralNodeTypes lists node kinds whose text is never code (strings, templates, regexes).
	// A call site located inside one of these is skipped.
	LiteralNodeTypes []string
	// CommentNodeTypes lists comment node kinds.
	CommentNodeTypes []string
}

// registry maps file extensions to language specs.
var registry = map[string]*LanguageSpec{}

// Register adds a LanguageSpec to the global registry.
func Register(spec *LanguageSpec) {
	for _, ext := range spec.FileExtensions {
		registry[ext] = spec
	}
}

// ForLanguage returns the LanguageSpec for a language.
func ForLanguage(lang Language) *LanguageSpec {
	for _, spec := range registry {
		if spec.Language == lang {
			return spec
		}
	}
	return nil
}

// LanguageForExtension returns the Language for a file extension.
func LanguageForExtension(ext string) (Language, bool) {
	spec := registry[ext]
	if spec == nil {
		return "", false
	}
	return spec.Language, true
}

// ForPath returns the LanguageSpec for a module id or request. Any query
// string is ignored. Returns nil for unknown extensions and virtual ids.
func ForPath(id string) *LanguageSpec {
	if i := strings.IndexByte(id, '?'); i >= 0 {
		id = id[:i]
	}
	return registry[path.Ext(id)]
}

// IsScript reports whether the id names a JavaScript or TypeScript module.
func IsScript(id string) bool {
	spec := ForPath(id)
	return spec != nil && !spec.Stylesheet
}

// IsStylesheetRequest reports whether an import request targets a stylesheet,
// e.g. "./a.css", "./b.scss?inline".
func IsStylesheetRequest(request string) bool {
	spec := ForPath(request)
	return spec != nil && spec.Stylesheet
}
