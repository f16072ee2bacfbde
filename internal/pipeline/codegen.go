package pipeline

import (
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/DeusData/importglob/internal/lang"
)

// DefaultIdentifierPrefix prefixes the bindings of eager imports.
const DefaultIdentifierPrefix = "__import_glob_"

var identifierRE = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// generated is the rewrite of one call site.
type generated struct {
	start, end  int
	replacement string
	imports     []string
}

// generate builds the object literal replacing a call site and the static
// imports it needs. dir is "" for virtual modules.
func (t *Transformer) generate(site *CallSite, dir string) (generated, error) {
	out := generated{start: site.Start, end: site.End}
	query := site.Options.Query.String()

	props := make([]string, 0, len(site.Files))
	for i, file := range site.Files {
		keyPath, importPath, err := t.paths(site, dir, file)
		if err != nil {
			return out, err
		}
		importPath += t.importQuery(query, file)

		if site.Options.Eager {
			name := fmt.Sprintf("%s%d_%d", t.prefix, site.Ordinal, i)
			binding := "* as " + name
			if site.Options.Export != "" {
				binding = fmt.Sprintf("{ %s as %s }", exportName(site.Options.Export), name)
			}
			out.imports = append(out.imports, fmt.Sprintf("import %s from %s", binding, jsonString(importPath)))
			props = append(props, fmt.Sprintf("%s: %s", jsonString(keyPath), name))
			continue
		}

		load := fmt.Sprintf("import(%s)", jsonString(importPath))
		if site.Options.Export != "" {
			load += fmt.Sprintf(".then(m => m[%s])", jsonString(site.Options.Export))
		}
		props = append(props, fmt.Sprintf("%s: () => %s", jsonString(keyPath), load))
	}

	out.replacement = "{\n" + strings.Join(props, ",\n") + "\n}"
	return out, nil
}

// paths returns the object key and the import specifier for a matched
// file. Relative calls produce specifiers relative to dir; others are
// written relative to the project root with a leading "/".
func (t *Transformer) paths(site *CallSite, dir, file string) (keyPath, importPath string, err error) {
	if dir == "" {
		if site.IsRelative {
			return "", "", callError(KindPathForm, site.Start, "In virtual modules, all globs must start with '/'")
		}
		p := "/" + relPath(t.root, file)
		return p, p, nil
	}

	importPath = relPath(dir, file)
	if !isParentPath(importPath) {
		importPath = "./" + importPath
	}
	if site.IsRelative {
		return importPath, importPath, nil
	}
	keyPath = relPath(t.root, file)
	if !isParentPath(keyPath) {
		keyPath = "/" + keyPath
	}
	return keyPath, importPath, nil
}

// isParentPath reports whether a relative path climbs out of its base.
// A leading dot alone does not count: ".hidden/x.ts" is a child path.
func isParentPath(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, "../")
}

// importQuery appends the stylesheet marker and, when enabled, the
// extension marker to the call's query.
func (t *Transformer) importQuery(query, file string) string {
	if lang.IsStylesheetRequest(file) {
		if query != "" {
			query += "&used"
		} else {
			query = "?used"
		}
	}
	if t.restoreQueryExtension && query != "" && query != "?raw" {
		if ext := strings.TrimPrefix(path.Ext(file), "."); ext != "" {
			query += "&lang." + ext
		}
	}
	return query
}

func relPath(base, target string) string {
	rel, err := filepath.Rel(filepath.FromSlash(base), filepath.FromSlash(target))
	if err != nil {
		return target
	}
	return filepath.ToSlash(rel)
}

// exportName returns a name usable in an import clause. Names that are
// not identifiers are written as string literals.
func exportName(name string) string {
	if identifierRE.MatchString(name) {
		return name
	}
	return jsonString(name)
}

// jsonString quotes s as a JavaScript string literal.
func jsonString(s string) string {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return `""`
	}
	return strings.TrimSuffix(b.String(), "\n")
}
