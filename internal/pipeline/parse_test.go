package pipeline

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type parsed struct {
	Globs []string
	Opts  Options
	Start int
}

func parseAll(t *testing.T, code string) []parsed {
	t.Helper()
	tr := New(Config{Root: "/root", Takeover: true})
	sites, err := tr.Parse([]byte(code), "/root/src/main.ts")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	out := make([]parsed, 0, len(sites))
	for _, s := range sites {
		out = append(out, parsed{Globs: s.Globs, Opts: s.Options, Start: s.Start})
	}
	return out
}

func parseError(t *testing.T, code string) error {
	t.Helper()
	tr := New(Config{Root: "/root", Takeover: true})
	_, err := tr.Parse([]byte(code), "/root/src/main.ts")
	return err
}

func TestParsePositives(t *testing.T) {
	tests := []struct {
		name string
		code string
		want []parsed
	}{
		{
			name: "basic",
			code: "\n    import.meta.importGlob('./modules/*.ts')\n    ",
			want: []parsed{{Globs: []string{"./modules/*.ts"}, Start: 5}},
		},
		{
			name: "array",
			code: "\n    import.meta.importGlob(['./modules/*.ts', './dir/*.{js,ts}'])\n    ",
			want: []parsed{{Globs: []string{"./modules/*.ts", "./dir/*.{js,ts}"}, Start: 5}},
		},
		{
			name: "options with multilines",
			code: `
    import.meta.importGlob([
      './modules/*.ts',
      "!./dir/*.{js,ts}"
    ], {
      eager: true,
      export: 'named'
    })
    `,
			want: []parsed{{
				Globs: []string{"./modules/*.ts", "!./dir/*.{js,ts}"},
				Opts:  Options{Eager: true, Export: "named"},
				Start: 5,
			}},
		},
		{
			name: "comments containing parens",
			code: `
    const modules = import.meta.glob(
      '/dir/**'
      // for test: annotation contain ")"
      /*
       * for test: annotation contain ")"
       * */
    )
    `,
			want: []parsed{{Globs: []string{"/dir/**"}, Start: 21}},
		},
		{
			name: "query object",
			code: `
    const modules = import.meta.glob(
      '/dir/**',
      {
        query: {
          foo: 'bar',
          raw: true,
        }
      }
    )
    `,
			want: []parsed{{
				Globs: []string{"/dir/**"},
				Opts: Options{Query: &Query{Params: []QueryParam{
					{Key: "foo", Value: "bar"},
					{Key: "raw", Value: true},
				}}},
				Start: 21,
			}},
		},
		{
			name: "object property",
			code: `
    export const pageFiles = {
      '.page': import.meta.glob('/**/*.page.*([a-zA-Z0-9])')
};`,
			want: []parsed{{Globs: []string{"/**/*.page.*([a-zA-Z0-9])"}, Start: 47}},
		},
		{
			name: "object properties",
			code: `
    export const pageFiles = {
      '.page.client': import.meta.glob('/**/*.page.client.*([a-zA-Z0-9])'),
      '.page.server': import.meta.glob('/**/*.page.server.*([a-zA-Z0-9])'),
};`,
			want: []parsed{
				{Globs: []string{"/**/*.page.client.*([a-zA-Z0-9])"}, Start: 54},
				{Globs: []string{"/**/*.page.server.*([a-zA-Z0-9])"}, Start: 130},
			},
		},
		{
			name: "array items",
			code: `
    export const pageFiles = [
      import.meta.glob('/**/*.page.client.*([a-zA-Z0-9])'),
      import.meta.glob('/**/*.page.server.*([a-zA-Z0-9])'),
    ]`,
			want: []parsed{
				{Globs: []string{"/**/*.page.client.*([a-zA-Z0-9])"}, Start: 38},
				{Globs: []string{"/**/*.page.server.*([a-zA-Z0-9])"}, Start: 98},
			},
		},
		{
			name: "as raw forces default export",
			code: `import.meta.importGlob('./*.txt', { as: 'raw' })`,
			want: []parsed{{
				Globs: []string{"./*.txt"},
				Opts:  Options{As: "raw", Export: "default", Query: &Query{Raw: "raw"}},
			}},
		},
		{
			name: "as keeps explicit default export",
			code: `import.meta.importGlob('./*.svg', { as: 'url', export: 'default' })`,
			want: []parsed{{
				Globs: []string{"./*.svg"},
				Opts:  Options{As: "url", Export: "default", Query: &Query{Raw: "url"}},
			}},
		},
		{
			name: "other as values keep exports",
			code: `import.meta.importGlob('./*.json', { as: 'json', export: 'data' })`,
			want: []parsed{{
				Globs: []string{"./*.json"},
				Opts:  Options{As: "json", Export: "data", Query: &Query{Raw: "json"}},
			}},
		},
		{
			name: "empty as keeps exports",
			code: `import.meta.importGlob('./*.json', { as: '', export: 'data' })`,
			want: []parsed{{
				Globs: []string{"./*.json"},
				Opts:  Options{Export: "data", Query: &Query{}},
			}},
		},
		{
			name: "eager alias",
			code: `import.meta.globEager('./*.ts')`,
			want: []parsed{{Globs: []string{"./*.ts"}, Opts: Options{Eager: true}}},
		},
		{
			name: "eager default alias",
			code: `import.meta.globEagerDefault('./*.ts')`,
			want: []parsed{{Globs: []string{"./*.ts"}, Opts: Options{Eager: true, Export: "default"}}},
		},
		{
			name: "exhaustive",
			code: `import.meta.importGlob('./**/*.ts', { exhaustive: true })`,
			want: []parsed{{Globs: []string{"./**/*.ts"}, Opts: Options{Exhaustive: true}}},
		},
		{
			name: "in string skipped",
			code: `const s = "import.meta.importGlob()"`,
			want: []parsed{},
		},
		{
			name: "still being typed",
			code: "import.meta.importGlob('./a/*.ts')\nimport.meta.importGlob('./mod",
			want: []parsed{{Globs: []string{"./a/*.ts"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseAll(t, tt.code)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseNegatives(t *testing.T) {
	tests := []struct {
		code string
		kind ErrorKind
		want string
	}{
		{"import.meta.importGlob(", KindSyntax, "SyntaxError: Unexpected token (1:23)"},
		{"import.meta.importGlob()", KindArity, "Invalid glob import syntax: Expected 1-2 arguments, but got 0"},
		{`import.meta.importGlob("", {}, {})`, KindArity, "Invalid glob import syntax: Expected 1-2 arguments, but got 3"},
		{"import.meta.importGlob(hey)", KindLiterality, "Invalid glob import syntax: Could only use literals"},
		{"import.meta.importGlob(`hi ${hey}`)", KindLiterality, "Invalid glob import syntax: Could only use literals"},
		{"import.meta.importGlob(1)", KindType, `Invalid glob import syntax: Expected glob to be a string, but got "number"`},
		{"import.meta.importGlob([hey])", KindLiterality, "Invalid glob import syntax: Could only use literals"},
		{`import.meta.importGlob(["1", hey])`, KindLiterality, "Invalid glob import syntax: Could only use literals"},
		{`import.meta.importGlob(["1", null])`, KindType, `Invalid glob import syntax: Expected glob to be a string, but got "object"`},
		{`import.meta.importGlob("hey", hey)`, KindType, `Invalid glob import syntax: Expected the second argument o to be a object literal, but got "Identifier"`},
		{`import.meta.importGlob("hey", [])`, KindType, `Invalid glob import syntax: Expected the second argument o to be a object literal, but got "ArrayExpression"`},
		{`import.meta.importGlob("hey", { hey: 1 })`, KindSchema, "Invalid glob import syntax: Unknown options hey"},
		{`import.meta.importGlob("hey", { eager: hey })`, KindLiterality, "Invalid glob import syntax: Could only use literals"},
		{`import.meta.importGlob("hey", { ...opts })`, KindLiterality, "Invalid glob import syntax: Could only use literals"},
		{`import.meta.importGlob("hey", { ["eager"]: true })`, KindLiterality, "Invalid glob import syntax: Could only use literals"},
		{`import.meta.importGlob("hey", { eager: 123 })`, KindType, `Invalid glob import syntax: Expected the type of option "eager" to be "boolean", but got "number"`},
		{`import.meta.importGlob("hey", { export: true })`, KindType, `Invalid glob import syntax: Expected the type of option "export" to be "string", but got "boolean"`},
		{`import.meta.importGlob("./*.js", { as: "raw", query: "hi" })`, KindSchema, `Invalid glob import syntax: Options "as" and "query" cannot be used together`},
		{`import.meta.importGlob("./*.js", { as: "json", query: {} })`, KindSchema, `Invalid glob import syntax: Options "as" and "query" cannot be used together`},
		{`import.meta.importGlob("./*.js", { as: "", query: "hi" })`, KindSchema, `Invalid glob import syntax: Options "as" and "query" cannot be used together`},
		{`import.meta.importGlob("./*.js", { as: "raw", export: "named" })`, KindSchema, `Invalid glob import syntax: Option "export" can only be "default" when "as" is "raw", but got "named"`},
		{`import.meta.importGlob("./*.js", { query: 123 })`, KindType, `Invalid glob import syntax: Expected query to be a string, but got "number"`},
		{`import.meta.importGlob("./*.js", { query: { foo: {} } })`, KindLiterality, "Invalid glob import syntax: Could only use literals"},
		{`import.meta.importGlob("./*.js", { query: { foo: hey } })`, KindLiterality, "Invalid glob import syntax: Could only use literals"},
		{`import.meta.importGlob("./*.js", { query: { foo: 123, ...a } })`, KindLiterality, "Invalid glob import syntax: Could only use literals"},
	}

	for _, tt := range tests {
		err := parseError(t, tt.code)
		if err == nil {
			t.Errorf("%s: expected error", tt.code)
			continue
		}
		if err.Error() != tt.want {
			t.Errorf("%s:\n got  %q\n want %q", tt.code, err.Error(), tt.want)
		}
		if !IsKind(err, tt.kind) {
			t.Errorf("%s: kind mismatch for %v, want %s", tt.code, err, tt.kind)
		}
	}
}

func TestParseErrorCarriesCallOffset(t *testing.T) {
	code := "const a = 1\nconst b = import.meta.importGlob(1)"
	err := parseError(t, code)
	var ge *GlobError
	if !errors.As(err, &ge) {
		t.Fatalf("err = %v, want *GlobError", err)
	}
	if want := len("const a = 1\nconst b = "); ge.Pos != want {
		t.Errorf("Pos = %d, want %d", ge.Pos, want)
	}
}

func TestParseWithoutTakeover(t *testing.T) {
	tr := New(Config{Root: "/root"})
	code := "import.meta.glob(hey)\nimport.meta.globEager('./*.ts')\nimport.meta.importGlob('./*.ts')"
	sites, err := tr.Parse([]byte(code), "/root/main.ts")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(sites) != 1 {
		t.Fatalf("sites = %d, want 1", len(sites))
	}
	if sites[0].Kind != KindImportGlob || sites[0].Ordinal != 2 {
		t.Errorf("site = %s #%d, want importGlob #2", sites[0].Kind, sites[0].Ordinal)
	}
}

func TestLocate(t *testing.T) {
	code := []byte("import.meta.importGlob<Foo>  ('./a') + import.meta.globEagerDefault('./b') + myimport.meta.glob('./c')")
	got := Locate(code)
	if len(got) != 2 {
		t.Fatalf("matches = %d, want 2: %+v", len(got), got)
	}
	if got[0].Kind != KindImportGlob || got[0].Start != 0 || code[got[0].ParenEnd-1] != '(' {
		t.Errorf("first match = %+v", got[0])
	}
	if got[1].Kind != KindGlobEagerDefault || got[1].Ordinal != 1 {
		t.Errorf("second match = %+v", got[1])
	}
}
