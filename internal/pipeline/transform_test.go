package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// fixture lays out a small project and returns its root.
//
//	src/index.ts
//	src/util.ts
//	src/modules/{a,b,index}.ts
//	src/styles/main.css
//	src/lib/x.ts
//	src/.hidden/x.ts
//	src/node_modules/pkg/x.ts
func fixture(t *testing.T) string {
	t.Helper()
	root := filepath.ToSlash(t.TempDir())
	files := []string{
		"src/index.ts",
		"src/util.ts",
		"src/modules/a.ts",
		"src/modules/b.ts",
		"src/modules/index.ts",
		"src/styles/main.css",
		"src/lib/x.ts",
		"src/.hidden/x.ts",
		"src/node_modules/pkg/x.ts",
	}
	for _, f := range files {
		p := filepath.Join(root, f)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("export const name = 'x'\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func transform(t *testing.T, cfg Config, code, id string) *Result {
	t.Helper()
	res, err := New(cfg).Transform(context.Background(), []byte(code), id)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	return res
}

func TestTransformEagerNamedExport(t *testing.T) {
	root := fixture(t)
	code := "export const list = import.meta.importGlob('./modules/*.ts', { eager: true, export: 'name' })\n"
	res := transform(t, Config{Root: root}, code, root+"/src/index.ts")
	if res == nil {
		t.Fatal("expected a result")
	}

	want := `import { name as __import_glob_0_0 } from "./modules/a.ts"
import { name as __import_glob_0_1 } from "./modules/b.ts"
import { name as __import_glob_0_2 } from "./modules/index.ts"
export const list = {
"./modules/a.ts": __import_glob_0_0,
"./modules/b.ts": __import_glob_0_1,
"./modules/index.ts": __import_glob_0_2
}
`
	if diff := cmp.Diff(want, res.Code); diff != "" {
		t.Errorf("code mismatch (-want +got):\n%s", diff)
	}
	if len(res.Calls) != 1 || len(res.Calls[0].Files) != 3 {
		t.Fatalf("calls = %+v", res.Calls)
	}
	if diff := cmp.Diff([]string{root + "/src/modules/*.ts"}, res.Globs); diff != "" {
		t.Errorf("globs mismatch (-want +got):\n%s", diff)
	}
}

func TestTransformLazy(t *testing.T) {
	root := fixture(t)
	id := root + "/src/index.ts"
	tests := []struct {
		name string
		cfg  Config
		code string
		want string
	}{
		{
			name: "negated pattern",
			code: "import.meta.importGlob(['./modules/*.ts', '!**/index.ts'])",
			want: "{\n\"./modules/a.ts\": () => import(\"./modules/a.ts\"),\n\"./modules/b.ts\": () => import(\"./modules/b.ts\")\n}",
		},
		{
			name: "exclude self",
			code: "import.meta.importGlob('./*.ts')",
			want: "{\n\"./util.ts\": () => import(\"./util.ts\")\n}",
		},
		{
			name: "named export",
			code: "import.meta.importGlob('./lib/*.ts', { export: 'default' })",
			want: "{\n\"./lib/x.ts\": () => import(\"./lib/x.ts\").then(m => m[\"default\"])\n}",
		},
		{
			name: "root relative keys",
			code: "import.meta.importGlob('/src/lib/*.ts')",
			want: "{\n\"/src/lib/x.ts\": () => import(\"./lib/x.ts\")\n}",
		},
		{
			name: "as raw",
			code: "import.meta.importGlob('./lib/*.ts', { as: 'raw' })",
			want: "{\n\"./lib/x.ts\": () => import(\"./lib/x.ts?raw\").then(m => m[\"default\"])\n}",
		},
		{
			name: "query object",
			code: "import.meta.importGlob('./lib/*.ts', { query: { foo: 'bar', raw: true } })",
			want: "{\n\"./lib/x.ts\": () => import(\"./lib/x.ts?foo=bar&raw=true\")\n}",
		},
		{
			name: "restore query extension",
			cfg:  Config{RestoreQueryExtension: true},
			code: "import.meta.importGlob('./lib/*.ts', { query: 'custom' })",
			want: "{\n\"./lib/x.ts\": () => import(\"./lib/x.ts?custom&lang.ts\")\n}",
		},
		{
			name: "restore query extension skips raw",
			cfg:  Config{RestoreQueryExtension: true},
			code: "import.meta.importGlob('./lib/*.ts', { query: '?raw' })",
			want: "{\n\"./lib/x.ts\": () => import(\"./lib/x.ts?raw\")\n}",
		},
		{
			name: "stylesheet marker",
			code: "import.meta.importGlob('./styles/*.css')",
			want: "{\n\"./styles/main.css\": () => import(\"./styles/main.css?used\")\n}",
		},
		{
			name: "stylesheet marker with query",
			cfg:  Config{RestoreQueryExtension: true},
			code: "import.meta.importGlob('./styles/*.css', { query: '?inline' })",
			want: "{\n\"./styles/main.css\": () => import(\"./styles/main.css?inline&used&lang.css\")\n}",
		},
		{
			name: "node_modules and dotfiles skipped",
			code: "import.meta.importGlob('./**/x.ts')",
			want: "{\n\"./lib/x.ts\": () => import(\"./lib/x.ts\")\n}",
		},
		{
			name: "exhaustive",
			code: "import.meta.importGlob('./**/x.ts', { exhaustive: true })",
			want: "{\n\"./.hidden/x.ts\": () => import(\"./.hidden/x.ts\"),\n\"./lib/x.ts\": () => import(\"./lib/x.ts\"),\n\"./node_modules/pkg/x.ts\": () => import(\"./node_modules/pkg/x.ts\")\n}",
		},
		{
			name: "explicit node_modules base",
			code: "import.meta.importGlob('./node_modules/pkg/*.ts')",
			want: "{\n\"./node_modules/pkg/x.ts\": () => import(\"./node_modules/pkg/x.ts\")\n}",
		},
		{
			name: "no matches",
			code: "import.meta.importGlob('./missing/*.ts')",
			want: "{\n\n}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.Root = root
			res := transform(t, cfg, tt.code, id)
			if res == nil {
				t.Fatal("expected a result")
			}
			if diff := cmp.Diff(tt.want, res.Code); diff != "" {
				t.Errorf("code mismatch (-want +got):\n%s", diff)
			}
			if strings.Contains(res.Code, "import {") || strings.Contains(res.Code, "import *") {
				t.Error("lazy call emitted a static import")
			}
		})
	}
}

func TestTransformSpecifierPrefixes(t *testing.T) {
	root := fixture(t)
	tests := []struct {
		name string
		root string
		id   string
		code string
		want string
	}{
		{
			name: "root-relative pattern into dot directory",
			root: root,
			id:   root + "/src/index.ts",
			code: "import.meta.importGlob('/src/**/x.ts', { exhaustive: true })",
			want: "{\n\"/src/.hidden/x.ts\": () => import(\"./.hidden/x.ts\"),\n" +
				"\"/src/lib/x.ts\": () => import(\"./lib/x.ts\"),\n" +
				"\"/src/node_modules/pkg/x.ts\": () => import(\"./node_modules/pkg/x.ts\")\n}",
		},
		{
			name: "dot directory directly under root",
			root: root + "/src",
			id:   root + "/src/index.ts",
			code: "import.meta.importGlob('/.hidden/*.ts')",
			want: "{\n\"/.hidden/x.ts\": () => import(\"./.hidden/x.ts\")\n}",
		},
		{
			name: "parent directory",
			root: root,
			id:   root + "/src/lib/x.ts",
			code: "import.meta.importGlob('../modules/a.ts')",
			want: "{\n\"../modules/a.ts\": () => import(\"../modules/a.ts\")\n}",
		},
		{
			name: "key outside root",
			root: root + "/src/lib",
			id:   root + "/src/lib/x.ts",
			code: "import.meta.importGlob('/../util.ts')",
			want: "{\n\"../util.ts\": () => import(\"../util.ts\")\n}",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := transform(t, Config{Root: tt.root}, tt.code, tt.id)
			if res == nil {
				t.Fatal("expected a result")
			}
			if diff := cmp.Diff(tt.want, res.Code); diff != "" {
				t.Errorf("code mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTransformMultipleCalls(t *testing.T) {
	root := fixture(t)
	code := "const a = import.meta.glob('./lib/*.ts')\n" +
		"const b = import.meta.importGlob('./lib/*.ts', { eager: true })\n" +
		"const c = import.meta.importGlob('./util.ts', { eager: true })\n"
	res := transform(t, Config{Root: root}, code, root+"/src/index.ts")

	want := `import * as __import_glob_1_0 from "./lib/x.ts"
import * as __import_glob_2_0 from "./util.ts"
const a = import.meta.glob('./lib/*.ts')
const b = {
"./lib/x.ts": __import_glob_1_0
}
const c = {
"./util.ts": __import_glob_2_0
}
`
	if diff := cmp.Diff(want, res.Code); diff != "" {
		t.Errorf("code mismatch (-want +got):\n%s", diff)
	}
}

func TestTransformTakeover(t *testing.T) {
	root := fixture(t)
	code := "const a = import.meta.globEager('./lib/*.ts')\nconst b = import.meta.globEagerDefault('./util.ts')\n"
	id := root + "/src/index.ts"

	if res := transform(t, Config{Root: root}, code, id); res != nil {
		t.Fatalf("expected no rewrite without takeover, got %q", res.Code)
	}

	res := transform(t, Config{Root: root, Takeover: true}, code, id)
	want := `import * as __import_glob_0_0 from "./lib/x.ts"
import { default as __import_glob_1_0 } from "./util.ts"
const a = {
"./lib/x.ts": __import_glob_0_0
}
const b = {
"./util.ts": __import_glob_1_0
}
`
	if diff := cmp.Diff(want, res.Code); diff != "" {
		t.Errorf("code mismatch (-want +got):\n%s", diff)
	}
}

func TestTransformNoCalls(t *testing.T) {
	res, err := New(Config{Root: "/proj"}).Transform(context.Background(), []byte("export const x = 1"), "/proj/a.ts")
	if err != nil || res != nil {
		t.Fatalf("Transform = %v, %v; want nil, nil", res, err)
	}
	res, err = New(Config{Root: "/proj"}).Transform(context.Background(), []byte(`const s = "import.meta.importGlob('./x')"`), "/proj/a.ts")
	if err != nil || res != nil {
		t.Fatalf("Transform of string candidate = %v, %v; want nil, nil", res, err)
	}
}

func TestTransformVirtualModule(t *testing.T) {
	root := fixture(t)
	code := "import.meta.importGlob('/src/modules/*.ts')\nimport.meta.importGlob(['/src/lib/*.ts'])"
	res := transform(t, Config{Root: root}, code, "virtual:module")

	want := `{
"/src/modules/a.ts": () => import("/src/modules/a.ts"),
"/src/modules/b.ts": () => import("/src/modules/b.ts"),
"/src/modules/index.ts": () => import("/src/modules/index.ts")
}
{
"/src/lib/x.ts": () => import("/src/lib/x.ts")
}`
	if diff := cmp.Diff(want, res.Code); diff != "" {
		t.Errorf("code mismatch (-want +got):\n%s", diff)
	}

	_, err := New(Config{Root: root}).Transform(context.Background(), []byte("import.meta.importGlob('./src/*.ts')"), "virtual:module")
	if err == nil || err.Error() != "In virtual modules, all globs must start with '/'" {
		t.Errorf("err = %v", err)
	}
	if !IsKind(err, KindPathForm) {
		t.Errorf("kind mismatch for %v", err)
	}
}

func TestTransformAlias(t *testing.T) {
	root := fixture(t)
	alias := ResolverFunc(func(_ context.Context, spec, _ string) (string, error) {
		if rest, ok := strings.CutPrefix(spec, "@/"); ok {
			return root + "/src/" + rest, nil
		}
		return spec, nil
	})
	res := transform(t, Config{Root: root, Resolver: alias}, "import.meta.importGlob('@/lib/*.ts')", root+"/src/modules/a.ts")
	want := "{\n\"/src/lib/x.ts\": () => import(\"../lib/x.ts\")\n}"
	if diff := cmp.Diff(want, res.Code); diff != "" {
		t.Errorf("code mismatch (-want +got):\n%s", diff)
	}

	_, err := New(Config{Root: root}).Transform(context.Background(), []byte("import.meta.importGlob('@/lib/*.ts')"), root+"/src/index.ts")
	if !IsKind(err, KindPathForm) {
		t.Errorf("err = %v, want path-form error without a resolver", err)
	}
}

// slowMatcher completes calls in reverse order.
type slowMatcher struct {
	mu    sync.Mutex
	delay map[string]time.Duration
}

func (m *slowMatcher) Match(ctx context.Context, patterns []string, _ MatchOptions) ([]string, error) {
	m.mu.Lock()
	d := m.delay[patterns[0]]
	m.mu.Unlock()
	select {
	case <-time.After(d):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return []string{strings.TrimSuffix(patterns[0], "*.ts") + "m.ts"}, nil
}

func TestTransformCompletionOrderIrrelevant(t *testing.T) {
	m := &slowMatcher{delay: map[string]time.Duration{
		"/proj/one/*.ts": 40 * time.Millisecond,
		"/proj/two/*.ts": 0,
	}}
	code := "a(import.meta.importGlob('/one/*.ts', { eager: true }))\nb(import.meta.importGlob('/two/*.ts', { eager: true }))"
	res := transform(t, Config{Root: "/proj", Matcher: m}, code, "/proj/main.ts")

	want := `import * as __import_glob_0_0 from "./one/m.ts"
import * as __import_glob_1_0 from "./two/m.ts"
a({
"/one/m.ts": __import_glob_0_0
})
b({
"/two/m.ts": __import_glob_1_0
})`
	if diff := cmp.Diff(want, res.Code); diff != "" {
		t.Errorf("code mismatch (-want +got):\n%s", diff)
	}
}

type failingMatcher struct{}

func (failingMatcher) Match(context.Context, []string, MatchOptions) ([]string, error) {
	return nil, errors.New("disk on fire")
}

func TestTransformFirstErrorAborts(t *testing.T) {
	code := "import.meta.importGlob('/a/*.ts')\nimport.meta.importGlob('/b/*.ts')"
	res, err := New(Config{Root: "/proj", Matcher: failingMatcher{}}).Transform(context.Background(), []byte(code), "/proj/main.ts")
	if err == nil || !strings.Contains(err.Error(), "disk on fire") {
		t.Fatalf("err = %v", err)
	}
	if res != nil {
		t.Errorf("expected no partial result, got %q", res.Code)
	}
}
