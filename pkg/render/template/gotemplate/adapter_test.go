package gotemplate

import (
	"bytes"
	"strings"
	"testing"
	"testing/fstest"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()

	files := fstest.MapFS{
		"hello.tmpl":      {Data: []byte(`Hello {{ name }}!`)},
		"use-global.tmpl": {Data: []byte(`env={{ settings.env }}`)},
		"escape.tmpl":     {Data: []byte(`<p>{{ body }}</p><div>{{ html|safe }}</div>`)},
	}
	engine, err := New(append([]Option{WithFS(files)}, opts...)...)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func TestEngine_RenderTemplateWritesAllOutputs(t *testing.T) {
	engine := newTestEngine(t)

	var buf bytes.Buffer
	got, err := engine.RenderTemplate("hello", map[string]any{"name": "Ada"}, &buf)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "Hello Ada!" {
		t.Fatalf("unexpected result %q", got)
	}
	if buf.String() != got {
		t.Fatalf("writer mismatch: %q", buf.String())
	}
}

func TestEngine_AutoEscapes(t *testing.T) {
	engine := newTestEngine(t)

	got, err := engine.RenderTemplate("escape.tmpl", map[string]any{
		"body": "<b>x</b>",
		"html": "<i>y</i>",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(got, "&lt;b&gt;x&lt;/b&gt;") {
		t.Fatalf("expected escaped body, got %q", got)
	}
	if !strings.Contains(got, "<i>y</i>") {
		t.Fatalf("expected safe html to pass through, got %q", got)
	}
}

func TestEngine_GlobalData(t *testing.T) {
	engine := newTestEngine(t, WithGlobalData(map[string]any{
		"settings": map[string]any{"env": "staging"},
		"label":    "<登录>",
	}))

	got, err := engine.RenderTemplate("use-global", nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "env=staging" {
		t.Fatalf("unexpected result %q", got)
	}

	got, err = engine.RenderString(`<button>{{ label }}</button>`, nil)
	if err != nil {
		t.Fatalf("render string: %v", err)
	}
	if got != "<button>&lt;登录&gt;</button>" {
		t.Fatalf("expected escaped global in string template, got %q", got)
	}
}

func TestEngine_RenderStringDataOverridesGlobals(t *testing.T) {
	engine := newTestEngine(t, WithGlobalData(map[string]any{"name": "global"}))

	got, err := engine.RenderString(`{{ name }}`, map[string]any{"name": "local"})
	if err != nil {
		t.Fatalf("render string: %v", err)
	}
	if got != "local" {
		t.Fatalf("unexpected result %q", got)
	}
}

func TestEngine_Errors(t *testing.T) {
	if _, err := New(); err == nil {
		t.Fatal("expected error without template source")
	}
	engine := newTestEngine(t)
	if _, err := engine.RenderTemplate("missing", nil); err == nil {
		t.Fatal("expected missing template error")
	}
	if _, err := engine.RenderTemplate("hello", struct{}{}); err == nil {
		t.Fatal("expected unsupported data error")
	}
	if _, err := engine.RenderString("{% if %}", nil); err == nil {
		t.Fatal("expected parse error")
	}
}
