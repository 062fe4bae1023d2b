package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFields(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"view", []string{"view"}},
		{"  add /  milk ", []string{"add", "/", "milk"}},
		{`add / "buy milk" due=monday`, []string{"add", "/", "buy milk", "due=monday"}},
		{`text /0 'it''s'`, []string{"text", "/0", "its"}},
		{`text /0 a\ b`, []string{"text", "/0", "a b"}},
		{`text /0 ""`, []string{"text", "/0", ""}},
	}
	for _, tc := range tests {
		got, err := fields(tc.in)
		if err != nil {
			t.Errorf("%q: %v", tc.in, err)
			continue
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("%q (-want +got):\n%s", tc.in, diff)
		}
	}
	if _, err := fields(`add "open`); err == nil {
		t.Error("unterminated quote accepted")
	}
}

func TestProps(t *testing.T) {
	got, keys, err := props([]string{"done=true", "n=3", "tags=[a, b]", "s=hello world", "e=", "n=4"})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]any{
		"done": true,
		"n":    uint64(4),
		"tags": []any{"a", "b"},
		"s":    "hello world",
		"e":    "",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"done", "n", "tags", "s", "e"}, keys); diff != "" {
		t.Errorf("keys (-want +got):\n%s", diff)
	}
	if _, _, err := props([]string{"novalue"}); err == nil {
		t.Error("missing = accepted")
	}
}

func openTest(t *testing.T, contents string) (*app, string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.yaml"), []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	a, err := openApp(ctx, &MainConfig{Dir: dir, Depth: -1}, &strings.Builder{})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(a.close)
	if err := a.load(ctx, ""); err != nil {
		t.Fatal(err)
	}
	return a, dir
}

func TestREPL(t *testing.T) {
	a, dir := openTest(t, "items:\n- text: a\n- text: b\n")
	in := strings.Join([]string{
		`add / "c d"`,
		`indent /2`,
		`set /1 done=true`,
		`undo`,
		`view`,
		`diff`,
		`save`,
		`quit`,
	}, "\n")
	var out strings.Builder
	if err := a.repl(context.Background(), strings.NewReader(in), &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "- a\n- b\n  - c d\n") {
		t.Errorf("view missing from output:\n%s", out.String())
	}
	got, err := os.ReadFile(filepath.Join(dir, "index.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	want := "items:\n- text: a\n- text: b\n  children:\n  - text: c d\n"
	if string(got) != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestQuitRefusesUnsaved(t *testing.T) {
	a, _ := openTest(t, "items:\n- text: a\n")
	ctx := context.Background()
	var out strings.Builder
	if _, err := a.line(ctx, &out, "rm /0"); err != nil {
		t.Fatal(err)
	}
	quit, err := a.line(ctx, &out, "quit")
	if quit || err != errUnsaved {
		t.Errorf("quit = %v, %v", quit, err)
	}
	if quit, _ := a.line(ctx, &out, "quit!"); !quit {
		t.Error("quit! did not quit")
	}
}

func TestFindAndSearch(t *testing.T) {
	a, _ := openTest(t, "items:\n- text: '**Buy** milk'\n  id: shop\n  children:\n  - text: eggs\n    qty: 12\n- text: call mom\n")
	ctx := context.Background()
	tests := []struct {
		line string
		want string
	}{
		{"find qty != nil && qty > 10", "/shop/0 - eggs\n"},
		{"search buy milk", "/shop - **Buy** milk\n"},
		{"view /shop", "- eggs\n"},
	}
	for _, tc := range tests {
		var out strings.Builder
		if _, err := a.line(ctx, &out, tc.line); err != nil {
			t.Fatalf("%s: %v", tc.line, err)
		}
		if got := out.String(); got != tc.want {
			t.Errorf("%s: got %q want %q", tc.line, got, tc.want)
		}
	}
}
