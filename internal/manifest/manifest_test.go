package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

const sample = `{
  "name": "web",
  "engines": {"node": "14.x", "npm": null, "yarn": "1.22.x", "pnpm": 8},
  "scripts": {"build": "tsc -p .", "start": "node dist/index.js"},
  "private": true,
  "workspaces": ["a", "b"]
}`

func mustParse(t *testing.T, data string) Document {
	t.Helper()
	doc, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func TestFieldLookup(t *testing.T) {
	doc := mustParse(t, sample)

	cases := []struct {
		path   string
		want   string
		wantOK bool
	}{
		{path: "engines.node", want: "14.x", wantOK: true},
		{path: "engines.npm", wantOK: false},
		{path: "engines.bun", wantOK: false},
		{path: "engines.pnpm", want: "8", wantOK: true},
		{path: "private", want: "true", wantOK: true},
		{path: "workspaces", want: `["a","b"]`, wantOK: true},
		{path: "name.first", wantOK: false},
		{path: "", wantOK: false},
	}
	for _, tc := range cases {
		got, ok := doc.Field(tc.path)
		if ok != tc.wantOK || got != tc.want {
			t.Errorf("Field(%q) = %q, %v; want %q, %v", tc.path, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestConstraints(t *testing.T) {
	doc := mustParse(t, sample)
	c := doc.Constraints(Fields{Runtime: "engines.node", Primary: "engines.npm", Secondary: "engines.yarn"})

	if c.Runtime == nil || *c.Runtime != "14.x" {
		t.Fatalf("unexpected runtime constraint %v", c.Runtime)
	}
	if c.Primary != nil {
		t.Fatalf("expected null npm constraint to be absent, got %q", *c.Primary)
	}
	if c.Secondary == nil || *c.Secondary != "1.22.x" {
		t.Fatalf("unexpected secondary constraint %v", c.Secondary)
	}
}

func TestScript(t *testing.T) {
	doc := mustParse(t, sample)
	if got, ok := doc.Script("build"); !ok || got != "tsc -p ." {
		t.Fatalf("unexpected build script %q (ok=%v)", got, ok)
	}
	if _, ok := doc.Script("heroku-postbuild"); ok {
		t.Fatal("expected missing script to be absent")
	}

	nullScript := mustParse(t, `{"scripts": {"build": null}}`)
	if _, ok := nullScript.Script("build"); ok {
		t.Fatal("expected null script to be absent")
	}
}

func TestReadFieldMissingManifest(t *testing.T) {
	value, ok, err := ReadField(filepath.Join(t.TempDir(), "package.json"), "engines.node")
	if err != nil {
		t.Fatalf("expected no error for missing manifest, got %v", err)
	}
	if ok || value != "" {
		t.Fatalf("expected absent, got %q", value)
	}
}

func TestReadFieldMalformedManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "package.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := ReadField(path, "engines.node"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestParseRejectsNonObject(t *testing.T) {
	if _, err := Parse([]byte(`["engines"]`)); err == nil {
		t.Fatal("expected error for top-level array")
	}
}
