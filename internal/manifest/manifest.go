// Package manifest reads declared version constraints and build scripts from
// a project's package.json.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Document is a parsed manifest.
type Document struct {
	root map[string]any
}

// Fields names the manifest paths holding each constraint.
type Fields struct {
	Runtime   string
	Primary   string
	Secondary string
}

// Constraints are the declared version ranges. A nil pointer means the field
// is absent or null, i.e. the tool was not requested.
type Constraints struct {
	Runtime   *string
	Primary   *string
	Secondary *string
}

// Parse decodes a manifest document.
func Parse(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var root map[string]any
	if err := dec.Decode(&root); err != nil {
		return Document{}, fmt.Errorf("parse manifest JSON: %w", err)
	}
	return Document{root: root}, nil
}

// Load reads and parses the manifest at path.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data)
}

// ReadField reads a single dotted field from the manifest at path. A missing
// manifest file is reported as an absent field, not an error.
func ReadField(path, field string) (string, bool, error) {
	doc, err := Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	value, ok := doc.Field(field)
	return value, ok, nil
}

// Field looks up a dotted path such as "engines.node". Strings are returned
// verbatim, numbers and booleans in their JSON spelling, objects and arrays
// JSON-encoded. Missing keys and null values are absent.
func (d Document) Field(path string) (string, bool) {
	if d.root == nil || strings.TrimSpace(path) == "" {
		return "", false
	}

	var current any = d.root
	for _, key := range strings.Split(path, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return "", false
		}
		current, ok = obj[key]
		if !ok {
			return "", false
		}
	}

	switch v := current.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", false
		}
		return string(encoded), true
	}
}

// Constraints reads the three declared version ranges.
func (d Document) Constraints(f Fields) Constraints {
	return Constraints{
		Runtime:   d.optional(f.Runtime),
		Primary:   d.optional(f.Primary),
		Secondary: d.optional(f.Secondary),
	}
}

// Script returns the command of the named entry under "scripts".
func (d Document) Script(name string) (string, bool) {
	return d.Field("scripts." + name)
}

func (d Document) optional(path string) *string {
	value, ok := d.Field(path)
	if !ok {
		return nil
	}
	return &value
}
