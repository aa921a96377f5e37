// Package symbols loads the per-build symbol table: global addresses,
// struct sizes and field offsets, vtable classes and tile type overrides
// for one version of the target.
package symbols

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalid     = errors.New("symbol table invalid")
	ErrUnknownName = errors.New("symbol not in table")
)

//go:embed schema.json
var schemaJSON string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiled() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("symbols.schema.json", schemaJSON)
	})
	return schema, schemaErr
}

// Global is either a fixed address or a pointer path
type Global struct {
	Address uint64
	Path    []uint64
}

func (g *Global) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&g.Address)
	}
	var v struct {
		Path []uint64 `yaml:"path"`
	}
	if err := node.Decode(&v); err != nil {
		return err
	}
	g.Path = v.Path
	return nil
}

// IsPath reports whether the global must be resolved through memory
func (g Global) IsPath() bool {
	return len(g.Path) > 0
}

type Struct struct {
	Size   uint64            `yaml:"size"`
	Fields map[string]uint64 `yaml:"fields"`
}

type Vtable struct {
	Address uint64 `yaml:"address"`
	Event   string `yaml:"event"`
}

// TileTypeDef overrides one entry of the built-in tile type table
type TileTypeDef struct {
	ID       int16  `yaml:"id"`
	Name     string `yaml:"name"`
	Shape    string `yaml:"shape"`
	Material string `yaml:"material"`
	Variant  string `yaml:"variant"`
	Special  string `yaml:"special"`
}

type Table struct {
	Version   string            `yaml:"version"`
	MD5       string            `yaml:"md5"`
	ABI       string            `yaml:"abi"`
	Globals   map[string]Global `yaml:"globals"`
	Structs   map[string]Struct `yaml:"structs"`
	Vtables   map[string]Vtable `yaml:"vtables"`
	TileTypes []TileTypeDef     `yaml:"tiletypes"`
}

func Load(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse validates raw YAML against the embedded schema and decodes it
func Parse(raw []byte) (*Table, error) {
	if err := validate(raw); err != nil {
		return nil, err
	}
	var t Table
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return &t, nil
}

// validate runs the schema over the document's JSON form. Numbers go
// through json.Number so large addresses keep their precision.
func validate(raw []byte) error {
	s, err := compiled()
	if err != nil {
		return fmt.Errorf("schema: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	js, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	dec := json.NewDecoder(bytes.NewReader(js))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

func (t *Table) Global(name string) (Global, bool) {
	g, ok := t.Globals[name]
	return g, ok
}

func (t *Table) Field(structName, field string) (uint64, bool) {
	s, ok := t.Structs[structName]
	if !ok {
		return 0, false
	}
	off, ok := s.Fields[field]
	return off, ok
}

func (t *Table) StructSize(name string) (uint64, bool) {
	s, ok := t.Structs[name]
	if !ok {
		return 0, false
	}
	return s.Size, true
}

// MatchesMD5 compares against the table's executable hash. A table
// without a hash matches any executable.
func (t *Table) MatchesMD5(sum string) bool {
	return t.MD5 == "" || strings.EqualFold(t.MD5, sum)
}
