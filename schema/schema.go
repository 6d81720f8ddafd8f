// Package schema holds table column definitions and the registry that maps
// (table name, version) to a definition.
//
// Table payloads are purely positional: decoding walks the columns of a
// definition in order, so column order here must match on-disk field order
// exactly. Definitions are maintained externally in YAML and loaded at
// startup.
package schema

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// FieldKind identifies the wire encoding of one column.
type FieldKind uint8

// The closed set of field kinds the table codec implements.
const (
	KindInvalid FieldKind = iota
	KindBool
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindString
	KindStringU16
	KindOptionalRef
	KindEnum
)

var kindNames = map[FieldKind]string{
	KindBool:        "bool",
	KindInt8:        "int8",
	KindInt16:       "int16",
	KindInt32:       "int32",
	KindInt64:       "int64",
	KindUint8:       "uint8",
	KindUint16:      "uint16",
	KindUint32:      "uint32",
	KindUint64:      "uint64",
	KindFloat32:     "float32",
	KindFloat64:     "float64",
	KindString:      "string",
	KindStringU16:   "wstring",
	KindOptionalRef: "optional_ref",
	KindEnum:        "enum",
}

var kindsByName = func() map[string]FieldKind {
	m := make(map[string]FieldKind, len(kindNames))
	for k, n := range kindNames {
		m[n] = k
	}
	return m
}()

// String returns the YAML name of the kind.
func (k FieldKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("FieldKind(%d)", uint8(k))
}

// ParseFieldKind resolves a YAML kind name.
func ParseFieldKind(name string) (FieldKind, error) {
	if k, ok := kindsByName[name]; ok {
		return k, nil
	}
	return KindInvalid, fmt.Errorf("packfile: unknown field kind %q", name)
}

// UnmarshalYAML implements yaml.Unmarshaler for kind names.
func (k *FieldKind) UnmarshalYAML(value *yaml.Node) error {
	var name string
	if err := value.Decode(&name); err != nil {
		return err
	}
	kind, err := ParseFieldKind(name)
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (k FieldKind) MarshalYAML() (any, error) {
	if n, ok := kindNames[k]; ok {
		return n, nil
	}
	return nil, fmt.Errorf("packfile: cannot marshal field kind %d", uint8(k))
}

// Column is one typed column of a table definition.
type Column struct {
	Name string    `yaml:"name"`
	Kind FieldKind `yaml:"kind"`

	// Key marks the column as part of the table's logical key.
	Key bool `yaml:"key,omitempty"`

	// Nullable marks a reference column whose target row may not exist.
	Nullable bool `yaml:"nullable,omitempty"`

	// Enum lists the variant names for KindEnum columns, in wire order.
	Enum []string `yaml:"enum,omitempty"`
}

// Definition is the ordered column list for one (table, version) pair.
type Definition struct {
	Version uint32   `yaml:"version"`
	Columns []Column `yaml:"columns"`
}

// Validate rejects definitions the codec cannot decode.
func (d *Definition) Validate() error {
	if len(d.Columns) == 0 {
		return fmt.Errorf("packfile: definition version %d has no columns", d.Version)
	}
	for i, c := range d.Columns {
		if c.Name == "" {
			return fmt.Errorf("packfile: definition version %d: column %d has no name", d.Version, i)
		}
		if _, ok := kindNames[c.Kind]; !ok {
			return fmt.Errorf("packfile: definition version %d: column %q has invalid kind", d.Version, c.Name)
		}
		if c.Kind == KindEnum && len(c.Enum) == 0 {
			return fmt.Errorf("packfile: definition version %d: enum column %q has no variants", d.Version, c.Name)
		}
	}
	return nil
}
