package ledger

import (
	"fmt"

	"github.com/suilocker/suilocker/internal/common"
)

// FieldType enumerates the wire types a schema field can carry.
type FieldType int

const (
	TypeAddress FieldType = iota
	TypeString
	TypeOptString
	TypeStrVector
	TypeU64
	TypeOptU64
	TypeBool
)

// Field is one named, typed position in a record.
type Field struct {
	Name string
	Type FieldType
}

// Schema describes the exact binary layout of one ledger record. Records
// are prefixed with a version byte; decoding a record written under a
// different schema version fails instead of silently misreading fields.
// Fields are decoded in declaration order but accessed by name, so a
// layout change is confined to the schema definition.
type Schema struct {
	Name    string
	Version byte
	Fields  []Field
}

// Record holds one decoded record's values, accessed by field name.
type Record struct {
	schema *Schema
	values map[string]any
}

// Decode reads one record from data. Trailing undecoded bytes are an
// error: a longer-than-expected record means the schema is stale.
func (s *Schema) Decode(data []byte) (*Record, error) {
	r := NewReader(data)

	version, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", s.Name, err)
	}
	if version != s.Version {
		return nil, fmt.Errorf("%w: %s record version %d, schema version %d",
			common.ErrMalformedRecord, s.Name, version, s.Version)
	}

	values := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		v, err := decodeField(r, f.Type)
		if err != nil {
			return nil, fmt.Errorf("decoding %s.%s: %w", s.Name, f.Name, err)
		}
		values[f.Name] = v
	}
	if r.Remaining() != 0 {
		return nil, fmt.Errorf("%w: %s record has %d trailing bytes",
			common.ErrMalformedRecord, s.Name, r.Remaining())
	}
	return &Record{schema: s, values: values}, nil
}

func decodeField(r *Reader, t FieldType) (any, error) {
	switch t {
	case TypeAddress:
		return r.ReadAddress()
	case TypeString:
		return r.ReadString()
	case TypeOptString:
		return r.ReadOptionString()
	case TypeStrVector:
		return r.ReadStringVector()
	case TypeU64:
		return r.ReadU64()
	case TypeOptU64:
		return r.ReadOptionU64()
	case TypeBool:
		return r.ReadBool()
	default:
		return nil, fmt.Errorf("unknown field type %d", t)
	}
}

func (rec *Record) get(name string) (any, error) {
	v, ok := rec.values[name]
	if !ok {
		return nil, fmt.Errorf("schema %s has no field %q", rec.schema.Name, name)
	}
	return v, nil
}

func (rec *Record) String(name string) (string, error) {
	v, err := rec.get(name)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %s.%s is not a string", rec.schema.Name, name)
	}
	return s, nil
}

func (rec *Record) OptString(name string) (*string, error) {
	v, err := rec.get(name)
	if err != nil {
		return nil, err
	}
	p, ok := v.(*string)
	if !ok {
		return nil, fmt.Errorf("field %s.%s is not an optional string", rec.schema.Name, name)
	}
	return p, nil
}

func (rec *Record) Strings(name string) ([]string, error) {
	v, err := rec.get(name)
	if err != nil {
		return nil, err
	}
	s, ok := v.([]string)
	if !ok {
		return nil, fmt.Errorf("field %s.%s is not a string vector", rec.schema.Name, name)
	}
	return s, nil
}

func (rec *Record) U64(name string) (uint64, error) {
	v, err := rec.get(name)
	if err != nil {
		return 0, err
	}
	n, ok := v.(uint64)
	if !ok {
		return 0, fmt.Errorf("field %s.%s is not a u64", rec.schema.Name, name)
	}
	return n, nil
}

func (rec *Record) OptU64(name string) (*uint64, error) {
	v, err := rec.get(name)
	if err != nil {
		return nil, err
	}
	p, ok := v.(*uint64)
	if !ok {
		return nil, fmt.Errorf("field %s.%s is not an optional u64", rec.schema.Name, name)
	}
	return p, nil
}

func (rec *Record) Bool(name string) (bool, error) {
	v, err := rec.get(name)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("field %s.%s is not a bool", rec.schema.Name, name)
	}
	return b, nil
}
