package state

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"reflect"
)

// FieldType tags the shape of a field value.
type FieldType string

const (
	TypeText    FieldType = "text"
	TypeNumber  FieldType = "number"
	TypeJSON    FieldType = "json"
	TypeArray   FieldType = "array"
	TypeBoolean FieldType = "boolean"
	TypeDate    FieldType = "date"
)

// Source tags where a field value originated.
type Source string

const (
	SourceManual  Source = "manual"
	SourceTwitter Source = "api_twitter"
	SourceCRM     Source = "api_crm"
	SourceWebhook Source = "api_webhook"
	SourceChat    Source = "chat"
)

var validTypes = map[FieldType]bool{
	TypeText: true, TypeNumber: true, TypeJSON: true,
	TypeArray: true, TypeBoolean: true, TypeDate: true,
}

var validSources = map[Source]bool{
	SourceManual: true, SourceTwitter: true, SourceCRM: true,
	SourceWebhook: true, SourceChat: true,
}

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool { return validTypes[t] }

// Valid reports whether s is a known source tag.
func (s Source) Valid() bool { return validSources[s] }

// InferType maps a decoded JSON value to the closest field type tag.
// Used by adapters that receive untyped payloads.
func InferType(v any) FieldType {
	switch v.(type) {
	case string:
		return TypeText
	case json.Number, float64, int, int64:
		return TypeNumber
	case bool:
		return TypeBoolean
	case []any:
		return TypeArray
	default:
		return TypeJSON
	}
}

// DecodeValue parses one JSON value into its Go form. Numbers decode as
// json.Number, not float64, so integer literals beyond 2^53 survive the
// round trip byte-exact instead of being silently rounded.
func DecodeValue(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, stderrors.New("trailing data after JSON value")
	}
	return v, nil
}

// NormalizeValue re-encodes raw JSON in canonical form (compact, sorted map
// keys via encoding/json) so stored bytes are stable across equivalent
// inputs. Numeric literals are preserved verbatim.
func NormalizeValue(raw json.RawMessage) (json.RawMessage, error) {
	v, err := DecodeValue(raw)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// ValuesEqual reports deep structural equality of two JSON values.
// Reference equality and byte equality are not enough: key order and
// whitespace must not matter. Numbers compare by literal, so distinct
// integers above 2^53 never collapse into the same float64.
func ValuesEqual(a, b json.RawMessage) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if bytes.Equal(a, b) {
		return true
	}
	av, err := DecodeValue(a)
	if err != nil {
		return false
	}
	bv, err := DecodeValue(b)
	if err != nil {
		return false
	}
	return reflect.DeepEqual(av, bv)
}
