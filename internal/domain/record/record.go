// Package record models a source row awaiting ingestion.
//
// Sources (Airtable, Notion, file dumps) produce Records with loosely
// typed fields; normalization renders them into a single embeddable
// text. Field values are a closed tagged variant so that unsupported
// shapes (attachments, nested objects) are dropped deterministically
// instead of being stringified by accident.
package record

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind discriminates the field value variants.
type Kind int

const (
	Unsupported Kind = iota
	String
	Number
	Bool
	StringList
)

// Value is a record field value (immutable tagged variant).
// The zero Value is Unsupported.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	list []string
}

// StringValue creates a string field value.
func StringValue(s string) Value { return Value{kind: String, str: s} }

// NumberValue creates a numeric field value.
func NumberValue(n float64) Value { return Value{kind: Number, num: n} }

// BoolValue creates a boolean field value.
func BoolValue(b bool) Value { return Value{kind: Bool, b: b} }

// StringListValue creates a list-of-strings field value.
// A list containing any non-string element must be mapped to
// UnsupportedValue by the source, not coerced here.
func StringListValue(items []string) Value {
	return Value{kind: StringList, list: cloneStrings(items)}
}

// UnsupportedValue marks a field whose shape normalization cannot render.
func UnsupportedValue() Value { return Value{kind: Unsupported} }

// ValueOf classifies a dynamically typed field value, as decoded from JSON,
// into the variant. Lists qualify only when every element is a string;
// everything else (maps, mixed lists, null) is Unsupported.
func ValueOf(v any) Value {
	switch t := v.(type) {
	case string:
		return StringValue(t)
	case float64:
		return NumberValue(t)
	case int:
		return NumberValue(float64(t))
	case bool:
		return BoolValue(t)
	case []string:
		return StringListValue(t)
	case []any:
		items := make([]string, 0, len(t))
		for _, el := range t {
			s, ok := el.(string)
			if !ok {
				return UnsupportedValue()
			}
			items = append(items, s)
		}
		return StringListValue(items)
	default:
		return UnsupportedValue()
	}
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// Raw returns the dynamically typed value: string, float64, bool or
// []string (copied). Unsupported yields nil. ValueOf(v.Raw()) reproduces v.
func (v Value) Raw() any {
	switch v.kind {
	case String:
		return v.str
	case Number:
		return v.num
	case Bool:
		return v.b
	case StringList:
		return cloneStrings(v.list)
	default:
		return nil
	}
}

// Text renders the value for normalization. ok is false when the value
// is Unsupported and must be skipped.
func (v Value) Text() (string, bool) {
	switch v.kind {
	case String:
		return v.str, true
	case Number:
		return strconv.FormatFloat(v.num, 'f', -1, 64), true
	case Bool:
		return strconv.FormatBool(v.b), true
	case StringList:
		return strings.Join(v.list, ", "), true
	default:
		return "", false
	}
}

// Record is a source row (immutable value object).
type Record struct {
	id     string
	fields map[string]Value
}

// New validates and creates a Record. ID is required; fields may be empty.
func New(id string, fields map[string]Value) (Record, error) {
	if id == "" {
		return Record{}, fmt.Errorf("record ID is required")
	}
	return Record{id: id, fields: cloneValueMap(fields)}, nil
}

// ID returns the record identifier.
func (r *Record) ID() string { return r.id }

// Fields returns the field values keyed by field name.
func (r *Record) Fields() map[string]Value { return r.fields }

// Field returns a single field value by name.
func (r *Record) Field(name string) (Value, bool) {
	v, ok := r.fields[name]
	return v, ok
}

// SearchableText renders the record as one embedding input.
// Every renderable field becomes a "{name}: {value}" fragment; fragments
// are ordered by field name and joined with ". ", then trimmed. A record
// with no renderable fields yields "" (legal, not an error).
func (r *Record) SearchableText() string {
	names := make([]string, 0, len(r.fields))
	for name := range r.fields {
		names = append(names, name)
	}
	sort.Strings(names)

	fragments := make([]string, 0, len(names))
	for _, name := range names {
		text, ok := r.fields[name].Text()
		if !ok {
			continue
		}
		fragments = append(fragments, name+": "+text)
	}
	return strings.TrimSpace(strings.Join(fragments, ". "))
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	c := make([]string, len(s))
	copy(c, s)
	return c
}

func cloneValueMap(m map[string]Value) map[string]Value {
	if m == nil {
		return nil
	}
	c := make(map[string]Value, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
