package analysis

import (
	"bytes"
	"math"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Float is a statistic that may be undefined. NaN and ±Inf encode as null.
type Float float64

// Defined reports whether the value is a finite number.
func (f Float) Defined() bool {
	v := float64(f)
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (f Float) MarshalJSON() ([]byte, error) {
	if !f.Defined() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(f))
}

func (f Float) MarshalYAML() (any, error) {
	if !f.Defined() {
		return nil, nil
	}
	return float64(f), nil
}

// OrderedMap is a string-keyed map that remembers insertion order when encoded.
type OrderedMap[V any] struct {
	keys []string
	vals map[string]V
}

func NewOrderedMap[V any]() *OrderedMap[V] {
	return &OrderedMap[V]{vals: make(map[string]V)}
}

// Set stores v under k, keeping the original position of an existing key.
func (m *OrderedMap[V]) Set(k string, v V) {
	if _, ok := m.vals[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.vals[k] = v
}

func (m *OrderedMap[V]) Get(k string) (V, bool) {
	v, ok := m.vals[k]
	return v, ok
}

func (m *OrderedMap[V]) Keys() []string {
	return append([]string(nil), m.keys...)
}

func (m *OrderedMap[V]) Len() int { return len(m.keys) }

func (m *OrderedMap[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONPair(&buf, k, m.vals[k]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *OrderedMap[V]) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range m.keys {
		var kn, vn yaml.Node
		kn.SetString(k)
		if err := vn.Encode(m.vals[k]); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &kn, &vn)
	}
	return node, nil
}

func (c Cell) MarshalJSON() ([]byte, error) {
	switch {
	case c.Missing:
		return []byte("null"), nil
	case c.Kind == KindNumeric:
		return Float(c.Num).MarshalJSON()
	default:
		return json.Marshal(c.Str)
	}
}

func (c Cell) MarshalYAML() (any, error) {
	switch {
	case c.Missing:
		return nil, nil
	case c.Kind == KindNumeric:
		return Float(c.Num).MarshalYAML()
	default:
		return c.Str, nil
	}
}

// MarshalJSON encodes the row as an object in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.Names {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONPair(&buf, name, r.Cells[i]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r Row) MarshalYAML() (any, error) {
	m := NewOrderedMap[Cell]()
	for i, name := range r.Names {
		m.Set(name, r.Cells[i])
	}
	return m.MarshalYAML()
}

func writeJSONPair(buf *bytes.Buffer, key string, val any) error {
	kb, err := json.Marshal(key)
	if err != nil {
		return err
	}
	vb, err := json.Marshal(val)
	if err != nil {
		return err
	}
	buf.Write(kb)
	buf.WriteByte(':')
	buf.Write(vb)
	return nil
}
