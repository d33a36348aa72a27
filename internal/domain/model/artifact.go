package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Artifact is an insertion-ordered JSON object. Aggregations rely on key order
// (ascending means, lexicographic category keys), so it round-trips through JSON
// without losing that order. Values are float64, nested *Artifact, or plain JSON scalars.
type Artifact struct {
	keys   []string
	values map[string]any
}

// NewArtifact returns an empty artifact.
func NewArtifact() *Artifact {
	return &Artifact{values: make(map[string]any)}
}

// Set stores value under key. Existing keys keep their position.
func (a *Artifact) Set(key string, value any) {
	if a.values == nil {
		a.values = make(map[string]any)
	}
	if _, ok := a.values[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.values[key] = value
}

// Get returns the value stored under key.
func (a *Artifact) Get(key string) (any, bool) {
	if a == nil {
		return nil, false
	}
	v, ok := a.values[key]
	return v, ok
}

// Len returns the number of keys.
func (a *Artifact) Len() int {
	if a == nil {
		return 0
	}
	return len(a.keys)
}

// Leaf is a scalar value reached by following Path through nested artifacts.
type Leaf struct {
	Path  []string
	Value any
}

// Leaves flattens the artifact depth-first, preserving key order.
func (a *Artifact) Leaves() []Leaf {
	var out []Leaf
	a.collect(nil, &out)
	return out
}

func (a *Artifact) collect(prefix []string, out *[]Leaf) {
	if a == nil {
		return
	}
	for _, k := range a.keys {
		path := append(append([]string(nil), prefix...), k)
		if nested, ok := a.values[k].(*Artifact); ok {
			nested.collect(path, out)
			continue
		}
		*out = append(*out, Leaf{Path: path, Value: a.values[k]})
	}
}

// MarshalJSON encodes the artifact as a JSON object in key order.
func (a *Artifact) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range a.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", k, err)
		}
		vb, err := json.Marshal(a.values[k])
		if err != nil {
			return nil, fmt.Errorf("marshal value for %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the key order of the input.
func (a *Artifact) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("artifact: expected JSON object")
	}
	return a.decodeObject(dec)
}

func (a *Artifact) decodeObject(dec *json.Decoder) error {
	a.keys = nil
	a.values = make(map[string]any)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("artifact: unexpected key token %v", tok)
		}
		val, err := decodeValue(dec)
		if err != nil {
			return err
		}
		a.Set(key, val)
	}
	// closing brace
	_, err := dec.Token()
	return err
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	d, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch d {
	case '{':
		nested := NewArtifact()
		if err := nested.decodeObject(dec); err != nil {
			return nil, err
		}
		return nested, nil
	case '[':
		arr := []any{}
		for dec.More() {
			v, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("artifact: unexpected delimiter %v", d)
	}
}
