package entity

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/jgivc/pluginmaster/internal/common"
)

const (
	KeyInternalName        = "InternalName"
	KeyDownloadLinkInstall = "DownloadLinkInstall"
	KeyDownloadCount       = "DownloadCount"
	KeyLastUpdated         = "LastUpdated"
)

// Manifest is a single plugin manifest. Fields keep the order in which they
// were first set and hold raw JSON values, so untouched fields are written
// back exactly as they were read.
type Manifest struct {
	keys   []string
	values map[string]json.RawMessage
}

func NewManifest() *Manifest {
	return &Manifest{
		values: make(map[string]json.RawMessage),
	}
}

// Keys returns field names in order.
func (m *Manifest) Keys() []string {
	keys := make([]string, len(m.keys))
	copy(keys, m.keys)

	return keys
}

func (m *Manifest) Len() int {
	return len(m.keys)
}

func (m *Manifest) Has(key string) bool {
	_, exists := m.values[key]

	return exists
}

func (m *Manifest) Get(key string) (json.RawMessage, bool) {
	raw, exists := m.values[key]

	return raw, exists
}

// SetRaw sets key to an already encoded JSON value. A new key is appended,
// an existing key keeps its position.
func (m *Manifest) SetRaw(key string, raw json.RawMessage) {
	if m.values == nil {
		m.values = make(map[string]json.RawMessage)
	}

	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}

	m.values[key] = raw
}

func (m *Manifest) Set(key string, value any) error {
	raw, err := marshal(value)
	if err != nil {
		return fmt.Errorf("cannot encode field %s: %w", key, err)
	}

	m.SetRaw(key, raw)

	return nil
}

// GetString returns the value of key if it is a JSON string.
func (m *Manifest) GetString(key string) (string, bool) {
	raw, exists := m.values[key]
	if !exists {
		return "", false
	}

	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return "", false
	}

	return str, true
}

// Truthy reports whether key is present and holds a value other than null,
// false, 0, "", [] or {}.
func (m *Manifest) Truthy(key string) bool {
	raw, exists := m.values[key]
	if !exists {
		return false
	}

	return !isFalsy(raw)
}

func (m *Manifest) InternalName() (string, bool) {
	name, ok := m.GetString(KeyInternalName)
	if !ok || name == "" {
		return "", false
	}

	return name, true
}

func (m *Manifest) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')
	for i, key := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		k, err := marshal(key)
		if err != nil {
			return nil, err
		}

		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(m.values[key])
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

func (m *Manifest) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("cannot read manifest: %w", err)
	}

	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return common.ErrNotAnObject
	}

	m.keys = nil
	m.values = make(map[string]json.RawMessage)

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("cannot read manifest key: %w", err)
		}

		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected manifest key %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("cannot read manifest field %s: %w", key, err)
		}

		m.SetRaw(key, raw)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("cannot read manifest end: %w", err)
	}

	return nil
}

func marshal(value any) (json.RawMessage, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return nil, err
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func isFalsy(raw json.RawMessage) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return true
	}

	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case float64:
		return t == 0
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}

	return false
}
