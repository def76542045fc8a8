// internal/models/analysis.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MetricValue is one extracted metric.
type MetricValue struct {
	Name  string
	Value interface{}
}

// MetricAnalysis maps requested metric names to values, in request order.
// It marshals to a JSON object whose keys keep that order.
type MetricAnalysis struct {
	entries []MetricValue
}

func (m *MetricAnalysis) Set(name string, value interface{}) {
	for i := range m.entries {
		if m.entries[i].Name == name {
			m.entries[i].Value = value
			return
		}
	}
	m.entries = append(m.entries, MetricValue{Name: name, Value: value})
}

func (m MetricAnalysis) Get(name string) (interface{}, bool) {
	for _, e := range m.entries {
		if e.Name == name {
			return e.Value, true
		}
	}
	return nil, false
}

func (m MetricAnalysis) Names() []string {
	names := make([]string, len(m.entries))
	for i, e := range m.entries {
		names[i] = e.Name
	}
	return names
}

func (m MetricAnalysis) Entries() []MetricValue {
	out := make([]MetricValue, len(m.entries))
	copy(out, m.entries)
	return out
}

func (m MetricAnalysis) Len() int {
	return len(m.entries)
}

// ToMap loses ordering; use it only where callers need a plain map.
func (m MetricAnalysis) ToMap() map[string]interface{} {
	out := make(map[string]interface{}, len(m.entries))
	for _, e := range m.entries {
		out[e.Name] = e.Value
	}
	return out
}

func (m MetricAnalysis) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeMember(&buf, e.Name, e.Value); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *MetricAnalysis) UnmarshalJSON(data []byte) error {
	m.entries = nil
	return decodeOrderedObject(data, func(key string, raw json.RawMessage) error {
		var v interface{}
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		m.Set(key, v)
		return nil
	})
}

// SymbolResult is the outcome for one ticker symbol.
type SymbolResult struct {
	Metrics  MetricAnalysis `json:"metrics"`
	Analysis string         `json:"analysis"`
}

type symbolEntry struct {
	Symbol string
	Result SymbolResult
}

// AnalysisResult maps ticker symbols to their results in the order they were added.
type AnalysisResult struct {
	entries []symbolEntry
}

func NewAnalysisResult() *AnalysisResult {
	return &AnalysisResult{}
}

// Set adds a symbol result, replacing an existing one in place.
func (r *AnalysisResult) Set(symbol string, result SymbolResult) {
	for i := range r.entries {
		if r.entries[i].Symbol == symbol {
			r.entries[i].Result = result
			return
		}
	}
	r.entries = append(r.entries, symbolEntry{Symbol: symbol, Result: result})
}

func (r *AnalysisResult) Get(symbol string) (SymbolResult, bool) {
	for _, e := range r.entries {
		if e.Symbol == symbol {
			return e.Result, true
		}
	}
	return SymbolResult{}, false
}

func (r *AnalysisResult) Symbols() []string {
	symbols := make([]string, len(r.entries))
	for i, e := range r.entries {
		symbols[i] = e.Symbol
	}
	return symbols
}

func (r *AnalysisResult) Len() int {
	return len(r.entries)
}

func (r *AnalysisResult) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range r.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeMember(&buf, e.Symbol, e.Result); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *AnalysisResult) UnmarshalJSON(data []byte) error {
	r.entries = nil
	return decodeOrderedObject(data, func(key string, raw json.RawMessage) error {
		var sr SymbolResult
		if err := json.Unmarshal(raw, &sr); err != nil {
			return fmt.Errorf("symbol %s: %w", key, err)
		}
		r.Set(key, sr)
		return nil
	})
}

// ToVariables renders the result as a generic map for process variables.
func (r *AnalysisResult) ToVariables() (map[string]interface{}, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	out := map[string]interface{}{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func writeMember(buf *bytes.Buffer, key string, value interface{}) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}

func decodeOrderedObject(data []byte, fn func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}
