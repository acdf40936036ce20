package knowledge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var errNotObject = errors.New("not a JSON object")

// decodeObject reads a JSON object and keeps its keys in document order.
// Duplicate keys keep their first position and their last value.
func decodeObject(data []byte) ([]string, map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, errNotObject
	}

	var keys []string
	values := make(map[string]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected object key %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, fmt.Errorf("failed to decode value for %q: %w", key, err)
		}
		if _, seen := values[key]; !seen {
			keys = append(keys, key)
		}
		values[key] = raw
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return keys, values, nil
}

// keyedRecords is an insertion-ordered map of normalized key to record.
type keyedRecords struct {
	keys    []string
	records map[string]Record
}

func newKeyedRecords() *keyedRecords {
	return &keyedRecords{records: make(map[string]Record)}
}

func (k *keyedRecords) put(rawKey string, raw json.RawMessage) {
	key := Normalize(rawKey)
	if key == "" {
		return
	}
	rec := compact(raw)
	if string(rec) == "null" {
		return
	}
	if _, seen := k.records[key]; !seen {
		k.keys = append(k.keys, key)
	}
	k.records[key] = rec
}

// decodeKeyed accepts either a list of records or an object of records.
// List entries are keyed by nameField, which must be a string when present;
// entries without one are skipped. When valueField is set, the record is that
// field of the entry instead of the whole entry. Object entries are
// re-keyed through Normalize.
func decodeKeyed(data []byte, nameField, valueField string) (*keyedRecords, error) {
	out := newKeyedRecords()
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("empty document")
	}

	switch trimmed[0] {
	case '[':
		var entries []json.RawMessage
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("failed to decode list: %w", err)
		}
		for i, entry := range entries {
			var fields map[string]json.RawMessage
			if err := json.Unmarshal(entry, &fields); err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, errNotObject)
			}
			var name string
			if raw, ok := fields[nameField]; ok && string(bytes.TrimSpace(raw)) != "null" {
				if err := json.Unmarshal(raw, &name); err != nil {
					return nil, fmt.Errorf("entry %d: %q must be a string: %w", i, nameField, err)
				}
			}
			if valueField == "" {
				out.put(name, entry)
				continue
			}
			if raw, ok := fields[valueField]; ok {
				out.put(name, raw)
			}
		}
	case '{':
		keys, values, err := decodeObject(trimmed)
		if err != nil {
			return nil, fmt.Errorf("failed to decode object: %w", err)
		}
		for _, k := range keys {
			out.put(k, values[k])
		}
	default:
		return nil, errors.New("expected a JSON list or object")
	}
	return out, nil
}

// decodeQuestions accepts a list of strings, or an object whose values are
// lists of strings (flattened in document order).
func decodeQuestions(data []byte) ([]string, error) {
	trimmed := bytes.TrimSpace(data)
	var questions []string
	if err := json.Unmarshal(trimmed, &questions); err == nil {
		return questions, nil
	}

	keys, values, err := decodeObject(trimmed)
	if err != nil {
		return nil, fmt.Errorf("expected a list of questions: %w", err)
	}
	for _, k := range keys {
		var group []string
		if err := json.Unmarshal(values[k], &group); err != nil {
			return nil, fmt.Errorf("question group %q: %w", k, err)
		}
		questions = append(questions, group...)
	}
	return questions, nil
}
