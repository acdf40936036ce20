package knowledge

import (
	"bytes"
	"encoding/json"
)

// Record is one breed or diet entry. It is stored as compact JSON so field
// order from the source document survives into prompts and API responses.
type Record json.RawMessage

func (r Record) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

// IsEmpty reports whether the record carries no usable data (missing, null,
// or an empty object, list or string).
func (r Record) IsEmpty() bool {
	switch string(r) {
	case "", "null", "{}", "[]", `""`, "false", "0":
		return true
	}
	return false
}

// Indent renders the record as two-space indented JSON.
func (r Record) Indent() string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, r, "", "  "); err != nil {
		return string(r)
	}
	return buf.String()
}

// Field returns the value stored under the first key whose normalized form
// equals the normalized name. It is false when the record is not an object.
func (r Record) Field(name string) (Record, bool) {
	keys, values, err := decodeObject(r)
	if err != nil {
		return nil, false
	}
	want := Normalize(name)
	for _, k := range keys {
		if Normalize(k) == want {
			return compact(values[k]), true
		}
	}
	return nil, false
}

func compact(raw json.RawMessage) Record {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return Record(raw)
	}
	return Record(buf.Bytes())
}
