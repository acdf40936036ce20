package knowledge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// UnknownLabel is reported for class indices missing from the index map.
const UnknownLabel = "Unknown"

// ClassIndex maps a classifier output index to a human-readable breed label.
type ClassIndex map[int]string

// ParseClassIndex reads the label file written at training time. The usual
// shape is {"golden_retriever": 12, ...}; the inverted {"12": "golden_retriever"}
// and a plain list of labels are accepted too. Underscores in labels become
// spaces.
func ParseClassIndex(data []byte) (ClassIndex, error) {
	trimmed := bytes.TrimSpace(data)

	var list []string
	if err := json.Unmarshal(trimmed, &list); err == nil {
		idx := make(ClassIndex, len(list))
		for i, name := range list {
			idx[i] = labelFromName(name)
		}
		return idx, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode class index: %w", err)
	}

	idx := make(ClassIndex, len(raw))
	for k, v := range raw {
		var n int
		if err := json.Unmarshal(v, &n); err == nil {
			idx[n] = labelFromName(k)
			continue
		}
		var name string
		if err := json.Unmarshal(v, &name); err != nil {
			return nil, fmt.Errorf("class index entry %q: expected index or label", k)
		}
		n, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("class index key %q is not an integer", k)
		}
		idx[n] = labelFromName(name)
	}
	return idx, nil
}

// Label resolves an index, falling back to UnknownLabel.
func (c ClassIndex) Label(i int) string {
	if label, ok := c[i]; ok {
		return label
	}
	return UnknownLabel
}

// Len returns the number of classes, taken as one past the highest index.
func (c ClassIndex) Len() int {
	n := 0
	for i := range c {
		if i+1 > n {
			n = i + 1
		}
	}
	return n
}

func labelFromName(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}
