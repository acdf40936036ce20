package classifier

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
)

// maxHeaderSize bounds the safetensors JSON header.
const maxHeaderSize = 100 << 20

// containerPrefixes are the wrapper keys training scripts put around a
// state dict when it is saved alongside optimizer state or metadata.
var containerPrefixes = []string{"model_state_dict.", "state_dict.", "state.", "model."}

// parallelPrefix is left behind by data-parallel training wrappers.
const parallelPrefix = "module."

type tensor struct {
	shape []int
	data  []float32
}

type tensorHeader struct {
	DType       string   `json:"dtype"`
	Shape       []int    `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// readCheckpoint parses a safetensors file into float32 tensors keyed by
// their canonical parameter name.
func readCheckpoint(path string) (map[string]tensor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(raw) < 8 {
		return nil, errors.New("checkpoint too small")
	}

	n := binary.LittleEndian.Uint64(raw[:8])
	if n > maxHeaderSize || uint64(len(raw)-8) < n {
		return nil, fmt.Errorf("invalid header length %d", n)
	}
	var header map[string]json.RawMessage
	if err := json.Unmarshal(raw[8:8+n], &header); err != nil {
		return nil, fmt.Errorf("failed to decode header: %w", err)
	}
	body := raw[8+n:]

	out := make(map[string]tensor, len(header))
	for name, meta := range header {
		if name == "__metadata__" {
			continue
		}
		var h tensorHeader
		if err := json.Unmarshal(meta, &h); err != nil {
			return nil, fmt.Errorf("tensor %q: %w", name, err)
		}
		begin, end := h.DataOffsets[0], h.DataOffsets[1]
		if begin < 0 || end < begin || end > int64(len(body)) {
			return nil, fmt.Errorf("tensor %q: offsets out of range", name)
		}
		data, err := decodeTensorData(h.DType, body[begin:end])
		if err != nil {
			return nil, fmt.Errorf("tensor %q: %w", name, err)
		}
		if numel(h.Shape) != len(data) {
			return nil, fmt.Errorf("tensor %q: shape %v does not match %d values", name, h.Shape, len(data))
		}
		out[canonicalName(name)] = tensor{shape: h.Shape, data: data}
	}
	return out, nil
}

func decodeTensorData(dtype string, b []byte) ([]float32, error) {
	switch dtype {
	case "F32":
		if len(b)%4 != 0 {
			return nil, errors.New("truncated F32 data")
		}
		out := make([]float32, len(b)/4)
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
		}
		return out, nil
	case "F64":
		if len(b)%8 != 0 {
			return nil, errors.New("truncated F64 data")
		}
		out := make([]float32, len(b)/8)
		for i := range out {
			out[i] = float32(math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:])))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported dtype %s", dtype)
	}
}

// canonicalName strips container and data-parallel prefixes.
func canonicalName(name string) string {
	for {
		trimmed := name
		for _, p := range containerPrefixes {
			trimmed = strings.TrimPrefix(trimmed, p)
		}
		trimmed = strings.TrimPrefix(trimmed, parallelPrefix)
		if trimmed == name {
			return name
		}
		name = trimmed
	}
}

func numel(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}
