package classifier

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// headNames are the parameter names the final linear layer goes by across
// backbone families, in lookup order.
var headNames = []string{"classifier", "head", "fc"}

// Head is a linear classification layer applied to backbone features.
type Head struct {
	weight []float32 // [out, in] row-major
	bias   []float32
	in     int
	out    int
}

// LoadHead reads the classification layer from a safetensors checkpoint.
// Loading is non-strict: tensors other than the head are ignored and a
// missing bias is treated as zeros. A missing or mis-shaped weight fails.
func LoadHead(path string, logger *slog.Logger) (*Head, error) {
	tensors, err := readCheckpoint(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var (
		prefix string
		weight tensor
		found  bool
	)
	for _, name := range headNames {
		if w, ok := tensors[name+".weight"]; ok {
			prefix, weight, found = name, w, true
			break
		}
	}
	if !found {
		return nil, errors.New("checkpoint has no classifier weight")
	}
	if len(weight.shape) != 2 || weight.shape[0] == 0 || weight.shape[1] == 0 {
		return nil, fmt.Errorf("classifier weight has shape %v, want [classes, features]", weight.shape)
	}

	h := &Head{weight: weight.data, out: weight.shape[0], in: weight.shape[1]}
	if b, ok := tensors[prefix+".bias"]; ok {
		if len(b.data) != h.out {
			return nil, fmt.Errorf("classifier bias has %d values, want %d", len(b.data), h.out)
		}
		h.bias = b.data
	} else {
		logger.Warn("classifier bias missing from checkpoint, using zeros", "path", path)
		h.bias = make([]float32, h.out)
	}

	var ignored []string
	for name := range tensors {
		if name != prefix+".weight" && name != prefix+".bias" {
			ignored = append(ignored, name)
		}
	}
	if len(ignored) > 0 {
		logger.Debug("ignoring unexpected checkpoint tensors", "count", len(ignored), "names", strings.Join(ignored, ","))
	}
	return h, nil
}

// Classes returns the number of output classes.
func (h *Head) Classes() int { return h.out }

// Apply computes weight*features + bias.
func (h *Head) Apply(features []float32) ([]float32, error) {
	if len(features) != h.in {
		return nil, fmt.Errorf("backbone produced %d features, head expects %d", len(features), h.in)
	}
	logits := make([]float32, h.out)
	for o := 0; o < h.out; o++ {
		row := h.weight[o*h.in : (o+1)*h.in]
		sum := h.bias[o]
		for i, f := range features {
			sum += row[i] * f
		}
		logits[o] = sum
	}
	return logits, nil
}
