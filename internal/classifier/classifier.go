// Package classifier predicts dog breeds from image bytes with a locally
// hosted model.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/vbonduro/breedchat/internal/knowledge"
)

var (
	// ErrModelLoad is returned when the model weights cannot be loaded.
	ErrModelLoad = errors.New("failed to load breed model")
	// ErrImageDecode is returned when the uploaded bytes are not a decodable image.
	ErrImageDecode = errors.New("failed to decode image")
)

// Config locates the model and selects where it runs.
type Config struct {
	ModelPath     string
	HeadPath      string // optional safetensors checkpoint for the final linear layer
	LibraryPath   string // onnxruntime shared library
	Device        string // "cpu" or "cuda"
	Workers       int    // concurrent inferences
	Normalization Normalization
}

// Backbone runs the image model on a preprocessed CHW tensor.
type Backbone interface {
	Infer(input []float32) ([]float32, error)
	Close() error
}

// Opener constructs a Backbone from config.
type Opener func(cfg Config) (Backbone, error)

// Prediction is one ranked class.
type Prediction struct {
	Breed      string  `json:"breed"`
	Confidence float64 `json:"confidence"`
}

// Result is ordered by descending confidence.
type Result []Prediction

// Classifier is safe for concurrent use. The model is loaded at most once.
type Classifier struct {
	cfg    Config
	labels knowledge.ClassIndex
	open   Opener
	sem    *semaphore.Weighted
	logger *slog.Logger
	mu     sync.Mutex
	loaded bool
	model  Backbone
	head   *Head
}

// New returns a Classifier that loads on first use. A nil opener uses OpenONNX.
func New(cfg Config, labels knowledge.ClassIndex, open Opener, logger *slog.Logger) *Classifier {
	if open == nil {
		open = OpenONNX
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Normalization == (Normalization{}) {
		cfg.Normalization = ImageNetNormalization
	}
	return &Classifier{
		cfg:    cfg,
		labels: labels,
		open:   open,
		sem:    semaphore.NewWeighted(int64(cfg.Workers)),
		logger: logger,
	}
}

// Load loads the model if it has not been loaded yet. A failed load is
// retried on the next call.
func (c *Classifier) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked()
}

func (c *Classifier) loadLocked() error {
	if c.loaded {
		return nil
	}

	if _, err := os.Stat(c.cfg.ModelPath); err != nil {
		return fmt.Errorf("%w: %v", ErrModelLoad, err)
	}
	c.logger.Info("loading breed model", "path", c.cfg.ModelPath, "device", c.cfg.Device)

	var head *Head
	if c.cfg.HeadPath != "" {
		h, err := LoadHead(c.cfg.HeadPath, c.logger)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrModelLoad, err)
		}
		if n := c.labels.Len(); h.Classes() != n {
			c.logger.Warn("classifier head size differs from class index", "head_classes", h.Classes(), "labels", n)
		}
		head = h
	}

	model, err := c.open(c.cfg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrModelLoad, err)
	}

	c.model = model
	c.head = head
	c.loaded = true
	c.logger.Info("breed model loaded")
	return nil
}

// current returns the loaded model, loading it if needed. Callers must hold a
// semaphore slot so Close cannot release the model while they use it.
func (c *Classifier) current() (Backbone, *Head, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadLocked(); err != nil {
		return nil, nil, err
	}
	return c.model, c.head, nil
}

// PredictFromBytes returns the topK most likely breeds for an encoded image.
// topK is clamped to [1, number of classes].
func (c *Classifier) PredictFromBytes(ctx context.Context, image []byte, topK int) (Result, error) {
	if err := c.Load(); err != nil {
		return nil, err
	}

	input, err := Preprocess(image, c.cfg.Normalization)
	if err != nil {
		return nil, err
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	output, head, err := c.infer(input)
	c.sem.Release(1)
	if err != nil {
		return nil, err
	}

	if head != nil {
		if output, err = head.Apply(output); err != nil {
			return nil, err
		}
	}
	if len(output) == 0 {
		return nil, errors.New("breed model produced no outputs")
	}

	return TopK(Softmax(output), topK, c.labels), nil
}

func (c *Classifier) infer(input []float32) ([]float32, *Head, error) {
	model, head, err := c.current()
	if err != nil {
		return nil, nil, err
	}
	output, err := model.Infer(input)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to run breed model: %w", err)
	}
	return output, head, nil
}

// Close waits for in-flight inferences and releases the model.
func (c *Classifier) Close() error {
	workers := int64(c.cfg.Workers)
	if err := c.sem.Acquire(context.Background(), workers); err != nil {
		return err
	}
	defer c.sem.Release(workers)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return nil
	}
	c.loaded = false
	model := c.model
	c.model, c.head = nil, nil
	return model.Close()
}

// Softmax converts logits into probabilities.
func Softmax(logits []float32) []float64 {
	maxLogit := math.Inf(-1)
	for _, l := range logits {
		maxLogit = math.Max(maxLogit, float64(l))
	}
	probs := make([]float64, len(logits))
	var sum float64
	for i, l := range logits {
		probs[i] = math.Exp(float64(l) - maxLogit)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// TopK returns the k highest-probability classes with labels from idx.
func TopK(probs []float64, k int, idx knowledge.ClassIndex) Result {
	if k < 1 {
		k = 1
	}
	if k > len(probs) {
		k = len(probs)
	}
	order := make([]int, len(probs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return probs[order[a]] > probs[order[b]] })

	out := make(Result, k)
	for i := 0; i < k; i++ {
		out[i] = Prediction{Breed: idx.Label(order[i]), Confidence: probs[order[i]]}
	}
	return out
}
