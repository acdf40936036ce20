package classifier

import (
	"errors"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	ortOnce sync.Once
	ortErr  error
)

// initRuntime loads the onnxruntime shared library once per process.
func initRuntime(libraryPath string) error {
	ortOnce.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		ortErr = ort.InitializeEnvironment()
	})
	return ortErr
}

// ONNXBackbone runs an exported image model through onnxruntime. The model
// takes a [1,3,224,224] float32 input and yields one float32 output vector,
// either logits or pooled features for a separate Head.
type ONNXBackbone struct {
	session     *ort.DynamicAdvancedSession
	outputShape ort.Shape
}

// OpenONNX creates an inference session for cfg.ModelPath on cfg.Device.
func OpenONNX(cfg Config) (Backbone, error) {
	if err := initRuntime(cfg.LibraryPath); err != nil {
		return nil, fmt.Errorf("failed to initialize onnxruntime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect model: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, errors.New("model declares no inputs or outputs")
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer func() { _ = opts.Destroy() }()

	if cfg.Device == "cuda" {
		cudaOpts, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return nil, fmt.Errorf("failed to create CUDA options: %w", err)
		}
		defer func() { _ = cudaOpts.Destroy() }()
		if err := opts.AppendExecutionProviderCUDA(cudaOpts); err != nil {
			return nil, fmt.Errorf("failed to enable CUDA: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{inputs[0].Name}, []string{outputs[0].Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	// Dynamic batch dimensions come back as -1; we always run a batch of one.
	shape := make(ort.Shape, len(outputs[0].Dimensions))
	for i, d := range outputs[0].Dimensions {
		if d < 1 {
			d = 1
		}
		shape[i] = d
	}

	return &ONNXBackbone{session: session, outputShape: shape}, nil
}

func (b *ONNXBackbone) Infer(input []float32) ([]float32, error) {
	in, err := ort.NewTensor(ort.NewShape(1, 3, InputSize, InputSize), input)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer func() { _ = in.Destroy() }()

	out, err := ort.NewEmptyTensor[float32](b.outputShape)
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer func() { _ = out.Destroy() }()

	if err := b.session.Run([]ort.Value{in}, []ort.Value{out}); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	data := out.GetData()
	result := make([]float32, len(data))
	copy(result, data)
	return result, nil
}

func (b *ONNXBackbone) Close() error {
	return b.session.Destroy()
}
