package chat

import "fmt"

// Kind identifies which pipeline stage failed.
type Kind int

const (
	KindGate Kind = iota + 1
	KindImageDecode
	KindClassifier
	KindGrounding
)

func (k Kind) String() string {
	switch k {
	case KindGate:
		return "gate"
	case KindImageDecode:
		return "image_decode"
	case KindClassifier:
		return "classifier"
	case KindGrounding:
		return "grounding"
	default:
		return "unknown"
	}
}

// PipelineError is a per-request failure from ComposeAnswer.
type PipelineError struct {
	Kind Kind
	Err  error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}
