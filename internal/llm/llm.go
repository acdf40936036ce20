// Package llm defines the text-generation boundary shared by the dog-image
// gate and the grounded answer adapter. Backends live in subpackages.
package llm

import (
	"context"
)

// Request is a single-turn generation call with an optional inline image.
type Request struct {
	Prompt          string
	Image           []byte
	MIMEType        string
	Temperature     float32
	MaxOutputTokens int
}

// HasImage reports whether the request carries image bytes.
func (r Request) HasImage() bool {
	return len(r.Image) > 0
}

// Generator produces a response for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// ImageMIME maps an upload MIME type onto one every backend accepts.
// Unknown types fall back to jpeg.
func ImageMIME(mimeType string) string {
	switch mimeType {
	case "image/png", "image/gif", "image/webp":
		return mimeType
	default:
		return "image/jpeg"
	}
}
