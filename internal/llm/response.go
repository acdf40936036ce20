package llm

import "strings"

// Response covers the shapes text-generation APIs answer with: a list of
// candidates carrying content parts, a candidate with a flat output string,
// or a bare top-level text field. Backends fill whichever shape they receive.
type Response struct {
	Candidates []Candidate `json:"candidates,omitempty"`
	Text       string      `json:"text,omitempty"`
}

type Candidate struct {
	Content *Content `json:"content,omitempty"`
	Output  string   `json:"output,omitempty"`
}

type Content struct {
	Parts []Part `json:"parts,omitempty"`
}

type Part struct {
	Text string `json:"text,omitempty"`
}

// TextResponse wraps plain text in a Response.
func TextResponse(text string) *Response {
	return &Response{Text: text}
}

// Extract returns the answer text using the first shape that yields
// non-blank text: the first candidate's content parts joined by newlines,
// then the first candidate's flat output, then the top-level text.
func (r *Response) Extract() (string, bool) {
	if r == nil {
		return "", false
	}
	extractors := []func() string{
		r.candidateParts,
		r.candidateOutput,
		func() string { return r.Text },
	}
	for _, extract := range extractors {
		if text := strings.TrimSpace(extract()); text != "" {
			return text, true
		}
	}
	return "", false
}

func (r *Response) candidateParts() string {
	if len(r.Candidates) == 0 || r.Candidates[0].Content == nil {
		return ""
	}
	texts := make([]string, 0, len(r.Candidates[0].Content.Parts))
	for _, p := range r.Candidates[0].Content.Parts {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

func (r *Response) candidateOutput() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	return r.Candidates[0].Output
}
