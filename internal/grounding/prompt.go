package grounding

import (
	"strings"

	"github.com/vbonduro/breedchat/internal/knowledge"
)

// maxSuggestedQuestions caps how many sample questions go into a prompt.
const maxSuggestedQuestions = 40

const systemRules = `You are a helpful and factual DOG assistant.
Your job is to answer questions about dogs, dog breeds, dog diet, dog behaviour, training, health, grooming, etc.

RULES:
1. FIRST check if any provided JSON data (BREED_DATA or DIET_DATA) contains the answer.
   - If yes, answer ONLY using the JSON data.

2. If the JSON data does NOT contain the answer:
   - You MAY use general dog-related knowledge.
   - Keep answers short, clear, and easy to understand.
   - Do NOT give long paragraphs.

3. If the user asks ANYTHING not related to dogs:
   - Do NOT answer the question.
   - Politely respond: 'I can only help with dog-related questions.'

4. NEVER hallucinate.
5. NEVER invent new facts when JSON data already provides information.
6. If the user asks for very specific information that you cannot confirm:
   - Respond: 'Information not available in the provided data.'`

// Context is the structured data an answer is grounded on.
type Context struct {
	BreedInfo       knowledge.Record
	DietInfo        knowledge.Record
	SampleQuestions []string
}

// BuildPrompt assembles the grounding prompt: the rules block, then each
// present data section, then the question, separated by blank lines.
func BuildPrompt(question string, c Context) string {
	sections := []string{systemRules}

	if !c.BreedInfo.IsEmpty() {
		sections = append(sections, "BREED_DATA:\n"+c.BreedInfo.Indent())
	}
	if !c.DietInfo.IsEmpty() {
		sections = append(sections, "DIET_DATA:\n"+c.DietInfo.Indent())
	}
	if len(c.SampleQuestions) > 0 {
		qs := c.SampleQuestions
		if len(qs) > maxSuggestedQuestions {
			qs = qs[:maxSuggestedQuestions]
		}
		sections = append(sections, "SUGGESTED_QUESTIONS:\n"+strings.Join(qs, "\n"))
	}
	sections = append(sections, "USER_QUESTION:\n"+strings.TrimSpace(question))

	return strings.Join(sections, "\n\n")
}
