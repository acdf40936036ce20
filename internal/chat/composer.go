// Package chat turns a user message and an optional dog photo into an answer,
// choosing between the image classifier, the local breed data and the
// language model.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/vbonduro/breedchat/internal/classifier"
	"github.com/vbonduro/breedchat/internal/grounding"
	"github.com/vbonduro/breedchat/internal/knowledge"
)

// NotDogReply answers an image the gate rejected.
const NotDogReply = "It has been detected that the uploaded image is not a dog. Please upload a dog image."

// Answer sources.
const (
	SourceClassifier    = "image_classification_model"
	SourceLanguageModel = "language_model"
	SourceGate          = "dog_image_gate"
)

// breedQuestionPatterns mark a message as asking which breed the pictured dog is.
var breedQuestionPatterns = []string{
	"what is the breed",
	"what breed is this",
	"what breed is the dog",
	"which breed is this",
	"identify the breed",
	"breed name of the dog",
	"what is the breed name",
}

// Image is an uploaded photo.
type Image struct {
	Filename string
	MIMEType string
	Data     []byte
}

// present reports whether the upload actually carries an image.
func (i *Image) present() bool {
	return i != nil && i.Filename != "" && len(i.Data) > 0
}

type SourceDataUsed struct {
	BreedProvided bool `json:"breed_provided"`
	DietProvided  bool `json:"diet_provided"`
}

// Answer is the result of one pipeline run.
type Answer struct {
	PredictedBreed *string        `json:"predicted_breed"`
	BreedUsed      *string        `json:"breed_used"`
	Confidence     *float64       `json:"confidence,omitempty"`
	Answer         string         `json:"answer"`
	Source         string         `json:"source"`
	SourceDataUsed SourceDataUsed `json:"source_data_used"`
}

type dogGate interface {
	IsDogImage(ctx context.Context, image []byte, mimeType string) (bool, error)
}

type breedClassifier interface {
	PredictFromBytes(ctx context.Context, image []byte, topK int) (classifier.Result, error)
}

type groundedAsker interface {
	AskGrounded(ctx context.Context, question string, c grounding.Context) (string, error)
}

type breedStore interface {
	BreedInfo(name string) (knowledge.Record, bool)
	DietPlan(name string) (knowledge.Record, bool)
	BreedKeys() []string
	SampleQuestions() []string
}

type Composer struct {
	store      breedStore
	classifier breedClassifier
	gate       dogGate
	grounding  groundedAsker
	logger     *slog.Logger
}

func NewComposer(store breedStore, classifier breedClassifier, gate dogGate, grounding groundedAsker, logger *slog.Logger) *Composer {
	return &Composer{
		store:      store,
		classifier: classifier,
		gate:       gate,
		grounding:  grounding,
		logger:     logger,
	}
}

// ComposeAnswer runs the pipeline for one message. Failures are returned as
// *PipelineError.
func (c *Composer) ComposeAnswer(ctx context.Context, message string, image *Image) (*Answer, error) {
	var (
		predicted  *string
		confidence *float64
		breedKey   string
		breedInfo  knowledge.Record
		dietInfo   knowledge.Record
	)

	if image.present() {
		isDog, err := c.gate.IsDogImage(ctx, image.Data, image.MIMEType)
		if err != nil {
			return nil, &PipelineError{Kind: KindGate, Err: err}
		}
		if !isDog {
			c.logger.Info("uploaded image is not a dog", "filename", image.Filename)
			return &Answer{Answer: NotDogReply, Source: SourceGate}, nil
		}

		preds, err := c.classifier.PredictFromBytes(ctx, image.Data, 1)
		if err != nil {
			if errors.Is(err, classifier.ErrImageDecode) {
				return nil, &PipelineError{Kind: KindImageDecode, Err: err}
			}
			return nil, &PipelineError{Kind: KindClassifier, Err: err}
		}

		if len(preds) > 0 {
			top := preds[0]
			breed := top.Breed
			conf := math.Round(top.Confidence*10000) / 10000
			predicted, confidence = &breed, &conf

			breedKey = knowledge.Normalize(breed)
			breedInfo, _ = c.store.BreedInfo(breedKey)
			dietInfo, _ = c.store.DietPlan(breedKey)
			c.logger.Info("breed predicted", "breed", breed, "confidence", conf)

			if IsBreedQuestion(message) {
				return &Answer{
					PredictedBreed: predicted,
					BreedUsed:      &breedKey,
					Confidence:     confidence,
					Answer:         fmt.Sprintf("The dog in the image is a %s.", breed),
					Source:         SourceClassifier,
					SourceDataUsed: SourceDataUsed{
						BreedProvided: !breedInfo.IsEmpty(),
						DietProvided:  !dietInfo.IsEmpty(),
					},
				}, nil
			}
		}
	}

	if breedKey == "" {
		breedKey = c.findBreedInText(message)
	}
	if breedKey != "" {
		if breedInfo.IsEmpty() {
			breedInfo, _ = c.store.BreedInfo(breedKey)
		}
		if dietInfo.IsEmpty() {
			dietInfo, _ = c.store.DietPlan(breedKey)
		}
	}

	text, err := c.grounding.AskGrounded(ctx, message, grounding.Context{
		BreedInfo:       breedInfo,
		DietInfo:        dietInfo,
		SampleQuestions: c.store.SampleQuestions(),
	})
	if err != nil {
		return nil, &PipelineError{Kind: KindGrounding, Err: err}
	}

	answer := &Answer{
		PredictedBreed: predicted,
		Confidence:     confidence,
		Answer:         text,
		Source:         SourceLanguageModel,
		SourceDataUsed: SourceDataUsed{
			BreedProvided: !breedInfo.IsEmpty(),
			DietProvided:  !dietInfo.IsEmpty(),
		},
	}
	if breedKey != "" {
		answer.BreedUsed = &breedKey
	}
	return answer, nil
}

// findBreedInText returns the first breed key, in store order, that occurs
// in the message.
func (c *Composer) findBreedInText(message string) string {
	msg := strings.ToLower(message)
	for _, key := range c.store.BreedKeys() {
		if strings.Contains(msg, key) {
			return key
		}
	}
	return ""
}

// IsBreedQuestion reports whether a message asks to identify the breed.
func IsBreedQuestion(message string) bool {
	msg := strings.ToLower(strings.TrimSpace(message))
	for _, p := range breedQuestionPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
