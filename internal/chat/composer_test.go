package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/breedchat/internal/classifier"
	"github.com/vbonduro/breedchat/internal/grounding"
	"github.com/vbonduro/breedchat/internal/knowledge"
)

type stubGate struct {
	isDog bool
	err   error
	calls int
}

func (s *stubGate) IsDogImage(context.Context, []byte, string) (bool, error) {
	s.calls++
	return s.isDog, s.err
}

type stubClassifier struct {
	result classifier.Result
	err    error
	calls  int
}

func (s *stubClassifier) PredictFromBytes(_ context.Context, _ []byte, topK int) (classifier.Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if topK < len(s.result) {
		return s.result[:topK], nil
	}
	return s.result, nil
}

type stubAsker struct {
	answer string
	err    error
	calls  int
	last   grounding.Context
}

func (s *stubAsker) AskGrounded(_ context.Context, _ string, c grounding.Context) (string, error) {
	s.calls++
	s.last = c
	return s.answer, s.err
}

func testStore(t *testing.T) *knowledge.Store {
	t.Helper()
	s, err := knowledge.New(knowledge.Sources{
		Breeds: []byte(`[
			{"Breed": "Beagle", "Temperament": "Curious"},
			{"Breed": "Golden Retriever", "Temperament": "Friendly"},
			{"Breed": "Retriever", "Temperament": "Generic"}
		]`),
		Diets:           []byte(`{"beagle": {"adult": "2 cups"}, "golden_retriever": {"puppy": "4 meals"}}`),
		SampleQuestions: []byte(`["What should a beagle eat?"]`),
		ClassIndex:      []byte(`{"beagle": 0, "golden_retriever": 1}`),
	})
	require.NoError(t, err)
	return s
}

type fixture struct {
	gate       *stubGate
	classifier *stubClassifier
	asker      *stubAsker
	composer   *Composer
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		gate:       &stubGate{isDog: true},
		classifier: &stubClassifier{result: classifier.Result{{Breed: "beagle", Confidence: 0.123456}}},
		asker:      &stubAsker{answer: "grounded answer"},
	}
	f.composer = NewComposer(testStore(t), f.classifier, f.gate, f.asker, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return f
}

func dogPhoto() *Image {
	return &Image{Filename: "rex.jpg", MIMEType: "image/jpeg", Data: []byte{0xFF, 0xD8, 0xFF}}
}

func TestBreedQuestionShortcut(t *testing.T) {
	f := newFixture(t)

	ans, err := f.composer.ComposeAnswer(context.Background(), "What is the breed of this dog?", dogPhoto())
	require.NoError(t, err)

	assert.Contains(t, ans.Answer, "beagle")
	assert.Equal(t, "The dog in the image is a beagle.", ans.Answer)
	assert.Equal(t, SourceClassifier, ans.Source)
	require.NotNil(t, ans.PredictedBreed)
	assert.Equal(t, "beagle", *ans.PredictedBreed)
	require.NotNil(t, ans.Confidence)
	assert.Equal(t, 0.1235, *ans.Confidence)
	assert.True(t, ans.SourceDataUsed.BreedProvided)
	assert.Zero(t, f.asker.calls)
}

func TestLowConfidenceStillAsserted(t *testing.T) {
	f := newFixture(t)
	f.classifier.result = classifier.Result{{Breed: "golden retriever", Confidence: 0.01}}

	ans, err := f.composer.ComposeAnswer(context.Background(), "which breed is this?", dogPhoto())
	require.NoError(t, err)
	assert.Equal(t, "The dog in the image is a golden retriever.", ans.Answer)
	assert.Zero(t, f.asker.calls)
}

func TestNotDogImage(t *testing.T) {
	for _, msg := range []string{"what is the breed", "hello", "what should it eat?"} {
		t.Run(msg, func(t *testing.T) {
			f := newFixture(t)
			f.gate.isDog = false

			ans, err := f.composer.ComposeAnswer(context.Background(), msg, dogPhoto())
			require.NoError(t, err)
			assert.Equal(t, NotDogReply, ans.Answer)
			assert.Nil(t, ans.PredictedBreed)
			assert.Nil(t, ans.BreedUsed)
			assert.Nil(t, ans.Confidence)
			assert.False(t, ans.SourceDataUsed.BreedProvided)
			assert.False(t, ans.SourceDataUsed.DietProvided)
			assert.Zero(t, f.classifier.calls)
			assert.Zero(t, f.asker.calls)
		})
	}
}

func TestImageWithFollowUpQuestion(t *testing.T) {
	f := newFixture(t)

	ans, err := f.composer.ComposeAnswer(context.Background(), "How much should it eat?", dogPhoto())
	require.NoError(t, err)

	assert.Equal(t, "grounded answer", ans.Answer)
	assert.Equal(t, SourceLanguageModel, ans.Source)
	require.NotNil(t, ans.BreedUsed)
	assert.Equal(t, "beagle", *ans.BreedUsed)
	require.NotNil(t, ans.PredictedBreed)
	assert.True(t, ans.SourceDataUsed.BreedProvided)
	assert.True(t, ans.SourceDataUsed.DietProvided)

	require.Equal(t, 1, f.asker.calls)
	assert.JSONEq(t, `{"Breed":"Beagle","Temperament":"Curious"}`, string(f.asker.last.BreedInfo))
	assert.JSONEq(t, `{"adult":"2 cups"}`, string(f.asker.last.DietInfo))
	assert.Equal(t, []string{"What should a beagle eat?"}, f.asker.last.SampleQuestions)
}

func TestImageBreedTakesPrecedenceOverText(t *testing.T) {
	f := newFixture(t)

	ans, err := f.composer.ComposeAnswer(context.Background(), "Is it friendlier than a golden retriever?", dogPhoto())
	require.NoError(t, err)
	require.NotNil(t, ans.BreedUsed)
	assert.Equal(t, "beagle", *ans.BreedUsed)
}

func TestTextBreedScan(t *testing.T) {
	tests := []struct {
		name      string
		message   string
		wantBreed string
		wantDiet  bool
	}{
		{"exact breed", "What does a beagle eat?", "beagle", true},
		{"first in store order wins", "my golden retriever", "golden retriever", true},
		{"substring false positive is kept", "labrador retrievers are great", "retriever", false},
		{"no breed", "how often should dogs be walked", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			ans, err := f.composer.ComposeAnswer(context.Background(), tt.message, nil)
			require.NoError(t, err)
			assert.Zero(t, f.gate.calls)
			assert.Zero(t, f.classifier.calls)
			assert.Nil(t, ans.PredictedBreed)

			if tt.wantBreed == "" {
				assert.Nil(t, ans.BreedUsed)
				assert.False(t, ans.SourceDataUsed.BreedProvided)
				return
			}
			require.NotNil(t, ans.BreedUsed)
			assert.Equal(t, tt.wantBreed, *ans.BreedUsed)
			assert.True(t, ans.SourceDataUsed.BreedProvided)
			assert.Equal(t, tt.wantDiet, ans.SourceDataUsed.DietProvided)
		})
	}
}

func TestEmptyUploadIsNoImage(t *testing.T) {
	for _, img := range []*Image{
		{Filename: "", Data: []byte{1}},
		{Filename: "empty.jpg"},
	} {
		f := newFixture(t)
		_, err := f.composer.ComposeAnswer(context.Background(), "what is the breed", img)
		require.NoError(t, err)
		assert.Zero(t, f.gate.calls)
		assert.Equal(t, 1, f.asker.calls)
	}
}

func TestUnknownPredictionHasNoData(t *testing.T) {
	f := newFixture(t)
	f.classifier.result = classifier.Result{{Breed: knowledge.UnknownLabel, Confidence: 0.4}}

	ans, err := f.composer.ComposeAnswer(context.Background(), "tell me about this dog", dogPhoto())
	require.NoError(t, err)
	require.NotNil(t, ans.BreedUsed)
	assert.Equal(t, "unknown", *ans.BreedUsed)
	assert.False(t, ans.SourceDataUsed.BreedProvided)
	assert.False(t, ans.SourceDataUsed.DietProvided)
}

func TestPipelineErrors(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(f *fixture)
		wantKind Kind
		wantErr  error
	}{
		{
			name:     "gate failure",
			setup:    func(f *fixture) { f.gate.err = errors.New("vision down") },
			wantKind: KindGate,
		},
		{
			name: "bad image",
			setup: func(f *fixture) {
				f.classifier.err = fmt.Errorf("%w: bad header", classifier.ErrImageDecode)
			},
			wantKind: KindImageDecode,
			wantErr:  classifier.ErrImageDecode,
		},
		{
			name: "model missing",
			setup: func(f *fixture) {
				f.classifier.err = fmt.Errorf("%w: no such file", classifier.ErrModelLoad)
			},
			wantKind: KindClassifier,
			wantErr:  classifier.ErrModelLoad,
		},
		{
			name: "grounding failure",
			setup: func(f *fixture) {
				f.asker.err = fmt.Errorf("%w: timeout", grounding.ErrGroundingCall)
			},
			wantKind: KindGrounding,
			wantErr:  grounding.ErrGroundingCall,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setup(f)

			_, err := f.composer.ComposeAnswer(context.Background(), "how much should it eat", dogPhoto())
			require.Error(t, err)

			var pe *PipelineError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.wantKind, pe.Kind)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestIsBreedQuestion(t *testing.T) {
	assert.True(t, IsBreedQuestion("Can you IDENTIFY THE BREED please"))
	assert.True(t, IsBreedQuestion("  what is the breed name?"))
	assert.False(t, IsBreedQuestion("what breed should I adopt"))
	assert.False(t, IsBreedQuestion(""))
}
