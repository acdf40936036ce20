package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vbonduro/breedchat/internal/chat"
	"github.com/vbonduro/breedchat/internal/classifier"
	"github.com/vbonduro/breedchat/internal/config"
	"github.com/vbonduro/breedchat/internal/gate"
	"github.com/vbonduro/breedchat/internal/grounding"
	"github.com/vbonduro/breedchat/internal/knowledge"
	"github.com/vbonduro/breedchat/internal/llm/backend"
)

// core holds the request pipeline shared by serve and ask.
type core struct {
	knowledge  *knowledge.Store
	classifier *classifier.Classifier
	gate       *gate.Gate
	composer   *chat.Composer
}

func loadKnowledge(cfg *config.Config) (*knowledge.Store, error) {
	return knowledge.LoadFiles(knowledge.Paths{
		Breeds:          cfg.BreedsJSONPath,
		Diets:           cfg.DietsJSONPath,
		SampleQuestions: cfg.SampleQuestionsPath,
		ClassIndex:      cfg.ClassIndicesPath,
	})
}

func newClassifier(cfg *config.Config, kb *knowledge.Store, logger *slog.Logger) *classifier.Classifier {
	return classifier.New(classifier.Config{
		ModelPath:     cfg.ModelPath,
		HeadPath:      cfg.HeadPath,
		LibraryPath:   cfg.ORTLibraryPath,
		Device:        cfg.ModelDevice,
		Workers:       cfg.InferenceWorkers,
		Normalization: classifier.NormalizationByName(cfg.ModelNormalization),
	}, kb.ClassIndex(), nil, logger)
}

func newCore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*core, error) {
	kb, err := loadKnowledge(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("reference data loaded", "breeds", len(kb.BreedKeys()), "classes", kb.ClassIndex().Len())

	generator, err := backend.New(ctx, cfg.LLM(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create language model client: %w", err)
	}

	clf := newClassifier(cfg, kb, logger)
	g := gate.New(generator, logger)
	grounder := grounding.New(generator, cfg.MaxOutputTokens, logger)

	return &core{
		knowledge:  kb,
		classifier: clf,
		gate:       g,
		composer:   chat.NewComposer(kb, clf, g, grounder, logger),
	}, nil
}

func (c *core) close(logger *slog.Logger) {
	if err := c.classifier.Close(); err != nil {
		logger.Error("failed to close breed model", "error", err)
	}
}
