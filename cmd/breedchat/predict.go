package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vbonduro/breedchat/internal/classifier"
)

func NewPredictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict <image>",
		Short: "Classify a dog photo with the local model",
		Long:  `Runs the breed classifier on an image file without the dog-image check and prints the top predictions.`,
		Args:  cobra.ExactArgs(1),
		RunE:  runPredict,
	}
	cmd.Flags().Int("topk", 3, "Number of predictions to print")
	cmd.Flags().Bool("json", false, "Output in JSON format")
	return cmd
}

func runPredict(cmd *cobra.Command, args []string) error {
	topK, _ := cmd.Flags().GetInt("topk")
	asJSON, _ := cmd.Flags().GetBool("json")
	if topK < 1 {
		return fmt.Errorf("--topk must be at least 1")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	cfg, logger, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	kb, err := loadKnowledge(cfg)
	if err != nil {
		return err
	}
	clf := newClassifier(cfg, kb, logger)
	defer func() {
		if err := clf.Close(); err != nil {
			logger.Error("failed to close breed model", "error", err)
		}
	}()

	preds, err := clf.PredictFromBytes(cmd.Context(), data, topK)
	if err != nil {
		return fmt.Errorf("predict: %w", err)
	}
	return printPredictions(cmd.OutOrStdout(), preds, asJSON)
}

func printPredictions(w io.Writer, preds classifier.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"predictions": preds})
	}
	for i, p := range preds {
		if _, err := fmt.Fprintf(w, "%d. %s (%.2f%%)\n", i+1, p.Breed, p.Confidence*100); err != nil {
			return err
		}
	}
	return nil
}
