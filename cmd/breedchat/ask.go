package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vbonduro/breedchat/internal/chat"
)

func NewAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask one question and print the answer as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runAsk,
	}
	cmd.Flags().String("image", "", "Path to a dog photo to attach")
	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	image, err := readImageFlag(cmd)
	if err != nil {
		return err
	}

	cfg, logger, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	c, err := newCore(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer c.close(logger)

	answer, err := c.composer.ComposeAnswer(cmd.Context(), args[0], image)
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}
	return writeAnswer(cmd.OutOrStdout(), answer)
}

func readImageFlag(cmd *cobra.Command) (*chat.Image, error) {
	path, _ := cmd.Flags().GetString("image")
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return &chat.Image{
		Filename: filepath.Base(path),
		MIMEType: http.DetectContentType(data),
		Data:     data,
	}, nil
}

func writeAnswer(w io.Writer, answer *chat.Answer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(answer)
}
