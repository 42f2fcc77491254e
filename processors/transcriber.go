package processors

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"videoRecipe/config"
)

// Transcriber converts the extracted audio track into plain text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// WhisperTranscriber calls the Whisper API through the configured endpoint.
type WhisperTranscriber struct {
	client *openai.Client
	model  string
}

// NewWhisperTranscriber builds a transcriber from the loaded config.
func NewWhisperTranscriber(cfg *config.Config) *WhisperTranscriber {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = cfg.BaseURL
	return &WhisperTranscriber{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.WhisperModel,
	}
}

func (t *WhisperTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: audioPath,
	})
	if err != nil {
		return "", fmt.Errorf("whisper transcription failed: %v", err)
	}
	return resp.Text, nil
}

// LocalWhisperTranscriber shells out to a local whisper installation. Useful
// when no API key is configured but the python package is installed.
type LocalWhisperTranscriber struct {
	Model string
}

func (t *LocalWhisperTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	model := t.Model
	if model == "" {
		model = "base"
	}
	outDir := filepath.Dir(audioPath)
	cmd := exec.CommandContext(ctx, "whisper", audioPath,
		"--model", model,
		"--output_format", "txt",
		"--output_dir", outDir)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("local whisper failed: %v: %s", err, strings.TrimSpace(string(out)))
	}
	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	data, err := os.ReadFile(filepath.Join(outDir, base+".txt"))
	if err != nil {
		return "", fmt.Errorf("read whisper output: %v", err)
	}
	return string(data), nil
}

// MockTranscriber returns a fixed transcript so the pipeline runs without any
// external dependency.
type MockTranscriber struct{}

func (MockTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	return "First, wash the tomatoes and chop the onion. " +
		"Then heat some oil in the pan and fry the garlic. " +
		"Next, add the chicken and cook for five minutes. " +
		"Finally, plate everything and garnish with parsley.", nil
}

// PickTranscriber selects a transcriber: TRANSCRIBER env forces one, otherwise
// the API-backed one when a key is configured, falling back to the mock.
func PickTranscriber(cfg *config.Config) Transcriber {
	switch os.Getenv("TRANSCRIBER") {
	case "whisper":
		return NewWhisperTranscriber(cfg)
	case "local":
		return &LocalWhisperTranscriber{Model: os.Getenv("WHISPER_LOCAL_MODEL")}
	case "mock":
		return MockTranscriber{}
	}
	if cfg.HasValidAPI() {
		return NewWhisperTranscriber(cfg)
	}
	log.Printf("[transcriber] no API key configured, using mock transcriber")
	return MockTranscriber{}
}
