package processors

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
	"sync/atomic"

	openai "github.com/sashabaranov/go-openai"

	"videoRecipe/config"
	"videoRecipe/core"
)

// FrameLabeler produces raw detections for one frame image.
type FrameLabeler interface {
	Label(ctx context.Context, framePath string) ([]core.DetectedLabel, error)
}

const visionLabelPrompt = `You are labeling one frame from a cooking video.
List everything you can identify: ingredients, kitchen tools, and cooking actions in progress.
Respond with a JSON array only, no prose. Each element:
{"name": "...", "confidence": 0-100, "category_hint": "ingredient|tool|action"}
Use lowercase English names. Include at most 15 labels.`

// VisionFrameLabeler asks a vision chat model to label the frame.
type VisionFrameLabeler struct {
	client *openai.Client
	model  string
}

// NewVisionFrameLabeler builds a labeler from the loaded config.
func NewVisionFrameLabeler(cfg *config.Config) *VisionFrameLabeler {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = cfg.BaseURL
	return &VisionFrameLabeler{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.VisionModel,
	}
}

func (l *VisionFrameLabeler) Label(ctx context.Context, framePath string) ([]core.DetectedLabel, error) {
	data, err := os.ReadFile(framePath)
	if err != nil {
		return nil, fmt.Errorf("read frame %s: %v", framePath, err)
	}
	imageURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data)

	resp, err := l.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: l.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: visionLabelPrompt},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: imageURL}},
				},
			},
		},
		MaxTokens: 800,
	})
	if err != nil {
		return nil, fmt.Errorf("vision labeling failed: %v", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("vision labeling returned no choices")
	}
	return parseLabelResponse(resp.Choices[0].Message.Content)
}

var jsonArrayPattern = regexp.MustCompile(`(?s)\[.*\]`)

// parseLabelResponse extracts the JSON array from the model output, tolerating
// markdown fences and surrounding prose.
func parseLabelResponse(content string) ([]core.DetectedLabel, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	raw := jsonArrayPattern.FindString(content)
	if raw == "" {
		return nil, fmt.Errorf("no JSON array in label response: %q", truncate(content, 120))
	}
	var labels []core.DetectedLabel
	if err := json.Unmarshal([]byte(raw), &labels); err != nil {
		return nil, fmt.Errorf("parse label response: %v", err)
	}
	return labels, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// MockFrameLabeler cycles through canned cooking-scene detections so the full
// pipeline runs without a vision model. Safe for concurrent use by the frame
// worker pool.
type MockFrameLabeler struct {
	calls atomic.Int64
}

var mockScenes = [][]core.DetectedLabel{
	{
		{Name: "tomato", Confidence: 92, CategoryHint: "ingredient"},
		{Name: "knife", Confidence: 88, CategoryHint: "tool"},
		{Name: "cutting board", Confidence: 81, CategoryHint: "tool"},
		{Name: "chopping", Confidence: 79, CategoryHint: "action"},
	},
	{
		{Name: "onion", Confidence: 90, CategoryHint: "ingredient"},
		{Name: "knife", Confidence: 85, CategoryHint: "tool"},
		{Name: "slicing", Confidence: 76, CategoryHint: "action"},
	},
	{
		{Name: "pan", Confidence: 93, CategoryHint: "tool"},
		{Name: "oil", Confidence: 72, CategoryHint: "ingredient"},
		{Name: "garlic", Confidence: 84, CategoryHint: "ingredient"},
		{Name: "frying", Confidence: 82, CategoryHint: "action"},
	},
	{
		{Name: "chicken", Confidence: 89, CategoryHint: "ingredient"},
		{Name: "pan", Confidence: 91, CategoryHint: "tool"},
		{Name: "spatula", Confidence: 77, CategoryHint: "tool"},
	},
	{
		{Name: "plate", Confidence: 94, CategoryHint: "tool"},
		{Name: "parsley", Confidence: 71, CategoryHint: "ingredient"},
		{Name: "garnishing", Confidence: 74, CategoryHint: "action"},
	},
}

func (m *MockFrameLabeler) Label(ctx context.Context, framePath string) ([]core.DetectedLabel, error) {
	n := m.calls.Add(1) - 1
	scene := mockScenes[int(n)%len(mockScenes)]
	out := make([]core.DetectedLabel, len(scene))
	copy(out, scene)
	return out, nil
}

// PickFrameLabeler selects a labeler: LABELER env forces one, otherwise the
// vision model when a key is configured, falling back to the mock.
func PickFrameLabeler(cfg *config.Config) FrameLabeler {
	switch os.Getenv("LABELER") {
	case "vision":
		return NewVisionFrameLabeler(cfg)
	case "mock":
		return &MockFrameLabeler{}
	}
	if cfg.HasValidAPI() {
		return NewVisionFrameLabeler(cfg)
	}
	log.Printf("[labeler] no API key configured, using mock frame labeler")
	return &MockFrameLabeler{}
}
