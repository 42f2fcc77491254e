package processors

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"videoRecipe/config"
	"videoRecipe/core"
)

// RecipeGenerator turns an integrated timeline into a recipe document.
type RecipeGenerator interface {
	Generate(ctx context.Context, timeline core.IntegratedTimeline) (core.Recipe, error)
}

// BuildRecipeFromTimeline assembles a recipe directly from the fused analysis.
// Deterministic; used by the mock generator and as the LLM fallback.
func BuildRecipeFromTimeline(timeline core.IntegratedTimeline) core.Recipe {
	names := make([]string, 0, len(timeline.Ingredients))
	for name := range timeline.Ingredients {
		names = append(names, name)
	}
	// most-seen ingredients first, so the title leads with them
	sort.Slice(names, func(i, j int) bool {
		a, b := timeline.Ingredients[names[i]], timeline.Ingredients[names[j]]
		if a.OccurrenceCount != b.OccurrenceCount {
			return a.OccurrenceCount > b.OccurrenceCount
		}
		return names[i] < names[j]
	})

	recipe := core.Recipe{
		Title:       recipeTitle(names),
		Description: fmt.Sprintf("Recipe reconstructed from a %s cooking video.", core.FormatTime(timeline.TotalDuration)),
		Ingredients: make([]core.RecipeIngredient, 0, len(names)),
		Steps:       make([]core.RecipeStep, 0, len(timeline.FusedSteps)),
	}
	for _, name := range names {
		recipe.Ingredients = append(recipe.Ingredients, core.RecipeIngredient{
			Name:   name,
			Amount: timeline.Ingredients[name].EstimatedAmount,
		})
	}
	for i, step := range timeline.FusedSteps {
		rs := core.RecipeStep{Number: i + 1, Instruction: step.Description}
		if step.Timed {
			rs.StartTime = step.StartTime
			rs.EndTime = step.EndTime
		}
		recipe.Steps = append(recipe.Steps, rs)
	}
	return recipe
}

func recipeTitle(names []string) string {
	if len(names) == 0 {
		return "Untitled Dish"
	}
	top := names
	if len(top) > 3 {
		top = top[:3]
	}
	titled := make([]string, len(top))
	for i, n := range top {
		titled[i] = titleCase(n)
	}
	return strings.Join(titled, " and ") + " Dish"
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

const recipePrompt = `You are a chef writing up a recipe from a video analysis.
Given the fused steps and ingredient list below, produce a clean recipe.
Respond with JSON only:
{"title": "...", "description": "...", "ingredients": [{"name": "...", "amount": "..."}], "steps": [{"number": 1, "instruction": "..."}]}

Analysis:
%s`

// LLMRecipeGenerator asks a chat model to polish the timeline into a recipe,
// falling back to the deterministic builder when the model output cannot be
// parsed.
type LLMRecipeGenerator struct {
	client *openai.Client
	model  string
}

// NewLLMRecipeGenerator builds a generator from the loaded config.
func NewLLMRecipeGenerator(cfg *config.Config) *LLMRecipeGenerator {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = cfg.BaseURL
	return &LLMRecipeGenerator{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.ChatModel,
	}
}

func (g *LLMRecipeGenerator) Generate(ctx context.Context, timeline core.IntegratedTimeline) (core.Recipe, error) {
	summary := timelineDigest(timeline)
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(recipePrompt, summary)},
		},
		Temperature: 0.3,
		MaxTokens:   1200,
	})
	if err != nil {
		log.Printf("[recipe] LLM generation failed, using timeline fallback: %v", err)
		return BuildRecipeFromTimeline(timeline), nil
	}
	if len(resp.Choices) == 0 {
		return BuildRecipeFromTimeline(timeline), nil
	}
	recipe, err := parseRecipeResponse(resp.Choices[0].Message.Content)
	if err != nil {
		log.Printf("[recipe] failed to parse LLM output, using timeline fallback: %v", err)
		return BuildRecipeFromTimeline(timeline), nil
	}
	return recipe, nil
}

// timelineDigest renders the timeline compactly for the prompt.
func timelineDigest(timeline core.IntegratedTimeline) string {
	var b strings.Builder
	b.WriteString("Ingredients:\n")
	for _, ing := range timeline.FusedIngredients {
		fmt.Fprintf(&b, "- %s (confidence %.0f, %s)\n", ing.Name, ing.Confidence, ing.Source)
	}
	b.WriteString("Steps:\n")
	for _, step := range timeline.FusedSteps {
		if step.Timed {
			fmt.Fprintf(&b, "%d. [%s-%s] %s\n", step.StepNumber,
				core.FormatTime(step.StartTime), core.FormatTime(step.EndTime), step.Description)
		} else {
			fmt.Fprintf(&b, "%d. %s\n", step.StepNumber, step.Description)
		}
	}
	return b.String()
}

func parseRecipeResponse(content string) (core.Recipe, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return core.Recipe{}, fmt.Errorf("no JSON object in recipe response")
	}
	var recipe core.Recipe
	if err := json.Unmarshal([]byte(content[start:end+1]), &recipe); err != nil {
		return core.Recipe{}, fmt.Errorf("parse recipe response: %v", err)
	}
	if recipe.Title == "" || len(recipe.Steps) == 0 {
		return core.Recipe{}, fmt.Errorf("recipe response missing title or steps")
	}
	return recipe, nil
}

// MockRecipeGenerator uses the deterministic builder only.
type MockRecipeGenerator struct{}

func (MockRecipeGenerator) Generate(ctx context.Context, timeline core.IntegratedTimeline) (core.Recipe, error) {
	return BuildRecipeFromTimeline(timeline), nil
}

// PickRecipeGenerator selects a generator: RECIPE_GENERATOR env forces one,
// otherwise the LLM when a key is configured, falling back to the mock.
func PickRecipeGenerator(cfg *config.Config) RecipeGenerator {
	switch os.Getenv("RECIPE_GENERATOR") {
	case "llm":
		return NewLLMRecipeGenerator(cfg)
	case "mock":
		return MockRecipeGenerator{}
	}
	if cfg.HasValidAPI() {
		return NewLLMRecipeGenerator(cfg)
	}
	return MockRecipeGenerator{}
}
