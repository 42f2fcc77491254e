package processors

import (
	"testing"

	"videoRecipe/core"
)

func TestBuildRecipeFromTimeline(t *testing.T) {
	timeline := core.IntegratedTimeline{
		TotalDuration: 120,
		Ingredients: map[string]core.IngredientRecord{
			"chicken": {Name: "chicken", OccurrenceCount: 12, EstimatedAmount: "main ingredient"},
			"garlic":  {Name: "garlic", OccurrenceCount: 3, EstimatedAmount: "2-3 cloves"},
		},
		FusedSteps: []core.FusedStep{
			{StepNumber: 1, Description: "chop the garlic", StartTime: 0, EndTime: 10, Timed: true},
			{StepNumber: 2, Description: "fry the chicken", StartTime: 12, EndTime: 60, Timed: true},
		},
	}

	recipe := BuildRecipeFromTimeline(timeline)
	if recipe.Title != "Chicken and Garlic Dish" {
		t.Errorf("title = %q, most-seen ingredient should lead", recipe.Title)
	}
	if len(recipe.Ingredients) != 2 || recipe.Ingredients[0].Name != "chicken" {
		t.Errorf("ingredients should be ordered by occurrence: %+v", recipe.Ingredients)
	}
	if recipe.Ingredients[1].Amount != "2-3 cloves" {
		t.Errorf("amount must come from the record, got %+v", recipe.Ingredients[1])
	}
	if len(recipe.Steps) != 2 || recipe.Steps[0].Number != 1 || recipe.Steps[1].Instruction != "fry the chicken" {
		t.Errorf("steps not carried over: %+v", recipe.Steps)
	}
	if recipe.Steps[1].StartTime != 12 {
		t.Errorf("timed steps keep their timestamps: %+v", recipe.Steps[1])
	}
}

func TestBuildRecipeFromEmptyTimeline(t *testing.T) {
	recipe := BuildRecipeFromTimeline(core.IntegratedTimeline{})
	if recipe.Title != "Untitled Dish" {
		t.Errorf("empty timeline title = %q", recipe.Title)
	}
	if len(recipe.Ingredients) != 0 || len(recipe.Steps) != 0 {
		t.Errorf("empty timeline should yield an empty recipe body: %+v", recipe)
	}
}

func TestParseRecipeResponseToleratesFences(t *testing.T) {
	content := "```json\n{\"title\": \"Test\", \"description\": \"d\", \"ingredients\": [], \"steps\": [{\"number\": 1, \"instruction\": \"do it\"}]}\n```"
	recipe, err := parseRecipeResponse(content)
	if err != nil {
		t.Fatalf("parseRecipeResponse failed: %v", err)
	}
	if recipe.Title != "Test" || len(recipe.Steps) != 1 {
		t.Errorf("unexpected parse result: %+v", recipe)
	}
}

func TestParseRecipeResponseRejectsGarbage(t *testing.T) {
	for _, content := range []string{"", "no json here", "{\"title\": \"x\"}"} {
		if _, err := parseRecipeResponse(content); err == nil {
			t.Errorf("content %q should fail to parse", content)
		}
	}
}
