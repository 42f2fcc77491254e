package processors

import (
	"testing"

	"videoRecipe/core"
)

func TestExtractBucketsAndSorts(t *testing.T) {
	ex := NewFrameSignalExtractor(DefaultVocabulary(), DefaultThresholds(), false)

	sig := ex.Extract(1, 2.5, []core.DetectedLabel{
		{Name: "tomato", Confidence: 70},
		{Name: "onion", Confidence: 90},
		{Name: "knife", Confidence: 80},
		{Name: "chopping", Confidence: 85},
	})

	if sig.FrameNumber != 1 || sig.TimestampSec != 2.5 {
		t.Fatalf("frame identity not preserved: %+v", sig)
	}
	if len(sig.Ingredients) != 2 {
		t.Fatalf("expected 2 ingredients, got %+v", sig.Ingredients)
	}
	// descending confidence
	if sig.Ingredients[0].Name != "onion" || sig.Ingredients[1].Name != "tomato" {
		t.Errorf("ingredients not sorted by confidence: %+v", sig.Ingredients)
	}
	if len(sig.Tools) != 1 || sig.Tools[0].Name != "knife" {
		t.Errorf("expected knife tool, got %+v", sig.Tools)
	}
	if len(sig.Actions) != 1 || sig.Actions[0].Action != "chopping" {
		t.Errorf("expected chopping action, got %+v", sig.Actions)
	}
}

func TestExtractDeduplicatesByCanonicalTerm(t *testing.T) {
	ex := NewFrameSignalExtractor(DefaultVocabulary(), DefaultThresholds(), false)

	sig := ex.Extract(1, 0, []core.DetectedLabel{
		{Name: "tomato", Confidence: 70},
		{Name: "Tomato", Confidence: 95},
	})
	if len(sig.Ingredients) != 1 {
		t.Fatalf("duplicate detections must collapse, got %+v", sig.Ingredients)
	}
	if sig.Ingredients[0].Confidence != 95 {
		t.Errorf("dedup must keep the best confidence, got %v", sig.Ingredients[0].Confidence)
	}
}

func TestExtractInfersActionFromCoOccurrence(t *testing.T) {
	ex := NewFrameSignalExtractor(DefaultVocabulary(), DefaultThresholds(), false)

	sig := ex.Extract(1, 0, []core.DetectedLabel{
		{Name: "carrot", Confidence: 85},
		{Name: "knife", Confidence: 80},
	})
	if len(sig.Actions) != 1 {
		t.Fatalf("knife plus vegetable should infer an action, got %+v", sig.Actions)
	}
	inferred := sig.Actions[0]
	if inferred.Action != "cutting" {
		t.Errorf("expected inferred cutting, got %q", inferred.Action)
	}
	if inferred.Confidence != InferredActionConfidence {
		t.Errorf("inferred confidence must be the fixed constant, got %v", inferred.Confidence)
	}
	if len(inferred.RelatedIngredients) != 1 || inferred.RelatedIngredients[0] != "carrot" {
		t.Errorf("inferred action should name the related ingredient, got %+v", inferred.RelatedIngredients)
	}
}

func TestInferredNeverOutranksDirectAction(t *testing.T) {
	if InferredActionConfidence >= DefaultThresholds().Action {
		t.Fatalf("inferred confidence %v must stay below the direct action gate %v",
			InferredActionConfidence, DefaultThresholds().Action)
	}

	ex := NewFrameSignalExtractor(DefaultVocabulary(), DefaultThresholds(), false)
	sig := ex.Extract(1, 0, []core.DetectedLabel{
		{Name: "carrot", Confidence: 85},
		{Name: "knife", Confidence: 80},
		{Name: "slicing", Confidence: 88},
	})
	if len(sig.Actions) != 1 || sig.Actions[0].Action != "slicing" {
		t.Fatalf("a direct action must suppress inference, got %+v", sig.Actions)
	}
}

func TestHighDensityRecallIsMonotone(t *testing.T) {
	detections := []core.DetectedLabel{
		{Name: "tomato", Confidence: 50}, // below normal gate, above lowered gate
		{Name: "onion", Confidence: 90},
		{Name: "knife", Confidence: 55},
		{Name: "frying", Confidence: 60},
		{Name: "herb", Confidence: 80}, // loose list only
	}

	normal := NewFrameSignalExtractor(DefaultVocabulary(), DefaultThresholds(), false).Extract(1, 0, detections)
	dense := NewFrameSignalExtractor(DefaultVocabulary(), DefaultThresholds(), true).Extract(1, 0, detections)

	if len(dense.Ingredients) < len(normal.Ingredients) {
		t.Errorf("high density lost ingredients: %d -> %d", len(normal.Ingredients), len(dense.Ingredients))
	}
	if len(dense.Tools) < len(normal.Tools) {
		t.Errorf("high density lost tools: %d -> %d", len(normal.Tools), len(dense.Tools))
	}
	if len(dense.Actions) < len(normal.Actions) {
		t.Errorf("high density lost actions: %d -> %d", len(normal.Actions), len(dense.Actions))
	}
	if len(dense.Ingredients) <= len(normal.Ingredients) {
		t.Errorf("lowered gates should recover extra ingredients, got %+v", dense.Ingredients)
	}
}

func TestHighDensityKeepsDualCategoryLabel(t *testing.T) {
	// "grill" is both a tool and an action stem. At 68 it clears only the
	// tool gate; lowering the gates lets the action reading win precedence,
	// but the tool reading the normal run produced must survive.
	detections := []core.DetectedLabel{{Name: "grill", Confidence: 68}}

	normal := NewFrameSignalExtractor(DefaultVocabulary(), DefaultThresholds(), false).Extract(1, 0, detections)
	dense := NewFrameSignalExtractor(DefaultVocabulary(), DefaultThresholds(), true).Extract(1, 0, detections)

	if len(normal.Tools) != 1 || normal.Tools[0].Name != "grill" {
		t.Fatalf("at 68 only the tool gate is cleared, got %+v", normal)
	}
	if len(normal.Actions) != 0 {
		t.Fatalf("at 68 the action gate is not cleared, got %+v", normal.Actions)
	}
	if len(dense.Tools) < len(normal.Tools) {
		t.Errorf("high density lost the tool reading: %+v", dense.Tools)
	}
	if len(dense.Actions) != 1 || dense.Actions[0].Action != "grilling" {
		t.Errorf("lowered gates should add the action reading, got %+v", dense.Actions)
	}
}
