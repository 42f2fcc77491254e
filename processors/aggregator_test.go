package processors

import (
	"reflect"
	"testing"

	"videoRecipe/core"
)

func frameWithIngredient(n int, ts float64, name string, conf float64) core.FrameSignal {
	return core.FrameSignal{
		FrameNumber:  n,
		TimestampSec: ts,
		Ingredients:  []core.ClassifiedItem{{Name: name, Confidence: conf, Category: "vegetable"}},
	}
}

func TestAggregateSingleSighting(t *testing.T) {
	a := NewIngredientAggregator(DefaultVocabulary(), 60)

	records := a.Aggregate([]core.FrameSignal{
		frameWithIngredient(1, 0, "Tomato", 90),
	})
	rec, ok := records["tomato"]
	if !ok {
		t.Fatalf("expected a normalized tomato record, got %+v", records)
	}
	if rec.OccurrenceCount != 1 {
		t.Errorf("occurrence count = %d, want 1", rec.OccurrenceCount)
	}
	if rec.FirstAppearance != 0 || rec.LastAppearance != 0 {
		t.Errorf("single sighting spans one timestamp, got %+v", rec)
	}
}

func TestAggregatePluralNormalization(t *testing.T) {
	a := NewIngredientAggregator(DefaultVocabulary(), 60)

	records := a.Aggregate([]core.FrameSignal{
		frameWithIngredient(1, 0, "tomatoes", 90),
		frameWithIngredient(2, 5, "tomato", 85),
	})
	if len(records) != 1 {
		t.Fatalf("plural and singular must collapse into one record, got %+v", records)
	}
	rec := records["tomato"]
	if rec.OccurrenceCount != 2 {
		t.Errorf("occurrence count = %d, want 2", rec.OccurrenceCount)
	}
	if rec.FirstAppearance != 0 || rec.LastAppearance != 5 {
		t.Errorf("appearance span wrong: %+v", rec)
	}
}

func TestAggregateRegularPluralStripping(t *testing.T) {
	a := NewIngredientAggregator(DefaultVocabulary(), 60)

	if got := a.CanonicalName("Carrots"); got != "carrot" {
		t.Errorf("CanonicalName(Carrots) = %q, want carrot", got)
	}
	// only strip when the stem is a known term
	if got := a.CanonicalName("couscous"); got != "couscous" {
		t.Errorf("CanonicalName(couscous) = %q, trailing s must survive for unknown stems", got)
	}
}

func TestAggregateThresholdGating(t *testing.T) {
	a := NewIngredientAggregator(DefaultVocabulary(), 60)

	records := a.Aggregate([]core.FrameSignal{
		frameWithIngredient(1, 0, "tomato", 59),
		frameWithIngredient(2, 5, "onion", 60),
	})
	if _, ok := records["tomato"]; ok {
		t.Errorf("below-threshold sighting must be skipped, got %+v", records)
	}
	if _, ok := records["onion"]; !ok {
		t.Errorf("at-threshold sighting must be kept, got %+v", records)
	}
}

func TestAggregateEstimatedAmounts(t *testing.T) {
	a := NewIngredientAggregator(DefaultVocabulary(), 60)

	var signals []core.FrameSignal
	for i := 0; i < 12; i++ {
		signals = append(signals, frameWithIngredient(i, float64(i), "chicken", 90))
	}
	for i := 0; i < 6; i++ {
		signals = append(signals, frameWithIngredient(100+i, float64(100+i), "carrot", 90))
	}
	signals = append(signals,
		frameWithIngredient(200, 200, "spinach", 90),
		frameWithIngredient(201, 201, "garlic", 90),
	)

	records := a.Aggregate(signals)
	if got := records["chicken"].EstimatedAmount; got != "main ingredient" {
		t.Errorf("chicken amount = %q, want main ingredient", got)
	}
	if got := records["carrot"].EstimatedAmount; got != "moderate amount" {
		t.Errorf("carrot amount = %q, want moderate amount", got)
	}
	if got := records["spinach"].EstimatedAmount; got != "small amount" {
		t.Errorf("spinach amount = %q, want small amount", got)
	}
	// the fixed default table beats the occurrence bands
	if got := records["garlic"].EstimatedAmount; got != "2-3 cloves" {
		t.Errorf("garlic amount = %q, want the table default", got)
	}
}

func TestAggregateIsIdempotent(t *testing.T) {
	a := NewIngredientAggregator(DefaultVocabulary(), 60)

	signals := []core.FrameSignal{
		frameWithIngredient(1, 0, "tomatoes", 90),
		frameWithIngredient(2, 5, "onion", 85),
		frameWithIngredient(3, 9, "tomato", 70),
	}
	first := a.Aggregate(signals)
	second := a.Aggregate(signals)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("re-aggregation differs:\n%+v\n%+v", first, second)
	}
}
