package processors

import (
	"bytes"
	"testing"

	"videoRecipe/core"
)

func cookingSignals() []core.FrameSignal {
	return []core.FrameSignal{
		{
			FrameNumber: 1, TimestampSec: 0,
			Ingredients: []core.ClassifiedItem{{Name: "tomato", Confidence: 90, Category: "vegetable"}},
			Tools:       []core.ClassifiedItem{{Name: "knife", Confidence: 85, Category: "cutting"}},
			Actions:     []core.ClassifiedAction{{Action: "chopping", Confidence: 80}},
		},
		{
			FrameNumber: 2, TimestampSec: 4,
			Ingredients: []core.ClassifiedItem{{Name: "tomatoes", Confidence: 88, Category: "vegetable"}},
			Tools:       []core.ClassifiedItem{{Name: "knife", Confidence: 82, Category: "cutting"}},
			Actions:     []core.ClassifiedAction{{Action: "chopping", Confidence: 83}},
		},
		{
			FrameNumber: 3, TimestampSec: 12,
			Ingredients: []core.ClassifiedItem{{Name: "garlic", Confidence: 84, Category: "vegetable"}},
			Tools:       []core.ClassifiedItem{{Name: "pan", Confidence: 91, Category: "cookware"}},
			Actions:     []core.ClassifiedAction{{Action: "frying", Confidence: 86}},
		},
		{
			FrameNumber: 4, TimestampSec: 16,
			Ingredients: []core.ClassifiedItem{{Name: "garlic", Confidence: 80, Category: "vegetable"}},
			Tools:       []core.ClassifiedItem{{Name: "pan", Confidence: 89, Category: "cookware"}},
			Actions:     []core.ClassifiedAction{{Action: "frying", Confidence: 85}},
		},
	}
}

func TestBuildIntegratedTimelineEmptyInput(t *testing.T) {
	timeline := BuildIntegratedTimeline("", nil, DefaultVocabulary(), DefaultAnalysisOptions())

	if timeline.TotalDuration != 0 {
		t.Errorf("total duration = %v, want 0", timeline.TotalDuration)
	}
	if len(timeline.Ingredients) != 0 || len(timeline.Tools) != 0 {
		t.Errorf("empty input must yield empty collections, got %+v", timeline)
	}
	if len(timeline.Segments) != 0 || len(timeline.Phases) != 0 || len(timeline.FusedSteps) != 0 {
		t.Errorf("empty input must yield empty timeline, got %+v", timeline)
	}
}

func TestBuildIntegratedTimelineFullRun(t *testing.T) {
	transcript := "First, chop the tomatoes with a sharp knife. Then fry the garlic in the pan."
	timeline := BuildIntegratedTimeline(transcript, cookingSignals(), DefaultVocabulary(), DefaultAnalysisOptions())

	if timeline.TotalDuration != 16 {
		t.Errorf("total duration = %v, want 16", timeline.TotalDuration)
	}
	if _, ok := timeline.Ingredients["tomato"]; !ok {
		t.Errorf("tomato missing from ingredient records: %+v", timeline.Ingredients)
	}
	if rec := timeline.Ingredients["tomato"]; rec.OccurrenceCount != 2 {
		t.Errorf("tomato occurrences = %d, want 2 (plural collapse)", rec.OccurrenceCount)
	}
	if len(timeline.Segments) != 2 {
		t.Errorf("expected chopping and frying segments, got %+v", timeline.Segments)
	}
	if len(timeline.Tools) != 2 {
		t.Errorf("expected knife and pan, got %v", timeline.Tools)
	}
	if len(timeline.FusedSteps) == 0 {
		t.Fatalf("fused steps missing: %+v", timeline)
	}
	for _, step := range timeline.FusedSteps {
		if step.Source == core.SourceBoth && !step.Timed {
			t.Errorf("matched steps must carry segment timing: %+v", step)
		}
	}
	if timeline.FusionConfidence != 100 {
		t.Errorf("fusion confidence = %v, want 100 with full evidence", timeline.FusionConfidence)
	}
}

func TestBuildIntegratedTimelineIdempotent(t *testing.T) {
	transcript := "First, chop the tomatoes. Then fry the garlic."
	opts := DefaultAnalysisOptions()
	vocab := DefaultVocabulary()

	first := core.MustJSON(BuildIntegratedTimeline(transcript, cookingSignals(), vocab, opts))
	second := core.MustJSON(BuildIntegratedTimeline(transcript, cookingSignals(), vocab, opts))
	if !bytes.Equal(first, second) {
		t.Errorf("identical inputs produced different output:\n%s\n%s", first, second)
	}
}

func TestBuildIntegratedTimelineNoIngredientLoss(t *testing.T) {
	opts := DefaultAnalysisOptions()
	timeline := BuildIntegratedTimeline("", cookingSignals(), DefaultVocabulary(), opts)

	// every ingredient whose best confidence clears the gate must survive
	for _, want := range []string{"tomato", "garlic"} {
		if _, ok := timeline.Ingredients[want]; !ok {
			t.Errorf("ingredient %q lost from the final timeline: %+v", want, timeline.Ingredients)
		}
	}
}

func TestHighDensityNeverShrinksTheTimeline(t *testing.T) {
	detections := [][]core.DetectedLabel{
		{
			{Name: "tomato", Confidence: 50},
			{Name: "knife", Confidence: 55},
			{Name: "chopping", Confidence: 60},
		},
		{
			{Name: "tomato", Confidence: 90},
			{Name: "chopping", Confidence: 80},
		},
	}

	build := func(highDensity bool) core.IntegratedTimeline {
		opts := DefaultAnalysisOptions()
		opts.HighDensity = highDensity
		ex := NewFrameSignalExtractor(DefaultVocabulary(), opts.Thresholds, highDensity)
		var signals []core.FrameSignal
		for i, dets := range detections {
			signals = append(signals, ex.Extract(i+1, float64(i*4), dets))
		}
		return BuildIntegratedTimeline("", signals, DefaultVocabulary(), opts)
	}

	normal := build(false)
	dense := build(true)
	if len(dense.Ingredients) < len(normal.Ingredients) {
		t.Errorf("high density lost ingredients: %d -> %d", len(normal.Ingredients), len(dense.Ingredients))
	}
	if len(dense.Tools) < len(normal.Tools) {
		t.Errorf("high density lost tools: %d -> %d", len(normal.Tools), len(dense.Tools))
	}
	if len(dense.Segments) < len(normal.Segments) {
		t.Errorf("high density lost segments: %d -> %d", len(normal.Segments), len(dense.Segments))
	}
}
