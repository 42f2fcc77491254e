package processors

import (
	"testing"

	"videoRecipe/core"
)

func frameWithAction(n int, ts float64, action string, conf float64) core.FrameSignal {
	return core.FrameSignal{
		FrameNumber:  n,
		TimestampSec: ts,
		Ingredients:  []core.ClassifiedItem{},
		Tools:        []core.ClassifiedItem{},
		Actions:      []core.ClassifiedAction{{Action: action, Confidence: conf}},
	}
}

func TestSegmentContinuousAction(t *testing.T) {
	ts := NewTimelineSegmenter(DefaultVocabulary(), DefaultSegmenterOptions())

	segments := ts.Segment([]core.FrameSignal{
		frameWithAction(1, 0, "cutting", 80),
		frameWithAction(2, 3, "cutting", 85),
	})
	if len(segments) != 1 {
		t.Fatalf("two cutting frames 3s apart must form one segment, got %+v", segments)
	}
	seg := segments[0]
	if seg.StartTime != 0 || seg.EndTime != 3 {
		t.Errorf("segment should span [0,3], got [%v,%v]", seg.StartTime, seg.EndTime)
	}
	if seg.MainAction != "cutting" {
		t.Errorf("main action = %q, want cutting", seg.MainAction)
	}
	if len(seg.KeyFrameNumbers) != 2 {
		t.Errorf("both frames should be key frames, got %v", seg.KeyFrameNumbers)
	}
}

func TestSegmentDropsShortSegments(t *testing.T) {
	ts := NewTimelineSegmenter(DefaultVocabulary(), DefaultSegmenterOptions())

	segments := ts.Segment([]core.FrameSignal{
		frameWithAction(1, 0, "cutting", 80),
		frameWithAction(2, 2, "cutting", 85),
	})
	if len(segments) != 0 {
		t.Fatalf("a 2s segment is below the minimum duration, got %+v", segments)
	}
}

func TestSegmentBreaksOnGap(t *testing.T) {
	ts := NewTimelineSegmenter(DefaultVocabulary(), DefaultSegmenterOptions())

	segments := ts.Segment([]core.FrameSignal{
		frameWithAction(1, 0, "cutting", 80),
		frameWithAction(2, 4, "cutting", 85),
		// 6s gap: continuity breaks even though the action repeats
		frameWithAction(3, 10, "cutting", 85),
		frameWithAction(4, 14, "cutting", 85),
	})
	if len(segments) != 2 {
		t.Fatalf("a gap over the threshold must split the timeline, got %+v", segments)
	}
	if segments[0].EndTime != 4 || segments[1].StartTime != 10 {
		t.Errorf("unexpected segment bounds: %+v", segments)
	}
}

func TestSegmentBreaksOnBucketChange(t *testing.T) {
	ts := NewTimelineSegmenter(DefaultVocabulary(), DefaultSegmenterOptions())

	segments := ts.Segment([]core.FrameSignal{
		frameWithAction(1, 0, "chopping", 80),
		frameWithAction(2, 3, "slicing", 85), // same cutting bucket, continues
		frameWithAction(3, 6, "frying", 85),  // heating bucket, breaks
		frameWithAction(4, 9, "frying", 85),
	})
	if len(segments) != 2 {
		t.Fatalf("bucket change must close the segment, got %+v", segments)
	}
	if segments[0].MainAction != "chopping" || segments[1].MainAction != "frying" {
		t.Errorf("unexpected main actions: %q, %q", segments[0].MainAction, segments[1].MainAction)
	}
}

func TestSegmentActionlessFramesExtend(t *testing.T) {
	ts := NewTimelineSegmenter(DefaultVocabulary(), DefaultSegmenterOptions())

	noAction := core.FrameSignal{FrameNumber: 2, TimestampSec: 3, Ingredients: []core.ClassifiedItem{
		{Name: "tomato", Confidence: 80, Category: "vegetable"},
	}}
	segments := ts.Segment([]core.FrameSignal{
		frameWithAction(1, 0, "cutting", 80),
		noAction,
		frameWithAction(3, 6, "cutting", 85),
	})
	if len(segments) != 1 {
		t.Fatalf("an action-less frame must not fragment the segment, got %+v", segments)
	}
	seg := segments[0]
	if seg.StartTime != 0 || seg.EndTime != 6 {
		t.Errorf("segment should span [0,6], got [%v,%v]", seg.StartTime, seg.EndTime)
	}
	if len(seg.Ingredients) != 1 || seg.Ingredients[0] != "tomato" {
		t.Errorf("ingredients from the quiet frame should be absorbed, got %v", seg.Ingredients)
	}
}

func TestSegmentGapClosesOverQuietFrames(t *testing.T) {
	ts := NewTimelineSegmenter(DefaultVocabulary(), DefaultSegmenterOptions())

	quiet := core.FrameSignal{FrameNumber: 3, TimestampSec: 50}
	segments := ts.Segment([]core.FrameSignal{
		frameWithAction(1, 0, "cutting", 80),
		frameWithAction(2, 3, "cutting", 85),
		quiet,
		frameWithAction(4, 53, "cutting", 85),
	})
	for _, seg := range segments {
		if seg.StartTime == 0 && seg.EndTime > 3 {
			t.Fatalf("a quiet frame past the continuity threshold must not stretch the segment: %+v", seg)
		}
	}
	if len(segments) != 2 {
		t.Fatalf("the idle gap must split the timeline, got %+v", segments)
	}
	if segments[1].StartTime != 50 || segments[1].EndTime != 53 || segments[1].MainAction != "cutting" {
		t.Errorf("resumed cutting should form its own segment, got %+v", segments[1])
	}
}

func TestSegmentQuietFramesOpenPlaceholderSegment(t *testing.T) {
	ts := NewTimelineSegmenter(DefaultVocabulary(), DefaultSegmenterOptions())

	quiet := func(n int, at float64) core.FrameSignal {
		return core.FrameSignal{FrameNumber: n, TimestampSec: at, Ingredients: []core.ClassifiedItem{
			{Name: "tomato", Confidence: 80, Category: "vegetable"},
		}}
	}
	segments := ts.Segment([]core.FrameSignal{quiet(1, 0), quiet(2, 3), quiet(3, 6)})
	if len(segments) != 1 {
		t.Fatalf("ingredient-only frames must still form a segment, got %+v", segments)
	}
	seg := segments[0]
	if seg.MainAction != SyntheticAction {
		t.Errorf("main action = %q, want the placeholder %q", seg.MainAction, SyntheticAction)
	}
	if seg.StartTime != 0 || seg.EndTime != 6 {
		t.Errorf("segment should span [0,6], got [%v,%v]", seg.StartTime, seg.EndTime)
	}
	if len(seg.Ingredients) != 1 || seg.Ingredients[0] != "tomato" {
		t.Errorf("ingredients should be carried, got %v", seg.Ingredients)
	}
}

func TestSegmentObservedActionDisplacesPlaceholder(t *testing.T) {
	ts := NewTimelineSegmenter(DefaultVocabulary(), DefaultSegmenterOptions())

	quiet := core.FrameSignal{FrameNumber: 1, TimestampSec: 0}
	segments := ts.Segment([]core.FrameSignal{
		quiet,
		frameWithAction(2, 3, "chopping", 85),
		frameWithAction(3, 6, "chopping", 85),
	})
	if len(segments) != 1 || segments[0].MainAction != "chopping" {
		t.Fatalf("the placeholder must yield to the observed action, got %+v", segments)
	}
	if segments[0].StartTime != 0 || segments[0].EndTime != 6 {
		t.Errorf("segment should start at the quiet frame, got %+v", segments[0])
	}
}

func TestSegmentSortsUnsortedInput(t *testing.T) {
	ts := NewTimelineSegmenter(DefaultVocabulary(), DefaultSegmenterOptions())

	input := []core.FrameSignal{
		frameWithAction(2, 3, "cutting", 85),
		frameWithAction(1, 0, "cutting", 80),
	}
	segments := ts.Segment(input)
	if len(segments) != 1 || segments[0].StartTime != 0 || segments[0].EndTime != 3 {
		t.Fatalf("unsorted input must be sorted into one segment, got %+v", segments)
	}
	// the caller's slice is left in its original order
	if input[0].FrameNumber != 2 {
		t.Errorf("segmenter mutated the caller's slice: %+v", input)
	}
}

func TestSegmentEmptyInput(t *testing.T) {
	ts := NewTimelineSegmenter(DefaultVocabulary(), DefaultSegmenterOptions())
	if segments := ts.Segment(nil); len(segments) != 0 {
		t.Fatalf("empty input must yield zero segments, got %+v", segments)
	}
}

func TestSegmentMonotonicTimes(t *testing.T) {
	ts := NewTimelineSegmenter(DefaultVocabulary(), DefaultSegmenterOptions())

	segments := ts.Segment([]core.FrameSignal{
		frameWithAction(1, 0, "chopping", 80),
		frameWithAction(2, 4, "chopping", 80),
		frameWithAction(3, 12, "frying", 85),
		frameWithAction(4, 16, "frying", 85),
		frameWithAction(5, 20, "plating", 85),
		frameWithAction(6, 24, "plating", 85),
	})
	for _, seg := range segments {
		if seg.EndTime < seg.StartTime {
			t.Errorf("segment end before start: %+v", seg)
		}
		if seg.Duration() < MinSegmentDuration {
			t.Errorf("segment below minimum duration survived: %+v", seg)
		}
	}
}
