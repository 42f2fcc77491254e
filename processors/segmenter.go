package processors

import (
	"fmt"
	"sort"
	"strings"

	"videoRecipe/core"
)

// Segmenter defaults in seconds.
const (
	ActionContinuityThreshold = 5.0
	MinSegmentDuration        = 3.0
)

// SegmenterOptions controls how frame signals are grouped into segments.
type SegmenterOptions struct {
	// ContinuityThreshold is the largest gap between consecutive frames that
	// still counts as the same continuous action.
	ContinuityThreshold float64 `json:"continuity_threshold"`
	// MinSegmentDuration drops segments shorter than this span.
	MinSegmentDuration float64 `json:"min_segment_duration"`
}

// DefaultSegmenterOptions returns the standard grouping parameters.
func DefaultSegmenterOptions() SegmenterOptions {
	return SegmenterOptions{
		ContinuityThreshold: ActionContinuityThreshold,
		MinSegmentDuration:  MinSegmentDuration,
	}
}

// TimelineSegmenter groups per-frame signals into continuous action segments.
type TimelineSegmenter struct {
	vocab *Vocabulary
	opts  SegmenterOptions
}

// NewTimelineSegmenter builds a segmenter with the given options. Zero-valued
// options fall back to the defaults.
func NewTimelineSegmenter(vocab *Vocabulary, opts SegmenterOptions) *TimelineSegmenter {
	if opts.ContinuityThreshold <= 0 {
		opts.ContinuityThreshold = ActionContinuityThreshold
	}
	if opts.MinSegmentDuration <= 0 {
		opts.MinSegmentDuration = MinSegmentDuration
	}
	return &TimelineSegmenter{vocab: vocab, opts: opts}
}

// openSegment is the segmenter's working state for the segment under
// construction.
type openSegment struct {
	action      string
	bucket      string
	startTime   float64
	endTime     float64
	ingredients map[string]bool
	tools       map[string]bool
	frames      []int
}

// Segment groups frame signals into timeline segments. The input order does
// not matter; a sorted copy is taken first. A frame with no detected action
// carries the synthetic placeholder action: it opens and extends segments like
// any other frame, subject to the same continuity gap test, and yields its
// place once a real action is observed. The result may be empty and is sorted
// by start time.
func (ts *TimelineSegmenter) Segment(signals []core.FrameSignal) []core.TimelineSegment {
	if len(signals) == 0 {
		return []core.TimelineSegment{}
	}

	ordered := make([]core.FrameSignal, len(signals))
	copy(ordered, signals)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].TimestampSec != ordered[j].TimestampSec {
			return ordered[i].TimestampSec < ordered[j].TimestampSec
		}
		return ordered[i].FrameNumber < ordered[j].FrameNumber
	})

	segments := []core.TimelineSegment{}
	var cur *openSegment

	for _, sig := range ordered {
		action := SyntheticAction
		if len(sig.Actions) > 0 {
			action = sig.Actions[0].Action
		}

		switch {
		case cur == nil:
			cur = ts.begin(sig, action)
		case ts.continues(cur, sig, action):
			ts.extend(cur, sig, action)
		default:
			if seg, ok := ts.close(cur); ok {
				segments = append(segments, seg)
			}
			cur = ts.begin(sig, action)
		}
	}
	if cur != nil {
		if seg, ok := ts.close(cur); ok {
			segments = append(segments, seg)
		}
	}

	return segments
}

// continues reports whether the frame belongs to the open segment: a gap
// inside the continuity threshold, and either side being the placeholder or
// both actions sharing a category bucket. The gap test applies to placeholder
// frames too, so an idle stretch closes the segment even when nothing was
// detected during it.
func (ts *TimelineSegmenter) continues(cur *openSegment, sig core.FrameSignal, action string) bool {
	if sig.TimestampSec-cur.endTime > ts.opts.ContinuityThreshold {
		return false
	}
	if action == SyntheticAction || cur.action == SyntheticAction {
		return true
	}
	return ts.vocab.ActionCategory(action) == cur.bucket
}

func (ts *TimelineSegmenter) begin(sig core.FrameSignal, action string) *openSegment {
	cur := &openSegment{
		action:      action,
		bucket:      ts.vocab.ActionCategory(action),
		startTime:   sig.TimestampSec,
		endTime:     sig.TimestampSec,
		ingredients: map[string]bool{},
		tools:       map[string]bool{},
	}
	ts.extend(cur, sig, action)
	return cur
}

func (ts *TimelineSegmenter) extend(cur *openSegment, sig core.FrameSignal, action string) {
	if sig.TimestampSec > cur.endTime {
		cur.endTime = sig.TimestampSec
	}
	// a synthetic placeholder never displaces an observed action
	if cur.action == SyntheticAction && action != SyntheticAction {
		cur.action = action
		cur.bucket = ts.vocab.ActionCategory(action)
	}
	for _, ing := range sig.Ingredients {
		cur.ingredients[ts.vocab.CanonicalIngredient(ing.Name)] = true
	}
	for _, t := range sig.Tools {
		cur.tools[t.Name] = true
	}
	for _, a := range sig.Actions {
		for _, ing := range a.RelatedIngredients {
			cur.ingredients[ts.vocab.CanonicalIngredient(ing)] = true
		}
		for _, t := range a.RelatedTools {
			cur.tools[t] = true
		}
	}
	cur.frames = append(cur.frames, sig.FrameNumber)
}

// close finalizes the open segment, dropping it when shorter than the minimum
// duration.
func (ts *TimelineSegmenter) close(cur *openSegment) (core.TimelineSegment, bool) {
	if cur.endTime-cur.startTime < ts.opts.MinSegmentDuration {
		return core.TimelineSegment{}, false
	}
	seg := core.TimelineSegment{
		StartTime:       cur.startTime,
		EndTime:         cur.endTime,
		MainAction:      cur.action,
		Ingredients:     sortedKeys(cur.ingredients),
		Tools:           sortedKeys(cur.tools),
		KeyFrameNumbers: append([]int{}, cur.frames...),
	}
	sort.Ints(seg.KeyFrameNumbers)
	seg.Description = renderSegmentDescription(seg)
	return seg, true
}

// renderSegmentDescription builds a short human-readable summary, e.g.
// "chopping onion, garlic using knife".
func renderSegmentDescription(seg core.TimelineSegment) string {
	var b strings.Builder
	b.WriteString(seg.MainAction)
	if len(seg.Ingredients) > 0 {
		b.WriteString(" ")
		b.WriteString(strings.Join(seg.Ingredients, ", "))
	}
	if len(seg.Tools) > 0 {
		b.WriteString(" using ")
		b.WriteString(strings.Join(seg.Tools, ", "))
	}
	return fmt.Sprintf("%s (%s-%s)", b.String(), core.FormatTime(seg.StartTime), core.FormatTime(seg.EndTime))
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
