package processors

import (
	"sort"

	"videoRecipe/core"
)

// Fusion confidence constants on the 0-100 scale.
const (
	// AudioStepConfidence is assigned to steps present only in the transcript.
	AudioStepConfidence = 70.0
	// VisualSegmentConfidence is assigned to steps present only in the frames.
	VisualSegmentConfidence = 75.0
	// AudioIngredientConfidence is assigned to ingredients only heard, never seen.
	AudioIngredientConfidence = 80.0
	// MinTranscriptLength is the smallest transcript size, in runes, that
	// earns the fusion score its transcript bonus. The boundary is inclusive:
	// a transcript of exactly this length qualifies.
	MinTranscriptLength = 50
)

// MatchStrategy selects how a timeline segment is paired with a transcript
// candidate step.
type MatchStrategy int

const (
	// FirstMatch pairs a segment with the earliest unclaimed candidate step
	// that mentions its action. Cheap and stable; the historical behavior.
	FirstMatch MatchStrategy = iota
	// BestOverlapMatch pairs a segment with the unclaimed candidate step
	// sharing the most ingredient mentions with it, ties broken by textual
	// order.
	BestOverlapMatch
)

// SortKey selects the ordering of fused steps in the output.
type SortKey int

const (
	// SortByConfidence orders steps by descending confidence, then by time.
	SortByConfidence SortKey = iota
	// SortByTime orders timed steps chronologically, untimed steps last in
	// transcript order.
	SortByTime
)

// FuserOptions tunes cross-modal fusion. The zero value selects the defaults.
type FuserOptions struct {
	Strategy            MatchStrategy
	SortKey             SortKey
	MinTranscriptLength int
}

// DefaultFuserOptions returns the standard fusion parameters.
func DefaultFuserOptions() FuserOptions {
	return FuserOptions{
		Strategy:            FirstMatch,
		SortKey:             SortByConfidence,
		MinTranscriptLength: MinTranscriptLength,
	}
}

// FusionResult is the reconciled view of both modalities plus an overall
// confidence in the fusion itself.
type FusionResult struct {
	Ingredients []core.FusedIngredient `json:"ingredients"`
	Steps       []core.FusedStep       `json:"steps"`
	Confidence  float64                `json:"confidence"`
}

// CrossModalFuser reconciles the audio signal with the visual timeline.
// Pure; both inputs are read only.
type CrossModalFuser struct {
	vocab *Vocabulary
	opts  FuserOptions
}

// NewCrossModalFuser builds a fuser with the given options.
func NewCrossModalFuser(vocab *Vocabulary, opts FuserOptions) *CrossModalFuser {
	if opts.MinTranscriptLength <= 0 {
		opts.MinTranscriptLength = MinTranscriptLength
	}
	return &CrossModalFuser{vocab: vocab, opts: opts}
}

// Fuse merges the two modalities. visualConfidence maps a normalized
// ingredient name to its best visual detection confidence; audio-only
// ingredients get AudioIngredientConfidence. Either modality may be empty and
// the result is still valid.
func (f *CrossModalFuser) Fuse(audio core.AudioSignal, segments []core.TimelineSegment, visualConfidence map[string]float64) FusionResult {
	result := FusionResult{
		Ingredients: f.fuseIngredients(audio, segments, visualConfidence),
		Steps:       f.fuseSteps(audio, segments),
	}
	result.Confidence = f.score(audio, segments)
	return result
}

// fuseIngredients deduplicates ingredients across modalities. Visual
// detections take precedence: a name seen in both keeps its visual confidence
// and SourceVisual tag, and only never-seen names come in from the audio side.
func (f *CrossModalFuser) fuseIngredients(audio core.AudioSignal, segments []core.TimelineSegment, visualConfidence map[string]float64) []core.FusedIngredient {
	type entry struct {
		conf   float64
		source string
	}
	merged := map[string]entry{}

	for _, seg := range segments {
		for _, name := range seg.Ingredients {
			key := f.vocab.CanonicalIngredient(name)
			conf, ok := visualConfidence[key]
			if !ok {
				conf = VisualSegmentConfidence
			}
			if prev, seen := merged[key]; seen {
				if conf > prev.conf {
					prev.conf = conf
					merged[key] = prev
				}
				continue
			}
			merged[key] = entry{conf: conf, source: core.SourceVisual}
		}
	}

	for _, name := range audio.IngredientMentions {
		key := f.vocab.CanonicalIngredient(name)
		if _, seen := merged[key]; seen {
			continue
		}
		merged[key] = entry{conf: AudioIngredientConfidence, source: core.SourceAudio}
	}

	out := make([]core.FusedIngredient, 0, len(merged))
	for name, e := range merged {
		out = append(out, core.FusedIngredient{Name: name, Confidence: e.conf, Source: e.source})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// fuseSteps pairs segments with candidate steps, then emits unpaired
// candidates as untimed audio-only steps.
func (f *CrossModalFuser) fuseSteps(audio core.AudioSignal, segments []core.TimelineSegment) []core.FusedStep {
	claimed := make([]bool, len(audio.CandidateSteps))
	steps := []core.FusedStep{}

	for _, seg := range segments {
		idx := f.pickCandidate(seg, audio.CandidateSteps, claimed)
		if idx >= 0 {
			claimed[idx] = true
			// both modalities describe one real step: keep the richer
			// description and the higher confidence
			desc := audio.CandidateSteps[idx].Text
			if len(seg.Description) > len(desc) {
				desc = seg.Description
			}
			conf := AudioStepConfidence
			if VisualSegmentConfidence > conf {
				conf = VisualSegmentConfidence
			}
			steps = append(steps, core.FusedStep{
				Description: desc,
				StartTime:   seg.StartTime,
				EndTime:     seg.EndTime,
				Timed:       true,
				Ingredients: append([]string{}, seg.Ingredients...),
				Tools:       append([]string{}, seg.Tools...),
				Confidence:  conf,
				Source:      core.SourceBoth,
			})
			continue
		}
		steps = append(steps, core.FusedStep{
			Description: seg.Description,
			StartTime:   seg.StartTime,
			EndTime:     seg.EndTime,
			Timed:       true,
			Ingredients: append([]string{}, seg.Ingredients...),
			Tools:       append([]string{}, seg.Tools...),
			Confidence:  VisualSegmentConfidence,
			Source:      core.SourceVisual,
		})
	}

	for i, cand := range audio.CandidateSteps {
		if claimed[i] {
			continue
		}
		steps = append(steps, core.FusedStep{
			Description: cand.Text,
			Timed:       false,
			Ingredients: []string{},
			Tools:       []string{},
			Confidence:  AudioStepConfidence,
			Source:      core.SourceAudio,
		})
	}

	f.sortSteps(steps)
	for i := range steps {
		steps[i].StepNumber = i + 1
	}
	return steps
}

// pickCandidate returns the index of the candidate step to pair with the
// segment, or -1. A candidate qualifies when any action keyword in its text
// falls into the same category bucket as the segment's main action.
func (f *CrossModalFuser) pickCandidate(seg core.TimelineSegment, candidates []core.CandidateStep, claimed []bool) int {
	bucket := f.vocab.ActionCategory(seg.MainAction)
	best := -1
	bestScore := 0
	for i, cand := range candidates {
		if claimed[i] {
			continue
		}
		text := NormalizeTerm(cand.Text)
		if !f.sentenceInBucket(text, bucket) {
			continue
		}
		if f.opts.Strategy == FirstMatch {
			return i
		}
		score := 1
		for _, ing := range seg.Ingredients {
			if containsWord(text, NormalizeTerm(ing)) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	return best
}

// sentenceInBucket reports whether the sentence mentions any action keyword of
// the given category bucket.
func (f *CrossModalFuser) sentenceInBucket(sentence, bucket string) bool {
	for _, a := range f.vocab.Actions {
		if a.SubType == bucket && sentenceHasAction(sentence, a.Term) {
			return true
		}
	}
	return false
}

func (f *CrossModalFuser) sortSteps(steps []core.FusedStep) {
	switch f.opts.SortKey {
	case SortByTime:
		sort.SliceStable(steps, func(i, j int) bool {
			if steps[i].Timed != steps[j].Timed {
				return steps[i].Timed
			}
			if !steps[i].Timed {
				return false // untimed keep transcript order
			}
			return steps[i].StartTime < steps[j].StartTime
		})
	default: // SortByConfidence
		sort.SliceStable(steps, func(i, j int) bool {
			if steps[i].Confidence != steps[j].Confidence {
				return steps[i].Confidence > steps[j].Confidence
			}
			if steps[i].Timed != steps[j].Timed {
				return steps[i].Timed
			}
			return steps[i].StartTime < steps[j].StartTime
		})
	}
}

// score grades the fusion itself: a base of 50, plus 20 for a usable
// transcript, plus 15 each for visual ingredient and action evidence, capped
// at 100.
func (f *CrossModalFuser) score(audio core.AudioSignal, segments []core.TimelineSegment) float64 {
	score := 50.0
	if audio.TranscriptLength >= f.opts.MinTranscriptLength {
		score += 20
	}
	hasIngredients := false
	hasActions := false
	for _, seg := range segments {
		if len(seg.Ingredients) > 0 {
			hasIngredients = true
		}
		// the synthetic placeholder is not observed action evidence
		if seg.MainAction != "" && seg.MainAction != SyntheticAction {
			hasActions = true
		}
	}
	if hasIngredients {
		score += 15
	}
	if hasActions {
		score += 15
	}
	if score > 100 {
		score = 100
	}
	return score
}
