package core

// ========== detection and classification ==========

// DetectedLabel is one raw detection produced by the frame labeler.
// Confidence is on a 0-100 scale. Never mutated after creation.
type DetectedLabel struct {
	Name         string  `json:"name"`
	Confidence   float64 `json:"confidence"`
	CategoryHint string  `json:"category_hint,omitempty"`
}

// ClassifiedItem is a detection that cleared a category threshold.
type ClassifiedItem struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Category   string  `json:"category"`
}

// ClassifiedAction is a cooking action observed (or inferred) in a frame.
type ClassifiedAction struct {
	Action             string   `json:"action"`
	Confidence         float64  `json:"confidence"`
	RelatedIngredients []string `json:"related_ingredients,omitempty"`
	RelatedTools       []string `json:"related_tools,omitempty"`
}

// FrameSignal is the classified content of one analyzed frame.
// Lists are deduplicated by normalized name and sorted by descending confidence.
type FrameSignal struct {
	FrameNumber  int                `json:"frame_number"`
	TimestampSec float64            `json:"timestamp_sec"`
	Ingredients  []ClassifiedItem   `json:"ingredients"`
	Tools        []ClassifiedItem   `json:"tools"`
	Actions      []ClassifiedAction `json:"actions"`
}

// ========== timeline structures ==========

// TimelineSegment is a contiguous span judged to be one continuous cooking
// action. Ingredients and Tools are kept sorted and unique.
type TimelineSegment struct {
	StartTime       float64  `json:"start_time"`
	EndTime         float64  `json:"end_time"`
	MainAction      string   `json:"main_action"`
	Ingredients     []string `json:"ingredients"`
	Tools           []string `json:"tools"`
	KeyFrameNumbers []int    `json:"key_frame_numbers"`
	Description     string   `json:"description"`
}

// Duration returns the segment span in seconds.
func (s TimelineSegment) Duration() float64 { return s.EndTime - s.StartTime }

// Fusion source tags.
const (
	SourceAudio  = "audio"
	SourceVisual = "visual"
	SourceBoth   = "both"
)

// FusedStep is one reconciled cooking step. Timed is false for steps that only
// exist in the transcript and therefore carry no timestamps.
type FusedStep struct {
	StepNumber  int      `json:"step_number"`
	Description string   `json:"description"`
	StartTime   float64  `json:"start_time"`
	EndTime     float64  `json:"end_time"`
	Timed       bool     `json:"timed"`
	Ingredients []string `json:"ingredients"`
	Tools       []string `json:"tools"`
	Confidence  float64  `json:"confidence"`
	Source      string   `json:"source"`
}

// FusedIngredient is one deduplicated ingredient with its winning source.
type FusedIngredient struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

// IngredientRecord accumulates every sighting of one normalized ingredient.
type IngredientRecord struct {
	Name            string  `json:"name"`
	FirstAppearance float64 `json:"first_appearance"`
	LastAppearance  float64 `json:"last_appearance"`
	OccurrenceCount int     `json:"occurrence_count"`
	EstimatedAmount string  `json:"estimated_amount"`
}

// Cooking phase labels.
const (
	PhasePreparation = "Preparation"
	PhaseCooking     = "Cooking"
	PhaseFinishing   = "Finishing"
)

// CookingPhase is a coarse stage of the video. At most one per label.
type CookingPhase struct {
	Phase       string  `json:"phase"`
	StartTime   float64 `json:"start_time"`
	EndTime     float64 `json:"end_time"`
	Description string  `json:"description"`
}

// ========== audio-derived signal ==========

// CandidateStep is a transcript sentence that reads like a cooking step.
// ApproxOrder is textual order, not a timestamp.
type CandidateStep struct {
	Text        string `json:"text"`
	ApproxOrder int    `json:"approx_order"`
}

// AudioSignal is everything the transcript contributed. TranscriptLength is
// the trimmed transcript length in runes, kept for fusion confidence scoring.
type AudioSignal struct {
	IngredientMentions []string        `json:"ingredient_mentions"`
	ActionMentions     []string        `json:"action_mentions"`
	CandidateSteps     []CandidateStep `json:"candidate_steps"`
	TranscriptLength   int             `json:"transcript_length"`
}

// ========== integrated output ==========

// IntegratedTimeline is the final fused analysis of one video. Immutable once
// built; owned by the pipeline run that created it.
type IntegratedTimeline struct {
	TotalDuration    float64                     `json:"total_duration"`
	Ingredients      map[string]IngredientRecord `json:"ingredients"`
	Tools            []string                    `json:"tools"`
	Segments         []TimelineSegment           `json:"segments"`
	FusedSteps       []FusedStep                 `json:"fused_steps"`
	FusedIngredients []FusedIngredient           `json:"fused_ingredients"`
	Phases           []CookingPhase              `json:"phases"`
	FusionConfidence float64                     `json:"fusion_confidence"`
}

// ========== recipe output ==========

// RecipeIngredient is one line of the ingredient list.
type RecipeIngredient struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

// RecipeStep is one numbered instruction.
type RecipeStep struct {
	Number      int     `json:"number"`
	Instruction string  `json:"instruction"`
	StartTime   float64 `json:"start_time,omitempty"`
	EndTime     float64 `json:"end_time,omitempty"`
}

// Recipe is the generated recipe document.
type Recipe struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Ingredients []RecipeIngredient `json:"ingredients"`
	Steps       []RecipeStep       `json:"steps"`
}

// ========== frames and jobs ==========

// Frame is one extracted video frame on disk.
type Frame struct {
	FrameNumber  int     `json:"frame_number"`
	TimestampSec float64 `json:"timestamp_sec"`
	Path         string  `json:"path"`
}

type PreprocessResponse struct {
	JobID     string  `json:"job_id"`
	AudioPath string  `json:"audio_path"`
	Duration  float64 `json:"duration"`
	Frames    []Frame `json:"frames"`
}

// StepHit is one semantic search result over stored fused steps.
type StepHit struct {
	Score       float64 `json:"score"`
	StepNumber  int     `json:"step_number"`
	StartTime   float64 `json:"start_time"`
	EndTime     float64 `json:"end_time"`
	Description string  `json:"description"`
	Ingredients string  `json:"ingredients"`
}
