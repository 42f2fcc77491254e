package processors

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"

	"videoRecipe/config"
	"videoRecipe/core"
	"videoRecipe/storage"
)

// AnalysisOptions bundles the tunables of a full analysis run. The zero value
// selects every default.
type AnalysisOptions struct {
	HighDensity bool                 `json:"high_density"`
	Thresholds  ClassifierThresholds `json:"thresholds"`
	Segmenter   SegmenterOptions     `json:"segmenter"`
	Fuser       FuserOptions         `json:"-"`
}

// DefaultAnalysisOptions returns the standard analysis parameters.
func DefaultAnalysisOptions() AnalysisOptions {
	return AnalysisOptions{
		Thresholds: DefaultThresholds(),
		Segmenter:  DefaultSegmenterOptions(),
		Fuser:      DefaultFuserOptions(),
	}
}

// effectiveThresholds applies the high-density offset when enabled.
func (o AnalysisOptions) effectiveThresholds() ClassifierThresholds {
	t := o.Thresholds
	if t == (ClassifierThresholds{}) {
		t = DefaultThresholds()
	}
	if o.HighDensity {
		t = t.Lowered(HighDensityOffset)
	}
	return t
}

// BuildIntegratedTimeline fuses the transcript with per-frame signals into the
// final timeline. Pure and deterministic: identical inputs always produce an
// identical result, and either modality may be empty.
func BuildIntegratedTimeline(transcript string, signals []core.FrameSignal, vocab *Vocabulary, opts AnalysisOptions) core.IntegratedTimeline {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	thresholds := opts.effectiveThresholds()

	audio := NewAudioSignalExtractor(vocab).Extract(transcript)
	segments := NewTimelineSegmenter(vocab, opts.Segmenter).Segment(signals)
	aggregator := NewIngredientAggregator(vocab, thresholds.Ingredient)

	// best visual confidence per canonical ingredient name, for fusion
	visualConfidence := map[string]float64{}
	toolSet := map[string]bool{}
	totalDuration := 0.0
	for _, sig := range signals {
		if sig.TimestampSec > totalDuration {
			totalDuration = sig.TimestampSec
		}
		for _, ing := range sig.Ingredients {
			name := aggregator.CanonicalName(ing.Name)
			if ing.Confidence > visualConfidence[name] {
				visualConfidence[name] = ing.Confidence
			}
		}
		for _, t := range sig.Tools {
			toolSet[t.Name] = true
		}
	}

	fusion := NewCrossModalFuser(vocab, opts.Fuser).Fuse(audio, segments, visualConfidence)

	tools := make([]string, 0, len(toolSet))
	for t := range toolSet {
		tools = append(tools, t)
	}
	sort.Strings(tools)

	return core.IntegratedTimeline{
		TotalDuration:    totalDuration,
		Ingredients:      NewIngredientAggregator(vocab, thresholds.Ingredient).Aggregate(signals),
		Tools:            tools,
		Segments:         segments,
		FusedSteps:       fusion.Steps,
		FusedIngredients: fusion.Ingredients,
		Phases:           NewPhaseIdentifier(vocab).Identify(segments),
		FusionConfidence: fusion.Confidence,
	}
}

// ---------------- HTTP orchestration ----------------

type AnalyzeVideoRequest struct {
	VideoPath   string `json:"video_path,omitempty"`
	JobID       string `json:"job_id,omitempty"` // reuse a preprocessed job
	HighDensity bool   `json:"high_density,omitempty"`
}

type Step struct {
	Name   string `json:"name"`
	Status string `json:"status"` // "completed", "failed", "skipped"
	Error  string `json:"error,omitempty"`
}

type AnalyzeVideoResponse struct {
	JobID    string                  `json:"job_id"`
	Message  string                  `json:"message"`
	Steps    []Step                  `json:"steps"`
	Warnings []string                `json:"warnings,omitempty"`
	Timeline core.IntegratedTimeline `json:"timeline"`
	Recipe   core.Recipe             `json:"recipe"`
}

// AnalyzeVideoHandler runs the full pipeline: preprocess, transcribe, label
// frames, build the integrated timeline, generate the recipe, and index the
// fused steps for search.
func AnalyzeVideoHandler(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[pipeline] panic recovered: %v", rec)
			core.WriteJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "internal error during video analysis",
			})
		}
	}()

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req AnalyzeVideoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON"})
		return
	}
	if req.VideoPath == "" && req.JobID == "" {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "video_path or job_id is required"})
		return
	}

	resp := AnalyzeVideoResponse{Steps: []Step{}, Warnings: []string{}}
	cfg, err := config.LoadConfig()
	if err != nil {
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("config load failed, using defaults: %v", err))
		cfg = &config.Config{}
	}

	// step 1: preprocess (or reuse)
	var pre core.PreprocessResponse
	if req.JobID != "" {
		pre, err = LoadPreprocess(req.JobID)
		if err != nil {
			resp.Steps = append(resp.Steps, Step{Name: "preprocess", Status: "failed", Error: err.Error()})
			resp.Message = "Preprocessed job not found"
			core.WriteJSON(w, http.StatusBadRequest, resp)
			return
		}
		resp.Steps = append(resp.Steps, Step{Name: "preprocess", Status: "skipped"})
	} else {
		if _, err := os.Stat(req.VideoPath); os.IsNotExist(err) {
			core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Video file not found: %s", req.VideoPath)})
			return
		}
		pre, err = PreprocessVideo(req.VideoPath, core.NewID())
		if err != nil {
			resp.Steps = append(resp.Steps, Step{Name: "preprocess", Status: "failed", Error: err.Error()})
			resp.Message = "Video preprocessing failed"
			core.WriteJSON(w, http.StatusInternalServerError, resp)
			return
		}
		resp.Steps = append(resp.Steps, Step{Name: "preprocess", Status: "completed"})
	}
	resp.JobID = pre.JobID
	jobDir := filepath.Join(core.DataRoot(), pre.JobID)

	// step 2: transcribe
	transcript := ""
	if pre.AudioPath != "" {
		transcript, err = PickTranscriber(cfg).Transcribe(r.Context(), pre.AudioPath)
		if err != nil {
			resp.Warnings = append(resp.Warnings, fmt.Sprintf("transcription failed, continuing with frames only: %v", err))
			resp.Steps = append(resp.Steps, Step{Name: "transcribe", Status: "failed", Error: err.Error()})
		} else {
			resp.Steps = append(resp.Steps, Step{Name: "transcribe", Status: "completed"})
		}
	} else {
		resp.Steps = append(resp.Steps, Step{Name: "transcribe", Status: "skipped"})
	}
	if err := core.SaveJSON(filepath.Join(jobDir, "transcript.json"), map[string]string{"text": transcript}); err != nil {
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("failed to save transcript: %v", err))
	}

	// step 3: label frames and extract signals
	vocab := DefaultVocabulary()
	opts := DefaultAnalysisOptions()
	opts.HighDensity = req.HighDensity
	extractor := NewFrameSignalExtractor(vocab, opts.Thresholds, opts.HighDensity)
	signals, labelErrs := LabelFrames(r.Context(), PickFrameLabeler(cfg), extractor, pre.Frames)
	for _, lerr := range labelErrs {
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("frame labeling: %v", lerr))
	}
	if len(signals) == 0 && len(pre.Frames) > 0 {
		resp.Steps = append(resp.Steps, Step{Name: "label_frames", Status: "failed", Error: "no frame could be labeled"})
	} else {
		resp.Steps = append(resp.Steps, Step{Name: "label_frames", Status: "completed"})
	}
	if err := core.SaveJSON(filepath.Join(jobDir, "frame_signals.json"), signals); err != nil {
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("failed to save frame signals: %v", err))
	}

	// step 4: fuse into the integrated timeline
	timeline := BuildIntegratedTimeline(transcript, signals, vocab, opts)
	if timeline.TotalDuration < pre.Duration {
		timeline.TotalDuration = pre.Duration
	}
	resp.Timeline = timeline
	resp.Steps = append(resp.Steps, Step{Name: "fuse", Status: "completed"})
	if err := core.SaveJSON(filepath.Join(jobDir, "timeline.json"), timeline); err != nil {
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("failed to save timeline: %v", err))
	}

	// step 5: generate the recipe
	recipe, err := PickRecipeGenerator(cfg).Generate(r.Context(), timeline)
	if err != nil {
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("recipe generation failed: %v", err))
		resp.Steps = append(resp.Steps, Step{Name: "recipe", Status: "failed", Error: err.Error()})
		recipe = BuildRecipeFromTimeline(timeline)
	} else {
		resp.Steps = append(resp.Steps, Step{Name: "recipe", Status: "completed"})
	}
	resp.Recipe = recipe
	if err := core.SaveJSON(filepath.Join(jobDir, "recipe.json"), recipe); err != nil {
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("failed to save recipe: %v", err))
	}

	// step 6: index fused steps for search
	if storage.GlobalStore == nil {
		if err := storage.InitRecipeStore(); err != nil {
			resp.Warnings = append(resp.Warnings, fmt.Sprintf("recipe store unavailable: %v", err))
		}
	}
	if storage.GlobalStore != nil {
		count := storage.GlobalStore.Upsert(pre.JobID, timeline)
		log.Printf("[pipeline] job %s: indexed %d fused steps", pre.JobID, count)
		resp.Steps = append(resp.Steps, Step{Name: "index", Status: "completed"})
	} else {
		resp.Steps = append(resp.Steps, Step{Name: "index", Status: "skipped"})
	}

	resp.Message = fmt.Sprintf("Video analysis completed. Job ID: %s", pre.JobID)
	if len(resp.Warnings) > 0 {
		resp.Message += " (with warnings)"
	}
	core.WriteJSON(w, http.StatusOK, resp)
}

// GenerateRecipeHandler rebuilds the recipe from a saved timeline, so a job
// can be re-rendered without reanalyzing the video.
func GenerateRecipeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON"})
		return
	}
	if req.JobID == "" {
		core.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": "job_id is required"})
		return
	}

	var timeline core.IntegratedTimeline
	data, err := os.ReadFile(filepath.Join(core.DataRoot(), req.JobID, "timeline.json"))
	if err != nil {
		core.WriteJSON(w, http.StatusNotFound, map[string]string{"error": fmt.Sprintf("timeline not found for job %s", req.JobID)})
		return
	}
	if err := json.Unmarshal(data, &timeline); err != nil {
		core.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": fmt.Sprintf("parse timeline: %v", err)})
		return
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		cfg = &config.Config{}
	}
	recipe, err := PickRecipeGenerator(cfg).Generate(r.Context(), timeline)
	if err != nil {
		core.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if err := core.SaveJSON(filepath.Join(core.DataRoot(), req.JobID, "recipe.json"), recipe); err != nil {
		log.Printf("[pipeline] failed to save recipe for job %s: %v", req.JobID, err)
	}
	core.WriteJSON(w, http.StatusOK, map[string]any{"job_id": req.JobID, "recipe": recipe})
}
