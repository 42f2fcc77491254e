package processors

import (
	"sort"

	"videoRecipe/core"
)

// InferredActionConfidence is assigned to actions derived from tool and
// ingredient co-occurrence. Kept below every direct-action gate so an inferred
// action never outranks a directly observed one.
const InferredActionConfidence = 55.0

// FrameSignalExtractor turns one frame's raw detections into a FrameSignal.
// Deterministic for identical input; no I/O.
type FrameSignalExtractor struct {
	vocab       *Vocabulary
	classifier  *LabelClassifier
	baseline    *LabelClassifier // normal-gate classifier, set in high-density mode
	highDensity bool
}

// NewFrameSignalExtractor builds an extractor. highDensity lowers every
// confidence gate by HighDensityOffset and enables the loose keyword lists;
// it changes recall only, never the output shape.
func NewFrameSignalExtractor(vocab *Vocabulary, thresholds ClassifierThresholds, highDensity bool) *FrameSignalExtractor {
	effective := thresholds
	var baseline *LabelClassifier
	if highDensity {
		effective = thresholds.Lowered(HighDensityOffset)
		baseline = NewLabelClassifier(vocab, thresholds, false)
	}
	return &FrameSignalExtractor{
		vocab:       vocab,
		classifier:  NewLabelClassifier(vocab, effective, highDensity),
		baseline:    baseline,
		highDensity: highDensity,
	}
}

// Extract classifies every detection and buckets it into ingredients, tools,
// and actions. A label that qualifies for several categories is consumed by
// the highest-precedence one only (action, then tool, then ingredient) to
// avoid double counting. In high-density mode the category the normal gates
// would have picked is kept as well, so lowering the gates never loses a
// detection the normal run had.
func (e *FrameSignalExtractor) Extract(frameNumber int, timestampSec float64, detections []core.DetectedLabel) core.FrameSignal {
	signal := core.FrameSignal{
		FrameNumber:  frameNumber,
		TimestampSec: timestampSec,
		Ingredients:  []core.ClassifiedItem{},
		Tools:        []core.ClassifiedItem{},
		Actions:      []core.ClassifiedAction{},
	}

	bestIngredients := map[string]core.ClassifiedItem{}
	bestTools := map[string]core.ClassifiedItem{}
	bestActions := map[string]core.ClassifiedAction{}

	record := func(m CategoryMatch, conf float64) {
		switch m.Category {
		case CategoryAction:
			if prev, ok := bestActions[m.Term]; !ok || conf > prev.Confidence {
				bestActions[m.Term] = core.ClassifiedAction{Action: m.Term, Confidence: conf}
			}
		case CategoryTool:
			if prev, ok := bestTools[m.Term]; !ok || conf > prev.Confidence {
				bestTools[m.Term] = core.ClassifiedItem{Name: m.Term, Confidence: conf, Category: m.SubType}
			}
		case CategoryIngredient:
			if prev, ok := bestIngredients[m.Term]; !ok || conf > prev.Confidence {
				bestIngredients[m.Term] = core.ClassifiedItem{Name: m.Term, Confidence: conf, Category: m.SubType}
			}
		}
	}

	for _, det := range detections {
		matches := e.classifier.Classify(det)
		if len(matches) == 0 {
			continue
		}
		picked := matches[0] // precedence order comes from the classifier
		record(picked, det.Confidence)
		if e.baseline != nil {
			if base := e.baseline.Classify(det); len(base) > 0 && base[0].Category != picked.Category {
				record(base[0], det.Confidence)
			}
		}
	}

	signal.Ingredients = sortedItems(bestIngredients)
	signal.Tools = sortedItems(bestTools)
	for _, a := range bestActions {
		signal.Actions = append(signal.Actions, a)
	}
	sort.Slice(signal.Actions, func(i, j int) bool {
		if signal.Actions[i].Confidence != signal.Actions[j].Confidence {
			return signal.Actions[i].Confidence > signal.Actions[j].Confidence
		}
		return signal.Actions[i].Action < signal.Actions[j].Action
	})

	if len(signal.Actions) == 0 {
		if inferred, ok := e.inferAction(signal.Ingredients, signal.Tools); ok {
			signal.Actions = append(signal.Actions, inferred)
		}
	}

	return signal
}

// inferAction applies the fixed co-occurrence rule table when no action label
// cleared its gate. The first matching rule wins.
func (e *FrameSignalExtractor) inferAction(ingredients, tools []core.ClassifiedItem) (core.ClassifiedAction, bool) {
	if len(ingredients) == 0 || len(tools) == 0 {
		return core.ClassifiedAction{}, false
	}

	for _, rule := range e.vocab.InferenceRules {
		var matchedTool string
		for _, t := range tools {
			if matchesTerm(NormalizeTerm(t.Name), rule.Tool) || t.Category == rule.Tool {
				matchedTool = t.Name
				break
			}
		}
		if matchedTool == "" {
			continue
		}
		var related []string
		for _, ing := range ingredients {
			if ing.Category == rule.IngredientType {
				related = append(related, ing.Name)
			}
		}
		if len(related) == 0 {
			continue
		}
		return core.ClassifiedAction{
			Action:             rule.Action,
			Confidence:         InferredActionConfidence,
			RelatedIngredients: related,
			RelatedTools:       []string{matchedTool},
		}, true
	}
	return core.ClassifiedAction{}, false
}

func sortedItems(m map[string]core.ClassifiedItem) []core.ClassifiedItem {
	items := make([]core.ClassifiedItem, 0, len(m))
	for _, it := range m {
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Confidence != items[j].Confidence {
			return items[i].Confidence > items[j].Confidence
		}
		return items[i].Name < items[j].Name
	})
	return items
}
