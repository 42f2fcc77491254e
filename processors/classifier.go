package processors

import "videoRecipe/core"

// ClassifierThresholds holds the per-category confidence gates on the 0-100
// scale. A label below its category's gate is not classified into that
// category even when the name matches.
type ClassifierThresholds struct {
	Ingredient float64 `json:"ingredient"`
	Tool       float64 `json:"tool"`
	Action     float64 `json:"action"`
}

// DefaultThresholds returns the standard confidence gates.
func DefaultThresholds() ClassifierThresholds {
	return ClassifierThresholds{Ingredient: 60, Tool: 65, Action: 70}
}

// HighDensityOffset is subtracted from every gate in high-density mode.
const HighDensityOffset = 15.0

// Lowered returns a copy of the thresholds reduced by offset, floored at zero.
func (t ClassifierThresholds) Lowered(offset float64) ClassifierThresholds {
	lower := func(v float64) float64 {
		v -= offset
		if v < 0 {
			return 0
		}
		return v
	}
	return ClassifierThresholds{
		Ingredient: lower(t.Ingredient),
		Tool:       lower(t.Tool),
		Action:     lower(t.Action),
	}
}

// CategoryMatch is one category a label qualified for.
type CategoryMatch struct {
	Category string // ingredient, tool, or action
	Term     string // canonical vocabulary term that matched
	SubType  string // ingredient/tool sub-type, or action bucket
}

// LabelClassifier categorizes raw detected labels against the vocabulary.
// Pure; no side effects beyond reading the injected tables.
type LabelClassifier struct {
	vocab      *Vocabulary
	thresholds ClassifierThresholds
	loose      bool // include the looser secondary keyword lists
}

// NewLabelClassifier builds a classifier over the given vocabulary. When loose
// is set the secondary keyword lists are also consulted, trading precision for
// recall.
func NewLabelClassifier(vocab *Vocabulary, thresholds ClassifierThresholds, loose bool) *LabelClassifier {
	return &LabelClassifier{vocab: vocab, thresholds: thresholds, loose: loose}
}

// Classify returns every category the label qualifies for, in the fixed order
// action, tool, ingredient. A malformed label (empty name, confidence outside
// 0-100) yields no matches rather than an error.
func (lc *LabelClassifier) Classify(label core.DetectedLabel) []CategoryMatch {
	name := NormalizeTerm(label.Name)
	if name == "" || label.Confidence < 0 || label.Confidence > 100 {
		return nil
	}

	var matches []CategoryMatch

	if label.Confidence >= lc.thresholds.Action {
		if m, ok := lc.matchAction(name, label.CategoryHint); ok {
			matches = append(matches, m)
		}
	}
	if label.Confidence >= lc.thresholds.Tool {
		if m, ok := lc.matchTable(name, label.CategoryHint, CategoryTool, lc.vocab.Tools, lc.vocab.LooseTools, toolHints); ok {
			matches = append(matches, m)
		}
	}
	if label.Confidence >= lc.thresholds.Ingredient {
		if m, ok := lc.matchTable(name, label.CategoryHint, CategoryIngredient, lc.vocab.Ingredients, lc.vocab.LooseIngredients, ingredientHints); ok {
			matches = append(matches, m)
		}
	}

	return matches
}

var (
	ingredientHints = []string{"ingredient", "food", "produce", "vegetable", "fruit", "meat"}
	toolHints       = []string{"tool", "utensil", "cookware", "kitchenware", "appliance"}
	actionHints     = []string{"action", "activity", "motion"}
)

func (lc *LabelClassifier) matchAction(name, hint string) (CategoryMatch, bool) {
	for _, e := range lc.vocab.Actions {
		if matchesActionTerm(name, e.Term) {
			return CategoryMatch{Category: CategoryAction, Term: e.Term, SubType: e.SubType}, true
		}
	}
	if lc.loose {
		for _, e := range lc.vocab.LooseActions {
			if matchesActionTerm(name, e.Term) {
				return CategoryMatch{Category: CategoryAction, Term: e.Term, SubType: e.SubType}, true
			}
		}
	}
	if hintMatches(hint, actionHints) {
		return CategoryMatch{Category: CategoryAction, Term: name, SubType: BucketPreparation}, true
	}
	return CategoryMatch{}, false
}

func (lc *LabelClassifier) matchTable(name, hint, category string, primary, loose []TermEntry, hints []string) (CategoryMatch, bool) {
	for _, e := range primary {
		if matchesTerm(name, e.Term) {
			return CategoryMatch{Category: category, Term: e.Term, SubType: e.SubType}, true
		}
	}
	if lc.loose {
		for _, e := range loose {
			if matchesTerm(name, e.Term) {
				return CategoryMatch{Category: category, Term: e.Term, SubType: e.SubType}, true
			}
		}
	}
	// trust an explicit labeler hint even for names outside the tables
	if hintMatches(hint, hints) {
		return CategoryMatch{Category: category, Term: name, SubType: "other"}, true
	}
	return CategoryMatch{}, false
}

func hintMatches(hint string, accepted []string) bool {
	hint = NormalizeTerm(hint)
	if hint == "" {
		return false
	}
	for _, a := range accepted {
		if hint == a {
			return true
		}
	}
	return false
}
