package processors

import "strings"

// Classification categories.
const (
	CategoryIngredient = "ingredient"
	CategoryTool       = "tool"
	CategoryAction     = "action"
)

// Action category buckets used for continuity and cross-modal matching.
const (
	BucketCutting     = "cutting"
	BucketHeating     = "heating"
	BucketMixing      = "mixing"
	BucketPreparation = "preparation"
)

// SyntheticAction is assigned to frames with no detected action so they do not
// fragment an otherwise continuous segment.
const SyntheticAction = "preparing"

// TermEntry is one vocabulary term with its sub-type tag. Slices keep
// declaration order so every scan over a table is deterministic.
type TermEntry struct {
	Term    string
	SubType string
}

// InferenceRule derives a candidate action from tool + ingredient co-occurrence
// when a frame has no directly observed action.
type InferenceRule struct {
	Tool           string // tool term or sub-type that must be present
	IngredientType string // ingredient sub-type that must be present
	Action         string // canonical action to emit
	Description    string
}

// Vocabulary holds the read-only keyword tables every component matches
// against. Built once and injected; never mutated after construction.
type Vocabulary struct {
	Ingredients      []TermEntry
	Tools            []TermEntry
	Actions          []TermEntry // SubType is the action category bucket
	LooseIngredients []TermEntry // secondary lists enabled in high-density mode
	LooseTools       []TermEntry
	LooseActions     []TermEntry
	DiscourseMarkers []string
	PhaseActions     map[string][]string // phase label -> action keywords
	PluralSingular   map[string]string
	DefaultAmounts   map[string]string
	InferenceRules   []InferenceRule
}

// DefaultVocabulary returns the built-in cooking vocabulary.
func DefaultVocabulary() *Vocabulary {
	return &Vocabulary{
		Ingredients: []TermEntry{
			{"tomato", "vegetable"}, {"onion", "vegetable"}, {"garlic", "vegetable"},
			{"carrot", "vegetable"}, {"potato", "vegetable"}, {"pepper", "vegetable"},
			{"cabbage", "vegetable"}, {"mushroom", "vegetable"}, {"spinach", "vegetable"},
			{"cucumber", "vegetable"}, {"eggplant", "vegetable"}, {"broccoli", "vegetable"},
			{"lettuce", "vegetable"}, {"celery", "vegetable"}, {"ginger", "vegetable"},
			{"scallion", "vegetable"}, {"leek", "vegetable"}, {"corn", "vegetable"},
			{"chicken", "meat"}, {"beef", "meat"}, {"pork", "meat"}, {"lamb", "meat"},
			{"bacon", "meat"}, {"sausage", "meat"},
			{"fish", "seafood"}, {"shrimp", "seafood"}, {"salmon", "seafood"},
			{"tuna", "seafood"}, {"crab", "seafood"}, {"squid", "seafood"},
			{"egg", "dairy"}, {"milk", "dairy"}, {"butter", "dairy"},
			{"cheese", "dairy"}, {"cream", "dairy"}, {"yogurt", "dairy"},
			{"rice", "grain"}, {"noodle", "grain"}, {"pasta", "grain"},
			{"flour", "grain"}, {"bread", "grain"}, {"tofu", "grain"},
			{"salt", "seasoning"}, {"sugar", "seasoning"}, {"soy sauce", "seasoning"},
			{"vinegar", "seasoning"}, {"oil", "seasoning"}, {"sesame oil", "seasoning"},
			{"chili", "seasoning"}, {"cumin", "seasoning"}, {"basil", "seasoning"},
			{"parsley", "seasoning"}, {"cilantro", "seasoning"}, {"oregano", "seasoning"},
			{"lemon", "fruit"}, {"lime", "fruit"}, {"apple", "fruit"}, {"avocado", "fruit"},
		},
		Tools: []TermEntry{
			{"knife", "cutting"}, {"cleaver", "cutting"}, {"peeler", "cutting"},
			{"grater", "cutting"}, {"scissors", "cutting"},
			{"pan", "cookware"}, {"pot", "cookware"}, {"wok", "cookware"},
			{"skillet", "cookware"}, {"saucepan", "cookware"}, {"oven", "cookware"},
			{"steamer", "cookware"}, {"grill", "cookware"}, {"fryer", "cookware"},
			{"spatula", "utensil"}, {"ladle", "utensil"}, {"whisk", "utensil"},
			{"tongs", "utensil"}, {"spoon", "utensil"}, {"chopsticks", "utensil"},
			{"bowl", "container"}, {"plate", "container"}, {"cutting board", "container"},
			{"mixer", "appliance"}, {"blender", "appliance"}, {"rice cooker", "appliance"},
		},
		Actions: []TermEntry{
			{"cutting", BucketCutting}, {"chopping", BucketCutting},
			{"slicing", BucketCutting}, {"dicing", BucketCutting},
			{"mincing", BucketCutting}, {"peeling", BucketCutting},
			{"frying", BucketHeating}, {"boiling", BucketHeating},
			{"steaming", BucketHeating}, {"baking", BucketHeating},
			{"grilling", BucketHeating}, {"cooking", BucketHeating},
			{"simmering", BucketHeating}, {"roasting", BucketHeating},
			{"sauteing", BucketHeating},
			{"mixing", BucketMixing}, {"stirring", BucketMixing},
			{"whisking", BucketMixing}, {"kneading", BucketMixing},
			{"folding", BucketMixing}, {"tossing", BucketMixing},
			{"preparing", BucketPreparation}, {"washing", BucketPreparation},
			{"measuring", BucketPreparation}, {"seasoning", BucketPreparation},
			{"marinating", BucketPreparation}, {"plating", BucketPreparation},
			{"garnishing", BucketPreparation}, {"serving", BucketPreparation},
			{"arranging", BucketPreparation},
		},
		LooseIngredients: []TermEntry{
			{"vegetable", "vegetable"}, {"meat", "meat"}, {"seafood", "seafood"},
			{"herb", "seasoning"}, {"spice", "seasoning"}, {"sauce", "seasoning"},
			{"fruit", "fruit"}, {"food", "other"}, {"produce", "vegetable"},
		},
		LooseTools: []TermEntry{
			{"utensil", "utensil"}, {"cookware", "cookware"}, {"kitchenware", "utensil"},
			{"tableware", "container"}, {"appliance", "appliance"},
		},
		LooseActions: []TermEntry{
			{"heating", BucketHeating}, {"pouring", BucketMixing},
			{"spreading", BucketPreparation}, {"flipping", BucketHeating},
			{"draining", BucketPreparation},
		},
		DiscourseMarkers: []string{
			"first", "next", "then", "finally", "after that", "meanwhile",
			"once", "now", "lastly",
		},
		PhaseActions: map[string][]string{
			"Preparation": {"cutting", "chopping", "slicing", "washing", "peeling"},
			"Cooking":     {"frying", "boiling", "steaming", "baking", "grilling", "cooking"},
			"Finishing":   {"plating", "garnishing", "serving", "arranging"},
		},
		PluralSingular: map[string]string{
			"tomatoes": "tomato", "potatoes": "potato", "leaves": "leaf",
			"loaves": "loaf", "knives": "knife", "berries": "berry",
			"cherries": "cherry", "chilies": "chili", "chillies": "chili",
			"anchovies": "anchovy",
		},
		DefaultAmounts: map[string]string{
			"salt":      "to taste",
			"pepper":    "to taste",
			"sugar":     "to taste",
			"garlic":    "2-3 cloves",
			"oil":       "2 tablespoons",
			"butter":    "2 tablespoons",
			"soy sauce": "1-2 tablespoons",
			"vinegar":   "1 tablespoon",
			"ginger":    "1 small piece",
		},
		InferenceRules: []InferenceRule{
			{Tool: "knife", IngredientType: "vegetable", Action: "cutting", Description: "cutting vegetables"},
			{Tool: "knife", IngredientType: "meat", Action: "cutting", Description: "cutting meat"},
			{Tool: "cutting board", IngredientType: "vegetable", Action: "chopping", Description: "chopping on the board"},
			{Tool: "pan", IngredientType: "meat", Action: "frying", Description: "frying meat"},
			{Tool: "pan", IngredientType: "vegetable", Action: "frying", Description: "frying vegetables"},
			{Tool: "wok", IngredientType: "vegetable", Action: "frying", Description: "stir frying vegetables"},
			{Tool: "pot", IngredientType: "vegetable", Action: "boiling", Description: "boiling vegetables"},
			{Tool: "pot", IngredientType: "grain", Action: "boiling", Description: "boiling"},
			{Tool: "steamer", IngredientType: "seafood", Action: "steaming", Description: "steaming seafood"},
			{Tool: "oven", IngredientType: "meat", Action: "baking", Description: "baking meat"},
			{Tool: "whisk", IngredientType: "dairy", Action: "whisking", Description: "whisking"},
			{Tool: "bowl", IngredientType: "dairy", Action: "mixing", Description: "mixing in a bowl"},
		},
	}
}

// ActionCategory maps an action term to its category bucket. Unknown actions
// fall into the preparation bucket.
func (v *Vocabulary) ActionCategory(action string) string {
	name := NormalizeTerm(action)
	for _, e := range v.Actions {
		if matchesActionTerm(name, e.Term) {
			return e.SubType
		}
	}
	for _, e := range v.LooseActions {
		if matchesActionTerm(name, e.Term) {
			return e.SubType
		}
	}
	return BucketPreparation
}

// CanonicalIngredient normalizes and singularizes an ingredient name.
// Irregular plurals come from the lookup table; a trailing "s" is only
// stripped when the stem is itself a known term, so names like "couscous"
// survive intact.
func (v *Vocabulary) CanonicalIngredient(name string) string {
	name = NormalizeTerm(name)
	if name == "" {
		return ""
	}
	if singular, ok := v.PluralSingular[name]; ok {
		return singular
	}
	if strings.HasSuffix(name, "s") {
		stem := strings.TrimSuffix(name, "s")
		for _, e := range v.Ingredients {
			if stem == e.Term {
				return stem
			}
		}
	}
	return name
}

// IngredientType returns the sub-type of a known ingredient term, or "other".
func (v *Vocabulary) IngredientType(name string) string {
	name = NormalizeTerm(name)
	for _, e := range v.Ingredients {
		if matchesTerm(name, e.Term) {
			return e.SubType
		}
	}
	return "other"
}

// NormalizeTerm lowercases, trims, and folds common Latin diacritics so that
// matching is case and accent insensitive.
func NormalizeTerm(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return s
	}
	return strings.Map(foldRune, s)
}

func foldRune(r rune) rune {
	switch r {
	case 'á', 'à', 'â', 'ä', 'ã', 'å':
		return 'a'
	case 'é', 'è', 'ê', 'ë':
		return 'e'
	case 'í', 'ì', 'î', 'ï':
		return 'i'
	case 'ó', 'ò', 'ô', 'ö', 'õ':
		return 'o'
	case 'ú', 'ù', 'û', 'ü':
		return 'u'
	case 'ñ':
		return 'n'
	case 'ç':
		return 'c'
	}
	return r
}

// matchesTerm applies the shared matching rule: exact match, whole-word
// containment, or substring containment in either direction. Substring
// containment requires the shorter side to be at least 4 runes so terms like
// "oil" cannot match inside "boiling". Both sides are assumed normalized.
func matchesTerm(name, term string) bool {
	if name == "" || term == "" {
		return false
	}
	if name == term {
		return true
	}
	if containsWord(name, term) || containsWord(term, name) {
		return true
	}
	short := len(name)
	if len(term) < short {
		short = len(term)
	}
	if short >= 4 && (strings.Contains(name, term) || strings.Contains(term, name)) {
		return true
	}
	return false
}

// containsWord reports whether s contains w as a whole word or whole phrase.
func containsWord(s, w string) bool {
	if !strings.Contains(s, w) {
		return false
	}
	idx := strings.Index(s, w)
	for idx >= 0 {
		before := idx == 0 || !isWordRune(rune(s[idx-1]))
		afterIdx := idx + len(w)
		after := afterIdx >= len(s) || !isWordRune(rune(s[afterIdx]))
		if before && after {
			return true
		}
		next := strings.Index(s[idx+1:], w)
		if next < 0 {
			return false
		}
		idx = idx + 1 + next
	}
	return false
}

func isWordRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}

// matchesActionTerm additionally strips a gerund suffix so a continuous form
// matches its base verb ("chop" matches "chopping").
func matchesActionTerm(name, term string) bool {
	if matchesTerm(name, term) {
		return true
	}
	return matchesTerm(stripGerund(name), stripGerund(term))
}

func stripGerund(s string) string {
	if len(s) > 4 && strings.HasSuffix(s, "ing") {
		base := s[:len(s)-3]
		// doubled final consonant: chopping -> chop
		if len(base) >= 2 && base[len(base)-1] == base[len(base)-2] {
			return base[:len(base)-1]
		}
		return base
	}
	return s
}
