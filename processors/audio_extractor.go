package processors

import (
	"regexp"
	"strings"

	"videoRecipe/core"
)

// AudioSignalExtractor scans a transcript for ingredient and action mentions
// and segments it into candidate step sentences. The transcript carries no
// per-sentence timing, so candidate steps are ordered textually, not by
// timestamp.
type AudioSignalExtractor struct {
	vocab *Vocabulary
}

// NewAudioSignalExtractor builds an extractor over the given vocabulary.
func NewAudioSignalExtractor(vocab *Vocabulary) *AudioSignalExtractor {
	return &AudioSignalExtractor{vocab: vocab}
}

var sentenceSplit = regexp.MustCompile(`[.!?\n]+`)

// Extract scans the transcript. An empty or whitespace-only transcript yields
// an empty signal, never an error.
func (e *AudioSignalExtractor) Extract(transcript string) core.AudioSignal {
	signal := core.AudioSignal{
		IngredientMentions: []string{},
		ActionMentions:     []string{},
		CandidateSteps:     []core.CandidateStep{},
	}

	trimmed := strings.TrimSpace(transcript)
	if trimmed == "" {
		return signal
	}
	signal.TranscriptLength = len([]rune(trimmed))

	normalized := NormalizeTerm(trimmed)
	signal.IngredientMentions = mentionsInOrder(normalized, e.vocab.Ingredients, false)
	signal.ActionMentions = mentionsInOrder(normalized, e.vocab.Actions, true)

	order := 0
	for _, raw := range sentenceSplit.Split(trimmed, -1) {
		sentence := strings.TrimSpace(raw)
		if sentence == "" {
			continue
		}
		if e.isCandidateStep(NormalizeTerm(sentence)) {
			order++
			signal.CandidateSteps = append(signal.CandidateSteps, core.CandidateStep{
				Text:        sentence,
				ApproxOrder: order,
			})
		}
	}

	return signal
}

// isCandidateStep: a sentence qualifies when it carries a discourse marker or
// a cooking-action verb.
func (e *AudioSignalExtractor) isCandidateStep(sentence string) bool {
	for _, marker := range e.vocab.DiscourseMarkers {
		if containsWord(sentence, marker) {
			return true
		}
	}
	for _, a := range e.vocab.Actions {
		if sentenceHasAction(sentence, a.Term) {
			return true
		}
	}
	return false
}

// sentenceHasAction checks each word of the sentence against an action term,
// tolerating gerund/base verb form differences.
func sentenceHasAction(sentence, term string) bool {
	for _, word := range strings.FieldsFunc(sentence, func(r rune) bool { return !isWordRune(r) }) {
		if matchesActionTerm(word, term) {
			return true
		}
	}
	return false
}

// mentionsInOrder returns each distinct matched term once, ordered by first
// occurrence in the text.
func mentionsInOrder(text string, table []TermEntry, action bool) []string {
	type hit struct {
		term string
		pos  int
	}
	var hits []hit
	seen := map[string]bool{}
	for _, e := range table {
		if seen[e.Term] {
			continue
		}
		pos := firstMention(text, e.Term, action)
		if pos < 0 {
			continue
		}
		seen[e.Term] = true
		hits = append(hits, hit{term: e.Term, pos: pos})
	}
	// insertion order is table order; re-sort by first occurrence
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].pos < hits[j-1].pos; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.term)
	}
	return out
}

// firstMention returns the byte offset of the first occurrence of term in
// text, or -1. Whole-word matches are preferred; a substring match is accepted
// for terms of 4+ runes so plural forms like "tomatoes" still count. For
// actions, gerund/base forms of each word also count.
func firstMention(text, term string, action bool) int {
	if containsWord(text, term) {
		return strings.Index(text, term)
	}
	if len(term) >= 4 && strings.Contains(text, term) {
		return strings.Index(text, term)
	}
	if !action {
		return -1
	}
	offset := 0
	for _, word := range strings.FieldsFunc(text, func(r rune) bool { return !isWordRune(r) }) {
		idx := strings.Index(text[offset:], word)
		if idx < 0 {
			continue
		}
		pos := offset + idx
		offset = pos + len(word)
		if matchesActionTerm(word, term) {
			return pos
		}
	}
	return -1
}
