package processors

import (
	"fmt"

	"videoRecipe/core"
)

// PhaseIdentifier maps timeline segments onto the coarse cooking phases. Each
// phase spans from the first to the last segment whose action belongs to its
// vocabulary, so phases may overlap and carry no ordering guarantee between
// each other.
type PhaseIdentifier struct {
	vocab *Vocabulary
}

// NewPhaseIdentifier builds an identifier over the vocabulary's phase tables.
func NewPhaseIdentifier(vocab *Vocabulary) *PhaseIdentifier {
	return &PhaseIdentifier{vocab: vocab}
}

// phaseOrder fixes the output order of phase labels.
var phaseOrder = []string{core.PhasePreparation, core.PhaseCooking, core.PhaseFinishing}

// Identify returns at most one entry per phase label, omitting phases with no
// matching segment. An empty segment list yields an empty result.
func (p *PhaseIdentifier) Identify(segments []core.TimelineSegment) []core.CookingPhase {
	phases := []core.CookingPhase{}
	for _, label := range phaseOrder {
		keywords := p.vocab.PhaseActions[label]
		var start, end float64
		count := 0
		for _, seg := range segments {
			if !actionInList(seg.MainAction, keywords) {
				continue
			}
			if count == 0 || seg.StartTime < start {
				start = seg.StartTime
			}
			if count == 0 || seg.EndTime > end {
				end = seg.EndTime
			}
			count++
		}
		if count == 0 {
			continue
		}
		phases = append(phases, core.CookingPhase{
			Phase:       label,
			StartTime:   start,
			EndTime:     end,
			Description: fmt.Sprintf("%s stage covering %d segment(s)", label, count),
		})
	}
	return phases
}

func actionInList(action string, keywords []string) bool {
	name := NormalizeTerm(action)
	for _, k := range keywords {
		if matchesActionTerm(name, k) {
			return true
		}
	}
	return false
}
