package processors

import "videoRecipe/core"

// IngredientAggregator accumulates per-frame ingredient sightings into one
// record per normalized name, with appearance span, occurrence count, and an
// estimated amount. Aggregation is idempotent: the same frames always produce
// the same records.
type IngredientAggregator struct {
	vocab     *Vocabulary
	threshold float64
}

// NewIngredientAggregator builds an aggregator gated at the given ingredient
// confidence threshold.
func NewIngredientAggregator(vocab *Vocabulary, threshold float64) *IngredientAggregator {
	return &IngredientAggregator{vocab: vocab, threshold: threshold}
}

// Aggregate folds every qualifying sighting into the record map. Sightings
// below the threshold are skipped; names are normalized and singularized so
// "Tomatoes" and "tomato" share one record.
func (a *IngredientAggregator) Aggregate(signals []core.FrameSignal) map[string]core.IngredientRecord {
	records := map[string]core.IngredientRecord{}

	for _, sig := range signals {
		for _, ing := range sig.Ingredients {
			if ing.Confidence < a.threshold {
				continue
			}
			name := a.CanonicalName(ing.Name)
			if name == "" {
				continue
			}
			rec, ok := records[name]
			if !ok {
				rec = core.IngredientRecord{
					Name:            name,
					FirstAppearance: sig.TimestampSec,
					LastAppearance:  sig.TimestampSec,
				}
			}
			if sig.TimestampSec < rec.FirstAppearance {
				rec.FirstAppearance = sig.TimestampSec
			}
			if sig.TimestampSec > rec.LastAppearance {
				rec.LastAppearance = sig.TimestampSec
			}
			rec.OccurrenceCount++
			records[name] = rec
		}
	}

	for name, rec := range records {
		rec.EstimatedAmount = a.estimateAmount(name, rec.OccurrenceCount)
		records[name] = rec
	}
	return records
}

// CanonicalName normalizes and singularizes an ingredient name via the
// vocabulary's plural rules.
func (a *IngredientAggregator) CanonicalName(name string) string {
	return a.vocab.CanonicalIngredient(name)
}

// estimateAmount prefers the fixed per-ingredient amount table, then falls
// back to an occurrence-count band.
func (a *IngredientAggregator) estimateAmount(name string, occurrences int) string {
	if amount, ok := a.vocab.DefaultAmounts[name]; ok {
		return amount
	}
	switch {
	case occurrences > 10:
		return "main ingredient"
	case occurrences > 5:
		return "moderate amount"
	default:
		return "small amount"
	}
}
