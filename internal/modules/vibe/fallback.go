package vibe

import "math/rand"

// fallbackChance is the per-drain-tick probability of emitting a canned
// insight when no live model session is open.
const fallbackChance = 0.4

// cannedInsights is the demo/fallback table used when the live model
// session could not be opened. These are placeholders, not analysis.
var cannedInsights = []struct {
	text       string
	confidence float64
	indicator  string
}{
	{"Speaker tone reads as measured and cooperative.", 0.42, "calm"},
	{"Slight elevation in speech tempo detected.", 0.38, "stress"},
	{"Pauses suggest the speaker is choosing words carefully.", 0.45, "hesitation"},
	{"Vocal energy is steady, no notable affect shift.", 0.40, "neutral"},
	{"Brief pitch rise may indicate heightened engagement.", 0.37, "engagement"},
}

// pickFallback returns a canned insight with probability fallbackChance,
// or nil for a silent tick.
func pickFallback(rng *rand.Rand) *affectEvent {
	if rng.Float64() >= fallbackChance {
		return nil
	}
	in := cannedInsights[rng.Intn(len(cannedInsights))]
	return &affectEvent{
		Type:       "affect",
		Text:       in.text,
		Confidence: in.confidence,
		Indicator:  in.indicator,
		Source:     "fallback",
	}
}
