package vibe

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAffectStructuredReply(t *testing.T) {
	reply := "```json\n{\"text\": \"elevated stress in voice\", \"confidence\": 0.82, \"indicator\": \"stress\"}\n```"

	ev := parseAffect(reply)
	require.Equal(t, "affect", ev.Type)
	require.Equal(t, "elevated stress in voice", ev.Text)
	require.InDelta(t, 0.82, ev.Confidence, 1e-9)
	require.Equal(t, "stress", ev.Indicator)
	require.Equal(t, "live", ev.Source)
}

func TestParseAffectPlainTextReply(t *testing.T) {
	ev := parseAffect("the speaker sounds calm")
	require.Equal(t, "the speaker sounds calm", ev.Text)
	require.InDelta(t, 0.5, ev.Confidence, 1e-9)
	require.Equal(t, "neutral", ev.Indicator)
	require.Equal(t, "live", ev.Source)
}

func TestParseAffectEmptyTextFallsThrough(t *testing.T) {
	// Valid JSON with no text field is treated as an unstructured reply.
	ev := parseAffect(`{"confidence": 0.9}`)
	require.Equal(t, `{"confidence": 0.9}`, ev.Text)
	require.InDelta(t, 0.5, ev.Confidence, 1e-9)
}

func TestPickFallbackShape(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	var hits, misses int
	for i := 0; i < 1000; i++ {
		ev := pickFallback(rng)
		if ev == nil {
			misses++
			continue
		}
		hits++
		require.Equal(t, "affect", ev.Type)
		require.Equal(t, "fallback", ev.Source)
		require.NotEmpty(t, ev.Text)
		require.Greater(t, ev.Confidence, 0.0)
		require.NotEmpty(t, ev.Indicator)
	}
	// Roughly 40% of drains should produce an insight.
	require.Greater(t, hits, 300)
	require.Greater(t, misses, 450)
}
