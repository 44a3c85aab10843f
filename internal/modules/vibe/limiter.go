package vibe

import "time"

// slidingWindow is a per-connection rate limiter. It is only ever touched
// from the connection's read loop, so no locking is needed.
type slidingWindow struct {
	window time.Duration
	max    int
	stamps []time.Time
}

func newSlidingWindow(window time.Duration, max int) *slidingWindow {
	return &slidingWindow{window: window, max: max}
}

// Allow records an event at now and reports whether it fits the window.
// Expired timestamps are evicted first.
func (w *slidingWindow) Allow(now time.Time) bool {
	cutoff := now.Add(-w.window)
	kept := w.stamps[:0]
	for _, t := range w.stamps {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	w.stamps = kept

	if len(w.stamps) >= w.max {
		return false
	}
	w.stamps = append(w.stamps, now)
	return true
}

// audioBuffer holds pending audio chunks with a hard cap, dropping the
// oldest chunk on overflow.
type audioBuffer struct {
	max    int
	chunks [][]byte
}

func newAudioBuffer(max int) *audioBuffer {
	return &audioBuffer{max: max}
}

func (b *audioBuffer) Append(chunk []byte) {
	if len(b.chunks) >= b.max {
		b.chunks = b.chunks[1:]
	}
	b.chunks = append(b.chunks, chunk)
}

// Drain returns the concatenated buffered audio and resets the buffer.
func (b *audioBuffer) Drain() []byte {
	if len(b.chunks) == 0 {
		return nil
	}
	var total int
	for _, c := range b.chunks {
		total += len(c)
	}
	out := make([]byte, 0, total)
	for _, c := range b.chunks {
		out = append(out, c...)
	}
	b.chunks = nil
	return out
}

func (b *audioBuffer) Len() int { return len(b.chunks) }
