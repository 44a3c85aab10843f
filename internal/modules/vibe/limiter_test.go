package vibe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSlidingWindowCapsBurst(t *testing.T) {
	w := newSlidingWindow(time.Second, 10)
	now := time.Now()

	for i := 0; i < 10; i++ {
		require.True(t, w.Allow(now.Add(time.Duration(i)*time.Millisecond)))
	}
	require.False(t, w.Allow(now.Add(11*time.Millisecond)))
}

func TestSlidingWindowEvictsExpired(t *testing.T) {
	w := newSlidingWindow(time.Second, 10)
	now := time.Now()

	for i := 0; i < 10; i++ {
		require.True(t, w.Allow(now))
	}
	require.False(t, w.Allow(now))

	// Past the window the old stamps no longer count.
	require.True(t, w.Allow(now.Add(time.Second+time.Millisecond)))
}

func TestAudioBufferDropsOldest(t *testing.T) {
	b := newAudioBuffer(3)
	b.Append([]byte("a"))
	b.Append([]byte("b"))
	b.Append([]byte("c"))
	b.Append([]byte("d"))

	require.Equal(t, 3, b.Len())
	require.Equal(t, []byte("bcd"), b.Drain())
}

func TestAudioBufferDrainResets(t *testing.T) {
	b := newAudioBuffer(10)
	require.Nil(t, b.Drain())

	b.Append([]byte("one"))
	b.Append([]byte("two"))
	require.Equal(t, []byte("onetwo"), b.Drain())
	require.Equal(t, 0, b.Len())
	require.Nil(t, b.Drain())
}
