package trimmer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerOpensSessionPerSlot(t *testing.T) {
	m := NewManager(DefaultConfig(), &stubEncoder{duration: 90})

	result, err := m.OpenFor("track-1", []byte("a"), "a.wav", "a")
	require.NoError(t, err)
	assert.Nil(t, result)

	_, ok := m.Get("track-1")
	assert.True(t, ok)
	_, ok = m.Get("track-2")
	assert.False(t, ok)
}

func TestManagerSkippedResultRetainsNothing(t *testing.T) {
	m := NewManager(DefaultConfig(), &stubEncoder{duration: 60})

	result, err := m.OpenFor("track-1", []byte("a"), "a.wav", "a")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Skipped)

	_, ok := m.Get("track-1")
	assert.False(t, ok, "ready-made clips never hold a session")
}

func TestManagerReplacesAbandonedSession(t *testing.T) {
	m := NewManager(DefaultConfig(), &stubEncoder{duration: 90})

	_, err := m.OpenFor("track-1", []byte("first"), "first.wav", "first")
	require.NoError(t, err)
	first, _ := m.Get("track-1")

	_, err = m.OpenFor("track-1", []byte("second"), "second.wav", "second")
	require.NoError(t, err)
	second, _ := m.Get("track-1")

	assert.NotSame(t, first, second)
	assert.Equal(t, "second.wav", second.Snapshot().SourceName)
	assert.Equal(t, StateClosed, first.State(), "the abandoned session is cancelled")
}

func TestManagerRejectsSelectionDuringEncode(t *testing.T) {
	enc := &stubEncoder{duration: 90}
	release := make(chan struct{})
	enc.block = release

	m := NewManager(DefaultConfig(), enc)
	_, err := m.OpenFor("track-1", []byte("a"), "a.wav", "a")
	require.NoError(t, err)
	session, _ := m.Get("track-1")

	done := make(chan struct{})
	go func() {
		session.Confirm(nil)
		close(done)
	}()
	require.Eventually(t, func() bool {
		return session.State() == StateEncoding
	}, time.Second, 5*time.Millisecond)

	_, err = m.OpenFor("track-1", []byte("b"), "b.wav", "b")
	assert.ErrorIs(t, err, ErrEncodeInFlight)

	err = m.Close("track-1")
	assert.ErrorIs(t, err, ErrEncodeInFlight)

	close(release)
	<-done

	// Once the encode finished the slot is free again
	_, err = m.OpenFor("track-1", []byte("b"), "b.wav", "b")
	assert.NoError(t, err)
}

func TestManagerCloseAndForget(t *testing.T) {
	m := NewManager(DefaultConfig(), &stubEncoder{duration: 90})

	_, err := m.OpenFor("track-1", []byte("a"), "a.wav", "a")
	require.NoError(t, err)

	require.NoError(t, m.Close("track-1"))
	_, ok := m.Get("track-1")
	assert.False(t, ok)

	// Closing an unknown slot is a no-op
	assert.NoError(t, m.Close("track-9"))

	_, err = m.OpenFor("track-1", []byte("a"), "a.wav", "a")
	require.NoError(t, err)
	m.Forget("track-1")
	_, ok = m.Get("track-1")
	assert.False(t, ok)
}
