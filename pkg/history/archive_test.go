package history

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(id, user, variant string) Entry {
	return Entry{
		UtteranceID:      id,
		Timestamp:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		UserID:           user,
		Intent:           "command",
		TaskFamily:       "coding",
		SuggestedVariant: variant,
		ChosenVariant:    variant,
	}
}

func TestAppendAndReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	a, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Append(entry("u-1", "alice", "lamp-7b")))
	require.NoError(t, a.Append(entry("u-2", "alice", "lamp-13b")))
	require.NoError(t, a.Append(entry("u-3", "bob", "wick-3b")))

	var got []Entry
	require.NoError(t, a.Replay(func(e Entry) { got = append(got, e) }))

	require.Len(t, got, 3)
	assert.Equal(t, "u-1", got[0].UtteranceID)
	assert.Equal(t, "u-3", got[2].UtteranceID)
	assert.Equal(t, "bob", got[2].UserID)
	assert.True(t, got[0].Timestamp.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)))
}

func TestReplaySkipsTornFinalLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	a, err := Open(path, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, a.Append(entry("u-1", "alice", "lamp-7b")))
	require.NoError(t, a.Close())

	// Simulate a crash mid-append.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"utterance_id":"u-2","time`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	a, err = Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	var got []Entry
	require.NoError(t, a.Replay(func(e Entry) { got = append(got, e) }))
	require.Len(t, got, 1)
	assert.Equal(t, "u-1", got[0].UtteranceID)
}

func TestReplayMissingFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	a, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, os.Remove(path))

	calls := 0
	require.NoError(t, a.Replay(func(Entry) { calls++ }))
	assert.Zero(t, calls)
}

func TestOutcomeQualityRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.jsonl")
	a, err := Open(path, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	quality := 0.75
	e := entry("u-1", "alice", "lamp-7b")
	e.OutcomeQuality = &quality
	require.NoError(t, a.Append(e))
	require.NoError(t, a.Append(entry("u-2", "alice", "lamp-7b"))) // unknown quality

	var got []Entry
	require.NoError(t, a.Replay(func(e Entry) { got = append(got, e) }))
	require.Len(t, got, 2)
	require.NotNil(t, got[0].OutcomeQuality)
	assert.Equal(t, 0.75, *got[0].OutcomeQuality)
	assert.Nil(t, got[1].OutcomeQuality)
}
