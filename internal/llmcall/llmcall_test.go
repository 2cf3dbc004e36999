package llmcall

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohit-sws/timetable/internal/providers"
	"github.com/rohit-sws/timetable/internal/timetable"
)

func TestFromInvoke(t *testing.T) {
	req := &providers.InvokeRequest{
		Prompt:     "p",
		Payload:    []byte("img"),
		MimeType:   "image/png",
		RequestID:  "req-1",
		PromptKey:  "timetable.image",
		PromptHash: "abc123",
	}

	t.Run("success", func(t *testing.T) {
		call := FromInvoke("openrouter", req, &providers.InvokeResult{
			Text:             `{"timeblocks":[]}`,
			PromptTokens:     10,
			CompletionTokens: 5,
			ModelUsed:        "m",
			RequestID:        "req-1",
		}, nil, 1500*time.Millisecond)

		assert.NotEmpty(t, call.ID)
		assert.True(t, call.Success)
		assert.Equal(t, 1500, call.LatencyMs)
		assert.Equal(t, "timetable.image", call.PromptKey)
		assert.Equal(t, "abc123", call.PromptHash)
		assert.Equal(t, "image/png", call.PayloadMIME)
		assert.Equal(t, "m", call.Model)
		assert.Equal(t, 10, call.InputTokens)
		assert.Equal(t, 5, call.OutputTokens)
		assert.Empty(t, call.Error)
	})

	t.Run("failure", func(t *testing.T) {
		err := timetable.NewBackendError("openrouter", 429, errors.New("slow down"))
		call := FromInvoke("openrouter", req, nil, err, time.Second)

		assert.False(t, call.Success)
		assert.Contains(t, call.Error, "slow down")
		assert.Equal(t, "req-1", call.RequestID)
	})
}

func TestStore_AppendAndList(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "logs", "calls.jsonl"))
	ctx := context.Background()

	calls, err := store.List(ctx, QueryFilter{})
	require.NoError(t, err)
	assert.Empty(t, calls)

	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	for i, c := range []*Call{
		{ID: "1", Timestamp: base, PromptKey: "timetable.text", Provider: "deepseek", Success: true},
		{ID: "2", Timestamp: base.Add(time.Minute), PromptKey: "timetable.image", Provider: "openrouter", Success: false},
		{ID: "3", Timestamp: base.Add(2 * time.Minute), PromptKey: "timetable.image", Provider: "openrouter", Success: true},
	} {
		require.NoError(t, store.Append(c), "append %d", i)
	}

	all, err := store.List(ctx, QueryFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "1", all[0].ID)

	image, err := store.List(ctx, QueryFilter{PromptKey: "timetable.image"})
	require.NoError(t, err)
	assert.Len(t, image, 2)

	ok := true
	succeeded, err := store.List(ctx, QueryFilter{Provider: "openrouter", Success: &ok})
	require.NoError(t, err)
	require.Len(t, succeeded, 1)
	assert.Equal(t, "3", succeeded[0].ID)

	after := base.Add(30 * time.Second)
	recent, err := store.List(ctx, QueryFilter{After: &after, Limit: 1})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "3", recent[0].ID)
}

func TestStore_SkipsCorruptLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calls.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("not json\n"), 0o644))

	store := NewStore(path)
	require.NoError(t, store.Append(&Call{ID: "ok", Provider: "scripted"}))

	calls, err := store.List(context.Background(), QueryFilter{})
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "ok", calls[0].ID)
}

func TestRecorder(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "calls.jsonl"))
	backend := providers.NewScriptedBackendSteps(
		providers.Step{Text: `{"timeblocks":[]}`},
		providers.Step{Err: errors.New("quota exceeded")},
	)
	rec := NewRecorder(backend, store, nil)

	assert.Equal(t, "scripted", rec.Name())
	assert.True(t, rec.Accepts("image/png"))

	ctx := context.Background()
	_, err := rec.Invoke(ctx, &providers.InvokeRequest{Prompt: "a", PromptKey: "timetable.text"})
	require.NoError(t, err)
	_, err = rec.Invoke(ctx, &providers.InvokeRequest{Prompt: "b", PromptKey: "timetable.text"})
	assert.ErrorIs(t, err, timetable.ErrBackend)

	calls, err := store.List(ctx, QueryFilter{})
	require.NoError(t, err)
	require.Len(t, calls, 2)
	assert.True(t, calls[0].Success)
	assert.False(t, calls[1].Success)
	assert.Contains(t, calls[1].Error, "quota exceeded")
}

func TestRecorder_NilStore(t *testing.T) {
	rec := NewRecorder(providers.NewScriptedBackend("x"), nil, nil)
	res, err := rec.Invoke(context.Background(), &providers.InvokeRequest{Prompt: "a"})
	require.NoError(t, err)
	assert.Equal(t, "x", res.Text)
}
