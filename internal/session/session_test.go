package session

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"resumaker/internal/config"
	"resumaker/internal/errors"
	"resumaker/internal/resume"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	calls  int32
	resume string
	err    error
	gate   chan struct{}
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.gate != nil {
		<-f.gate
	}
	return f.resume, f.err
}

const sample = "**Summary**\nBuilder of things\n**Skills**\n• Go\n• Rust"

func TestSubmitSuccess(t *testing.T) {
	st := NewState()
	st.SetPrompt("backend engineer")
	st.SelectSection("Skills")

	gen := &fakeGenerator{resume: sample}
	require.NoError(t, st.Submit(context.Background(), gen))

	snap := st.Snapshot()
	assert.True(t, snap.HasResult)
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Error)
	assert.Equal(t, resume.AllSections, snap.ActiveSection)
	assert.Equal(t, []string{"All", "Summary", "Skills"}, snap.Sections)
	assert.Equal(t, []string{"• Go", "• Rust"}, st.Result().Sections.Lines("Skills"))
}

func TestSubmitEmptyPrompt(t *testing.T) {
	st := NewState()
	gen := &fakeGenerator{resume: sample}
	st.SetPrompt("ok")
	require.NoError(t, st.Submit(context.Background(), gen))

	st.SetPrompt("   ")
	err := st.Submit(context.Background(), gen)

	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	assert.Equal(t, "Please enter a prompt to generate a resume.", st.Err())
	assert.Equal(t, int32(1), atomic.LoadInt32(&gen.calls))
	assert.NotNil(t, st.Result(), "validation failure keeps the previous result")
	assert.False(t, st.Loading())
}

func TestSubmitFailureClearsResult(t *testing.T) {
	st := NewState()
	st.SetPrompt("designer")
	require.NoError(t, st.Submit(context.Background(), &fakeGenerator{resume: sample}))

	failing := &fakeGenerator{err: errors.NewNetworkError(errors.ErrCodeBackendUnavail, errors.MsgBackendUnreachable, nil)}
	require.Error(t, st.Submit(context.Background(), failing))

	assert.Nil(t, st.Result())
	assert.False(t, st.Loading())
	assert.Equal(t, "Unable to connect to the server. Please check if the backend is running.", st.Err())
}

func TestSubmitBackendDetail(t *testing.T) {
	st := NewState()
	st.SetPrompt("designer")
	gen := &fakeGenerator{err: errors.NewBackendError(errors.ErrCodeBackendRejected, "quota exceeded", nil)}

	require.Error(t, st.Submit(context.Background(), gen))
	assert.Equal(t, "quota exceeded", st.Err())

	// next attempt clears the error
	gen.err = nil
	gen.resume = sample
	require.NoError(t, st.Submit(context.Background(), gen))
	assert.Empty(t, st.Err())
}

func TestSubmitWhileLoadingIsRejected(t *testing.T) {
	st := NewState()
	st.SetPrompt("pilot")
	gen := &fakeGenerator{resume: sample, gate: make(chan struct{})}

	done := make(chan error, 1)
	go func() { done <- st.Submit(context.Background(), gen) }()

	require.Eventually(t, st.Loading, time.Second, 5*time.Millisecond)

	err := st.Submit(context.Background(), gen)
	assert.Equal(t, errors.MsgGenerationBusy, errors.UserMessage(err))
	assert.True(t, st.Loading())

	close(gen.gate)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), atomic.LoadInt32(&gen.calls))
	assert.False(t, st.Loading())
}

func TestSubmitSurvivesCancelledContext(t *testing.T) {
	st := NewState()
	st.SetPrompt("chef")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var seen error
	gen := generatorFunc(func(ctx context.Context, prompt string) (string, error) {
		seen = ctx.Err()
		return sample, nil
	})
	require.NoError(t, st.Submit(ctx, gen))
	assert.NoError(t, seen)
	assert.NotNil(t, st.Result())
}

type generatorFunc func(ctx context.Context, prompt string) (string, error)

func (f generatorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func TestSelectSection(t *testing.T) {
	st := NewState()
	assert.Equal(t, resume.AllSections, st.SelectSection("Skills"), "no result yet")

	st.SetPrompt("x")
	require.NoError(t, st.Submit(context.Background(), &fakeGenerator{resume: sample}))

	st.ToggleSidebar()
	assert.Equal(t, "Skills", st.SelectSection("Skills"))
	assert.False(t, st.Snapshot().SidebarOpen)

	assert.Equal(t, resume.AllSections, st.SelectSection("Hobbies"))
	assert.Equal(t, resume.AllSections, st.ActiveSection())
}

func TestToggles(t *testing.T) {
	st := NewState()
	assert.True(t, st.ToggleTheme())
	assert.False(t, st.ToggleTheme())
	assert.True(t, st.ToggleSidebar())
	assert.False(t, st.ToggleSidebar())
}

func TestStoreGetOrCreate(t *testing.T) {
	store := NewStore(config.SessionConfig{TTL: time.Hour, CleanupInterval: time.Hour}, nil)
	defer store.Close()

	id, st, created := store.GetOrCreate("")
	assert.True(t, created)
	assert.NotEmpty(t, id)

	again, st2, created := store.GetOrCreate(id)
	assert.False(t, created)
	assert.Equal(t, id, again)
	assert.Same(t, st, st2)

	other, _, created := store.GetOrCreate("unknown")
	assert.True(t, created)
	assert.NotEqual(t, "unknown", other)
	assert.Equal(t, 2, store.Len())

	_, ok := store.Get("unknown")
	assert.False(t, ok)
}

func TestStoreCleanup(t *testing.T) {
	store := NewStore(config.SessionConfig{TTL: time.Minute, CleanupInterval: time.Hour},
		errors.NewLogger(slog.LevelDebug))
	defer store.Close()

	now := time.Now()
	store.now = func() time.Time { return now }

	idle, _, _ := store.GetOrCreate("")
	busyID, busy, _ := store.GetOrCreate("")
	busy.loading = true
	freshID, _, _ := store.GetOrCreate("")

	now = now.Add(2 * time.Minute)
	_, ok := store.Get(freshID)
	require.True(t, ok)

	assert.Equal(t, 1, store.cleanup())
	_, ok = store.Get(idle)
	assert.False(t, ok)
	_, ok = store.Get(busyID)
	assert.True(t, ok)
	assert.Equal(t, 2, store.Len())

	store.Close()
	store.Close()
}
