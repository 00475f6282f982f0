package progress

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/mediagrab-go/internal/domain"
)

func newTestProjector(transitions *[]State) *Projector {
	return New(
		WithRand(rand.New(rand.NewSource(1))),
		OnTransition(func(from, to State) { *transitions = append(*transitions, to) }),
	)
}

func TestSubmit_Unauthenticated(t *testing.T) {
	var seen []State
	p := newTestProjector(&seen)

	err := p.Submit(false, "https://youtube.com/watch?v=abc")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, StateAuthRequired, p.State())
	assert.Equal(t, []State{StateAuthRequired}, seen)
}

func TestSubmit_LocalCheckFails(t *testing.T) {
	var seen []State
	p := newTestProjector(&seen)

	err := p.Submit(true, "https://example.com/x")
	assert.ErrorIs(t, err, domain.ErrInvalidURL)
	assert.Equal(t, StateError, p.State())
	assert.Equal(t, []State{StateValidating, StateError}, seen)
}

func TestSubmit_StartsDownloading(t *testing.T) {
	var seen []State
	p := newTestProjector(&seen)

	require.NoError(t, p.Submit(true, "https://www.instagram.com/p/Cabc/"))
	assert.Equal(t, StateDownloading, p.State())
	assert.Equal(t, 0, p.Percent())
	assert.Equal(t, []State{StateValidating, StateDownloading}, seen)

	assert.ErrorIs(t, p.Submit(true, "https://youtu.be/abc"), ErrInvalidTransition)
}

func TestTick_NeverReaches100(t *testing.T) {
	var seen []State
	p := newTestProjector(&seen)
	require.NoError(t, p.Submit(true, "https://youtu.be/abc"))

	last := 0
	for i := 0; i < 500; i++ {
		p.Tick()
		assert.GreaterOrEqual(t, p.Percent(), last, "progress is monotonic")
		last = p.Percent()
	}
	assert.Equal(t, int(DefaultCeiling), p.Percent())
}

func TestTick_IgnoredOutsideDownloading(t *testing.T) {
	p := New()
	p.Tick()
	assert.Equal(t, 0, p.Percent())
}

func TestCeiling_ClampedBelow100(t *testing.T) {
	p := New(WithCeiling(150), WithMaxStep(1000))
	require.NoError(t, p.Submit(true, "https://youtu.be/abc"))
	for i := 0; i < 10; i++ {
		p.Tick()
	}
	assert.Less(t, p.Percent(), 100)
}

func TestObserve_Completed(t *testing.T) {
	var seen []State
	p := newTestProjector(&seen)
	require.NoError(t, p.Submit(true, "https://youtu.be/abc"))
	p.Tick()

	require.NoError(t, p.Observe(&domain.DownloadJob{Status: domain.StatusPending}))
	assert.Equal(t, StateDownloading, p.State())

	name := "youtube_audio_320kbps.mp3"
	size := int64(8000000)
	done := &domain.DownloadJob{Status: domain.StatusCompleted, Filename: &name, FileSizeBytes: &size}
	require.NoError(t, p.Observe(done))

	assert.Equal(t, StateSuccess, p.State())
	assert.Equal(t, 100, p.Percent())
	assert.Same(t, done, p.Job())
}

func TestObserve_Failed(t *testing.T) {
	var seen []State
	p := newTestProjector(&seen)
	require.NoError(t, p.Submit(true, "https://youtu.be/abc"))

	msg := "retrieval failed: video removed"
	require.NoError(t, p.Observe(&domain.DownloadJob{Status: domain.StatusFailed, ErrorMessage: &msg}))

	assert.Equal(t, StateError, p.State())
	assert.EqualError(t, p.Err(), msg)
	assert.Less(t, p.Percent(), 100)
}

func TestObserve_NilJobIsRejected(t *testing.T) {
	var seen []State
	p := newTestProjector(&seen)
	require.NoError(t, p.Submit(true, "https://youtu.be/abc"))
	p.Tick()
	before := p.Percent()

	assert.ErrorIs(t, p.Observe(nil), ErrInvalidTransition)
	assert.Equal(t, StateDownloading, p.State())
	assert.Equal(t, before, p.Percent())
}

func TestFail_RequestError(t *testing.T) {
	var seen []State
	p := newTestProjector(&seen)
	require.NoError(t, p.Submit(true, "https://youtu.be/abc"))

	forbidden := &domain.ForbiddenError{Reason: domain.ReasonRequiresProPlan}
	require.NoError(t, p.Fail(forbidden))

	assert.Equal(t, StateError, p.State())
	assert.True(t, errors.Is(p.Err(), forbidden))
	assert.ErrorIs(t, p.Fail(forbidden), ErrInvalidTransition)
}

func TestReset_ClearsEverything(t *testing.T) {
	var seen []State
	p := newTestProjector(&seen)
	require.NoError(t, p.Submit(true, "https://youtu.be/abc"))
	p.Tick()
	require.NoError(t, p.Fail(domain.ErrUnauthorized))

	p.Reset()

	assert.Equal(t, StateIdle, p.State())
	assert.Zero(t, p.Percent())
	assert.Nil(t, p.Err())
	assert.Nil(t, p.Job())

	require.NoError(t, p.Submit(true, "https://youtu.be/abc"))
}
