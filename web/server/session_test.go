package server

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/df07/go-progressive-pathtracer/pkg/config"
	"github.com/df07/go-progressive-pathtracer/pkg/renderer"
)

// testSettings renders 9x7 pixels stretched to 18x14
func testSettings() *config.Settings {
	settings := config.Default()
	settings.Resolution.Width = 18
	settings.Resolution.Height = 14
	settings.Resolution.Scale = 2
	settings.Bounces = 2
	settings.Seed = 1
	settings.SliceBudget = time.Second
	return settings
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	session, err := NewSession(testSettings(), nil)
	require.NoError(t, err)
	return session
}

func TestNewSession_RejectsInvalidSettings(t *testing.T) {
	settings := testSettings()
	settings.Bounces = 0
	_, err := NewSession(settings, nil)
	assert.ErrorIs(t, err, config.ErrInvalidSettings)
}

func TestSession_StepCompletesPasses(t *testing.T) {
	session := newTestSession(t)

	require.Equal(t, renderer.PassComplete, session.Step())
	require.Equal(t, renderer.PassComplete, session.Step())

	stats := session.Stats()
	assert.Equal(t, 2, stats.Samples)
	assert.Equal(t, 9, stats.Width)
	assert.Equal(t, 7, stats.Height)
}

func TestSession_UpdateSettingsResets(t *testing.T) {
	session := newTestSession(t)
	session.Step()
	before := session.Stats()
	require.Equal(t, 1, before.Samples)

	next := session.Settings()
	next.Model = "torus"
	next.Resolution.Scale = 1
	require.NoError(t, session.UpdateSettings(next))

	after := session.Stats()
	assert.Equal(t, 0, after.Samples)
	assert.NotEqual(t, before.Generation, after.Generation)
	assert.Equal(t, 18, after.Width)
	assert.Equal(t, 14, after.Height)
	assert.Equal(t, "torus", session.Settings().Model)
}

func TestSession_UpdateSettingsResetsOnce(t *testing.T) {
	observed, logs := observer.New(zap.InfoLevel)
	session, err := NewSession(testSettings(), zap.New(observed))
	require.NoError(t, err)
	session.Step()

	resets := logs.FilterMessage("render reset").Len()
	next := session.Settings()
	next.Model = "torus"
	next.Resolution.Scale = 1
	next.Antialiasing = !next.Antialiasing
	next.Camera.FOV = 30
	require.NoError(t, session.UpdateSettings(next))
	assert.Equal(t, resets+1, logs.FilterMessage("render reset").Len())

	next = session.Settings()
	next.Pause = true
	require.NoError(t, session.UpdateSettings(next))
	assert.Equal(t, resets+2, logs.FilterMessage("render reset").Len())
}

func TestSession_UpdateSettingsRejected(t *testing.T) {
	session := newTestSession(t)
	session.Step()

	invalid := session.Settings()
	invalid.Environment.SkyMode = "aurora"
	assert.ErrorIs(t, session.UpdateSettings(invalid), config.ErrInvalidSettings)

	missing := session.Settings()
	missing.Model = "does-not-exist.ply"
	assert.Error(t, session.UpdateSettings(missing))

	// the render in progress is untouched
	assert.Equal(t, 1, session.Stats().Samples)
	assert.Equal(t, "sphere", session.Settings().Model)
	assert.Equal(t, renderer.PassComplete, session.Step())
}

func TestSession_Pause(t *testing.T) {
	session := newTestSession(t)

	next := session.Settings()
	next.Pause = true
	require.NoError(t, session.UpdateSettings(next))

	assert.Equal(t, renderer.Suspended, session.Step())
	stats := session.Stats()
	assert.True(t, stats.Paused)
	assert.Equal(t, 0, stats.Samples)
}

func TestSession_SettingsIsACopy(t *testing.T) {
	session := newTestSession(t)
	settings := session.Settings()
	settings.Model = "cubes"
	assert.Equal(t, "sphere", session.Settings().Model)
}

func TestSession_FrameIsOutputSize(t *testing.T) {
	session := newTestSession(t)
	session.Step()

	img := session.Frame()
	assert.Equal(t, 18, img.Bounds().Dx())
	assert.Equal(t, 14, img.Bounds().Dy())

	next := session.Settings()
	next.Resolution.Stretch = false
	require.NoError(t, session.UpdateSettings(next))
	img = session.Frame()
	assert.Equal(t, 9, img.Bounds().Dx())
	assert.Equal(t, 7, img.Bounds().Dy())
}

func TestSession_SnapshotMatchesStats(t *testing.T) {
	session := newTestSession(t)
	session.Step()
	session.Step()

	img, stats := session.Snapshot()
	assert.Equal(t, 2, stats.Samples)
	assert.Equal(t, session.Stats().Generation, stats.Generation)
	assert.Equal(t, 18, img.Bounds().Dx())
	assert.Equal(t, 14, img.Bounds().Dy())

	session.Reset()
	img, stats = session.Snapshot()
	assert.Equal(t, 0, stats.Samples)
	assert.Equal(t, session.Stats().Generation, stats.Generation)
	r, g, b, _ := img.At(9, 7).RGBA()
	assert.Zero(t, r+g+b, "a reset image is black")
}

func TestSession_InspectCenterHitsModel(t *testing.T) {
	session := newTestSession(t)

	response, err := session.Inspect(9, 7)
	require.NoError(t, err)
	assert.Equal(t, [2]int{4, 3}, response.RenderPixel)
	require.True(t, response.Hit)
	assert.Equal(t, "sphere", response.Object)
	assert.False(t, response.Light)
	assert.True(t, response.FrontFace)
	assert.InDelta(t, 2.84, response.Distance, 0.05)

	require.NotNil(t, response.Material)
	assert.Equal(t, "#0099ff", response.Material.Color)
	assert.InDelta(t, 0.01, response.Material.Roughness, 1e-12)
	assert.Equal(t, 1.8, response.Material.IOR)
}

func TestSession_InspectSkyAndBounds(t *testing.T) {
	session := newTestSession(t)

	response, err := session.Inspect(0, 0)
	require.NoError(t, err)
	assert.False(t, response.Hit)
	assert.Nil(t, response.Material)
	assert.Equal(t, "sky", response.Environment)

	_, err = session.Inspect(18, 0)
	assert.ErrorIs(t, err, ErrOutOfBounds)
	_, err = session.Inspect(0, -1)
	assert.ErrorIs(t, err, ErrOutOfBounds)
}

func TestSession_Run(t *testing.T) {
	session := newTestSession(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		session.Run(ctx, time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return session.Stats().Samples >= 2
	}, 5*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("render loop did not stop")
	}
}
