package stream

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imjhanC/Music-API-test/internal/ytdlp"
)

// scriptedClient returns one scripted outcome per call, in order, and
// records every invocation.
type scriptedClient struct {
	outcomes []outcome
	calls    []ytdlp.Options
	targets  []string
}

type outcome struct {
	meta *ytdlp.Metadata
	err  error
}

func (c *scriptedClient) Extract(ctx context.Context, target string, opts ytdlp.Options) (*ytdlp.Metadata, error) {
	c.targets = append(c.targets, target)
	c.calls = append(c.calls, opts)
	i := len(c.calls) - 1
	if i >= len(c.outcomes) {
		return nil, errors.New("unexpected extra call")
	}
	return c.outcomes[i].meta, c.outcomes[i].err
}

// newTestResolver builds a resolver with seeded randomness and a recording,
// non-sleeping waiter.
func newTestResolver(client ytdlp.Client, waits *[]time.Duration) *Resolver {
	return NewResolver(client, Config{
		Rand: rand.New(rand.NewSource(42)),
		Wait: func(ctx context.Context, d time.Duration) error {
			if waits != nil {
				*waits = append(*waits, d)
			}
			return ctx.Err()
		},
		BackoffBase: 2 * time.Second,
	}, zerolog.Nop())
}

func TestResolveAudioFirstStrategyWins(t *testing.T) {
	client := &scriptedClient{outcomes: []outcome{
		{meta: &ytdlp.Metadata{URL: "https://cdn.example/audio.m4a", Title: "A Song", Duration: 212}},
	}}

	r := newTestResolver(client, nil)
	result, err := r.ResolveAudio(context.Background(), "validId")

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/audio.m4a", result.StreamURL)
	assert.Equal(t, "A Song", result.Title)
	assert.Equal(t, 212, result.Duration)
	assert.Equal(t, "https://img.youtube.com/vi/validId/mqdefault.jpg", result.ThumbnailURL)

	// First success wins: later strategies must not run.
	assert.Len(t, client.calls, 1)
	assert.Equal(t, "https://www.youtube.com/watch?v=validId", client.targets[0])
}

func TestResolveAudioStrategyOrder(t *testing.T) {
	client := &scriptedClient{outcomes: []outcome{
		{err: errors.New("connection reset")},
		{err: errors.New("connection reset")},
		{meta: &ytdlp.Metadata{URL: "https://cdn.example/fallback.webm"}},
	}}

	r := newTestResolver(client, nil)
	result, err := r.ResolveAudio(context.Background(), "vid")

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/fallback.webm", result.StreamURL)
	require.Len(t, client.calls, 3)

	// Formats follow the declared strategy order.
	defaults := defaultAudioStrategies()
	for i, st := range defaults {
		assert.Equal(t, st.Format, client.calls[i].Format, "strategy %d", i)
		assert.Equal(t, st.PlayerClient, client.calls[i].PlayerClient, "strategy %d", i)
	}

	// The same user agent is used across all attempts of one resolution.
	assert.Equal(t, client.calls[0].UserAgent, client.calls[1].UserAgent)
	assert.Equal(t, client.calls[1].UserAgent, client.calls[2].UserAgent)
}

func TestResolveAudioMissingTitleDefaults(t *testing.T) {
	client := &scriptedClient{outcomes: []outcome{
		{meta: &ytdlp.Metadata{URL: "https://cdn.example/a"}},
	}}

	r := newTestResolver(client, nil)
	result, err := r.ResolveAudio(context.Background(), "vid")

	require.NoError(t, err)
	assert.Equal(t, "Unknown Title", result.Title)
	assert.Equal(t, 0, result.Duration)
}

func TestResolveAudioExhaustion(t *testing.T) {
	client := &scriptedClient{outcomes: []outcome{
		{err: errors.New("sign in to confirm you are not a bot")},
		{err: errors.New("HTTP Error 429: Too Many Requests")},
		{err: errors.New("sign in to confirm you are not a bot")},
	}}

	var waits []time.Duration
	r := newTestResolver(client, &waits)
	_, err := r.ResolveAudio(context.Background(), "blockedId")

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, "blockedId", exhausted.VideoID)
	assert.Equal(t, 3, exhausted.Attempts)

	// All strategies were attempted before giving up.
	assert.Len(t, client.calls, 3)

	// Escalating backoff between bot-detected attempts: jitter, backoff×1,
	// jitter, backoff×2, jitter. No backoff after the final strategy.
	require.Len(t, waits, 5)
	assert.Equal(t, 2*time.Second, waits[1])
	assert.Equal(t, 4*time.Second, waits[3])
}

func TestResolveAudioNoBackoffOnTransientFailure(t *testing.T) {
	client := &scriptedClient{outcomes: []outcome{
		{err: errors.New("timed out")},
		{err: errors.New("timed out")},
		{err: errors.New("timed out")},
	}}

	var waits []time.Duration
	r := newTestResolver(client, &waits)
	_, err := r.ResolveAudio(context.Background(), "flaky")

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)

	// Only the three pre-attempt jitters, no escalation.
	assert.Len(t, waits, 3)
}

func TestResolveAudioTerminalClassification(t *testing.T) {
	tests := []struct {
		name     string
		errText  string
		wantKind ContentKind
	}{
		{"private video", "ERROR: private video, sign in if you have access", ContentPrivate},
		{"unavailable", "ERROR: video unavailable", ContentUnavailable},
		{"copyright", "blocked due to a copyright claim", ContentCopyright},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &scriptedClient{outcomes: []outcome{{err: errors.New(tt.errText)}}}

			r := newTestResolver(client, nil)
			_, err := r.ResolveAudio(context.Background(), "vid")

			var contentErr *ContentError
			require.ErrorAs(t, err, &contentErr)
			assert.Equal(t, tt.wantKind, contentErr.Kind)
			assert.Equal(t, "vid", contentErr.VideoID)

			// Terminal classification short-circuits the strategy loop.
			assert.Len(t, client.calls, 1)
		})
	}
}

func TestResolveAudioRejectsManifestURL(t *testing.T) {
	client := &scriptedClient{outcomes: []outcome{
		{meta: &ytdlp.Metadata{URL: "https://cdn.example/index.m3u8"}},
		{meta: &ytdlp.Metadata{
			URL: "https://cdn.example/master/manifest.mpd",
			Formats: []ytdlp.Format{
				{URL: "https://cdn.example/hls.m3u8", Acodec: "mp4a", ABR: 256},
				{URL: "https://cdn.example/low.m4a", Acodec: "mp4a", Vcodec: "none", ABR: 48},
				{URL: "https://cdn.example/video.mp4", Acodec: "mp4a", Vcodec: "avc1", TBR: 700},
				{URL: "https://cdn.example/high.m4a", Acodec: "mp4a", Vcodec: "none", ABR: 128},
				{URL: "https://cdn.example/novoice.mp4", Acodec: "none", Vcodec: "avc1", TBR: 900},
			},
		}},
	}}

	r := newTestResolver(client, nil)
	result, err := r.ResolveAudio(context.Background(), "vid")

	require.NoError(t, err)
	// Highest direct audio bitrate wins; manifests and audio-less formats
	// are never picked.
	assert.Equal(t, "https://cdn.example/video.mp4", result.StreamURL)
	assert.Len(t, client.calls, 2)
}

func TestResolveAudioPrefersAudioOnlyOnTie(t *testing.T) {
	client := &scriptedClient{outcomes: []outcome{
		{meta: &ytdlp.Metadata{
			Formats: []ytdlp.Format{
				{URL: "https://cdn.example/muxed.mp4", Acodec: "mp4a", Vcodec: "avc1", ABR: 128},
				{URL: "https://cdn.example/audio.m4a", Acodec: "mp4a", Vcodec: "none", ABR: 128},
			},
		}},
	}}

	r := newTestResolver(client, nil)
	result, err := r.ResolveAudio(context.Background(), "vid")

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/audio.m4a", result.StreamURL)
}

func TestResolveAudioDeterministicWithSeed(t *testing.T) {
	pick := func() string {
		client := &scriptedClient{outcomes: []outcome{
			{meta: &ytdlp.Metadata{URL: "https://cdn.example/a"}},
		}}
		r := newTestResolver(client, nil)
		_, err := r.ResolveAudio(context.Background(), "vid")
		require.NoError(t, err)
		return client.calls[0].UserAgent
	}

	assert.Equal(t, pick(), pick())
}

func TestResolveVideoCombinedStream(t *testing.T) {
	client := &scriptedClient{outcomes: []outcome{
		{meta: &ytdlp.Metadata{URL: "https://cdn.example/video.mp4", Title: "Clip", Duration: 100, Height: 1080}},
	}}

	r := newTestResolver(client, nil)
	result, err := r.ResolveVideo(context.Background(), "vid")

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/video.mp4", result.VideoURL)
	assert.Empty(t, result.AudioURL)
	assert.Equal(t, "1080p", result.Quality)
	assert.Equal(t, "https://img.youtube.com/vi/vid/maxresdefault.jpg", result.ThumbnailURL)
}

func TestResolveVideoSeparateStreams(t *testing.T) {
	client := &scriptedClient{outcomes: []outcome{
		{meta: &ytdlp.Metadata{
			Title: "Clip",
			RequestedFormats: []ytdlp.Format{
				{URL: "https://cdn.example/v.mp4", Vcodec: "avc1", Acodec: "none", Height: 2160},
				{URL: "https://cdn.example/a.m4a", Vcodec: "none", Acodec: "mp4a", ABR: 128},
			},
		}},
	}}

	r := newTestResolver(client, nil)
	result, err := r.ResolveVideo(context.Background(), "vid")

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/v.mp4", result.VideoURL)
	assert.Equal(t, "https://cdn.example/a.m4a", result.AudioURL)
	assert.Equal(t, "2160p", result.Quality)
}

func TestResolveVideoManualFormatScan(t *testing.T) {
	client := &scriptedClient{outcomes: []outcome{
		{meta: &ytdlp.Metadata{
			Formats: []ytdlp.Format{
				{URL: "https://cdn.example/480.mp4", Vcodec: "avc1", Acodec: "none", Height: 480},
				{URL: "https://cdn.example/1080.mp4", Vcodec: "avc1", Acodec: "none", Height: 1080},
				{URL: "https://cdn.example/a.m4a", Vcodec: "none", Acodec: "mp4a", ABR: 160},
			},
		}},
	}}

	r := newTestResolver(client, nil)
	result, err := r.ResolveVideo(context.Background(), "vid")

	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/1080.mp4", result.VideoURL)
	assert.Equal(t, "https://cdn.example/a.m4a", result.AudioURL)
	assert.Equal(t, "1080p", result.Quality)
}

func TestListFormats(t *testing.T) {
	client := &scriptedClient{outcomes: []outcome{
		{meta: &ytdlp.Metadata{
			Title: "Clip",
			Formats: []ytdlp.Format{
				{FormatID: "140", Ext: "m4a", Acodec: "mp4a", Vcodec: "none", ABR: 128, Protocol: "https"},
				{FormatID: "137", Ext: "mp4", Acodec: "none", Vcodec: "avc1"},
			},
		}},
	}}

	r := newTestResolver(client, nil)
	listing, err := r.ListFormats(context.Background(), "vid")

	require.NoError(t, err)
	assert.Equal(t, "vid", listing.VideoID)
	assert.Equal(t, 2, listing.TotalFormats)
	require.Len(t, listing.AudioFormats, 1)
	assert.Equal(t, "140", listing.AudioFormats[0].FormatID)
}

func TestIsBotDetection(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Sign in to confirm you're not a bot", true},
		{"HTTP Error 429", true},
		{"too many requests", true},
		{"connection reset by peer", false},
		{"", false},
	}

	for _, tt := range tests {
		var err error
		if tt.text != "" {
			err = errors.New(tt.text)
		}
		assert.Equal(t, tt.want, isBotDetection(err), "text=%q", tt.text)
	}
}
