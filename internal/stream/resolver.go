package stream

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/imjhanC/Music-API-test/internal/ytdlp"
	"github.com/imjhanC/Music-API-test/pkg/models"
)

// Config tunes a Resolver. Zero values fall back to production defaults; the
// injectable Rand and Wait hooks keep strategy choice and backoff
// reproducible in tests.
type Config struct {
	AudioStrategies []Strategy
	VideoStrategies []Strategy
	UserAgents      []string
	Rand            *rand.Rand
	Wait            func(ctx context.Context, d time.Duration) error
	JitterMin       time.Duration
	JitterMax       time.Duration
	BackoffBase     time.Duration
	Timeout         time.Duration
	MinInterval     time.Duration // spacing between upstream extraction calls
}

// Resolver turns a video ID into a playable stream URL by trying an ordered
// sequence of extraction strategies until one succeeds.
type Resolver struct {
	client      ytdlp.Client
	audio       []Strategy
	video       []Strategy
	userAgents  []string
	rng         *rand.Rand
	rngMu       sync.Mutex
	wait        func(ctx context.Context, d time.Duration) error
	limiter     *rate.Limiter
	jitterMin   time.Duration
	jitterMax   time.Duration
	backoffBase time.Duration
	timeout     time.Duration
	log         zerolog.Logger
}

func NewResolver(client ytdlp.Client, cfg Config, log zerolog.Logger) *Resolver {
	r := &Resolver{
		client:      client,
		audio:       cfg.AudioStrategies,
		video:       cfg.VideoStrategies,
		userAgents:  cfg.UserAgents,
		rng:         cfg.Rand,
		wait:        cfg.Wait,
		jitterMin:   cfg.JitterMin,
		jitterMax:   cfg.JitterMax,
		backoffBase: cfg.BackoffBase,
		timeout:     cfg.Timeout,
		log:         log.With().Str("component", "resolver").Logger(),
	}

	if r.audio == nil {
		r.audio = defaultAudioStrategies()
	}
	if r.video == nil {
		r.video = defaultVideoStrategies()
	}
	if len(r.userAgents) == 0 {
		r.userAgents = defaultUserAgents()
	}
	if r.rng == nil {
		r.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if r.wait == nil {
		r.wait = sleepWait
	}
	if r.jitterMax <= r.jitterMin {
		r.jitterMin = 200 * time.Millisecond
		r.jitterMax = 600 * time.Millisecond
	}
	if r.backoffBase <= 0 {
		r.backoffBase = 2 * time.Second
	}
	if r.timeout <= 0 {
		r.timeout = 90 * time.Second
	}
	if cfg.MinInterval > 0 {
		r.limiter = rate.NewLimiter(rate.Every(cfg.MinInterval), 1)
	} else {
		r.limiter = rate.NewLimiter(rate.Inf, 1)
	}

	return r
}

// ResolveAudio tries each audio strategy in order and returns the first
// usable stream URL.
func (r *Resolver) ResolveAudio(ctx context.Context, videoID string) (*models.StreamResult, error) {
	var result *models.StreamResult
	err := r.run(ctx, videoID, r.audio, func(meta *ytdlp.Metadata) error {
		streamURL := pickAudioURL(meta)
		if streamURL == "" {
			return ErrNoUsableStream
		}
		result = &models.StreamResult{
			StreamURL:    streamURL,
			Title:        titleOrDefault(meta.Title),
			Duration:     int(meta.Duration),
			ThumbnailURL: ThumbnailURL(videoID),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ResolveVideo tries each video strategy in order, preferring separate
// video/audio streams when the extractor delivers them.
func (r *Resolver) ResolveVideo(ctx context.Context, videoID string) (*models.VideoStreamResult, error) {
	var result *models.VideoStreamResult
	err := r.run(ctx, videoID, r.video, func(meta *ytdlp.Metadata) error {
		res := pickVideoStreams(meta)
		if res == nil {
			return ErrNoUsableStream
		}
		res.Title = titleOrDefault(meta.Title)
		res.Duration = int(meta.Duration)
		res.ThumbnailURL = videoThumbnailURL(videoID)
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListFormats returns the audio-capable formats of a video for diagnosis.
func (r *Resolver) ListFormats(ctx context.Context, videoID string) (*models.FormatListing, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	meta, err := r.client.Extract(ctx, WatchURL(videoID), ytdlp.Options{
		UserAgent:     r.pickUserAgent(),
		GeoBypass:     true,
		SocketTimeout: 20 * time.Second,
	})
	if err != nil {
		if ce := classifyContent(videoID, err); ce != nil {
			return nil, ce
		}
		return nil, err
	}

	listing := &models.FormatListing{
		VideoID:      videoID,
		Title:        meta.Title,
		AudioFormats: []models.FormatInfo{},
		TotalFormats: len(meta.Formats),
	}
	for _, f := range meta.Formats {
		if f.Acodec == "" || f.Acodec == "none" {
			continue
		}
		listing.AudioFormats = append(listing.AudioFormats, models.FormatInfo{
			FormatID: f.FormatID,
			Ext:      f.Ext,
			Acodec:   f.Acodec,
			Vcodec:   f.Vcodec,
			ABR:      f.ABR,
			Protocol: f.Protocol,
		})
	}
	return listing, nil
}

// run drives the shared strategy loop: jittered pre-attempt delay, one
// extraction per strategy, terminal short-circuit, escalating backoff after
// bot-detection failures, exhaustion after the final strategy.
func (r *Resolver) run(ctx context.Context, videoID string, strategies []Strategy, accept func(*ytdlp.Metadata) error) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	userAgent := r.pickUserAgent()
	var lastErr error

	for i, st := range strategies {
		if err := r.wait(ctx, r.jitter()); err != nil {
			return r.timeoutError(videoID, i, err)
		}
		if err := r.limiter.Wait(ctx); err != nil {
			return r.timeoutError(videoID, i, err)
		}

		log := r.log.With().Str("video_id", videoID).Int("strategy", i).Str("name", st.Name).Logger()
		log.Debug().Msg("extraction attempt")

		meta, err := r.client.Extract(ctx, WatchURL(videoID), st.options(userAgent))
		if err == nil {
			if acceptErr := accept(meta); acceptErr == nil {
				log.Info().Msg("extraction succeeded")
				return nil
			}
			log.Warn().Msg("metadata contained no usable stream URL")
			lastErr = ErrNoUsableStream
			continue
		}
		lastErr = err

		if ce := classifyContent(videoID, err); ce != nil {
			log.Warn().Str("classification", ce.Kind.String()).Msg("terminal content error")
			return ce
		}

		if isBotDetection(err) {
			log.Warn().Err(err).Msg("bot detection suspected")
			if i < len(strategies)-1 {
				backoff := r.backoffBase * time.Duration(i+1)
				if waitErr := r.wait(ctx, backoff); waitErr != nil {
					return r.timeoutError(videoID, i, waitErr)
				}
			}
			continue
		}

		log.Warn().Err(err).Msg("transient extraction failure")
	}

	return &ExhaustedError{VideoID: videoID, Attempts: len(strategies), LastErr: lastErr}
}

// timeoutError folds the total-operation deadline into the exhaustion
// category; upstream slowness is not an internal bug.
func (r *Resolver) timeoutError(videoID string, attempts int, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ExhaustedError{VideoID: videoID, Attempts: attempts, LastErr: err}
	}
	return err
}

func (r *Resolver) pickUserAgent() string {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	return r.userAgents[r.rng.Intn(len(r.userAgents))]
}

func (r *Resolver) jitter() time.Duration {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	return r.jitterMin + time.Duration(r.rng.Int63n(int64(r.jitterMax-r.jitterMin)))
}

func sleepWait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// pickAudioURL returns a direct audio URL from the metadata, scanning the
// formats list when the top-level URL is missing or points at a manifest.
func pickAudioURL(meta *ytdlp.Metadata) string {
	if meta == nil {
		return ""
	}
	if meta.URL != "" && !isManifestURL(meta.URL) {
		return meta.URL
	}

	var candidates []ytdlp.Format
	for _, f := range meta.Formats {
		if f.Acodec == "" || f.Acodec == "none" || f.URL == "" {
			continue
		}
		if isManifestURL(f.URL) || isManifestProtocol(f.Protocol) {
			continue
		}
		candidates = append(candidates, f)
	}

	// Highest bitrate first, audio-only preferred on ties.
	sort.SliceStable(candidates, func(i, j int) bool {
		bi, bj := bitrate(candidates[i]), bitrate(candidates[j])
		if bi != bj {
			return bi > bj
		}
		return candidates[i].Vcodec == "none" && candidates[j].Vcodec != "none"
	})

	if len(candidates) == 0 {
		return ""
	}
	return candidates[0].URL
}

// pickVideoStreams extracts the best video (and optionally separate audio)
// URLs from the metadata, with a manual formats scan as last resort.
func pickVideoStreams(meta *ytdlp.Metadata) *models.VideoStreamResult {
	if meta == nil {
		return nil
	}

	// Separate streams requested by the format selector.
	if len(meta.RequestedFormats) > 0 {
		var videoURL, audioURL, quality string
		for _, f := range meta.RequestedFormats {
			switch {
			case f.Vcodec != "none" && f.Acodec == "none":
				videoURL = f.URL
				quality = qualityLabel(f.Height, f.FormatNote)
			case f.Acodec != "none" && f.Vcodec == "none":
				audioURL = f.URL
			}
		}
		if videoURL != "" {
			return &models.VideoStreamResult{VideoURL: videoURL, AudioURL: audioURL, Quality: quality}
		}
	}

	// Single combined stream.
	if meta.URL != "" && !isManifestURL(meta.URL) {
		return &models.VideoStreamResult{
			VideoURL: meta.URL,
			Quality:  qualityLabel(meta.Height, meta.FormatNote),
		}
	}

	// Manual scan of the formats list.
	var bestVideo, bestAudio *ytdlp.Format
	for i := range meta.Formats {
		f := &meta.Formats[i]
		if f.URL == "" {
			continue
		}
		switch {
		case f.Vcodec != "none" && f.Acodec == "none":
			if bestVideo == nil || f.Height > bestVideo.Height {
				bestVideo = f
			}
		case f.Acodec != "none" && f.Vcodec == "none":
			if bestAudio == nil || f.ABR > bestAudio.ABR {
				bestAudio = f
			}
		}
	}
	if bestVideo == nil {
		return nil
	}
	res := &models.VideoStreamResult{
		VideoURL: bestVideo.URL,
		Quality:  qualityLabel(bestVideo.Height, bestVideo.FormatNote),
	}
	if bestAudio != nil {
		res.AudioURL = bestAudio.URL
	}
	return res
}

func bitrate(f ytdlp.Format) float64 {
	if f.ABR > 0 {
		return f.ABR
	}
	return f.TBR
}

func qualityLabel(height int, note string) string {
	if height > 0 {
		return fmt.Sprintf("%dp", height)
	}
	if note != "" {
		return note
	}
	return "Unknown"
}

func isManifestURL(u string) bool {
	lower := strings.ToLower(u)
	return strings.Contains(lower, "m3u8") ||
		strings.Contains(lower, "manifest") ||
		strings.Contains(lower, "playlist")
}

func isManifestProtocol(p string) bool {
	switch p {
	case "m3u8", "m3u8_native", "hls":
		return true
	}
	return false
}

func titleOrDefault(title string) string {
	if title == "" {
		return "Unknown Title"
	}
	return title
}

// WatchURL returns the canonical watch URL for a video ID.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// ThumbnailURL derives the medium-quality thumbnail for a video ID.
func ThumbnailURL(videoID string) string {
	return "https://img.youtube.com/vi/" + videoID + "/mqdefault.jpg"
}

func videoThumbnailURL(videoID string) string {
	return "https://img.youtube.com/vi/" + videoID + "/maxresdefault.jpg"
}
