package stream

import (
	"time"

	"github.com/imjhanC/Music-API-test/internal/ytdlp"
)

// Strategy is one named extraction attempt profile: a format preference, a
// simulated client identity and protocol hints for the extractor.
type Strategy struct {
	Name          string
	Format        string
	PlayerClient  string
	SkipManifests bool
	SocketTimeout time.Duration
	Retries       int
}

func (s Strategy) options(userAgent string) ytdlp.Options {
	return ytdlp.Options{
		Format:        s.Format,
		UserAgent:     userAgent,
		PlayerClient:  s.PlayerClient,
		SkipManifests: s.SkipManifests,
		GeoBypass:     true,
		SocketTimeout: s.SocketTimeout,
		Retries:       s.Retries,
	}
}

// defaultAudioStrategies is the ordered attempt sequence for audio streams:
// a mobile profile preferring m4a, a desktop profile taking the best audio,
// and a last-resort profile accepting any format with an audio track.
func defaultAudioStrategies() []Strategy {
	return []Strategy{
		{
			Name:          "mobile-m4a",
			Format:        "bestaudio[acodec^=mp4a]/bestaudio[ext=m4a]/bestaudio[acodec^=aac]/bestaudio",
			PlayerClient:  "ios",
			SkipManifests: true,
			SocketTimeout: 25 * time.Second,
			Retries:       4,
		},
		{
			Name:          "web-bestaudio",
			Format:        "bestaudio[abr>0]/bestaudio/best",
			PlayerClient:  "web",
			SkipManifests: true,
			SocketTimeout: 15 * time.Second,
			Retries:       2,
		},
		{
			Name:          "android-fallback",
			Format:        "worst[acodec!=none]/bestaudio/best",
			PlayerClient:  "android",
			SocketTimeout: 20 * time.Second,
			Retries:       3,
		},
	}
}

// defaultVideoStrategies is the attempt sequence for combined video+audio
// resolution, quality-descending.
func defaultVideoStrategies() []Strategy {
	return []Strategy{
		{
			Name: "web-hq-mp4",
			Format: "bestvideo[height>=2160][ext=mp4]+bestaudio[ext=m4a]/" +
				"bestvideo[height>=1080][ext=mp4]+bestaudio[ext=m4a]/" +
				"bestvideo[height>=720][ext=mp4]+bestaudio[ext=m4a]/" +
				"best[ext=mp4]/bestvideo+bestaudio/best",
			PlayerClient:  "web",
			SocketTimeout: 30 * time.Second,
			Retries:       2,
		},
		{
			Name:          "android-mp4",
			Format:        "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best",
			PlayerClient:  "android",
			SocketTimeout: 20 * time.Second,
			Retries:       2,
		},
	}
}

// defaultUserAgents are real browser identities, one of which is picked at
// random per resolution.
func defaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Linux; Android 13; SM-G991B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36",
	}
}
