// Package search issues one query to the extractor and normalizes the raw
// entries into display-ready search hits.
package search

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/imjhanC/Music-API-test/internal/stream"
	"github.com/imjhanC/Music-API-test/internal/ytdlp"
	"github.com/imjhanC/Music-API-test/pkg/models"
)

const (
	maxTitleLen    = 100
	maxUploaderLen = 50
)

// Config tunes a Searcher. Zero values fall back to production defaults.
type Config struct {
	FetchCount     int // raw entries requested from the extractor
	MaxResults     int // hits returned to the client
	MaxDurationSec int // entries longer than this are filtered out
	UserAgents     []string
	Rand           *rand.Rand
	MinInterval    time.Duration
}

// Searcher performs normalized music searches against the extractor.
type Searcher struct {
	client         ytdlp.Client
	fetchCount     int
	maxResults     int
	maxDurationSec int
	userAgents     []string
	rng            *rand.Rand
	rngMu          sync.Mutex
	limiter        *rate.Limiter
	log            zerolog.Logger
}

func NewSearcher(client ytdlp.Client, cfg Config, log zerolog.Logger) *Searcher {
	s := &Searcher{
		client:         client,
		fetchCount:     cfg.FetchCount,
		maxResults:     cfg.MaxResults,
		maxDurationSec: cfg.MaxDurationSec,
		userAgents:     cfg.UserAgents,
		rng:            cfg.Rand,
		log:            log.With().Str("component", "search").Logger(),
	}

	if s.fetchCount <= 0 {
		s.fetchCount = 12
	}
	if s.maxResults <= 0 {
		s.maxResults = 6
	}
	if s.maxDurationSec <= 0 {
		s.maxDurationSec = 600
	}
	if len(s.userAgents) == 0 {
		s.userAgents = []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		}
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.MinInterval > 0 {
		s.limiter = rate.NewLimiter(rate.Every(cfg.MinInterval), 1)
	} else {
		s.limiter = rate.NewLimiter(rate.Inf, 1)
	}

	return s
}

// Search returns up to MaxResults normalized hits for the query. Extraction
// failures degrade to an empty result list, never an error: a search that
// cannot be served is indistinguishable from a search with no matches.
func (s *Searcher) Search(ctx context.Context, query string) []models.SearchHit {
	hits := []models.SearchHit{}
	if query == "" {
		return hits
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return hits
	}

	target := fmt.Sprintf("ytsearch%d:%s", s.fetchCount, query)
	meta, err := s.client.Extract(ctx, target, ytdlp.Options{
		Format:        "best",
		UserAgent:     s.pickUserAgent(),
		FlatPlaylist:  true,
		IgnoreErrors:  true,
		GeoBypass:     true,
		SocketTimeout: 8 * time.Second,
		Retries:       1,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("query", query).Msg("search extraction failed, returning empty results")
		return hits
	}

	seen := make(map[string]struct{}, len(meta.Entries))
	for _, entry := range meta.Entries {
		if entry.ID == "" {
			continue
		}
		if _, dup := seen[entry.ID]; dup {
			continue
		}
		seen[entry.ID] = struct{}{}

		title := strings.TrimSpace(entry.Title)
		if title == "" {
			title = "No Title"
		}
		uploader := strings.TrimSpace(entry.Uploader)
		if uploader == "" {
			uploader = "Unknown"
		}

		// Title matching the uploader name is a filler-content heuristic
		// (channel trailers, topic pages).
		if strings.EqualFold(title, uploader) {
			continue
		}

		duration := int(entry.Duration)
		if duration <= 0 || duration > s.maxDurationSec {
			continue
		}

		hits = append(hits, models.SearchHit{
			Title:        truncate(title, maxTitleLen),
			ThumbnailURL: stream.ThumbnailURL(entry.ID),
			VideoID:      entry.ID,
			Uploader:     truncate(uploader, maxUploaderLen),
			Duration:     FormatDuration(duration),
			ViewCount:    FormatViews(entry.ViewCount),
			URL:          stream.WatchURL(entry.ID),
		})

		if len(hits) >= s.maxResults {
			break
		}
	}

	s.log.Debug().Str("query", query).Int("raw", len(meta.Entries)).Int("hits", len(hits)).Msg("search normalized")
	return hits
}

func (s *Searcher) pickUserAgent() string {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.userAgents[s.rng.Intn(len(s.userAgents))]
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
