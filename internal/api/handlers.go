package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/imjhanC/Music-API-test/internal/stream"
	"github.com/imjhanC/Music-API-test/pkg/models"
)

const minQueryLength = 2

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message":     "Music Streaming API is running!",
		"status":      "ok",
		"environment": s.cfg.Environment,
		"note":        "see /search, /stream/{videoId} and /health",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"service":   "music-streaming-api",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(query) < minQueryLength {
		writeError(w, http.StatusBadRequest, "Query must be at least 2 characters")
		return
	}

	// Identical in-flight searches are coalesced into one upstream call.
	v, err, _ := s.flight.Do("search:"+query, func() (interface{}, error) {
		var hits []models.SearchHit
		runErr := s.pool.Run(r.Context(), "search", func() {
			hits = s.searcher.Search(r.Context(), query)
		})
		return hits, runErr
	})
	if err != nil {
		s.log.Error().Err(err).Str("query", query).Msg("search failed")
		writeError(w, http.StatusInternalServerError, "Search failed")
		return
	}

	hits, ok := v.([]models.SearchHit)
	if !ok || hits == nil {
		hits = []models.SearchHit{}
	}
	writeJSON(w, http.StatusOK, hits)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	if videoID == "" {
		writeError(w, http.StatusBadRequest, "Video ID is required")
		return
	}

	v, err, _ := s.flight.Do("stream:"+videoID, func() (interface{}, error) {
		var (
			result     *models.StreamResult
			resolveErr error
		)
		runErr := s.pool.Run(r.Context(), "stream", func() {
			result, resolveErr = s.resolver.ResolveAudio(r.Context(), videoID)
		})
		if runErr != nil {
			return nil, runErr
		}
		return result, resolveErr
	})
	if err != nil {
		s.writeResolveError(w, videoID, err, "Failed to get audio stream")
		return
	}

	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleStreamVideo(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	if videoID == "" {
		writeError(w, http.StatusBadRequest, "Video ID is required")
		return
	}

	v, err, _ := s.flight.Do("streamvideo:"+videoID, func() (interface{}, error) {
		var (
			result     *models.VideoStreamResult
			resolveErr error
		)
		runErr := s.pool.Run(r.Context(), "streamvideo", func() {
			result, resolveErr = s.resolver.ResolveVideo(r.Context(), videoID)
		})
		if runErr != nil {
			return nil, runErr
		}
		return result, resolveErr
	})
	if err != nil {
		s.writeResolveError(w, videoID, err, "Failed to get video stream")
		return
	}

	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	if videoID == "" {
		writeError(w, http.StatusBadRequest, "Video ID is required")
		return
	}

	v, err, _ := s.flight.Do("formats:"+videoID, func() (interface{}, error) {
		var (
			listing *models.FormatListing
			listErr error
		)
		runErr := s.pool.Run(r.Context(), "formats", func() {
			listing, listErr = s.resolver.ListFormats(r.Context(), videoID)
		})
		if runErr != nil {
			return nil, runErr
		}
		return listing, listErr
	})
	if err != nil {
		s.writeResolveError(w, videoID, err, "Failed to list formats")
		return
	}

	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleMissingVideoID(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusBadRequest, "Video ID is required")
}

// writeResolveError maps resolver failures onto the HTTP surface: terminal
// content errors get their designated status, exhaustion becomes a 503 with
// an actionable payload, anything else is an opaque 500.
func (s *Server) writeResolveError(w http.ResponseWriter, videoID string, err error, fallback string) {
	var contentErr *stream.ContentError
	if errors.As(err, &contentErr) {
		switch contentErr.Kind {
		case stream.ContentPrivate:
			writeError(w, http.StatusForbidden, "This video is private")
		case stream.ContentUnavailable:
			writeError(w, http.StatusNotFound, "This video is not available")
		case stream.ContentCopyright:
			writeError(w, http.StatusUnavailableForLegalReasons, "This video is not available due to copyright restrictions")
		default:
			writeError(w, http.StatusInternalServerError, fallback)
		}
		return
	}

	var exhausted *stream.ExhaustedError
	if errors.As(err, &exhausted) {
		s.log.Warn().Err(err).Str("video_id", videoID).Msg("extraction exhausted")
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"error":    "extraction_failed",
			"message":  "The platform is temporarily blocking requests. Please try again in a few minutes.",
			"video_id": videoID,
			"suggestions": []string{
				"Retry in a few minutes",
				"Try a different video",
			},
		})
		return
	}

	s.log.Error().Err(err).Str("video_id", videoID).Msg("unexpected resolve failure")
	writeError(w, http.StatusInternalServerError, fallback)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
