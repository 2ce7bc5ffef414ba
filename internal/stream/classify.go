package stream

import "strings"

// botMarkers are substrings in extractor error text indicating the upstream
// platform suspects automated access or is rate limiting.
var botMarkers = []string{
	"bot",
	"sign in",
	"confirm",
	"429",
	"too many requests",
}

// isBotDetection reports whether the error text matches a bot-detection or
// rate-limiting marker.
func isBotDetection(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range botMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// classifyContent maps terminal error text to a ContentError, or nil when
// the failure is not terminal. Terminal failures short-circuit the strategy
// loop: no alternative client identity can make a private or removed video
// resolvable.
func classifyContent(videoID string, err error) *ContentError {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "private"):
		return &ContentError{Kind: ContentPrivate, VideoID: videoID}
	case strings.Contains(msg, "unavailable"):
		return &ContentError{Kind: ContentUnavailable, VideoID: videoID}
	case strings.Contains(msg, "copyright"):
		return &ContentError{Kind: ContentCopyright, VideoID: videoID}
	default:
		return nil
	}
}
