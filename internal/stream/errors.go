package stream

import (
	"errors"
	"fmt"
)

// ErrNoUsableStream marks an attempt that produced metadata but no direct,
// playable stream URL.
var ErrNoUsableStream = errors.New("no usable stream URL in metadata")

// ContentKind is a terminal failure category that no retry strategy can fix.
type ContentKind int

const (
	ContentPrivate ContentKind = iota
	ContentUnavailable
	ContentCopyright
)

func (k ContentKind) String() string {
	switch k {
	case ContentPrivate:
		return "private"
	case ContentUnavailable:
		return "unavailable"
	case ContentCopyright:
		return "copyright"
	default:
		return "unknown"
	}
}

// ContentError reports a video that cannot be resolved regardless of
// strategy: private, removed, or blocked for rights reasons.
type ContentError struct {
	Kind    ContentKind
	VideoID string
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("video %s is %s", e.VideoID, e.Kind)
}

// ExhaustedError reports that every configured strategy was attempted and
// none produced a usable stream URL.
type ExhaustedError struct {
	VideoID  string
	Attempts int
	LastErr  error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d extraction strategies exhausted for %s: %v", e.Attempts, e.VideoID, e.LastErr)
}

func (e *ExhaustedError) Unwrap() error { return e.LastErr }
