package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

var ErrNoMetadata = errors.New("no metadata returned")

// Options configures a single yt-dlp invocation. The zero value produces a
// plain JSON dump with yt-dlp's own defaults.
type Options struct {
	Format        string
	UserAgent     string
	PlayerClient  string // simulated client identity (web, ios, android, ...)
	SkipManifests bool   // exclude HLS/DASH manifest formats
	FlatPlaylist  bool
	IgnoreErrors  bool
	GeoBypass     bool
	SocketTimeout time.Duration
	Retries       int
}

// Metadata mirrors the subset of yt-dlp's JSON dump the service consumes.
type Metadata struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Uploader         string     `json:"uploader"`
	Duration         float64    `json:"duration"`
	ViewCount        int64      `json:"view_count"`
	URL              string     `json:"url"`
	Height           int        `json:"height"`
	FormatNote       string     `json:"format_note"`
	Vcodec           string     `json:"vcodec"`
	Acodec           string     `json:"acodec"`
	Entries          []Metadata `json:"entries"`
	Formats          []Format   `json:"formats"`
	RequestedFormats []Format   `json:"requested_formats"`
}

// Format is one downloadable format within a Metadata dump.
type Format struct {
	FormatID   string  `json:"format_id"`
	URL        string  `json:"url"`
	Ext        string  `json:"ext"`
	Acodec     string  `json:"acodec"`
	Vcodec     string  `json:"vcodec"`
	ABR        float64 `json:"abr"`
	VBR        float64 `json:"vbr"`
	TBR        float64 `json:"tbr"`
	FPS        float64 `json:"fps"`
	Height     int     `json:"height"`
	FormatNote string  `json:"format_note"`
	Protocol   string  `json:"protocol"`
}

// ExtractionError carries yt-dlp's diagnostic output so callers can classify
// the failure from its text.
type ExtractionError struct {
	Target string
	Output string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("extraction failed for %s: %s", e.Target, e.Output)
	}
	return fmt.Sprintf("extraction failed for %s: %v", e.Target, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Client resolves a search query or watch URL into structured metadata.
type Client interface {
	Extract(ctx context.Context, target string, opts Options) (*Metadata, error)
}

// ExecClient invokes the yt-dlp binary.
type ExecClient struct {
	binPath string
	log     zerolog.Logger
}

func NewExecClient(binPath string, log zerolog.Logger) *ExecClient {
	return &ExecClient{
		binPath: binPath,
		log:     log.With().Str("component", "ytdlp").Logger(),
	}
}

// Extract runs yt-dlp against the target and parses its JSON dump.
func (c *ExecClient) Extract(ctx context.Context, target string, opts Options) (*Metadata, error) {
	args := buildArgs(target, opts)

	cmd := exec.CommandContext(ctx, c.binPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	c.log.Debug().
		Str("target", target).
		Dur("elapsed", time.Since(start)).
		Bool("ok", err == nil).
		Msg("yt-dlp invocation finished")

	if err != nil {
		return nil, &ExtractionError{
			Target: target,
			Output: stderr.String(),
			Err:    err,
		}
	}

	var meta Metadata
	if err := json.Unmarshal(stdout.Bytes(), &meta); err != nil {
		return nil, &ExtractionError{
			Target: target,
			Output: stderr.String(),
			Err:    fmt.Errorf("failed to parse metadata: %w", err),
		}
	}

	return &meta, nil
}

// buildArgs translates Options into yt-dlp command-line flags.
func buildArgs(target string, opts Options) []string {
	args := []string{
		"-J",
		"--no-playlist",
		"--no-warnings",
		"--skip-download",
	}

	if opts.FlatPlaylist {
		args = append(args, "--flat-playlist")
	}
	if opts.IgnoreErrors {
		args = append(args, "--ignore-errors")
	}
	if opts.GeoBypass {
		args = append(args, "--geo-bypass")
	}
	if opts.Format != "" {
		args = append(args, "-f", opts.Format)
	}
	if opts.UserAgent != "" {
		args = append(args, "--user-agent", opts.UserAgent)
	}
	if opts.SocketTimeout > 0 {
		args = append(args, "--socket-timeout", strconv.Itoa(int(opts.SocketTimeout.Seconds())))
	}
	if opts.Retries > 0 {
		args = append(args, "--retries", strconv.Itoa(opts.Retries))
	}
	if opts.PlayerClient != "" {
		args = append(args, "--extractor-args", "youtube:player_client="+opts.PlayerClient)
	}
	if opts.SkipManifests {
		args = append(args, "--extractor-args", "youtube:skip=hls,dash")
	}

	return append(args, target)
}
