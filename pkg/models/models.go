package models

// SearchHit is one entry in a search response.
type SearchHit struct {
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail_url"`
	VideoID      string `json:"videoId"`
	Uploader     string `json:"uploader"`
	Duration     string `json:"duration"`
	ViewCount    string `json:"view_count"`
	URL          string `json:"url"`
}

// StreamResult is the response for an audio stream resolution.
type StreamResult struct {
	StreamURL    string `json:"stream_url"`
	Title        string `json:"title"`
	Duration     int    `json:"duration"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// VideoStreamResult is the response for a video stream resolution.
// AudioURL is set when video and audio are delivered as separate streams.
type VideoStreamResult struct {
	VideoURL     string `json:"video_url"`
	AudioURL     string `json:"audio_url,omitempty"`
	Title        string `json:"title"`
	Duration     int    `json:"duration"`
	ThumbnailURL string `json:"thumbnail_url"`
	Quality      string `json:"quality"`
}

// FormatInfo describes one audio-capable format of a video, for the
// formats inspection endpoint.
type FormatInfo struct {
	FormatID string  `json:"format_id"`
	Ext      string  `json:"ext"`
	Acodec   string  `json:"acodec"`
	Vcodec   string  `json:"vcodec"`
	ABR      float64 `json:"abr"`
	Protocol string  `json:"protocol"`
}

// FormatListing is the response for the formats inspection endpoint.
type FormatListing struct {
	VideoID      string       `json:"video_id"`
	Title        string       `json:"title"`
	AudioFormats []FormatInfo `json:"audio_formats"`
	TotalFormats int          `json:"total_formats"`
}
