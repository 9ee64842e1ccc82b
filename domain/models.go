package domain

import (
	"strconv"
	"time"
)

// CatalogPage is one page of the board catalog as returned by the catalog API.
type CatalogPage struct {
	Page    int           `json:"page"`
	Threads []ThreadEntry `json:"threads"`
}

// ThreadEntry is a catalog thread together with its media attachment reference.
type ThreadEntry struct {
	No       int64  `json:"no"`
	Tim      int64  `json:"tim"` // media id, 0 when the thread has no attachment
	Ext      string `json:"ext"` // includes the leading dot, e.g. ".jpg"
	Filename string `json:"filename,omitempty"`
}

// HasMedia reports whether the entry references a media file at all.
func (t ThreadEntry) HasMedia() bool {
	return t.Tim != 0 && t.Ext != ""
}

// MediaName is the file name the media is served under: <tim><ext>.
func (t ThreadEntry) MediaName() string {
	return strconv.FormatInt(t.Tim, 10) + t.Ext
}

// Selection is the entry picked for one request.
type Selection struct {
	PageIndex   int
	ThreadIndex int
	Attempts    int
	Entry       ThreadEntry
	MediaName   string
	MediaURL    string
}

// AnalysisResult is the opaque document returned by the analysis service.
// The relay only ever adds the URL keys below to it.
type AnalysisResult map[string]any

// AnalyzeRequest is the inbound body of GET /image and the outbound body sent to
// the analysis service.
type AnalyzeRequest struct {
	URL string `json:"url"`
}

// ErrorDetails carries the raw failure behind an ErrorResponse.
type ErrorDetails struct {
	Op         string `json:"op,omitempty"`
	Cause      string `json:"cause,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
}

// ErrorResponse is the JSON document returned to callers on any failure.
type ErrorResponse struct {
	Error    string       `json:"error"`
	Details  ErrorDetails `json:"details"`
	Platform string       `json:"platform,omitempty"`
}

// MirrorEvent is published after a media file has been mirrored to object storage.
type MirrorEvent struct {
	MediaName  string    `json:"media_name"`
	SourceURL  string    `json:"source_url"`
	MirrorURL  string    `json:"mirror_url"`
	Location   string    `json:"location"`
	Size       int64     `json:"size"`
	MirroredAt time.Time `json:"mirrored_at"`
}
