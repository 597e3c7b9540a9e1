// Package workflow calls the external generation workflows (n8n webhooks).
// Everything about the shape of their responses stays in this package.
package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/prashantdesale0219/withoutplan-fx-sub000/internal/models"
)

// Mode is a generation workflow
type Mode string

// Generation modes
const (
	ModeImageEdit    Mode = "image-edit"
	ModeTextToVideo  Mode = "text-to-video"
	ModeImageToVideo Mode = "image-to-video"
	ModeAudioToVideo Mode = "audio-to-video"
)

// Modes lists every supported mode
var Modes = []Mode{ModeImageEdit, ModeTextToVideo, ModeImageToVideo, ModeAudioToVideo}

// Kind is the history list a mode's results belong to
func (m Mode) Kind() models.MediaKind {
	if m == ModeImageEdit {
		return models.MediaImage
	}
	return models.MediaVideo
}

// Payload is what a workflow receives
type Payload struct {
	Mode     Mode   `json:"mode"`
	Prompt   string `json:"prompt,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
	AudioURL string `json:"audioUrl,omitempty"`
	UserID   string `json:"userId"`
	Email    string `json:"email,omitempty"`
}

// Result is a successful workflow run. URL is empty when no known field
// carried the asset.
type Result struct {
	URL string
	Raw map[string]any
}

// Backend runs one generation
type Backend interface {
	Submit(ctx context.Context, mode Mode, payload Payload) (*Result, error)
}

var (
	// ErrTimeout is returned when the workflow did not answer in time
	ErrTimeout = errors.New("workflow timed out")
	// ErrUnavailable is returned when the workflow cannot be reached or does not exist
	ErrUnavailable = errors.New("workflow unavailable")
)

// UpstreamError is any other workflow failure
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("workflow error (%d): %s", e.StatusCode, e.Message)
}
