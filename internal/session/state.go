// Package session holds the single image session behind the UI: the
// Idle/Processing/Complete/Error state machine, the image pair, the hint and
// the comparison slider.
//
// Update is a pure reducer. Orchestrator owns one Model, feeds it messages
// under a mutex and carries out the effects Update asks for: the colorization
// call and the loading-message ticker.
package session

import (
	"fmt"

	"github.com/fpang/chroma-restore/internal/filehandler"
	"github.com/fpang/chroma-restore/internal/slider"
	"github.com/google/uuid"
)

// State is the processing state of the session.
type State int

const (
	Idle State = iota
	Processing
	Complete
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Processing:
		return "processing"
	case Complete:
		return "complete"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name written by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*s = Idle
	case "processing":
		*s = Processing
	case "complete":
		*s = Complete
	case "error":
		*s = Error
	default:
		return fmt.Errorf("unknown session state %q", text)
	}
	return nil
}

// ImagePair is the original upload and, once colorized, the result.
// Values are replaced, never modified in place.
type ImagePair struct {
	// Original is a data URL, usable directly as an image source.
	Original string
	// OriginalPayload is Original without its data URL prefix.
	OriginalPayload string
	OriginalMIME    string
	Filename        string
	Info            *filehandler.ImageInfo

	// Processed is bare base64, set only in Complete.
	Processed     string
	ProcessedMIME string
	ProcessedInfo *filehandler.ImageInfo
}

// ProcessingError is shown in the Error state.
type ProcessingError struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error messages shown to the user.
const (
	MsgReadFailed     = "Failed to read file"
	MsgColorizeFailed = "Colorization failed"
)

// Model is one immutable snapshot of the session.
type Model struct {
	// ID identifies the loaded image. Async results carry it so that a
	// result for a replaced or reset image is ignored.
	ID uuid.UUID
	// Run counts colorization attempts for ID.
	Run int

	State  State
	Images *ImagePair
	Hint   string
	Err    *ProcessingError

	Messages     []string
	LoadingIndex int

	// Slider is non-nil only in Complete.
	Slider *slider.Slider
}

// NewModel returns the initial Idle model with no image.
func NewModel(messages []string) Model {
	return Model{State: Idle, Messages: messages}
}

// HasImage reports whether an original image is loaded.
func (m Model) HasImage() bool {
	return m.Images != nil && m.Images.Original != ""
}

// LoadingMessage returns the current status line while Processing.
func (m Model) LoadingMessage() string {
	if m.State != Processing || len(m.Messages) == 0 {
		return ""
	}
	return m.Messages[m.LoadingIndex%len(m.Messages)]
}

// CanColorize reports whether a ColorizeRequested would start a run.
func (m Model) CanColorize() bool {
	return m.State == Idle && m.HasImage()
}

func (m Model) current(id uuid.UUID, run int) bool {
	return m.State == Processing && m.ID == id && m.Run == run
}
