package session

import (
	"github.com/fpang/chroma-restore/internal/chat"
	"github.com/fpang/chroma-restore/internal/filehandler"
	"github.com/fpang/chroma-restore/internal/slider"
	"github.com/google/uuid"
)

// Msg is an input to Update.
type Msg interface {
	isMsg()
}

// FileAccepted loads a new original image. SessionID must be fresh.
type FileAccepted struct {
	SessionID uuid.UUID
	Filename  string
	Preview   *filehandler.Preview
	Info      *filehandler.ImageInfo
}

// FileReadFailed reports that an accepted file could not be read.
type FileReadFailed struct {
	Err error
}

// HintChanged replaces the hint text.
type HintChanged struct {
	Hint string
}

// ColorizeRequested asks to colorize the loaded image.
type ColorizeRequested struct{}

// ColorizeSucceeded delivers the result of run Run for SessionID.
type ColorizeSucceeded struct {
	SessionID uuid.UUID
	Run       int
	Result    *chat.ColorizeResult
	Info      *filehandler.ImageInfo
}

// ColorizeFailed delivers the failure of run Run for SessionID.
type ColorizeFailed struct {
	SessionID uuid.UUID
	Run       int
	Err       error
}

// Dismissed closes the error view.
type Dismissed struct{}

// Reset discards the image, hint and error.
type Reset struct{}

// Tick advances the loading message of run Run for SessionID.
type Tick struct {
	SessionID uuid.UUID
	Run       int
}

// SliderEventKind is the gesture carried by a SliderEvent.
type SliderEventKind string

const (
	SliderPress   SliderEventKind = "press"
	SliderMove    SliderEventKind = "move"
	SliderRelease SliderEventKind = "release"
	SliderResize  SliderEventKind = "resize"
)

// SliderEvent is a pointer or layout event for the comparison slider.
type SliderEvent struct {
	Kind   SliderEventKind
	X      float64
	Bounds slider.Bounds
}

func (FileAccepted) isMsg()      {}
func (FileReadFailed) isMsg()    {}
func (HintChanged) isMsg()       {}
func (ColorizeRequested) isMsg() {}
func (ColorizeSucceeded) isMsg() {}
func (ColorizeFailed) isMsg()    {}
func (Dismissed) isMsg()         {}
func (Reset) isMsg()             {}
func (Tick) isMsg()              {}
func (SliderEvent) isMsg()       {}

// Effect is work the Orchestrator performs after a transition.
type Effect int

const (
	// NoEffect: nothing to do.
	NoEffect Effect = iota
	// StartProcessing: call the colorizer for (ID, Run) and start the ticker.
	StartProcessing
	// StopProcessing: the session left Processing; stop the ticker.
	StopProcessing
)

func (e Effect) String() string {
	switch e {
	case StartProcessing:
		return "start_processing"
	case StopProcessing:
		return "stop_processing"
	default:
		return "none"
	}
}

// Update returns the model after msg and the effect to carry out.
// It never modifies m or anything m points to.
func Update(m Model, msg Msg) (Model, Effect) {
	next := transition(m, msg)

	switch {
	case m.State != Processing && next.State == Processing:
		return next, StartProcessing
	case m.State == Processing && next.State != Processing:
		return next, StopProcessing
	default:
		return next, NoEffect
	}
}

func transition(m Model, msg Msg) Model {
	switch msg := msg.(type) {
	case FileAccepted:
		if msg.Preview == nil {
			return m
		}
		next := m
		next.ID = msg.SessionID
		next.Run = 0
		next.State = Idle
		next.Err = nil
		next.LoadingIndex = 0
		next.Slider = nil
		next.Images = &ImagePair{
			Original:        msg.Preview.DataURL,
			OriginalPayload: msg.Preview.Payload,
			OriginalMIME:    msg.Preview.MIMEType,
			Filename:        msg.Filename,
			Info:            msg.Info,
		}
		return next

	case FileReadFailed:
		next := m
		next.ID = uuid.Nil
		next.State = Error
		next.Images = nil
		next.Slider = nil
		next.LoadingIndex = 0
		next.Err = &ProcessingError{Message: MsgReadFailed, Details: errText(msg.Err)}
		return next

	case HintChanged:
		if m.State == Processing {
			return m
		}
		next := m
		next.Hint = msg.Hint
		return next

	case ColorizeRequested:
		if !m.CanColorize() {
			return m
		}
		next := m
		next.State = Processing
		next.Run = m.Run + 1
		next.Err = nil
		next.LoadingIndex = 0
		return next

	case ColorizeSucceeded:
		if !m.current(msg.SessionID, msg.Run) {
			return m
		}
		if msg.Result == nil || msg.Result.Data == "" {
			return fail(m, chat.ErrNoImageData)
		}
		images := *m.Images
		images.Processed = msg.Result.Data
		images.ProcessedMIME = msg.Result.MIMEType
		images.ProcessedInfo = msg.Info
		if images.ProcessedMIME == "" {
			images.ProcessedMIME = filehandler.DefaultImageMIMEType
		}
		s := slider.New()
		next := m
		next.State = Complete
		next.Images = &images
		next.Err = nil
		next.Slider = &s
		return next

	case ColorizeFailed:
		if !m.current(msg.SessionID, msg.Run) {
			return m
		}
		return fail(m, msg.Err)

	case Dismissed:
		if m.State != Error {
			return m
		}
		next := m
		next.State = Idle
		next.Err = nil
		return next

	case Reset:
		return Model{State: Idle, Messages: m.Messages}

	case Tick:
		if !m.current(msg.SessionID, msg.Run) || len(m.Messages) == 0 {
			return m
		}
		next := m
		next.LoadingIndex = (m.LoadingIndex + 1) % len(m.Messages)
		return next

	case SliderEvent:
		if m.State != Complete || m.Slider == nil {
			return m
		}
		s := applySlider(*m.Slider, msg)
		next := m
		next.Slider = &s
		return next
	}
	return m
}

func fail(m Model, err error) Model {
	next := m
	next.State = Error
	next.Err = &ProcessingError{Message: MsgColorizeFailed, Details: errText(err)}
	if m.Images != nil && m.Images.Processed != "" {
		images := *m.Images
		images.Processed = ""
		images.ProcessedMIME = ""
		images.ProcessedInfo = nil
		next.Images = &images
	}
	next.Slider = nil
	return next
}

// applySlider applies one gesture. Press and move carry the container
// bounds measured with the pointer event; they replace the stored bounds
// so a container that shifted without resizing still maps x correctly.
func applySlider(s slider.Slider, ev SliderEvent) slider.Slider {
	switch ev.Kind {
	case SliderPress:
		if ev.Bounds.Width > 0 {
			s = s.Resize(ev.Bounds)
		}
		return s.Press(ev.X)
	case SliderMove:
		if ev.Bounds.Width > 0 {
			s = s.Resize(ev.Bounds)
		}
		return s.Move(ev.X)
	case SliderRelease:
		return s.Release()
	case SliderResize:
		return s.Resize(ev.Bounds)
	}
	return s
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
