package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fpang/chroma-restore/internal/chat"
	"github.com/fpang/chroma-restore/internal/filehandler"
	"github.com/fpang/chroma-restore/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrNotComplete is returned by Download outside the Complete state.
var ErrNotComplete = errors.New("no colorized image to download")

// DefaultTickInterval is how often the loading message changes.
const DefaultTickInterval = 1500 * time.Millisecond

// Colorizer is the part of chat.Colorizer the orchestrator uses.
type Colorizer interface {
	Preflight() error
	Colorize(ctx context.Context, imageBase64, hint string) (*chat.ColorizeResult, error)
}

// Options configures an Orchestrator. Zero values select defaults.
type Options struct {
	TickInterval time.Duration
	Messages     []string
	// Timeout bounds a single colorization call. Zero means no limit beyond
	// the transport's own.
	Timeout time.Duration

	// NewID and Now are replaced in tests.
	NewID func() uuid.UUID
	Now   func() time.Time
}

// Orchestrator owns the single session and runs its effects.
type Orchestrator struct {
	colorizer Colorizer
	opts      Options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	model   Model
	ticker  *loadingTicker
	subs    map[int]chan Model
	nextSub int
	closed  bool
}

// New returns an Orchestrator in the initial Idle state.
func New(c Colorizer, opts Options) *Orchestrator {
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.NewID == nil {
		opts.NewID = uuid.New
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		colorizer: c,
		opts:      opts,
		ctx:       ctx,
		cancel:    cancel,
		model:     NewModel(opts.Messages),
		subs:      make(map[int]chan Model),
	}
}

// Snapshot returns the current model.
func (o *Orchestrator) Snapshot() Model {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.model
}

// Accept loads a new image under a fresh session ID.
func (o *Orchestrator) Accept(filename string, preview *filehandler.Preview, info *filehandler.ImageInfo) Model {
	return o.Dispatch(FileAccepted{
		SessionID: o.opts.NewID(),
		Filename:  filename,
		Preview:   preview,
		Info:      info,
	})
}

// Dispatch applies msg and returns the resulting model. After Close it only
// returns the last model.
func (o *Orchestrator) Dispatch(msg Msg) Model {
	o.mu.Lock()
	if o.closed {
		m := o.model
		o.mu.Unlock()
		return m
	}
	prev := o.model.State
	stop := o.apply(msg)
	m := o.model
	o.notify(m)
	o.mu.Unlock()

	// The ticker goroutine may be blocked on o.mu inside Dispatch(Tick).
	for _, t := range stop {
		t.Stop()
	}

	if prev != m.State {
		log.Debug().
			Str("from", prev.String()).
			Str("to", m.State.String()).
			Str("msg", fmt.Sprintf("%T", msg)).
			Msg("Session state changed")
	}
	return m
}

// apply runs Update and its effect. It returns tickers to stop once o.mu
// is released. Called with o.mu held.
func (o *Orchestrator) apply(msg Msg) []*loadingTicker {
	next, effect := Update(o.model, msg)
	o.model = next

	switch effect {
	case StartProcessing:
		if err := o.preflight(); err != nil {
			log.Warn().Err(err).Msg("Colorization not attempted")
			return o.apply(ColorizeFailed{SessionID: next.ID, Run: next.Run, Err: err})
		}
		id, run := next.ID, next.Run
		o.ticker = startTicker(o.opts.TickInterval, func() {
			o.Dispatch(Tick{SessionID: id, Run: run})
		})
		o.wg.Add(1)
		go o.runColorize(id, run, next.Images.OriginalPayload, next.Hint)

	case StopProcessing:
		if o.ticker != nil {
			t := o.ticker
			o.ticker = nil
			return []*loadingTicker{t}
		}
	}
	return nil
}

func (o *Orchestrator) preflight() error {
	if o.colorizer == nil {
		return chat.ErrMissingAPIKey
	}
	return o.colorizer.Preflight()
}

func (o *Orchestrator) runColorize(id uuid.UUID, run int, payload, hint string) {
	defer o.wg.Done()

	ctx := o.ctx
	if o.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.Timeout)
		defer cancel()
	}

	result, err := o.colorizer.Colorize(ctx, payload, hint)
	if err == nil && result == nil {
		err = chat.ErrNoImageData
	}
	if err != nil {
		o.Dispatch(ColorizeFailed{SessionID: id, Run: run, Err: err})
		return
	}
	o.Dispatch(ColorizeSucceeded{SessionID: id, Run: run, Result: result, Info: inspectResult(result)})
}

// inspectResult reads the colorized image's dimensions for slider layout.
// The image is informational here; failures are logged and ignored.
func inspectResult(result *chat.ColorizeResult) *filehandler.ImageInfo {
	data, err := result.Bytes()
	if err != nil {
		log.Warn().Err(err).Msg("Colorized image is not valid base64")
		return nil
	}
	info, err := filehandler.InspectImage(data)
	if err != nil {
		log.Warn().Err(err).Str("mime_type", result.MIMEType).Msg("Cannot read colorized image dimensions")
		return nil
	}
	return info
}

// notify hands m to every subscriber, replacing any snapshot it has not
// read yet. Called with o.mu held.
func (o *Orchestrator) notify(m Model) {
	for _, ch := range o.subs {
		select {
		case ch <- m:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- m
		}
	}
}

// Subscribe returns a channel receiving the latest model after every
// Dispatch. Slow readers only see the most recent snapshot. The channel is
// closed by cancel or Close.
func (o *Orchestrator) Subscribe() (<-chan Model, func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	ch := make(chan Model, 1)
	if o.closed {
		close(ch)
		return ch, func() {}
	}
	id := o.nextSub
	o.nextSub++
	o.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			if c, ok := o.subs[id]; ok {
				delete(o.subs, id)
				close(c)
			}
		})
	}
}

// Download is the colorized image offered to the user.
type Download struct {
	Filename string
	MIMEType string
	Data     []byte
}

// Download returns the processed image, named after the current time.
// It fails with ErrNotComplete unless the session is Complete.
func (o *Orchestrator) Download() (*Download, error) {
	m := o.Snapshot()
	if m.State != Complete || m.Images == nil || m.Images.Processed == "" {
		return nil, ErrNotComplete
	}

	data, err := base64.StdEncoding.DecodeString(m.Images.Processed)
	if err != nil {
		return nil, fmt.Errorf("failed to decode colorized image: %w", err)
	}
	d := &Download{
		Filename: fmt.Sprintf("chroma-restored-%d%s", o.opts.Now().UnixMilli(), filehandler.ExtensionForMIME(m.Images.ProcessedMIME)),
		MIMEType: m.Images.ProcessedMIME,
		Data:     data,
	}

	metrics.New(metrics.Namespace).
		Dimension("Operation", "download").
		Metric("DownloadBytes", float64(len(data)), metrics.UnitBytes).
		Count("Downloads").
		Flush()

	return d, nil
}

// Wait blocks until no colorization call is in flight.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Close stops the ticker, cancels any in-flight call, waits for it and
// closes all subscriptions. Later Dispatch calls are ignored.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	t := o.ticker
	o.ticker = nil
	for id, ch := range o.subs {
		delete(o.subs, id)
		close(ch)
	}
	o.mu.Unlock()

	if t != nil {
		t.Stop()
	}
	o.cancel()
	o.wg.Wait()
}
