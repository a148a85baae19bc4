// Package orchestrator sequences a capture: obtain the image, name it,
// derive its link and hand it to the upload gate.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"
	"sync/atomic"

	"upscreen/src/artifact"
	"upscreen/src/events"
	"upscreen/src/gate"
	"upscreen/src/imaging"
	"upscreen/src/metrics"
	"upscreen/src/naming"
	"upscreen/src/screenshot"
	"upscreen/src/window"
)

// Mode names used in logs and metrics.
const (
	ModeFullScreen = "fullscreen"
	ModeArea       = "area"
	ModeWindow     = "window"
	ModeArgs       = "files"
	ModeClipboard  = "clipboard"
)

// Uploader is the gate as seen by the orchestrator.
type Uploader interface {
	RequestUpload() gate.Decision
}

// ClipboardSource resolves the clipboard to an image and its decoded format.
type ClipboardSource interface {
	Resolve(ctx context.Context) (image.Image, string, bool)
}

// Options are the profile values the orchestrator reads.
type Options struct {
	FileNameLength int
	ImageFormat    string
	RemoteHTTPPath string
	CopyLink       bool
}

// Deps are the collaborators of an Orchestrator. Desktop and Clipboard may be
// nil on platforms without them.
type Deps struct {
	Capturer  screenshot.Capturer
	Desktop   window.Desktop
	Clipboard ClipboardSource
	Gate      Uploader
	Record    *artifact.Record
	Bus       *events.Bus
	CopyText  func(string) error
	// NewName returns a random token; defaults to naming.RandomString.
	NewName func(length int) (string, error)
}

// Orchestrator runs one capture at a time.
type Orchestrator struct {
	deps  Deps
	opts  Options
	opMu  sync.Mutex
	state atomic.Int32
	// link of the artifact produced by the current or last operation, "" if it aborted.
	link atomic.Value
}

// New creates an Orchestrator.
func New(deps Deps, opts Options) *Orchestrator {
	if deps.NewName == nil {
		deps.NewName = naming.RandomString
	}
	if deps.Record == nil {
		deps.Record = &artifact.Record{}
	}
	if deps.Bus == nil {
		deps.Bus = events.NewBus()
	}
	return &Orchestrator{deps: deps, opts: opts}
}

// State returns the state of the current or last capture.
func (o *Orchestrator) State() State { return State(o.state.Load()) }

func (o *Orchestrator) setState(s State) { o.state.Store(int32(s)) }

// begin starts an operation. Callers hold opMu.
func (o *Orchestrator) begin() {
	o.link.Store("")
	o.setState(Idle)
}

// CaptureFullScreen captures the whole virtual desktop.
func (o *Orchestrator) CaptureFullScreen(ctx context.Context) error {
	o.opMu.Lock()
	defer o.opMu.Unlock()
	o.begin()

	img, _, err := o.captureScreen()
	if err != nil {
		return o.fail(ModeFullScreen, err)
	}
	o.deps.Record.Reset(img, "")
	return o.finishSingle(ModeFullScreen, naming.Extension(o.opts.ImageFormat))
}

// CaptureArea captures area, keeping its requested width and height.
func (o *Orchestrator) CaptureArea(ctx context.Context, area screenshot.Region) error {
	o.opMu.Lock()
	defer o.opMu.Unlock()
	o.begin()

	if area.Empty() {
		o.abort(ModeArea, "empty area")
		return nil
	}
	img, virtual, err := o.captureScreen()
	if err != nil {
		return o.fail(ModeArea, err)
	}
	cropped, err := imaging.Extract(img, area.ToImage(virtual.Min))
	if err != nil {
		o.abort(ModeArea, err.Error())
		return nil
	}
	o.deps.Record.Reset(cropped, "")
	return o.finishSingle(ModeArea, naming.Extension(o.opts.ImageFormat))
}

// CaptureWindow captures the top-level window under p. Nothing happens when
// no window is found there.
func (o *Orchestrator) CaptureWindow(ctx context.Context, p image.Point) error {
	o.opMu.Lock()
	defer o.opMu.Unlock()
	o.begin()

	if o.deps.Desktop == nil {
		return o.fail(ModeWindow, window.ErrUnsupported)
	}
	_, virtual, err := o.captureScreen()
	if err != nil {
		return o.fail(ModeWindow, err)
	}

	rect, ok := window.Resolve(o.deps.Desktop, p)
	if !ok {
		o.abort(ModeWindow, fmt.Sprintf("no window at %v", p))
		return nil
	}
	cropped, err := imaging.Crop(o.deps.Record.RawCapture(), rect.ToImage(virtual.Min), virtual.Size())
	if err != nil {
		o.abort(ModeWindow, err.Error())
		return nil
	}
	o.deps.Record.Reset(cropped, "")
	return o.finishSingle(ModeWindow, naming.Extension(o.opts.ImageFormat))
}

// CaptureFromArgs uploads every file in paths, in order. Unreadable files
// are logged and skipped. UploadComplete is published once at the end.
func (o *Orchestrator) CaptureFromArgs(ctx context.Context, paths []string) error {
	o.opMu.Lock()
	defer o.opMu.Unlock()
	o.begin()

	var handed int
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		o.setState(Capturing)
		img, format, err := imaging.Load(p)
		if err != nil {
			log.Printf("Orchestrator: skipping %s: %v", p, err)
			metrics.Captures.WithLabelValues(ModeArgs, "aborted").Inc()
			continue
		}
		o.deps.Record.Reset(img, p)
		if _, err := o.tail(ModeArgs, naming.ExtensionFor(format, o.opts.ImageFormat)); err != nil {
			return o.fail(ModeArgs, err)
		}
		handed++
	}
	if handed == 0 {
		o.abort(ModeArgs, "no readable files")
		return nil
	}
	o.publishComplete()
	return nil
}

// CaptureFromClipboard uploads the clipboard bitmap, dropped file or image URL.
func (o *Orchestrator) CaptureFromClipboard(ctx context.Context) error {
	o.opMu.Lock()
	defer o.opMu.Unlock()
	o.begin()

	if o.deps.Clipboard == nil {
		o.abort(ModeClipboard, "no clipboard")
		return nil
	}
	o.setState(Capturing)
	img, format, ok := o.deps.Clipboard.Resolve(ctx)
	if !ok {
		o.abort(ModeClipboard, "nothing usable on the clipboard")
		return nil
	}
	o.deps.Record.Reset(img, "")
	return o.finishSingle(ModeClipboard, naming.ExtensionFor(format, o.opts.ImageFormat))
}

// Link returns the link produced by the last operation, or "" when it
// aborted or failed.
func (o *Orchestrator) Link() string {
	s, _ := o.link.Load().(string)
	return s
}

// captureScreen grabs the virtual screen and reports the screen rectangle
// it covers. Without metrics the image is assumed to start at (0,0).
func (o *Orchestrator) captureScreen() (image.Image, image.Rectangle, error) {
	o.setState(Capturing)
	if o.deps.Capturer == nil {
		return nil, image.Rectangle{}, &screenshot.CaptureError{Op: "no capturer"}
	}
	img, err := o.deps.Capturer.CaptureVirtualScreen()
	if err != nil {
		return nil, image.Rectangle{}, err
	}
	virtual, err := o.deps.Capturer.VirtualRect()
	if err != nil || virtual.Size() != img.Bounds().Size() {
		virtual = img.Bounds().Sub(img.Bounds().Min)
	}
	o.deps.Record.SetRawCapture(img)
	return img, virtual, nil
}

func (o *Orchestrator) finishSingle(mode, ext string) error {
	if _, err := o.tail(mode, ext); err != nil {
		return o.fail(mode, err)
	}
	o.publishComplete()
	return nil
}

// tail names the artifact, derives its link and hands it to the gate.
func (o *Orchestrator) tail(mode, ext string) (gate.Decision, error) {
	o.setState(Naming)
	token, err := o.deps.NewName(o.opts.FileNameLength)
	if err != nil {
		return gate.Deferred, fmt.Errorf("failed to generate name: %w", err)
	}
	if err := o.deps.Record.AssignName(token + ext); err != nil {
		return gate.Deferred, err
	}

	o.setState(Linking)
	link, err := o.deps.Record.AssignLink(o.opts.RemoteHTTPPath)
	if err != nil {
		return gate.Deferred, err
	}
	o.link.Store(link)
	if o.opts.CopyLink && o.deps.CopyText != nil {
		if err := o.deps.CopyText(link); err != nil {
			log.Printf("Orchestrator: failed to copy link: %v", err)
		}
	}

	o.setState(UploadGated)
	if o.deps.Gate == nil {
		return gate.Deferred, errors.New("no upload gate configured")
	}
	decision := o.deps.Gate.RequestUpload()
	o.setState(Uploaded)
	metrics.Captures.WithLabelValues(mode, "gated").Inc()
	log.Printf("Orchestrator: %s capture %s, upload %s", mode, link, decision)
	return decision, nil
}

func (o *Orchestrator) publishComplete() {
	o.deps.Bus.Publish(events.Event{Kind: events.UploadComplete, Link: o.Link()})
}

func (o *Orchestrator) abort(mode, reason string) {
	o.setState(Aborted)
	metrics.Captures.WithLabelValues(mode, "aborted").Inc()
	log.Printf("Orchestrator: %s capture aborted: %s", mode, reason)
}

func (o *Orchestrator) fail(mode string, err error) error {
	o.link.Store("")
	o.setState(Aborted)
	metrics.Captures.WithLabelValues(mode, "failed").Inc()
	return fmt.Errorf("%s capture: %w", mode, err)
}
