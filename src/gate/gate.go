// Package gate starts artifact uploads once the account check has finished
// and runs them one at a time.
package gate

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"upscreen/src/artifact"
	"upscreen/src/imaging"
	"upscreen/src/metrics"
	"upscreen/src/naming"
	"upscreen/src/worker"
)

const defaultUploadTimeout = 2 * time.Minute

// Decision is the outcome of RequestUpload.
type Decision int

const (
	// Deferred means the account check is still running; the upload starts
	// when PrerequisiteDone is called.
	Deferred Decision = iota
	// Started means an upload task was spawned.
	Started
)

func (d Decision) String() string {
	if d == Started {
		return "started"
	}
	return "deferred"
}

// Prerequisite reports whether the account check is still in progress.
type Prerequisite interface {
	IsRunning() bool
}

// Transport moves the saved file to its remote path.
type Transport interface {
	Upload(ctx context.Context, localPath, remotePath string) error
}

// Browser opens a link.
type Browser interface {
	Open(url string) error
}

// Options configures a Gate. Zero values are usable except LocalFolder.
type Options struct {
	LocalFolder   string
	RemoteFolder  string
	JPEGQuality   int
	CopyLink      bool
	OpenInBrowser bool
	// FromFileMenu keeps the local file after a successful upload.
	FromFileMenu bool
	// ArgFiles are the argument files still waiting for upload.
	ArgFiles      []string
	UploadTimeout time.Duration
	// CopyText puts the link on the clipboard.
	CopyText func(string) error
	// Exit terminates the process, or the resident session.
	Exit func()
}

// Result describes a finished upload task.
type Result struct {
	Cancelled bool
	Err       error
}

// Gate owns the upload state for the lifetime of the process.
type Gate struct {
	record    *artifact.Record
	prereq    Prerequisite
	transport Transport
	browser   Browser
	opts      Options
	queue     *worker.Queue

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	pending       bool
	argFiles      []string
	uploaded      bool
	exitRequested bool
	updateChecked bool
	exitOnce      sync.Once
}

// New creates a Gate over record. prereq may be nil when no account check runs.
func New(record *artifact.Record, prereq Prerequisite, transport Transport, browser Browser, opts Options) *Gate {
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = defaultUploadTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Gate{
		record:    record,
		prereq:    prereq,
		transport: transport,
		browser:   browser,
		opts:      opts,
		queue:     worker.NewQueue(),
		ctx:       ctx,
		cancel:    cancel,
		argFiles:  append([]string(nil), opts.ArgFiles...),
	}
}

// RequestUpload starts uploading the current artifact, or marks it pending
// while the account check is running. A second deferred request replaces
// the first.
func (g *Gate) RequestUpload() Decision {
	g.mu.Lock()
	if g.prereq != nil && g.prereq.IsRunning() {
		g.pending = true
		g.mu.Unlock()
		metrics.DeferredUploads.Inc()
		log.Printf("Gate: account check running, upload deferred")
		return Deferred
	}
	g.pending = false
	g.mu.Unlock()

	g.startUpload()
	return Started
}

// PrerequisiteDone starts the pending upload, if any.
func (g *Gate) PrerequisiteDone() {
	g.mu.Lock()
	pending := g.pending
	g.pending = false
	g.mu.Unlock()

	if pending {
		log.Printf("Gate: account check finished, starting deferred upload")
		g.startUpload()
	}
}

// Pending reports whether a deferred capture is waiting for the account check.
func (g *Gate) Pending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending
}

func (g *Gate) startUpload() {
	a, err := g.record.Snapshot()
	if err != nil {
		log.Printf("Gate: nothing to upload: %v", err)
		return
	}
	a.LocalPath = filepath.Join(g.opts.LocalFolder, a.Name)
	a.RemotePath = naming.Combine(g.opts.RemoteFolder, a.Name)

	id := uuid.NewString()
	if !g.queue.Submit(func() { g.runUpload(id, a) }) {
		log.Printf("Gate: upload %s rejected, gate closed", id)
		return
	}
	metrics.Uploads.WithLabelValues("started").Inc()
	log.Printf("Gate: upload %s queued, local=%s remote=%s", id, a.LocalPath, a.RemotePath)
}

func (g *Gate) runUpload(id string, a artifact.Artifact) {
	log.Printf("Gate: upload %s saving %s", id, a.LocalPath)
	if err := imaging.Save(a.LocalPath, a.Image, g.opts.JPEGQuality); err != nil {
		log.Printf("Gate: upload %s failed to save artifact: %v", id, err)
	} else if g.opts.CopyLink && g.opts.CopyText != nil {
		if err := g.opts.CopyText(a.Link); err != nil {
			log.Printf("Gate: failed to copy link: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(g.ctx, g.opts.UploadTimeout)
	err := g.transport.Upload(ctx, a.LocalPath, a.RemotePath)
	cancel()

	res := Result{Err: err}
	if err != nil && errors.Is(err, context.Canceled) {
		res.Cancelled = true
	}
	log.Printf("Gate: upload %s finished, cancelled=%v err=%v", id, res.Cancelled, res.Err)
	g.OnUploadFinished(a, res)
}

// OnUploadFinished applies the post-upload steps for a.
func (g *Gate) OnUploadFinished(a artifact.Artifact, res Result) {
	if res.Cancelled {
		metrics.Uploads.WithLabelValues("cancelled").Inc()
		log.Printf("Gate: upload of %s cancelled: %v", a.Name, res.Err)
		return
	}
	if res.Err != nil {
		metrics.Uploads.WithLabelValues("failed").Inc()
		log.Printf("Gate: upload of %s failed, keeping %s: %v", a.Name, a.LocalPath, res.Err)
		return
	}
	metrics.Uploads.WithLabelValues("succeeded").Inc()

	if !g.opts.FromFileMenu {
		if err := os.Remove(a.LocalPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("Gate: failed to delete %s: %v", a.LocalPath, err)
		}
	}
	if g.opts.OpenInBrowser && g.browser != nil && a.Link != "" {
		if err := g.browser.Open(a.Link); err != nil {
			log.Printf("Gate: failed to open browser: %v", err)
		}
	}

	g.mu.Lock()
	g.argFiles = removePath(g.argFiles, a.SourcePath)
	g.uploaded = len(g.argFiles) == 0
	exit := g.exitRequested
	g.mu.Unlock()

	if exit {
		g.RequestExit(false)
	}
}

// Uploaded reports whether every argument file has been uploaded.
func (g *Gate) Uploaded() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.uploaded
}

// Wait blocks until every spawned upload task has finished.
func (g *Gate) Wait(ctx context.Context) error {
	return g.queue.Wait(ctx)
}

// Close cancels running uploads and waits for the queue to drain.
func (g *Gate) Close() {
	g.cancel()
	g.queue.Close()
}

func removePath(paths []string, p string) []string {
	if p == "" {
		return paths
	}
	for i, v := range paths {
		if v == p {
			return append(paths[:i:i], paths[i+1:]...)
		}
	}
	return paths
}
