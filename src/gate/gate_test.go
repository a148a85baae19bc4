package gate

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"upscreen/src/artifact"
	"upscreen/src/metrics"
)

type fakePrereq struct{ running atomic.Bool }

func (f *fakePrereq) IsRunning() bool { return f.running.Load() }

type upload struct{ local, remote string }

type fakeTransport struct {
	mu      sync.Mutex
	uploads []upload
	err     error
	block   chan struct{}
	active  atomic.Int32
	overlap atomic.Bool
}

func (f *fakeTransport) Upload(ctx context.Context, local, remote string) error {
	if f.active.Add(1) > 1 {
		f.overlap.Store(true)
	}
	defer f.active.Add(-1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	f.uploads = append(f.uploads, upload{local, remote})
	f.mu.Unlock()
	return f.err
}

func (f *fakeTransport) calls() []upload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]upload(nil), f.uploads...)
}

type fakeBrowser struct {
	mu     sync.Mutex
	opened []string
}

func (f *fakeBrowser) Open(url string) error {
	f.mu.Lock()
	f.opened = append(f.opened, url)
	f.mu.Unlock()
	return nil
}

func (f *fakeBrowser) urls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.opened...)
}

func capture(t *testing.T, rec *artifact.Record, name, source string) {
	t.Helper()
	rec.Reset(image.NewRGBA(image.Rect(0, 0, 4, 4)), source)
	require.NoError(t, rec.AssignName(name))
	_, err := rec.AssignLink("img.example.com")
	require.NoError(t, err)
}

func waitGate(t *testing.T, g *Gate) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, g.Wait(ctx))
}

func newGate(t *testing.T, prereq Prerequisite, tr Transport, br Browser, opts Options) (*Gate, *artifact.Record) {
	t.Helper()
	if opts.LocalFolder == "" {
		opts.LocalFolder = t.TempDir()
	}
	rec := &artifact.Record{}
	g := New(rec, prereq, tr, br, opts)
	t.Cleanup(g.Close)
	return g, rec
}

func TestDeferredWhileCheckRunsThenStartsOnce(t *testing.T) {
	pre := &fakePrereq{}
	pre.running.Store(true)
	tr := &fakeTransport{}
	g, rec := newGate(t, pre, tr, nil, Options{RemoteFolder: "/shots/"})

	capture(t, rec, "first1.png", "")
	assert.Equal(t, Deferred, g.RequestUpload())
	capture(t, rec, "second.png", "")
	assert.Equal(t, Deferred, g.RequestUpload())
	assert.True(t, g.Pending())
	waitGate(t, g)
	assert.Empty(t, tr.calls())

	pre.running.Store(false)
	g.PrerequisiteDone()
	g.PrerequisiteDone()
	waitGate(t, g)

	calls := tr.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "shots/second.png", calls[0].remote)
	assert.False(t, g.Pending())
}

func TestStartedWhenNoCheckRunning(t *testing.T) {
	tr := &fakeTransport{}
	br := &fakeBrowser{}
	dir := t.TempDir()
	g, rec := newGate(t, &fakePrereq{}, tr, br, Options{LocalFolder: dir, OpenInBrowser: true})

	capture(t, rec, "abc123.png", "")
	assert.Equal(t, Started, g.RequestUpload())
	waitGate(t, g)

	calls := tr.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, filepath.Join(dir, "abc123.png"), calls[0].local)
	assert.Equal(t, "abc123.png", calls[0].remote)
	assert.Equal(t, []string{"http://img.example.com/abc123.png"}, br.urls())
	_, err := os.Stat(calls[0].local)
	assert.True(t, os.IsNotExist(err), "local file should be deleted after upload")
	assert.True(t, g.Uploaded())
}

func TestUploadsAreSerializedInOrder(t *testing.T) {
	tr := &fakeTransport{}
	g, rec := newGate(t, nil, tr, nil, Options{})

	names := []string{"a.png", "b.png", "c.png", "d.png"}
	for _, n := range names {
		capture(t, rec, n, "")
		g.RequestUpload()
	}
	waitGate(t, g)

	calls := tr.calls()
	require.Len(t, calls, len(names))
	for i, n := range names {
		assert.Equal(t, n, calls[i].remote)
	}
	assert.False(t, tr.overlap.Load())
}

func TestFromFileMenuKeepsFile(t *testing.T) {
	tr := &fakeTransport{}
	g, rec := newGate(t, nil, tr, nil, Options{FromFileMenu: true})

	capture(t, rec, "keep.png", "")
	g.RequestUpload()
	waitGate(t, g)

	calls := tr.calls()
	require.Len(t, calls, 1)
	_, err := os.Stat(calls[0].local)
	assert.NoError(t, err)
}

func TestFailedUploadKeepsFileAndSkipsSideEffects(t *testing.T) {
	tr := &fakeTransport{err: errors.New("connection refused")}
	br := &fakeBrowser{}
	exited := false
	g, rec := newGate(t, nil, tr, br, Options{OpenInBrowser: true, Exit: func() { exited = true }})

	g.RequestExit(false)
	capture(t, rec, "fail.png", "")
	g.RequestUpload()
	waitGate(t, g)

	calls := tr.calls()
	require.Len(t, calls, 1)
	_, err := os.Stat(calls[0].local)
	assert.NoError(t, err)
	assert.Empty(t, br.urls())
	assert.False(t, g.Uploaded())
	assert.False(t, exited)
}

func TestCancelledUploadIsIgnored(t *testing.T) {
	tr := &fakeTransport{block: make(chan struct{})}
	br := &fakeBrowser{}
	rec := &artifact.Record{}
	g := New(rec, nil, tr, br, Options{LocalFolder: t.TempDir(), OpenInBrowser: true})

	capture(t, rec, "cancel.png", "")
	g.RequestUpload()
	g.Close()

	assert.Empty(t, br.urls())
	assert.False(t, g.Uploaded())
}

func TestUploadAfterCloseIsNotCounted(t *testing.T) {
	tr := &fakeTransport{}
	rec := &artifact.Record{}
	g := New(rec, nil, tr, nil, Options{LocalFolder: t.TempDir()})
	g.Close()

	started := metrics.Uploads.WithLabelValues("started")
	before := testutil.ToFloat64(started)
	capture(t, rec, "late.png", "")
	assert.Equal(t, Started, g.RequestUpload())

	assert.Equal(t, before, testutil.ToFloat64(started))
	assert.Empty(t, tr.calls())
}

func TestOnUploadFinishedTracksArgFiles(t *testing.T) {
	var exits atomic.Int32
	g, _ := newGate(t, nil, &fakeTransport{}, nil, Options{
		ArgFiles: []string{"/a.png", "/b.png"},
		Exit:     func() { exits.Add(1) },
	})
	g.MarkUpdateChecked()
	g.RequestExit(false)
	assert.True(t, g.ExitRequested())

	g.OnUploadFinished(artifact.Artifact{Name: "x.png", SourcePath: "/a.png"}, Result{})
	assert.False(t, g.Uploaded())
	assert.EqualValues(t, 0, exits.Load())

	g.OnUploadFinished(artifact.Artifact{Name: "y.png", SourcePath: "/b.png"}, Result{})
	assert.True(t, g.Uploaded())
	assert.EqualValues(t, 1, exits.Load())
}

func TestRequestUploadWithoutLinkDoesNothing(t *testing.T) {
	tr := &fakeTransport{}
	g, rec := newGate(t, nil, tr, nil, Options{})
	rec.Reset(image.NewRGBA(image.Rect(0, 0, 1, 1)), "")
	require.NoError(t, rec.AssignName("nolink.png"))

	g.RequestUpload()
	waitGate(t, g)
	assert.Empty(t, tr.calls())
}

func TestCopyLinkAfterSave(t *testing.T) {
	var copied []string
	var mu sync.Mutex
	g, rec := newGate(t, nil, &fakeTransport{}, nil, Options{
		CopyLink: true,
		CopyText: func(s string) error {
			mu.Lock()
			copied = append(copied, s)
			mu.Unlock()
			return nil
		},
	})
	capture(t, rec, "copy me.png", "")
	g.RequestUpload()
	waitGate(t, g)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"http://img.example.com/copy%20me.png"}, copied)
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "started", Started.String())
	assert.Equal(t, "deferred", Deferred.String())
}
