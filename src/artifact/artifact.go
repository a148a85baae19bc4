// Package artifact holds the shared record of the current capture.
package artifact

import (
	"errors"
	"image"
	"sync"

	"upscreen/src/naming"
)

var (
	ErrNoImage = errors.New("artifact has no image")
	ErrNoName  = errors.New("artifact has no name")
	ErrNoLink  = errors.New("artifact has no link")
)

// Artifact is a point-in-time copy of the record, safe to hand to an upload task.
type Artifact struct {
	Image      image.Image
	Name       string
	Link       string
	SourcePath string
	LocalPath  string
	RemotePath string
}

// Record is the single, mutable "current artifact". All access goes
// through its mutex.
type Record struct {
	mu         sync.Mutex
	image      image.Image
	rawCapture image.Image
	name       string
	link       string
	sourcePath string
}

// SetRawCapture keeps the latest full-screen capture for window/area crops.
func (r *Record) SetRawCapture(img image.Image) {
	r.mu.Lock()
	r.rawCapture = img
	r.mu.Unlock()
}

// RawCapture returns the retained full-screen capture, if any.
func (r *Record) RawCapture() image.Image {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rawCapture
}

// Reset starts a new capture with img. Name, link and source are cleared.
func (r *Record) Reset(img image.Image, sourcePath string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.image = img
	r.name = ""
	r.link = ""
	r.sourcePath = sourcePath
}

// AssignName sets the file name. An image must be present.
func (r *Record) AssignName(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.image == nil {
		return ErrNoImage
	}
	r.name = name
	r.link = ""
	return nil
}

// AssignLink derives the public link from base and the current name.
func (r *Record) AssignLink(base string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.image == nil {
		return "", ErrNoImage
	}
	if r.name == "" {
		return "", ErrNoName
	}
	r.link = naming.Link(base, r.name)
	return r.link, nil
}

// Snapshot copies the record for an upload. The link must already be set.
func (r *Record) Snapshot() (Artifact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.image == nil:
		return Artifact{}, ErrNoImage
	case r.name == "":
		return Artifact{}, ErrNoName
	case r.link == "":
		return Artifact{}, ErrNoLink
	}
	return Artifact{
		Image:      r.image,
		Name:       r.name,
		Link:       r.link,
		SourcePath: r.sourcePath,
	}, nil
}

// Name returns the current name.
func (r *Record) Name() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.name
}

// Link returns the current link.
func (r *Record) Link() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.link
}
