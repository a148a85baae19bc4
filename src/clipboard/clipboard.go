package clipboard

import (
	"sync"

	"golang.design/x/clipboard"
)

var (
	writeMu sync.Mutex
)

func Init() error {
	return clipboard.Init()
}

// Write performs a mutex-guarded clipboard write to prevent corruption under parallel writes.
func Write(text string) error {
	writeMu.Lock()
	defer writeMu.Unlock()
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}

// Reader is the read side of the clipboard used by Source.
type Reader interface {
	// Image returns PNG-encoded bitmap data, or nil when the clipboard holds no bitmap.
	Image() []byte
	// Text returns the clipboard text, or "" when there is none.
	Text() string
}

// System reads the OS clipboard. Init must have succeeded first.
type System struct{}

func (System) Image() []byte { return clipboard.Read(clipboard.FmtImage) }
func (System) Text() string  { return string(clipboard.Read(clipboard.FmtText)) }
