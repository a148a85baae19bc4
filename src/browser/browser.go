// Package browser opens links with the platform's default URL handler.
package browser

import (
	"errors"
	"log"
)

// ErrEmptyURL is returned when there is nothing to open.
var ErrEmptyURL = errors.New("empty url")

// Default opens URLs with the OS handler.
type Default struct{}

// Open launches url in the default browser. Empty links are ignored with ErrEmptyURL.
func (Default) Open(url string) error {
	if url == "" {
		return ErrEmptyURL
	}
	log.Printf("Browser: opening %s", url)
	return open(url)
}
