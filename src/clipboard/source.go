package clipboard

import (
	"bytes"
	"context"
	"image"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"upscreen/src/imaging"
)

var urlPattern = regexp.MustCompile(`^(https?://)?([\da-z.-]+)\.([a-z.]{2,6})([/\w .-]*)*/?$`)

// Fetcher downloads the image a clipboard URL points to.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (image.Image, string, bool)
}

// Source resolves the clipboard contents to an image: bitmap first, then a
// dropped file list, then a URL.
type Source struct {
	Reader  Reader
	Fetcher Fetcher
}

// Resolve returns the image, its decoded format and true, or false when the
// clipboard holds nothing usable.
func (s *Source) Resolve(ctx context.Context) (image.Image, string, bool) {
	if s.Reader == nil {
		return nil, "", false
	}

	if data := s.Reader.Image(); len(data) > 0 {
		img, format, err := imaging.Decode(bytes.NewReader(data))
		if err != nil {
			log.Printf("clipboard: bitmap decode failed: %v", err)
			return nil, "", false
		}
		return img, format, true
	}

	text := strings.TrimSpace(s.Reader.Text())
	if text == "" {
		return nil, "", false
	}

	if files := FileList(text); len(files) > 0 {
		img, format, err := imaging.Load(files[0])
		if err != nil {
			log.Printf("clipboard: failed to load dropped file %s: %v", files[0], err)
			return nil, "", false
		}
		return img, format, true
	}

	if IsURL(text) && s.Fetcher != nil {
		return s.Fetcher.Fetch(ctx, text)
	}
	return nil, "", false
}

// IsURL reports whether text looks like a web address.
func IsURL(text string) bool {
	return urlPattern.MatchString(strings.TrimSpace(text))
}

// FileList parses clipboard text as a dropped file list. Every non-empty line
// must be a file:// URI or an absolute path to an existing file, otherwise
// nil is returned.
func FileList(text string) []string {
	var files []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		path, ok := filePath(line)
		if !ok {
			return nil
		}
		files = append(files, path)
	}
	return files
}

func filePath(line string) (string, bool) {
	if strings.HasPrefix(line, "file://") {
		u, err := url.Parse(line)
		if err != nil || u.Path == "" {
			return "", false
		}
		p := filepath.FromSlash(u.Path)
		// file:///C:/x parses to /C:/x
		if len(p) > 2 && (p[0] == '/' || p[0] == '\\') && p[2] == ':' {
			p = p[1:]
		}
		line = p
	}
	if !filepath.IsAbs(line) {
		return "", false
	}
	info, err := os.Stat(line)
	if err != nil || info.IsDir() {
		return "", false
	}
	return line, true
}
