// Package fetch downloads an image from a URL after checking its content type.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"upscreen/src/imaging"
	"upscreen/src/metrics"
)

const (
	defaultTimeout = 15 * time.Second
	maxImageBytes  = 50 * 1024 * 1024
)

// AllowedTypes are the content types accepted for download.
var AllowedTypes = []string{"image/png", "image/jpeg", "image/jpg", "image/gif"}

// ErrUnsupportedType is reported when the HEAD response is not an allowed image type.
var ErrUnsupportedType = errors.New("url does not point to a supported image")

// Fetcher validates and downloads remote images.
type Fetcher struct {
	Client *http.Client
	// OnFailure is called once for every failed fetch.
	OnFailure func(rawURL string, err error)
}

// New returns a Fetcher with a bounded timeout. timeout <= 0 uses 15s.
func New(timeout time.Duration, onFailure func(string, error)) *Fetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ExpectContinueTimeout = 0
	return &Fetcher{
		Client:    &http.Client{Timeout: timeout, Transport: transport},
		OnFailure: onFailure,
	}
}

// Fetch issues a HEAD request and, when the content type is allowed, a GET
// whose body is decoded. Any failure is reported through OnFailure and
// yields ok=false.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (image.Image, string, bool) {
	img, format, err := f.fetch(ctx, rawURL)
	if err != nil {
		log.Printf("fetch: %s: %v", rawURL, err)
		metrics.FetchFailures.Inc()
		if f.OnFailure != nil {
			f.OnFailure(rawURL, err)
		}
		return nil, "", false
	}
	return img, format, true
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) (image.Image, string, error) {
	u, err := normalizeURL(rawURL)
	if err != nil {
		return nil, "", err
	}

	head, err := http.NewRequestWithContext(ctx, http.MethodHead, u, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	head.Header.Del("Expect")
	resp, err := f.client().Do(head)
	if err != nil {
		return nil, "", fmt.Errorf("HEAD request failed: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, "", fmt.Errorf("HEAD returned status %d", resp.StatusCode)
	}
	contentType := resp.Header.Get("Content-Type")
	if !allowed(contentType) {
		return nil, "", fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
	}

	get, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err = f.client().Do(get)
	if err != nil {
		return nil, "", fmt.Errorf("GET request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("GET returned status %d", resp.StatusCode)
	}
	return imaging.Decode(io.LimitReader(resp.Body, maxImageBytes))
}

func (f *Fetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return http.DefaultClient
}

// normalizeURL adds http:// when the text carries no scheme.
func normalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid url: missing host")
	}
	return u.String(), nil
}

func allowed(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	for _, t := range AllowedTypes {
		if strings.EqualFold(mediaType, t) {
			return true
		}
	}
	return false
}
