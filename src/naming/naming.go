// Package naming derives artifact file names, remote paths and public links.
package naming

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
)

// Alphabet is the set of characters generated names are drawn from.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ErrInvalidLength is returned for a negative name length.
var ErrInvalidLength = errors.New("length cannot be less than zero")

// RandomString returns length characters from Alphabet using crypto/rand.
// Bytes that would bias the distribution are rejected.
func RandomString(length int) (string, error) {
	if length < 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidLength, length)
	}
	const byteSize = 256
	outOfRange := byteSize - byteSize%len(Alphabet)

	var b strings.Builder
	b.Grow(length)
	buf := make([]byte, 128)
	for b.Len() < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, c := range buf {
			if b.Len() == length {
				break
			}
			if int(c) >= outOfRange {
				continue
			}
			b.WriteByte(Alphabet[int(c)%len(Alphabet)])
		}
	}
	return b.String(), nil
}

// Link builds the public URL of name under the remote HTTP base.
// The scheme defaults to http://, exactly one slash separates base and name,
// and spaces are percent-encoded.
func Link(base, name string) string {
	link := base
	if !strings.HasPrefix(link, "http://") && !strings.HasPrefix(link, "https://") {
		link = "http://" + link
	}
	if !strings.HasSuffix(link, "/") {
		link += "/"
	}
	link += strings.TrimLeft(name, "/")
	return strings.ReplaceAll(link, " ", "%20")
}

// Combine joins a remote folder and a file name with a single '/'.
// Both separator styles are trimmed and the result never starts with '/'.
func Combine(folder, name string) string {
	folder = strings.TrimRight(folder, `/\`)
	name = strings.TrimLeft(name, `/\`)
	return strings.TrimPrefix(folder+"/"+name, "/")
}

// Extension maps a configured image format ("png", "jpeg", "gif") to the
// extension used for fresh screen captures.
func Extension(format string) string {
	switch strings.ToLower(format) {
	case "jpeg", "jpg":
		return ".jpg"
	case "gif":
		return ".gif"
	default:
		return ".png"
	}
}

// ExtensionFor maps a decoded image format to an extension, falling back to
// the configured format when the decoded one is not png, jpeg or gif.
func ExtensionFor(decoded, fallback string) string {
	switch decoded {
	case "gif":
		return ".gif"
	case "jpeg":
		return ".jpeg"
	case "png":
		return ".png"
	default:
		return Extension(fallback)
	}
}
