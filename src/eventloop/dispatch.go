package eventloop

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"

	"upscreen/src/screenshot"
	"upscreen/src/singleinstance"
)

// Mode names accepted from the command line and from delegating clients.
const (
	ModeFull      = "full"
	ModeArea      = "area"
	ModeWindow    = "window"
	ModeClipboard = "clipboard"
	ModeFiles     = "files"
)

// ErrUnknownMode is returned for a request whose mode is not recognized.
var ErrUnknownMode = errors.New("unknown capture mode")

// Capturer is the set of capture entry points a request is dispatched to.
type Capturer interface {
	CaptureFullScreen(ctx context.Context) error
	CaptureArea(ctx context.Context, area screenshot.Region) error
	CaptureWindow(ctx context.Context, p image.Point) error
	CaptureFromArgs(ctx context.Context, paths []string) error
	CaptureFromClipboard(ctx context.Context) error
}

// Dispatch runs the capture named by req.
func Dispatch(ctx context.Context, c Capturer, req singleinstance.Request) error {
	switch req.Mode {
	case ModeFull:
		return c.CaptureFullScreen(ctx)
	case ModeArea:
		if len(req.Args) != 1 {
			return fmt.Errorf("area needs one X,Y,W,H argument")
		}
		area, err := ParseRegion(req.Args[0])
		if err != nil {
			return err
		}
		return c.CaptureArea(ctx, area)
	case ModeWindow:
		if len(req.Args) != 1 {
			return fmt.Errorf("window needs one X,Y argument")
		}
		p, err := ParsePoint(req.Args[0])
		if err != nil {
			return err
		}
		return c.CaptureWindow(ctx, p)
	case ModeClipboard:
		return c.CaptureFromClipboard(ctx)
	case ModeFiles:
		if len(req.Args) == 0 {
			return fmt.Errorf("files needs at least one path")
		}
		return c.CaptureFromArgs(ctx, req.Args)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, req.Mode)
	}
}

// ParseRegion parses "X,Y,W,H".
func ParseRegion(s string) (screenshot.Region, error) {
	n, err := parseInts(s, 4)
	if err != nil {
		return screenshot.Region{}, fmt.Errorf("invalid area %q: %w", s, err)
	}
	return screenshot.Region{X: n[0], Y: n[1], Width: n[2], Height: n[3]}, nil
}

// ParsePoint parses "X,Y".
func ParsePoint(s string) (image.Point, error) {
	n, err := parseInts(s, 2)
	if err != nil {
		return image.Point{}, fmt.Errorf("invalid point %q: %w", s, err)
	}
	return image.Pt(n[0], n[1]), nil
}

func parseInts(s string, want int) ([]int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != want {
		return nil, fmt.Errorf("expected %d comma-separated integers", want)
	}
	out := make([]int, want)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
