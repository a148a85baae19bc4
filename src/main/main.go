package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"upscreen/src/clipboard"
	"upscreen/src/config"
	"upscreen/src/eventloop"
	"upscreen/src/events"
	"upscreen/src/logutil"
	"upscreen/src/singleinstance"
)

const fromFileMenuUsage = "Keep local files after upload. Ignored when a resident instance handles the capture; it uses the flag it was started with"

type mainOptions struct {
	envPath      string
	fromFileMenu bool
	standalone   bool
	verbose      bool
}

// delegator is the part of singleinstance.Client used for delegation.
type delegator interface {
	TryRun(ctx context.Context, req singleinstance.Request) (bool, string, error)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return runWithArgs(normalizeLegacyArgs(os.Args), os.Stdout)
}

func runWithArgs(args []string, out io.Writer) error {
	if len(args) == 0 {
		args = []string{"upscreen"}
	}
	opts := &mainOptions{}
	cmd := newRootCmd(opts, out)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *mainOptions, out io.Writer) *cobra.Command {
	capture := func(mode string, args []string) error {
		return runCapture(*opts, singleinstance.Request{Mode: mode, Args: args}, out)
	}

	root := &cobra.Command{
		Use:           "upscreen [FILE...]",
		Short:         "Capture the screen or upload images and copy a shareable link",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return capture(eventloop.ModeFiles, args)
		},
	}
	root.PersistentFlags().StringVar(&opts.envPath, "env", "", "Path to a .env file (highest precedence)")
	root.PersistentFlags().BoolVar(&opts.standalone, "standalone", false, "Do not delegate to a resident instance")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log to stderr")
	root.PersistentFlags().BoolVar(&opts.fromFileMenu, "from-file-menu", false, fromFileMenuUsage)

	root.AddCommand(
		&cobra.Command{
			Use:   "full",
			Short: "Capture the whole virtual desktop",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, args []string) error { return capture(eventloop.ModeFull, nil) },
		},
		&cobra.Command{
			Use:   "area X,Y,W,H",
			Short: "Capture a rectangle of the screen",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if _, err := eventloop.ParseRegion(args[0]); err != nil {
					return err
				}
				return capture(eventloop.ModeArea, args)
			},
		},
		&cobra.Command{
			Use:   "window X,Y",
			Short: "Capture the window under a screen point",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if _, err := eventloop.ParsePoint(args[0]); err != nil {
					return err
				}
				return capture(eventloop.ModeWindow, args)
			},
		},
		&cobra.Command{
			Use:   "clipboard",
			Short: "Upload the image, image file or image URL on the clipboard",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, args []string) error { return capture(eventloop.ModeClipboard, nil) },
		},
		&cobra.Command{
			Use:   "files FILE...",
			Short: "Upload image files",
			Args:  cobra.MinimumNArgs(1),
			RunE:  func(cmd *cobra.Command, args []string) error { return capture(eventloop.ModeFiles, args) },
		},
		&cobra.Command{
			Use:   "resident",
			Short: "Stay running and serve capture requests from other invocations",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, args []string) error { return runResident(*opts) },
		},
	)
	return root
}

// normalizeLegacyArgs maps single-dash long flags to their double-dash form.
func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range []string{"env", "standalone", "verbose", "from-file-menu"} {
			switch {
			case arg == "-"+name:
				normalized[i] = "--" + name
			case strings.HasPrefix(arg, "-"+name+"="):
				normalized[i] = "-" + arg
			}
		}
	}

	return normalized
}

func loadConfig(opts mainOptions, req singleinstance.Request) (*config.Config, error) {
	loadOptions := config.LoadOptions{EnvPathOverride: opts.envPath, FromFileMenu: opts.fromFileMenu}
	if req.Mode == eventloop.ModeFiles {
		loadOptions.ArgFiles = req.Args
	}
	cfg, err := config.LoadWithOptions(loadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func setupLogging(opts mainOptions, cfg *config.Config) {
	logutil.Setup(cfg.EnableFileLogging, cfg.LocalFolder)
	if opts.verbose {
		log.SetOutput(os.Stderr)
	}
	log.Printf("upscreen: config from %q, transport=%s, remote=%s", cfg.EnvPath, cfg.Transport, cfg.RemoteHTTPPath)
	if cfg.Transport == config.TransportS3 && cfg.S3.AccessKey != "" {
		log.Printf("upscreen: s3 bucket=%s key=%s", cfg.S3.Bucket, logutil.RedactKey(cfg.S3.AccessKey))
	}
}

func runCapture(opts mainOptions, req singleinstance.Request, out io.Writer) error {
	req, err := absoluteFileArgs(req)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(opts, req)
	if err != nil {
		return err
	}
	setupLogging(opts, cfg)

	if opts.standalone {
		return runStandalone(cfg, req, out)
	}
	return handleDelegation(req, singleinstance.NewClient(), out, func() error {
		return runStandalone(cfg, req, out)
	})
}

// absoluteFileArgs resolves file arguments against this process's working
// directory, which a resident instance does not share.
func absoluteFileArgs(req singleinstance.Request) (singleinstance.Request, error) {
	if req.Mode != eventloop.ModeFiles {
		return req, nil
	}
	paths := make([]string, len(req.Args))
	for i, p := range req.Args {
		abs, err := filepath.Abs(p)
		if err != nil {
			return req, fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		paths[i] = abs
	}
	req.Args = paths
	return req, nil
}

// handleDelegation hands req to a resident instance and falls back to
// running it in this process when none answers.
func handleDelegation(req singleinstance.Request, client delegator, out io.Writer, fallback func() error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	delegated, link, err := client.TryRun(ctx, req)
	if err != nil {
		if delegated {
			return fmt.Errorf("resident instance: %w", err)
		}
		log.Printf("Delegation error: %v; falling back to standalone", err)
		return fallback()
	}
	if delegated {
		log.Printf("Delegated %s to resident", req.Mode)
		if link != "" {
			fmt.Fprintln(out, link)
		}
		return nil
	}
	log.Printf("No resident detected, running standalone")
	return fallback()
}

func runStandalone(cfg *config.Config, req singleinstance.Request, out io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	enableDPIAwareness()
	logMonitorConfiguration()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tr, err := newTransport(ctx, cfg)
	if err != nil {
		return err
	}
	clipboardOK := true
	if err := clipboard.Init(); err != nil {
		log.Printf("Clipboard unavailable: %v", err)
		clipboardOK = false
	}

	exited := make(chan struct{})
	var exitOnce sync.Once
	a := newApp(ctx, cfg, tr, clipboardOK, func() { exitOnce.Do(func() { close(exited) }) })
	defer a.gate.Close()

	evCh := a.bus.Subscribe(8)
	go func() {
		for ev := range evCh {
			switch ev.Kind {
			case events.UploadComplete:
				// No update check is configured; the capture completing releases the exit latch.
				a.gate.MarkUpdateChecked()
			case events.URLCaptureFailed:
				fmt.Fprintf(os.Stderr, "Could not capture an image from %s: %v\n", ev.Link, ev.Err)
			}
		}
	}()
	defer a.bus.Close()

	if err := eventloop.Dispatch(ctx, a.orch, req); err != nil {
		return err
	}
	if link := a.orch.Link(); link != "" {
		fmt.Fprintln(out, link)
	}
	a.gate.RequestExit(false)

	select {
	case <-a.check.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := a.check.Err(); err != nil {
		log.Printf("Account check failed: %v", err)
	}
	waitCtx, waitCancel := context.WithTimeout(ctx, time.Duration(cfg.UploadTimeoutSec+5)*time.Second)
	defer waitCancel()
	if err := a.gate.Wait(waitCtx); err != nil {
		return fmt.Errorf("waiting for upload: %w", err)
	}
	a.gate.MarkUpdateChecked()

	select {
	case <-exited:
		return nil
	default:
	}
	if a.orch.Link() == "" {
		return nil
	}
	return errors.New("upload did not complete, the local copy was kept in " + cfg.LocalFolder)
}

func runResident(opts mainOptions) error {
	cfg, err := loadConfig(opts, singleinstance.Request{})
	if err != nil {
		return err
	}
	setupLogging(opts, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	probeCtx, probeCancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	port, running := singleinstance.DetectResidentPort(probeCtx)
	probeCancel()
	if running {
		return fmt.Errorf("a resident instance is already listening on port %d", port)
	}
	log.Printf("Resident: port range %s", singleinstance.Ports())

	enableDPIAwareness()
	logMonitorConfiguration()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tr, err := newTransport(ctx, cfg)
	if err != nil {
		return err
	}
	clipboardOK := true
	if err := clipboard.Init(); err != nil {
		log.Printf("Clipboard unavailable: %v", err)
		clipboardOK = false
	}

	a := newApp(ctx, cfg, tr, clipboardOK, cancel)
	loop := eventloop.New(a.orch, a.bus, cfg.MetricsAddr)
	loop.OnEvent = func(ev events.Event) {
		if ev.Kind == events.UploadComplete {
			a.gate.MarkUpdateChecked()
		}
	}

	err = loop.Run(ctx)

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer drainCancel()
	if werr := a.gate.Wait(drainCtx); werr != nil {
		log.Printf("Resident: uploads still running at shutdown: %v", werr)
	}
	a.gate.Close()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
