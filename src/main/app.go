package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"upscreen/src/artifact"
	"upscreen/src/browser"
	"upscreen/src/clipboard"
	"upscreen/src/config"
	"upscreen/src/events"
	"upscreen/src/fetch"
	"upscreen/src/gate"
	"upscreen/src/orchestrator"
	"upscreen/src/prereq"
	"upscreen/src/screenshot"
	"upscreen/src/transport"
	"upscreen/src/window"
)

// app is the wired capture pipeline for one process.
type app struct {
	bus   *events.Bus
	gate  *gate.Gate
	check *prereq.Check
	orch  *orchestrator.Orchestrator
}

func newTransport(ctx context.Context, cfg *config.Config) (transport.Uploader, error) {
	switch cfg.Transport {
	case config.TransportLocal:
		return transport.NewLocal(cfg.LocalTargetDir)
	case config.TransportS3:
		return transport.NewS3(ctx, transport.S3Config{
			Endpoint:       cfg.S3.Endpoint,
			Bucket:         cfg.S3.Bucket,
			Region:         cfg.S3.Region,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			DisableTLS:     cfg.S3.DisableTLS,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

// newApp wires the pipeline and starts the account check. clipboardOK
// reports whether the system clipboard initialized.
func newApp(ctx context.Context, cfg *config.Config, tr transport.Uploader, clipboardOK bool, exit func()) *app {
	bus := events.NewBus()
	record := &artifact.Record{}

	var copyText func(string) error
	if clipboardOK {
		copyText = clipboard.Write
	}

	check := prereq.New(tr.Check)
	g := gate.New(record, check, tr, browser.Default{}, gate.Options{
		LocalFolder:   cfg.LocalFolder,
		RemoteFolder:  cfg.RemoteFolder,
		JPEGQuality:   cfg.JPEGQuality,
		CopyLink:      cfg.CopyLink,
		OpenInBrowser: cfg.OpenInBrowser,
		FromFileMenu:  cfg.FromFileMenu,
		ArgFiles:      cfg.ArgFiles,
		UploadTimeout: time.Duration(cfg.UploadTimeoutSec) * time.Second,
		CopyText:      copyText,
		Exit:          exit,
	})
	check.Start(ctx, func(error) { g.PrerequisiteDone() })

	desktop, err := window.NewDesktop()
	if err != nil {
		log.Printf("Window capture unavailable: %v", err)
		desktop = nil
	}

	var source orchestrator.ClipboardSource
	if clipboardOK {
		fetcher := fetch.New(time.Duration(cfg.FetchTimeoutSec)*time.Second, func(rawURL string, err error) {
			bus.Publish(events.Event{Kind: events.URLCaptureFailed, Link: rawURL, Err: err})
		})
		source = &clipboard.Source{Reader: clipboard.System{}, Fetcher: fetcher}
	}

	orch := orchestrator.New(orchestrator.Deps{
		Capturer:  screenshot.New(),
		Desktop:   desktop,
		Clipboard: source,
		Gate:      g,
		Record:    record,
		Bus:       bus,
		CopyText:  copyText,
	}, orchestrator.Options{
		FileNameLength: cfg.FileNameLength,
		ImageFormat:    cfg.ImageFormat,
		RemoteHTTPPath: cfg.RemoteHTTPPath,
		CopyLink:       cfg.CopyLink,
	})

	return &app{bus: bus, gate: g, check: check, orch: orch}
}
