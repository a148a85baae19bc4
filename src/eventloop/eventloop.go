package eventloop

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"upscreen/src/events"
	"upscreen/src/metrics"
	"upscreen/src/singleinstance"
)

// Orchestrator is what the resident loop drives.
type Orchestrator interface {
	Capturer
	Link() string
}

// Loop is the single-threaded coordinator for delegated capture requests.
type Loop struct {
	orch        Orchestrator
	srv         singleinstance.Server
	bus         *events.Bus
	metricsAddr string
	// OnEvent, if set, receives every event after it is logged.
	OnEvent func(events.Event)
}

// New creates a resident loop. metricsAddr may be empty to skip /metrics.
func New(orch Orchestrator, bus *events.Bus, metricsAddr string) *Loop {
	return &Loop{
		orch:        orch,
		srv:         singleinstance.NewServer(),
		bus:         bus,
		metricsAddr: metricsAddr,
	}
}

// Run starts the singleinstance server and processes client requests.
// It blocks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.srv.Start(ctx); err != nil {
		return err
	}
	defer l.srv.Close()
	if p := l.srv.Port(); p > 0 {
		log.Printf("Resident listening on 127.0.0.1:%d", p)
	}

	if l.metricsAddr != "" {
		go serveMetrics(ctx, l.metricsAddr)
	}

	var evCh <-chan events.Event
	if l.bus != nil {
		evCh = l.bus.Subscribe(16)
	}

	// Accept loop in background so events keep flowing while idle
	reqCh := make(chan singleinstance.Conn, 4)
	go func() {
		for {
			conn, err := l.srv.Next(ctx)
			if err != nil {
				close(reqCh)
				return
			}
			select {
			case reqCh <- conn:
			case <-ctx.Done():
				conn.Close()
				close(reqCh)
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case conn, ok := <-reqCh:
			if !ok {
				return nil
			}
			l.handleConn(ctx, conn)
		case ev, ok := <-evCh:
			if !ok {
				evCh = nil
				continue
			}
			l.handleEvent(ev)
		}
	}
}

func (l *Loop) handleConn(ctx context.Context, conn singleinstance.Conn) {
	defer conn.Close()
	req := conn.Request()
	log.Printf("handleConn: mode=%s args=%v", req.Mode, req.Args)
	if err := Dispatch(ctx, l.orch, req); err != nil {
		log.Printf("handleConn: capture failed: %v", err)
		_ = conn.RespondError(err.Error())
		return
	}
	_ = conn.RespondSuccess(l.orch.Link())
}

func (l *Loop) handleEvent(ev events.Event) {
	switch ev.Kind {
	case events.UploadComplete:
		log.Printf("Event: capture complete, link=%s", ev.Link)
	case events.URLCaptureFailed:
		log.Printf("Event: could not capture image from %s: %v", ev.Link, ev.Err)
	}
	if l.OnEvent != nil {
		l.OnEvent(ev)
	}
}

func serveMetrics(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics: shutdown error: %v", err)
		}
	}()

	log.Printf("metrics: listening on %s", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("metrics: %v", err)
	}
}
