package singleinstance

import (
	"bufio"
	"context"
	"io"
	"log"
	"net"
	"time"
)

const (
	residentHost     = "127.0.0.1"
	pingRequest      = "PING\n"
	pongResponse     = "PONG\n"
	statusSuccess    = "SUCCESS"
	statusError      = "ERROR"
	handshakeTimeout = 3 * time.Second
)

// tcpServer implements Server over TCP loopback.
type tcpServer struct {
	lis      net.Listener
	incoming chan *tcpConn
	closed   chan struct{}
	port     int
}

func newTcpServer() Server {
	return &tcpServer{incoming: make(chan *tcpConn, 8), closed: make(chan struct{})}
}

// Start binds the first port of Ports. An occupied port is an error; the
// range is only scanned by clients.
func (s *tcpServer) Start(ctx context.Context) error {
	if s.lis != nil {
		return nil
	}
	port := Ports().Start
	lis, err := net.Listen("tcp", residentAddr(port))
	if err != nil {
		return err
	}
	s.lis = lis
	s.port = port
	go s.acceptLoop(ctx, lis)
	return nil
}

func (s *tcpServer) Port() int { return s.port }

func (s *tcpServer) acceptLoop(ctx context.Context, lis net.Listener) {
	for {
		c, err := lis.Accept()
		if err != nil {
			return
		}
		tc, ok := handshake(c)
		if !ok {
			continue
		}
		select {
		case s.incoming <- tc:
		case <-ctx.Done():
			_ = c.Close()
			return
		case <-s.closed:
			_ = c.Close()
			return
		}
	}
}

// handshake answers a PING or parses a capture request. It returns false
// when c has already been answered and closed.
func handshake(c net.Conn) (*tcpConn, bool) {
	remote := c.RemoteAddr().String()
	_ = c.SetReadDeadline(time.Now().Add(handshakeTimeout))
	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil && line == "" {
		_ = c.Close()
		return nil, false
	}
	if line == pingRequest {
		_, _ = io.WriteString(c, pongResponse)
		_ = c.Close()
		return nil, false
	}
	req, err := parseRequest(line)
	if err != nil {
		log.Printf("singleinstance: bad request from %s: %q", remote, line)
		tc := &tcpConn{c: c, w: bufio.NewWriter(c)}
		_ = tc.RespondError(err.Error())
		_ = c.Close()
		return nil, false
	}
	_ = c.SetReadDeadline(time.Time{})
	log.Printf("singleinstance: %s from %s", req.Mode, remote)
	return &tcpConn{c: c, r: req, w: bufio.NewWriter(c)}, true
}

func (s *tcpServer) Next(ctx context.Context) (Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.closed:
		return nil, net.ErrClosed
	case tc := <-s.incoming:
		return tc, nil
	}
}

// Close is idempotent.
func (s *tcpServer) Close() error {
	select {
	case <-s.closed:
		return nil
	default:
	}
	close(s.closed)
	if s.lis != nil {
		return s.lis.Close()
	}
	return nil
}

type tcpConn struct {
	c net.Conn
	r Request
	w *bufio.Writer
}

func (tc *tcpConn) Request() Request { return tc.r }

func (tc *tcpConn) RespondSuccess(link string) error { return tc.reply(statusSuccess, link) }

func (tc *tcpConn) RespondError(msg string) error { return tc.reply(statusError, msg) }

// reply writes the status line followed by an optional body.
func (tc *tcpConn) reply(status, body string) error {
	if _, err := tc.w.WriteString(status + "\n" + body); err != nil {
		return err
	}
	return tc.w.Flush()
}

func (tc *tcpConn) Close() error { return tc.c.Close() }
