package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log"
	"net"
	"strings"
	"time"
)

// replyTimeout bounds the wait for the resident to finish the capture. It is
// independent of the detection deadline on ctx.
const replyTimeout = 30 * time.Second

type tcpClient struct{}

func newTcpClient() Client { return &tcpClient{} }

func (c *tcpClient) TryRun(ctx context.Context, req Request) (bool, string, error) {
	port, ok := scan(ctx, 2*time.Second)
	if !ok {
		return false, "", nil
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", residentAddr(port))
	if err != nil {
		log.Printf("singleinstance: resident on %d vanished: %v", port, err)
		return false, "", nil
	}
	defer conn.Close()
	link, err := exchange(conn, req)
	return true, link, err
}

// exchange sends req and reads the status line and the body that follows it.
func exchange(conn net.Conn, req Request) (string, error) {
	_ = conn.SetDeadline(time.Now().Add(replyTimeout))
	if _, err := io.WriteString(conn, encodeRequest(req)); err != nil {
		return "", err
	}
	br := bufio.NewReader(conn)
	status, err := br.ReadString('\n')
	if err != nil {
		return "", err
	}
	body, _ := io.ReadAll(br)
	switch strings.TrimSuffix(status, "\n") {
	case statusSuccess:
		return strings.TrimSpace(string(body)), nil
	case statusError:
		return "", errors.New(string(body))
	default:
		return "", errors.New("unexpected reply from resident: " + strings.TrimSpace(status))
	}
}
