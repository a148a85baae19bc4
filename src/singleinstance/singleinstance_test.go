package singleinstance

import (
	"context"
	"testing"
	"time"
)

func TestServerClientRoundTrip(t *testing.T) {
	t.Setenv("SINGLEINSTANCE_PORT_START", "49671")
	t.Setenv("SINGLEINSTANCE_PORT_END", "49671")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv := NewServer()
	if err := srv.Start(ctx); err != nil {
		t.Skipf("loopback listener unavailable in this environment: %v", err)
	}
	defer srv.Close()

	client := NewClient()
	type result struct {
		delegated bool
		link      string
		err       error
	}
	done := make(chan result, 1)
	go func() {
		delegated, link, err := client.TryRun(ctx, Request{Mode: "area", Args: []string{"10,20,300,200"}})
		done <- result{delegated, link, err}
	}()

	conn, err := srv.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	req := conn.Request()
	if req.Mode != "area" || len(req.Args) != 1 || req.Args[0] != "10,20,300,200" {
		t.Errorf("unexpected request %+v", req)
	}
	if err := conn.RespondSuccess("http://img.example.com/abc123.png"); err != nil {
		t.Fatalf("respond: %v", err)
	}
	conn.Close()

	r := <-done
	if r.err != nil {
		t.Fatalf("client: %v", r.err)
	}
	if !r.delegated {
		t.Error("expected delegation")
	}
	if r.link != "http://img.example.com/abc123.png" {
		t.Errorf("link = %q", r.link)
	}
}

func TestServerErrorReply(t *testing.T) {
	t.Setenv("SINGLEINSTANCE_PORT_START", "49672")
	t.Setenv("SINGLEINSTANCE_PORT_END", "49672")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv := NewServer()
	if err := srv.Start(ctx); err != nil {
		t.Skipf("loopback listener unavailable in this environment: %v", err)
	}
	defer srv.Close()

	done := make(chan error, 1)
	go func() {
		_, _, err := NewClient().TryRun(ctx, Request{Mode: "window"})
		done <- err
	}()
	conn, err := srv.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	_ = conn.RespondError("no window")
	conn.Close()

	if err := <-done; err == nil || err.Error() != "no window" {
		t.Errorf("err = %v, want no window", err)
	}
}

func TestNoResident(t *testing.T) {
	t.Setenv("SINGLEINSTANCE_PORT_START", "49673")
	t.Setenv("SINGLEINSTANCE_PORT_END", "49673")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	delegated, _, err := NewClient().TryRun(ctx, Request{Mode: "full"})
	if err != nil || delegated {
		t.Errorf("delegated=%v err=%v, want false nil", delegated, err)
	}
}

func TestDetectResidentPort(t *testing.T) {
	t.Setenv("SINGLEINSTANCE_PORT_START", "49674")
	t.Setenv("SINGLEINSTANCE_PORT_END", "49675")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	probe, probeCancel := context.WithTimeout(ctx, 500*time.Millisecond)
	if _, ok := DetectResidentPort(probe); ok {
		probeCancel()
		t.Skip("a listener already answers on the test ports")
	}
	probeCancel()

	srv := NewServer()
	if err := srv.Start(ctx); err != nil {
		t.Skipf("loopback listener unavailable in this environment: %v", err)
	}
	defer srv.Close()

	port, ok := DetectResidentPort(ctx)
	if !ok || port != 49674 {
		t.Errorf("DetectResidentPort = %d, %v; want 49674, true", port, ok)
	}
}

func TestRequestCodec(t *testing.T) {
	tests := []Request{
		{Mode: "full"},
		{Mode: "files", Args: []string{`C:\My Pictures\a b.png`, "/tmp/\"q\".gif"}},
		{Mode: "window", Args: []string{"100,200"}},
	}
	for _, want := range tests {
		got, err := parseRequest(encodeRequest(want))
		if err != nil {
			t.Fatalf("parse %+v: %v", want, err)
		}
		if got.Mode != want.Mode || len(got.Args) != len(want.Args) {
			t.Fatalf("got %+v, want %+v", got, want)
		}
		for i := range want.Args {
			if got.Args[i] != want.Args[i] {
				t.Errorf("arg %d = %q, want %q", i, got.Args[i], want.Args[i])
			}
		}
	}

	for _, bad := range []string{"", "STDOUT\n", "CAPTURE \n", "CAPTURE full\n", `CAPTURE ""` + "\n"} {
		if _, err := parseRequest(bad); err == nil {
			t.Errorf("parseRequest(%q) should fail", bad)
		}
	}
}

func TestPortRangeClamp(t *testing.T) {
	t.Setenv("SINGLEINSTANCE_PORT_START", "80")
	t.Setenv("SINGLEINSTANCE_PORT_END", "70000")
	if r := Ports(); r != (PortRange{Start: 1024, End: 65535}) {
		t.Errorf("range = %s", r)
	}
}

func TestPortRangeDefaultsAndSwap(t *testing.T) {
	t.Setenv("SINGLEINSTANCE_PORT_START", "abc")
	t.Setenv("SINGLEINSTANCE_PORT_END", "")
	if r := Ports(); r != (PortRange{Start: defaultPortStart, End: defaultPortEnd}) {
		t.Errorf("defaults = %s", r)
	}
	t.Setenv("SINGLEINSTANCE_PORT_START", "50010")
	t.Setenv("SINGLEINSTANCE_PORT_END", "50000")
	if r := Ports(); r != (PortRange{Start: 50000, End: 50010}) {
		t.Errorf("swapped = %s", r)
	}
}
