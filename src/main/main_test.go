package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"upscreen/src/singleinstance"
)

func TestNormalizeLegacyArgs(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		out  []string
	}{
		{
			name: "Normalizes long single dash flags",
			in:   []string{"upscreen", "full", "-standalone", "-env", "/tmp/x.env"},
			out:  []string{"upscreen", "full", "--standalone", "--env", "/tmp/x.env"},
		},
		{
			name: "Normalizes equals form",
			in:   []string{"upscreen", "-env=/tmp/x.env", "-from-file-menu=true", "a.png"},
			out:  []string{"upscreen", "--env=/tmp/x.env", "--from-file-menu=true", "a.png"},
		},
		{
			name: "Leaves other args unchanged",
			in:   []string{"upscreen", "--verbose", "area", "-5,0,10,10"},
			out:  []string{"upscreen", "--verbose", "area", "-5,0,10,10"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeLegacyArgs(tt.in)
			if len(got) != len(tt.out) {
				t.Fatalf("Expected len=%d, got %d", len(tt.out), len(got))
			}
			for i := range got {
				if got[i] != tt.out[i] {
					t.Fatalf("Expected arg[%d]=%q, got %q", i, tt.out[i], got[i])
				}
			}
		})
	}
}

func TestNewRootCmdParsesFlags(t *testing.T) {
	opts := &mainOptions{}
	cmd := newRootCmd(opts, &bytes.Buffer{})
	if err := cmd.ParseFlags([]string{"--standalone", "--env", "/tmp/x.env", "--from-file-menu"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if !opts.standalone || !opts.fromFileMenu {
		t.Fatalf("Expected standalone and fromFileMenu, got %+v", opts)
	}
	if opts.envPath != "/tmp/x.env" {
		t.Fatalf("Expected envPath=/tmp/x.env, got %q", opts.envPath)
	}
}

func TestSubcommandsRejectBadArguments(t *testing.T) {
	tests := [][]string{
		{"upscreen", "area", "1,2,3"},
		{"upscreen", "window", "nope"},
		{"upscreen", "files"},
		{"upscreen", "full", "extra"},
	}
	for _, args := range tests {
		t.Run(strings.Join(args[1:], " "), func(t *testing.T) {
			if err := runWithArgs(args, &bytes.Buffer{}); err == nil {
				t.Errorf("expected error for %v", args)
			}
		})
	}
}

func TestRootWithoutArgsPrintsHelp(t *testing.T) {
	var out bytes.Buffer
	opts := &mainOptions{}
	cmd := newRootCmd(opts, &out)
	cmd.SetOut(&out)
	cmd.SetArgs(nil)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(out.String(), "resident") {
		t.Errorf("help output missing subcommands: %q", out.String())
	}
}

type fakeClient struct {
	delegated bool
	link      string
	err       error
	called    bool
	req       singleinstance.Request
}

func (f *fakeClient) TryRun(ctx context.Context, req singleinstance.Request) (bool, string, error) {
	f.called = true
	f.req = req
	return f.delegated, f.link, f.err
}

func TestHandleDelegation(t *testing.T) {
	tests := []struct {
		name         string
		client       fakeClient
		wantFallback bool
		wantErr      string
		wantOut      string
	}{
		{
			name:    "resident answers with a link",
			client:  fakeClient{delegated: true, link: "http://img.example.com/abc123.png"},
			wantOut: "http://img.example.com/abc123.png",
		},
		{
			name:         "no resident runs standalone",
			client:       fakeClient{},
			wantFallback: true,
		},
		{
			name:         "probe error runs standalone",
			client:       fakeClient{err: errors.New("connection reset")},
			wantFallback: true,
		},
		{
			name:    "resident failure is returned",
			client:  fakeClient{delegated: true, err: errors.New("no window")},
			wantErr: "no window",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := tt.client
			var out bytes.Buffer
			fellBack := false
			req := singleinstance.Request{Mode: "window", Args: []string{"1,1"}}

			err := handleDelegation(req, &client, &out, func() error {
				fellBack = true
				return nil
			})

			if !client.called || client.req.Mode != "window" {
				t.Fatalf("TryRun not called with the request, got %+v", client.req)
			}
			if fellBack != tt.wantFallback {
				t.Errorf("fallback = %v, want %v", fellBack, tt.wantFallback)
			}
			if tt.wantErr == "" && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.wantErr != "" && (err == nil || !strings.Contains(err.Error(), tt.wantErr)) {
				t.Errorf("err = %v, want %q", err, tt.wantErr)
			}
			if got := strings.TrimSpace(out.String()); got != tt.wantOut {
				t.Errorf("stdout = %q, want %q", got, tt.wantOut)
			}
		})
	}
}

func TestDelegatedFileArgsAreAbsolute(t *testing.T) {
	dir := t.TempDir()
	prevWD, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(prevWD) })

	req, err := absoluteFileArgs(singleinstance.Request{Mode: "files", Args: []string{"shot.png", filepath.Join("sub", "b.gif")}})
	if err != nil {
		t.Fatalf("absoluteFileArgs: %v", err)
	}
	client := &fakeClient{delegated: true}
	if err := handleDelegation(req, client, &bytes.Buffer{}, func() error { return nil }); err != nil {
		t.Fatalf("handleDelegation: %v", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(wd, "shot.png"), filepath.Join(wd, "sub", "b.gif")}
	if len(client.req.Args) != len(want) {
		t.Fatalf("args = %v, want %v", client.req.Args, want)
	}
	for i := range want {
		if client.req.Args[i] != want[i] {
			t.Errorf("arg %d = %q, want %q", i, client.req.Args[i], want[i])
		}
		if !filepath.IsAbs(client.req.Args[i]) {
			t.Errorf("arg %d = %q is relative", i, client.req.Args[i])
		}
	}
}

func TestAbsoluteFileArgsLeavesOtherModes(t *testing.T) {
	in := singleinstance.Request{Mode: "area", Args: []string{"1,2,3,4"}}
	got, err := absoluteFileArgs(in)
	if err != nil || got.Args[0] != "1,2,3,4" {
		t.Errorf("absoluteFileArgs(area) = %+v, %v", got, err)
	}
}

func TestFromFileMenuHelpMentionsResident(t *testing.T) {
	cmd := newRootCmd(&mainOptions{}, &bytes.Buffer{})
	flag := cmd.PersistentFlags().Lookup("from-file-menu")
	if flag == nil {
		t.Fatal("from-file-menu flag not registered")
	}
	if !strings.Contains(flag.Usage, "resident") {
		t.Errorf("usage %q does not say how delegated captures treat the flag", flag.Usage)
	}
}
