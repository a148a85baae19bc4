package singleinstance

// This file defines the API for resident ownership and capture delegation.

import (
	"context"
)

// Server owns the TCP endpoint and answers delegated capture requests.
type Server interface {
	// Start begins listening on the first port of the configured range.
	Start(ctx context.Context) error
	// Port returns the bound TCP port, or 0 if not started.
	Port() int
	// Next returns the next accepted connection as a Conn, or ctx error.
	Next(ctx context.Context) (Conn, error)
	// Close releases ownership and stops accepting clients.
	Close() error
}

// Conn represents one client connection and exposes request + response API.
type Conn interface {
	// Request returns the parsed client request.
	Request() Request
	// RespondSuccess sends success with the artifact link (may be empty).
	RespondSuccess(link string) error
	// RespondError sends an error with human-readable message.
	RespondError(msg string) error
	// Close closes the underlying connection.
	Close() error
}

// Request is one delegated capture: the mode name and its arguments
// (area rectangle, point coordinates or file paths).
type Request struct {
	Mode string
	Args []string
}

// Client attempts to delegate a capture to a resident server.
type Client interface {
	// TryRun scans the port range, performs the handshake and delegates req.
	// If no resident is found, returns delegated=false, err=nil.
	TryRun(ctx context.Context, req Request) (delegated bool, link string, err error)
}

// NewServer returns TCP implementation.
func NewServer() Server { return newTcpServer() }

// NewClient returns TCP implementation.
func NewClient() Client { return newTcpClient() }
