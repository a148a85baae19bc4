package singleinstance

import (
	"fmt"
	"os"
	"strconv"
)

const (
	defaultPortStart = 49600
	defaultPortEnd   = 49650
	minPort          = 1024
	maxPort          = 65535
)

// PortRange is the inclusive loopback port range scanned for a resident.
// The resident itself only binds Start.
type PortRange struct {
	Start int
	End   int
}

func (r PortRange) String() string { return fmt.Sprintf("%d-%d", r.Start, r.End) }

// Ports reads SINGLEINSTANCE_PORT_START and SINGLEINSTANCE_PORT_END. Invalid
// values fall back to the defaults and the result is clamped to [1024, 65535].
func Ports() PortRange {
	r := PortRange{
		Start: max(envPort("SINGLEINSTANCE_PORT_START", defaultPortStart), minPort),
		End:   min(envPort("SINGLEINSTANCE_PORT_END", defaultPortEnd), maxPort),
	}
	if r.End < r.Start {
		r.Start, r.End = r.End, r.Start
	}
	return r
}

func envPort(key string, def int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return n
}
