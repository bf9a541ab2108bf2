package client

import (
	"fmt"
	"io"
	"sync"
)

// StatusKind is the style category of a status message.
type StatusKind int

const (
	StatusNeutral StatusKind = iota
	StatusSuccess
	StatusError
)

func (k StatusKind) String() string {
	switch k {
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "neutral"
	}
}

// Status is the text shown to the user and its kind.
type Status struct {
	Text string
	Kind StatusKind
}

// Display shows the current status. Each call replaces the previous status.
type Display interface {
	SetStatus(Status)
}

// ConsoleDisplay prints each status on its own line.
type ConsoleDisplay struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsoleDisplay(out io.Writer) *ConsoleDisplay {
	return &ConsoleDisplay{out: out}
}

func (d *ConsoleDisplay) SetStatus(s Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.out, "[%s] %s\n", s.Kind, s.Text)
}

// MemoryDisplay keeps only the latest status.
type MemoryDisplay struct {
	mu      sync.Mutex
	current Status
}

func (d *MemoryDisplay) SetStatus(s Status) {
	d.mu.Lock()
	d.current = s
	d.mu.Unlock()
}

// Status returns the last status set.
func (d *MemoryDisplay) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}
