package output

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// writerIsTTY returns true if the given writer exposes an Fd() method
// (e.g. *os.File) and that fd is a terminal. Falls back to false for
// plain io.Writer values such as *bytes.Buffer.
func writerIsTTY(w io.Writer) bool {
	type fder interface {
		Fd() uintptr
	}
	if f, ok := w.(fder); ok {
		return isatty.IsTerminal(f.Fd())
	}
	return false
}

// Stages displays progress through a fixed list of named steps.
// Example: [==========>         ] 2/4 Detecting communities
type Stages struct {
	names   []string
	current int
	width   int
	mu      sync.Mutex
	writer  io.Writer
}

// NewStages creates a stage indicator writing to w.
func NewStages(w io.Writer, names ...string) *Stages {
	return &Stages{
		names:   names,
		current: -1,
		width:   20,
		writer:  w,
	}
}

// Next marks the next stage as running and redraws.
func (p *Stages) Next() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current < len(p.names)-1 {
		p.current++
	}
	p.render()
}

// Finish completes the indicator and moves to a new line.
func (p *Stages) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.names) == 0 {
		return
	}
	p.current = len(p.names) - 1
	if writerIsTTY(p.writer) {
		fmt.Fprintf(p.writer, "\r%s\r", strings.Repeat(" ", p.width+40))
	}
}

// render draws the indicator (must be called with lock held).
func (p *Stages) render() {
	if p.current < 0 || len(p.names) == 0 {
		return
	}
	done := p.current + 1
	filled := done * p.width / len(p.names)

	var bar strings.Builder
	bar.WriteString("[")
	for i := 0; i < p.width; i++ {
		switch {
		case i < filled-1:
			bar.WriteString("=")
		case i == filled-1:
			bar.WriteString(">")
		default:
			bar.WriteString(" ")
		}
	}
	bar.WriteString("]")

	line := fmt.Sprintf("%s %d/%d %s", bar.String(), done, len(p.names), p.names[p.current])
	if writerIsTTY(p.writer) {
		// Overwrite the previous stage, clearing a longer name.
		fmt.Fprintf(p.writer, "\r%-*s", p.width+40, line)
	} else {
		fmt.Fprintln(p.writer, line)
	}
}

// Spinner displays an animated spinner with a message.
// Example: |  Waiting for VRCX to write... (12s elapsed)
type Spinner struct {
	message   string
	running   bool
	chars     []string
	mu        sync.Mutex
	writer    io.Writer
	ticker    *time.Ticker
	done      chan struct{}
	startTime time.Time
}

// NewSpinner creates a spinner writing to w. On a non-TTY writer the
// animation is skipped and the message is printed once.
func NewSpinner(w io.Writer, message string) *Spinner {
	return &Spinner{
		message: message,
		chars:   []string{"|", "/", "-", "\\"},
		writer:  w,
		done:    make(chan struct{}),
	}
}

// Start begins the spinner animation.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	s.running = true
	s.startTime = time.Now()

	if !writerIsTTY(s.writer) {
		fmt.Fprintf(s.writer, "%s...\n", s.message)
		return
	}

	s.ticker = time.NewTicker(100 * time.Millisecond)
	ticker, done := s.ticker, s.done

	go func() {
		idx := 0
		for {
			select {
			case <-ticker.C:
				s.mu.Lock()
				if !s.running {
					s.mu.Unlock()
					return
				}
				elapsed := int(time.Since(s.startTime).Seconds())
				fmt.Fprintf(s.writer, "\r%s  %s (%ds elapsed)", s.chars[idx], s.message, elapsed)
				idx = (idx + 1) % len(s.chars)
				s.mu.Unlock()

			case <-done:
				return
			}
		}
	}()
}

// Stop stops the spinner animation and clears the line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.running = false
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.done)
	s.done = make(chan struct{})

	if writerIsTTY(s.writer) {
		fmt.Fprintf(s.writer, "\r%s\r", strings.Repeat(" ", len(s.message)+24))
	}
}

// UpdateMessage updates the spinner message while it's running.
func (s *Spinner) UpdateMessage(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
}

// StopWithMessage stops the spinner and displays a final message.
func (s *Spinner) StopWithMessage(message string) {
	s.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.writer, message)
}
