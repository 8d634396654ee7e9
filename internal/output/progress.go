package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// writerIsTTY returns true if w exposes an Fd() method and that fd is a
// terminal. Plain io.Writer values such as *bytes.Buffer are never TTYs.
func writerIsTTY(w io.Writer) bool {
	type fder interface {
		Fd() uintptr
	}
	if f, ok := w.(fder); ok {
		return isatty.IsTerminal(f.Fd())
	}
	return false
}

// ProgressBar tracks a fixed number of steps, e.g. deleting several versions.
// Example: [=========>          ] 45% Deleting versions
type ProgressBar struct {
	mu          sync.Mutex
	total       int
	current     int
	description string
	width       int
	writer      io.Writer
}

// NewProgress creates a progress bar writing to stderr.
func NewProgress(total int, description string) *ProgressBar {
	return &ProgressBar{
		total:       total,
		description: description,
		width:       30,
		writer:      os.Stderr,
	}
}

// SetWriter sets the output writer.
func (p *ProgressBar) SetWriter(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writer = w
}

// Increment advances by one step and redraws.
func (p *ProgressBar) Increment() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current < p.total {
		p.current++
	}
	p.render()
}

// Finish completes the bar and ends the line.
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	done := p.current == p.total
	p.current = p.total
	if writerIsTTY(p.writer) {
		p.render()
		fmt.Fprintln(p.writer)
		return
	}
	// Off a terminal render only prints at completion; avoid printing twice.
	if !done {
		p.render()
	}
}

// render must be called with the lock held.
func (p *ProgressBar) render() {
	pct, filled := 0, 0
	if p.total > 0 {
		pct = p.current * 100 / p.total
		filled = p.current * p.width / p.total
	}

	var bar strings.Builder
	bar.WriteByte('[')
	for i := 0; i < p.width; i++ {
		switch {
		case i < filled-1:
			bar.WriteByte('=')
		case i == filled-1:
			bar.WriteByte('>')
		default:
			bar.WriteByte(' ')
		}
	}
	bar.WriteByte(']')

	if writerIsTTY(p.writer) {
		fmt.Fprintf(p.writer, "\r%s %3d%% %s", bar.String(), pct, p.description)
	} else if p.current == p.total {
		fmt.Fprintf(p.writer, "%s %3d%% %s\n", bar.String(), pct, p.description)
	}
}

// Spinner displays an animated spinner with a message while an install
// script or a release fetch runs.
type Spinner struct {
	mu        sync.Mutex
	message   string
	running   bool
	chars     []string
	writer    io.Writer
	ticker    *time.Ticker
	done      chan struct{}
	startTime time.Time
	elapsed   bool
}

// NewSpinner creates a spinner writing to stderr. Call Start to show it.
func NewSpinner(message string) *Spinner {
	return &Spinner{
		message: message,
		chars:   []string{"|", "/", "-", "\\"},
		writer:  os.Stderr,
		done:    make(chan struct{}),
	}
}

// WithElapsed appends the elapsed seconds to the message. Call before Start.
func (s *Spinner) WithElapsed() *Spinner {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elapsed = true
	return s
}

// SetWriter sets the output writer.
func (s *Spinner) SetWriter(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writer = w
}

// Start begins the animation. On a non-TTY writer the message is printed
// once and no goroutine is started.
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
	go func() {
		idx := 0
		for {
			select {
			case <-s.ticker.C:
				s.mu.Lock()
				if !s.running {
					s.mu.Unlock()
					return
				}
				fmt.Fprintf(s.writer, "\r%s  %s", s.chars[idx], s.formatMessage())
				idx = (idx + 1) % len(s.chars)
				s.mu.Unlock()
			case <-s.done:
				return
			}
		}
	}()
}

// formatMessage must be called with the lock held.
func (s *Spinner) formatMessage() string {
	if !s.elapsed {
		return s.message
	}
	return fmt.Sprintf("%s (%ds elapsed)", s.message, int(time.Since(s.startTime).Seconds()))
}

// Stop halts the animation and clears the line. Safe to call repeatedly.
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

	if writerIsTTY(s.writer) {
		fmt.Fprintf(s.writer, "\r%s\r", strings.Repeat(" ", len(s.formatMessage())+4))
	}
}

// StopWithMessage stops the spinner and prints a final line.
func (s *Spinner) StopWithMessage(message string) {
	s.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.writer, message)
}
