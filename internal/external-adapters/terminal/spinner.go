package terminal

import (
	"fmt"
	"io"
	"sync"
	"time"
)

var spinnerFrames = []string{"|", "/", "-", "\\"}

// Spinner draws a rotating character on a single line while the caller waits.
// It implements interfaces.ProgressIndicator.
type Spinner struct {
	out      io.Writer
	interval time.Duration

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewSpinner creates a spinner that redraws every interval
func NewSpinner(out io.Writer, interval time.Duration) *Spinner {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Spinner{out: out, interval: interval}
}

// Start begins animating. Calling Start on a running spinner does nothing.
func (s *Spinner) Start(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.run(message, s.stop, s.done)
}

// Stop halts the animation, clears the line and waits for the drawing
// goroutine to exit
func (s *Spinner) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (s *Spinner) run(message string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	frame := 0
	s.draw(message, frame)
	for {
		select {
		case <-stop:
			// carriage return + erase line
			fmt.Fprint(s.out, "\r\033[K")
			return
		case <-ticker.C:
			frame++
			s.draw(message, frame)
		}
	}
}

func (s *Spinner) draw(message string, frame int) {
	fmt.Fprintf(s.out, "\r%s %s", infoStyle.Sprint(spinnerFrames[frame%len(spinnerFrames)]), message)
}
