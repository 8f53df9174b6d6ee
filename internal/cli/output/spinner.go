package output

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// Spinner animates a status message on a terminal. On non-TTY output it
// prints nothing.
type Spinner struct {
	w       io.Writer
	enabled bool
	frames  []string
	fps     time.Duration

	mu      sync.Mutex
	message string
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewSpinner creates a spinner writing to error output.
func (r *Renderer) NewSpinner(message string) *Spinner {
	return &Spinner{
		w:       r.errOut,
		enabled: r.isTTY && r.EffectiveMode() == ModeText,
		frames:  spinner.MiniDot.Frames,
		fps:     spinner.MiniDot.FPS,
		message: message,
	}
}

// Start begins the animation.
func (s *Spinner) Start() {
	if !s.enabled || s.done != nil {
		return
	}
	s.done = make(chan struct{})
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.fps)
		defer ticker.Stop()
		for i := 0; ; i++ {
			s.mu.Lock()
			_, _ = fmt.Fprintf(s.w, "\r\033[K%s %s", s.frames[i%len(s.frames)], s.message)
			s.mu.Unlock()
			select {
			case <-s.done:
				return
			case <-ticker.C:
			}
		}
	}()
}

// Update replaces the message.
func (s *Spinner) Update(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// Stop ends the animation and clears the line.
func (s *Spinner) Stop() {
	if s.done == nil {
		return
	}
	close(s.done)
	s.wg.Wait()
	s.done = nil
	_, _ = fmt.Fprint(s.w, "\r\033[K")
}
