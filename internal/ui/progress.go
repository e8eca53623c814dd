package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Spinner shows that a blocking step is still running. It only animates
// when output is a terminal.
type Spinner struct {
	frames  []string
	current int
	message string
	stop    chan struct{}
	done    chan struct{}
	mu      sync.Mutex
}

// NewSpinner creates a new spinner
func NewSpinner(message string) *Spinner {
	return &Spinner{
		frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		message: message,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start begins the spinner animation
func (s *Spinner) Start() {
	if !supportsColor {
		close(s.done)
		return
	}
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.mu.Lock()
				fmt.Fprintf(Output, "\r%s %s %s",
					ColorProgress(s.frames[s.current]),
					s.message,
					strings.Repeat(" ", 20),
				)
				s.current = (s.current + 1) % len(s.frames)
				s.mu.Unlock()
			}
		}
	}()
}

// Stop stops the spinner and prints the final status
func (s *Spinner) Stop(success bool, message string) {
	close(s.stop)
	<-s.done

	if supportsColor {
		fmt.Fprint(Output, "\r\033[K")
	}
	if success {
		fmt.Fprintf(Output, "%s %s\n", ColorSuccess("✓"), message)
	} else {
		fmt.Fprintf(Output, "%s %s\n", ColorError("✗"), message)
	}
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		seconds := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", hours, minutes)
}
