package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/lipgloss"
)

const (
	spinnerFrameWidth = 2 // braille frames render ~2 columns
	spinnerAnimDelay  = 80 * time.Millisecond
	spinnerClearPad   = 5
)

// spinner animates a progress line on a terminal while a remote call runs.
// Off a terminal it prints the message once.
type spinner struct {
	frames  []string
	message string
	w       io.Writer

	done    atomic.Bool
	stopped sync.WaitGroup
}

func newSpinner(w io.Writer, message string) *spinner {
	return &spinner{
		frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		message: message,
		w:       w,
	}
}

func (s *spinner) Start() {
	if !isTTY() {
		fmt.Fprintf(s.w, "%s...\n", s.message)
		return
	}

	style := lipgloss.NewStyle().Foreground(colorPrimary)
	s.stopped.Add(1)
	go func() {
		defer s.stopped.Done()
		for i := 0; !s.done.Load(); i++ {
			fmt.Fprintf(s.w, "\r%s %s", style.Render(s.frames[i%len(s.frames)]), s.message)
			time.Sleep(spinnerAnimDelay)
		}
	}()
}

func (s *spinner) Stop() {
	s.done.Store(true)
	s.stopped.Wait()
	if isTTY() {
		width := spinnerFrameWidth + 1 + len(s.message) + spinnerClearPad
		fmt.Fprint(s.w, "\r"+strings.Repeat(" ", width)+"\r")
	}
}

// runWithSpinner runs operation while a spinner shows message on w.
func runWithSpinner(w io.Writer, message string, operation func() error) error {
	spin := newSpinner(w, message)
	spin.Start()
	err := operation()
	spin.Stop()
	return err
}
