// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// StatusLine shows a transient single-line message that is erased
// before the next durable output.
//
// The sweep uses this while constructing compute handles: the message
// ("Creating FFT convolver...") appears, then is wiped with \r\033[K so
// the result row prints on a clean line. On a non-terminal stdout the
// message is suppressed entirely.
type StatusLine struct {
	out    io.Writer
	active bool
	tty    bool
}

// NewStatusLine creates a status line writing to stdout.
func NewStatusLine() *StatusLine {
	return &StatusLine{out: os.Stdout, tty: IsTerminal()}
}

// Set replaces the transient message.
func (s *StatusLine) Set(format string, args ...any) {
	if !s.tty {
		return
	}
	if s.active {
		fmt.Fprint(s.out, "\r\033[K")
	}
	fmt.Fprintf(s.out, format, args...)
	s.active = true
}

// Clear erases the transient message, if any.
func (s *StatusLine) Clear() {
	if !s.tty || !s.active {
		return
	}
	fmt.Fprint(s.out, "\r\033[K")
	s.active = false
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner provides an animated loading indicator for long setup phases.
type Spinner struct {
	message   string
	stop      chan struct{}
	done      chan struct{}
	mu        sync.Mutex
	isRunning bool
}

// NewSpinner creates a new spinner with the given message.
func NewSpinner(message string) *Spinner {
	return &Spinner{
		message: message,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start begins the spinner animation.
//
// On a non-terminal stdout the message is printed once without
// animation.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.mu.Unlock()

	if !IsTerminal() {
		fmt.Printf("%s\n", s.message)
		return
	}

	go func() {
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		frame := 0
		for {
			select {
			case <-s.stop:
				fmt.Print("\r\033[K")
				close(s.done)
				return
			case <-ticker.C:
				s.mu.Lock()
				msg := s.message
				s.mu.Unlock()
				fmt.Printf("\r%s %s", Styles.Highlight.Render(spinnerFrames[frame]), msg)
				frame = (frame + 1) % len(spinnerFrames)
			}
		}
	}()
}

// Stop halts the spinner animation and clears its line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	if !IsTerminal() {
		return
	}

	close(s.stop)
	<-s.done
}

// UpdateMessage changes the spinner message while running.
func (s *Spinner) UpdateMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// WithSpinner runs fn under a spinner, reporting success or failure.
func WithSpinner(message string, fn func() error) error {
	spin := NewSpinner(message)
	spin.Start()

	err := fn()
	spin.Stop()

	if err != nil {
		Error("%s: %v", message, err)
		return err
	}
	Success("%s: done", message)
	return nil
}
