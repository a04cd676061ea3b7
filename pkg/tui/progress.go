// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tui

import (
	"fmt"
	"io"
	"sync"
	"time"
)

var DefaultFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Progress draws a single status line counting finished items, such as
// lines of a batch file. It is safe for concurrent use.
type Progress struct {
	out      io.Writer
	label    string
	total    int
	interval time.Duration
	color    Colorizer

	mu      sync.Mutex
	done    int
	frame   int
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

type ProgressOption func(*Progress)

func WithInterval(d time.Duration) ProgressOption {
	return func(p *Progress) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithColor(c Colorizer) ProgressOption {
	return func(p *Progress) {
		p.color = c
	}
}

func NewProgress(out io.Writer, label string, total int, opts ...ProgressOption) *Progress {
	p := &Progress{
		out:      out,
		label:    label,
		total:    total,
		interval: 120 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start draws the first frame and redraws on every interval until Stop.
func (p *Progress) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	p.render()
	go p.loop()
}

// Done records n more finished items.
func (p *Progress) Done(n int) {
	p.mu.Lock()
	p.done += n
	p.mu.Unlock()
}

// Count returns the number of finished items.
func (p *Progress) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Stop halts redrawing and clears the status line.
func (p *Progress) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.running = false
	p.mu.Unlock()

	close(stopCh)
	<-doneCh
	fmt.Fprint(p.out, "\r\033[K")
}

func (p *Progress) loop() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.mu.Lock()
			p.frame = (p.frame + 1) % len(DefaultFrames)
			p.mu.Unlock()
			p.render()
		case <-p.stopCh:
			close(p.doneCh)
			return
		}
	}
}

func (p *Progress) line() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	frame := p.color.Wrap(ColorYellow, DefaultFrames[p.frame])
	return fmt.Sprintf("%s %s %d/%d", frame, p.label, p.done, p.total)
}

func (p *Progress) render() {
	fmt.Fprintf(p.out, "\r\033[K%s", p.line())
}
