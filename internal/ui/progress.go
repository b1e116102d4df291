package ui

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/muesli/termenv"
)

const progressWidth = 30

// Progress reports ingestion progress. Terminals get an in-place bar;
// plain output gets one line per update. Safe for concurrent use.
type Progress struct {
	mu    sync.Mutex
	p     *Printer
	bar   progress.Model
	label string
	done  bool
}

// NewProgress creates a progress reporter with a short stage label.
func (p *Printer) NewProgress(label string) *Progress {
	opts := []progress.Option{
		progress.WithSolidFill(ColorLime),
		progress.WithWidth(progressWidth),
		progress.WithoutPercentage(),
	}
	if p.noColor {
		opts = append(opts, progress.WithColorProfile(termenv.Ascii))
	}
	return &Progress{p: p, bar: progress.New(opts...), label: label}
}

// Update records current out of total.
func (g *Progress) Update(current, total int) {
	if total <= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.done {
		return
	}

	if g.p.plain {
		_, _ = fmt.Fprintf(g.p.out, "[%s] %d/%d\n", g.label, current, total)
	} else {
		ratio := min(max(float64(current)/float64(total), 0), 1)
		_, _ = fmt.Fprintf(g.p.out, "\r%s [%s] %3.0f%% %d/%d", g.label, g.bar.ViewAs(ratio), ratio*100, current, total)
	}

	if current >= total {
		g.finish()
	}
}

// Done ends the progress line.
func (g *Progress) Done() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.finish()
}

func (g *Progress) finish() {
	if g.done {
		return
	}
	g.done = true
	if !g.p.plain {
		_, _ = fmt.Fprintln(g.p.out)
	}
}
