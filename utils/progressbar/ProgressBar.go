// Package progressbar implements functionality of printing a progress
// bar to the terminal window
package progressbar

import (
	"fmt"
	"io"
	"strings"
)

// ProgressBar prints a terminal progress bar for long-running sweeps.
// The bar reaches 100% after maxProgress Increment calls, but tolerates
// overshoot since sweeps may finish an in-flight unit of work after the
// budget is met.
type ProgressBar struct {
	width           int
	maxProgress     int
	currentProgress int
	description     string
	out             io.Writer
}

// New returns a new progress bar that is width characters wide and
// reaches 100% capacity after max Increment() calls. Output is written
// to out.
func New(width, max int, out io.Writer) *ProgressBar {
	return &ProgressBar{
		width:       width,
		maxProgress: max,
		out:         out,
	}
}

// SetDescription sets the text displayed beside the progress bar
func (p *ProgressBar) SetDescription(desc string) {
	p.description = desc
	p.render()
}

// Increment increments the internal progress counter. Each time an
// iteration is performed, Increment should be called.
func (p *ProgressBar) Increment() {
	p.currentProgress++
	p.render()
}

// Close finalizes the progress bar, moving the cursor to a new line
func (p *ProgressBar) Close() {
	fmt.Fprintln(p.out)
}

// render redraws the progress bar in-place
func (p *ProgressBar) render() {
	progress := float64(p.currentProgress) / float64(p.maxProgress)
	if progress > 1.0 {
		progress = 1.0
	}

	filled := int(progress * float64(p.width))
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", p.width-filled)

	fmt.Fprintf(p.out, "\r%v [%v] %3.0f%%", p.description, bar, progress*100)
}
