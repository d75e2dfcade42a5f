package annotations

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Printer writes one line per event:
//
//	[1.5ms] done: 10 records, 3 groups, 1 skipped
type Printer struct {
	w     io.Writer
	color bool
}

// NewPrinter colors output only when w itself is a terminal and NO_COLOR is
// unset. color.NoColor is not consulted since it describes stdout.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stderr
	}
	p := &Printer{w: w}
	if f, ok := w.(*os.File); ok {
		fd := f.Fd()
		p.color = (isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)) && os.Getenv("NO_COLOR") == ""
	}
	return p
}

// NewPlainPrinter never emits escape codes.
func NewPlainPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Handle is a Handler.
func (p *Printer) Handle(event Event) {
	fmt.Fprintln(p.w, p.Line(event))
}

// Line renders event without a trailing newline.
func (p *Printer) Line(event Event) string {
	tag, body, attr := describe(event)
	return fmt.Sprintf("%s %s %s", p.stamp(event.Latency), p.paint(tag+":", attr), body)
}

func describe(event Event) (tag, body string, attr color.Attribute) {
	d := event.Data
	switch event.Name {
	case GroupByInvoked:
		return "start", fmt.Sprintf("keys %v, value %v", d["group_by"], d["value"]), color.FgYellow
	case GroupCreated:
		return "group", fmt.Sprintf("%v at record %v", d["key"], d["ordinal"]), color.FgCyan
	case RecordSkipped:
		return "skip", fmt.Sprint(d["error"]), color.FgYellow
	case GroupByComplete:
		if err := d["error"]; err != nil {
			return "failed", fmt.Sprint(err), color.FgRed
		}
		return "done", fmt.Sprintf("%v records, %v groups, %v skipped",
			d["records"], d["groups"], d["skipped"]), color.FgGreen
	}
	return event.Name, fmt.Sprint(d), color.Reset
}

// stamp shows latency rounded for reading; slow runs turn yellow then red
func (p *Printer) stamp(d time.Duration) string {
	if d < time.Millisecond {
		d = d.Round(time.Microsecond)
	} else {
		d = d.Round(100 * time.Microsecond)
	}
	s := "[" + d.String() + "]"

	switch {
	case d >= time.Second:
		return p.paint(s, color.FgRed)
	case d >= 100*time.Millisecond:
		return p.paint(s, color.FgYellow)
	}
	return p.paint(s, color.FgHiBlack)
}

func (p *Printer) paint(s string, attr color.Attribute) string {
	if !p.color || attr == color.Reset {
		return s
	}
	c := color.New(attr)
	c.EnableColor()
	return c.Sprint(s)
}
