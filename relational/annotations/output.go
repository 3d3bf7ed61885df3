package annotations

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
)

// OutputFormatter formats events for human-readable display.
type OutputFormatter struct {
	useColor bool
	writer   io.Writer
}

// NewOutputFormatter creates a formatter with color support detection.
func NewOutputFormatter(w io.Writer) *OutputFormatter {
	if w == nil {
		w = os.Stdout
	}

	useColor := false
	if f, ok := w.(*os.File); ok {
		useColor = isTerminal(f.Fd()) && !color.NoColor
	}

	return &OutputFormatter{
		useColor: useColor,
		writer:   w,
	}
}

// Handle implements Handler - prints events as they occur
func (f *OutputFormatter) Handle(event Event) {
	output := f.Format(event)
	if output != "" {
		fmt.Fprintln(f.writer, output)
	}
}

// Format converts an event to a human-readable string.
func (f *OutputFormatter) Format(event Event) string {
	latency := f.formatLatency(event.Latency)
	id := shortID(event.Data["join.id"])

	switch event.Name {
	case CostEstimated:
		return fmt.Sprintf("%s Cost of %v: %s",
			latency,
			event.Data["plan"],
			f.colorize(fmt.Sprintf("%v", event.Data["cost"]), color.FgCyan))

	case PlanChosen:
		return fmt.Sprintf("%s %s Chose %v (%d candidates)",
			latency,
			f.colorize("===", color.FgGreen),
			event.Data["plan"],
			intValue(event.Data["candidates"]))

	case JoinBegin:
		return fmt.Sprintf("%s %s %s join %v starting",
			latency,
			f.colorize("===", color.FgYellow),
			id,
			event.Data["join.spec"])

	case JoinBuild:
		return fmt.Sprintf("%s %s Built hash table: %s in %d buckets (%d null keys)",
			latency,
			id,
			f.colorizeCount("rows", intValue(event.Data["build.rows"])),
			intValue(event.Data["build.buckets"]),
			intValue(event.Data["build.null-keys"]))

	case JoinProbe:
		return fmt.Sprintf("%s %s Probed %s, %d matched",
			latency,
			id,
			f.colorizeCount("rows", intValue(event.Data["probe.rows"])),
			intValue(event.Data["probe.matched"]))

	case JoinFlush:
		return fmt.Sprintf("%s %s Flushed %s",
			latency,
			id,
			f.colorizeCount("unmatched rows", intValue(event.Data["flush.rows"])))

	case JoinComplete:
		if err, ok := event.Data["error"]; ok && err != nil {
			return fmt.Sprintf("%s %s %s join failed: %v",
				latency, f.colorize("✗", color.FgRed), id, err)
		}
		return fmt.Sprintf("%s %s %s join done with %s",
			latency,
			f.colorize("===", color.FgGreen),
			id,
			f.colorizeCount("rows", intValue(event.Data["result.rows"])))

	case ErrorJoin, ErrorStorage:
		return fmt.Sprintf("%s %s %s: %v",
			latency, f.colorize("✗", color.FgRed), event.Name, event.Data["error"])

	default:
		return fmt.Sprintf("%s %s %v", latency, event.Name, event.Data)
	}
}

// formatLatency formats duration with color coding.
func (f *OutputFormatter) formatLatency(d time.Duration) string {
	// Use microseconds for sub-millisecond durations
	if d < time.Millisecond {
		s := fmt.Sprintf("[%dµs]", d.Microseconds())
		if !f.useColor {
			return s
		}
		return color.GreenString(s)
	}

	ms := float64(d.Microseconds()) / 1000.0
	s := fmt.Sprintf("[%.1fms]", ms)
	if !f.useColor {
		return s
	}

	switch {
	case ms < 50:
		return color.GreenString(s)
	case ms < 200:
		return color.YellowString(s)
	default:
		return color.RedString(s)
	}
}

// colorizeCount applies color to counts based on size.
func (f *OutputFormatter) colorizeCount(label string, count int) string {
	text := fmt.Sprintf("%d %s", count, label)
	if !f.useColor {
		return text
	}
	switch {
	case count == 0:
		return color.RedString(text)
	case count < 10000:
		return color.MagentaString(text)
	default:
		return color.YellowString(text)
	}
}

// colorize applies color if enabled.
func (f *OutputFormatter) colorize(text string, attrs ...color.Attribute) string {
	if !f.useColor {
		return text
	}
	return color.New(attrs...).Sprint(text)
}

func intValue(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	}
	return 0
}

// shortID keeps the first uuid group, which is enough to tell joins apart
func shortID(v interface{}) string {
	s, _ := v.(string)
	if len(s) > 8 {
		s = s[:8]
	}
	if s == "" {
		return "-"
	}
	return "#" + s
}

// ConsoleHandler creates a handler that prints formatted events to stdout.
func ConsoleHandler() Handler {
	return NewOutputFormatter(os.Stdout).Handle
}

// isTerminal reports whether fd is stdout or stderr.
func isTerminal(fd uintptr) bool {
	return fd == uintptr(1) || fd == uintptr(2)
}
