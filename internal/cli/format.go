package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fpang/genprompt/internal/graph"
)

// FormatDurationShort formats a step duration as seconds with one decimal,
// or milliseconds below one second.
func FormatDurationShort(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// FormatTrace renders a traversal as one line per step.
func FormatTrace(t graph.Trace) string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s (entry: %s)\n", t.RunID, t.Entry)
	for _, s := range t.Steps {
		fmt.Fprintf(&b, "  %-10s %-9s %6s", s.Node, s.Outcome, FormatDurationShort(s.Duration))
		if s.Cause != nil {
			fmt.Fprintf(&b, "  %v", s.Cause)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// PrintJSON writes v to w as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
