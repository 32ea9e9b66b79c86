package uploader

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// WriteSummary renders the final success/failure counts plus any
// per-document failure reasons.
func WriteSummary(w io.Writer, sum Summary) {
	line := strings.Repeat("=", 60)
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "Upload summary")
	fmt.Fprintln(w, line)
	fmt.Fprintf(w, "  Total:     %d\n", sum.Total)
	fmt.Fprintf(w, "  Succeeded: %d\n", sum.Succeeded)
	fmt.Fprintf(w, "  Failed:    %d\n", sum.Failed)
	if !sum.FinishedAt.IsZero() {
		fmt.Fprintf(w, "  Duration:  %s\n", sum.FinishedAt.Sub(sum.StartedAt).Round(100*time.Millisecond))
	}
	for _, res := range sum.Results {
		if res.Outcome == OutcomeFailed {
			fmt.Fprintf(w, "  failed: %s: %s\n", res.Slug, res.Reason)
		}
	}
	fmt.Fprintln(w, line)
}
