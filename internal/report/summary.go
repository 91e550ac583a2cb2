package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sells-group/rws-cli/internal/model"
)

// WriteSummary prints the zone shares and the ranked representative buffers.
func WriteSummary(out io.Writer, res *model.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Run:\t%s\n", res.Run)
	_, _ = fmt.Fprintf(w, "Country:\t%s\n", res.Country)
	_, _ = fmt.Fprintf(w, "Method:\t%s\n", res.Method)
	_, _ = fmt.Fprintf(w, "Stations:\t%d\n", res.Stations)
	_, _ = fmt.Fprintf(w, "Buffers:\t%d\n", res.Buffers)
	_, _ = fmt.Fprintf(w, "National crop area:\t%.2f\n", res.NationalTotal)
	_ = w.Flush()

	dominant := make(map[int]bool, len(res.Dominant))
	for _, z := range res.Dominant {
		dominant[z.Zone] = true
	}
	_, _ = fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ZONE\tPERCENT\tDCZ")
	_, _ = fmt.Fprintln(w, "----\t-------\t---")
	for _, z := range res.Zones {
		mark := ""
		if dominant[z.Zone] {
			mark = "*"
		}
		_, _ = fmt.Fprintf(w, "%d\t%.2f\t%s\n", z.Zone, z.Percent, mark)
	}
	_ = w.Flush()

	_, _ = fmt.Fprintln(out)
	if len(res.Representative) == 0 {
		_, _ = fmt.Fprintln(out, "No representative buffers.")
	} else {
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "RANK\tSTATION\tZONE\tPERCENT")
		_, _ = fmt.Fprintln(w, "----\t-------\t----\t-------")
		for i, b := range res.Representative {
			_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%.2f\n", i+1, b.Station, b.Zone, b.Percent)
		}
		_, _ = fmt.Fprintf(w, "\tcoverage\t\t%.2f\n", res.Coverage)
		_ = w.Flush()
	}

	for _, warn := range res.Warnings {
		_, _ = fmt.Fprintf(out, "warning: %s: %s\n", warn.Kind, warn.Message)
	}
}
