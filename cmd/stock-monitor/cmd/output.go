package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/donaldgifford/stock-monitor/internal/api/handlers"
	domain "github.com/donaldgifford/stock-monitor/pkg/types"
)

// tabWriter wraps tabwriter with error tracking.
type tabWriter struct {
	*tabwriter.Writer
	err error
}

func newTabWriter(w io.Writer) *tabWriter {
	return &tabWriter{Writer: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

func (tw *tabWriter) writef(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.Writer, format, args...)
}

func (tw *tabWriter) finish() error {
	if tw.err != nil {
		return tw.err
	}
	return tw.Flush()
}

func availability(known, available bool) string {
	switch {
	case !known:
		return "unknown"
	case available:
		return "READY"
	default:
		return "SOLD OUT"
	}
}

func printResults(results []domain.ItemResult) error {
	tw := newTabWriter(os.Stdout)
	tw.writef("ITEM\tSTATUS\tSTOCK\tPRICE\tSTRATEGY\tERROR\n")
	for i := range results {
		r := &results[i]
		if r.Snapshot == nil {
			tw.writef("%s\t%s\t-\t-\t-\t%s\n", r.Item.DisplayName(), availability(false, false), r.Error)
			continue
		}
		tw.writef("%s\t%s\t%d\t%s\t%s\t\n",
			r.Item.DisplayName(),
			availability(true, r.Snapshot.Available),
			r.Snapshot.Stock,
			r.Snapshot.Price.String(),
			r.Snapshot.Strategy,
		)
	}
	return tw.finish()
}

func printItemTable(items []handlers.ItemStatus) error {
	tw := newTabWriter(os.Stdout)
	tw.writef("KEY\tLABEL\tSTATUS\tSTOCK\tURL\n")
	for i := range items {
		it := &items[i]
		stock := "-"
		if it.Snapshot != nil {
			stock = fmt.Sprint(it.Snapshot.Stock)
		}
		tw.writef("%s\t%s\t%s\t%s\t%s\n",
			it.Key, it.Label, availability(it.Known, it.Available), stock, it.URL)
	}
	return tw.finish()
}
