package uds

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/zeptools/pdf-joiner/audit"
	"github.com/zeptools/pdf-joiner/doctypes"
)

const defaultRecent = 10

var ErrNoAuditTrail = errors.New("no readable audit trail configured")

// AdminCommands returns the admin command map. trail and counters may be nil
// when no audit backend supports reading.
func AdminCommands(cat *doctypes.Catalog, trail audit.Reader, counters audit.CounterReader) map[string]CmdHnd {
	return map[string]CmdHnd{
		"doctypes": {
			Desc:  "list document types in catalog order",
			Usage: "doctypes",
			Fn: func(_ context.Context, _ []string, w io.Writer) error {
				return writeDocTypes(w, cat)
			},
		},
		"recent": {
			Desc:  "show the latest merges, newest first",
			Usage: "recent [n]",
			Fn: func(ctx context.Context, args []string, w io.Writer) error {
				if trail == nil {
					return ErrNoAuditTrail
				}
				n := defaultRecent
				if len(args) > 0 {
					v, err := strconv.Atoi(args[0])
					if err != nil || v <= 0 {
						return fmt.Errorf("invalid count %q", args[0])
					}
					n = v
				}
				records, err := trail.Recent(ctx, n)
				if err != nil {
					return err
				}
				return writeRecords(w, records)
			},
		},
		"stats": {
			Desc:  "show merge counters per document type",
			Usage: "stats",
			Fn: func(ctx context.Context, _ []string, w io.Writer) error {
				if counters == nil {
					return ErrNoAuditTrail
				}
				m, err := counters.Counters(ctx)
				if err != nil {
					return err
				}
				return writeCounters(w, cat, m)
			},
		},
	}
}

func writeDocTypes(w io.Writer, cat *doctypes.Catalog) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tDEFAULT\tAFTER")
	for _, dt := range cat.All() {
		after := dt.After
		if after == "" {
			after = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", dt.ID, dt.Name, dt.DefaultPage, after)
	}
	return tw.Flush()
}

func writeRecords(w io.Writer, records []audit.Record) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "no merges recorded")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "AT\tCLIENT\tPAGES\tBYTES\tINSERTED\tDIGEST")
	for _, rec := range records {
		parts := make([]string, len(rec.Inserted))
		for i, ins := range rec.Inserted {
			parts[i] = fmt.Sprintf("%s@%d(%d)", ins.DocTypeID, ins.Requested, ins.Pages)
		}
		inserted := strings.Join(parts, " ")
		if inserted == "" {
			inserted = "-"
		}
		digest := rec.Digest
		if len(digest) > 12 {
			digest = digest[:12]
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d->%d\t%d\t%s\t%s\n",
			rec.At.UTC().Format(time.RFC3339), rec.ClientIP, rec.TemplatePages, rec.OutputPages,
			rec.OutputBytes, inserted, digest)
	}
	return tw.Flush()
}

// writeCounters lists catalog types first, then any ids no longer in the
// catalog, then the total
func writeCounters(w io.Writer, cat *doctypes.Catalog, m map[string]int64) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "DOC TYPE\tMERGES")
	for _, dt := range cat.All() {
		_, _ = fmt.Fprintf(tw, "%s\t%d\n", dt.ID, m[dt.ID])
	}
	var extra []string
	for id := range m {
		if _, ok := cat.Lookup(id); !ok && id != audit.TotalField {
			extra = append(extra, id)
		}
	}
	slices.Sort(extra)
	for _, id := range extra {
		_, _ = fmt.Fprintf(tw, "%s\t%d\n", id, m[id])
	}
	_, _ = fmt.Fprintf(tw, "%s\t%d\n", audit.TotalField, m[audit.TotalField])
	return tw.Flush()
}
