package audit

import (
	"strconv"
	"time"
)

// Table lists records in rows for text and CSV output. It marshals to JSON
// as a plain array of records.
type Table []*Record

// Header returns the column names.
func (t Table) Header() []string {
	return []string{
		"STARTED_AT", "REQUEST_ID", "KIND", "CATEGORY", "CODE",
		"BORROWED", "RELEASE_FAILURES", "ABORTED", "DURATION", "ID",
	}
}

// Rows returns one row per record.
func (t Table) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, r := range t {
		rows = append(rows, []string{
			r.StartedAt.UTC().Format(time.RFC3339Nano),
			r.RequestID,
			r.Kind,
			r.Category,
			strconv.Itoa(r.Code),
			strconv.Itoa(r.Borrowed),
			strconv.Itoa(r.ReleaseFailures),
			strconv.FormatBool(r.Aborted),
			r.Duration.String(),
			r.ID,
		})
	}
	return rows
}
