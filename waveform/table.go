package waveform

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/arloliu/go-scopegrab/internal/util"
)

// Table is a waveform table built one channel at a time.
//
// A Table is not safe for concurrent use.
type Table struct {
	header []string
	rows   [][]string
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		header: []string{},
		rows:   [][]string{},
	}
}

// AddChannel merges trace into the table.
//
// The first channel seeds one row per sample. For every later channel, sample i
// is appended to row i when that row exists; otherwise a new row is created with
// exactly one empty leading cell followed by the sample.
func (t *Table) AddChannel(trace *ChannelTrace) {
	t.header = append(t.header, trace.name)

	if len(t.header) == 1 {
		for _, v := range trace.samples {
			t.rows = append(t.rows, []string{v})
		}

		return
	}

	for i, v := range trace.samples {
		if i < len(t.rows) {
			t.rows[i] = append(t.rows[i], v)
			continue
		}
		t.rows = append(t.rows, []string{"", v})
	}
}

// Header returns a copy of the channel names in merge order.
func (t *Table) Header() []string {
	return util.CloneSlice(t.header, 0)
}

// Rows returns a copy of the data rows.
func (t *Table) Rows() [][]string {
	rows := make([][]string, len(t.rows))
	for i, row := range t.rows {
		rows[i] = util.CloneSlice(row, 0)
	}

	return rows
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Columns returns the number of channels merged so far.
func (t *Table) Columns() int {
	return len(t.header)
}

// Empty reports whether no channel has been added.
func (t *Table) Empty() bool {
	return len(t.header) == 0
}

// WriteCSV writes the header row followed by the data rows. An empty table
// writes nothing.
func (t *Table) WriteCSV(w io.Writer) error {
	if t.Empty() {
		return nil
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(t.header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	if err := cw.WriteAll(t.rows); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}

	return nil
}

// Bytes returns the table serialised by WriteCSV.
func (t *Table) Bytes() []byte {
	var buf bytes.Buffer
	// writes to a bytes.Buffer do not fail
	_ = t.WriteCSV(&buf)

	return buf.Bytes()
}

// String implements fmt.Stringer.
func (t *Table) String() string {
	return string(t.Bytes())
}
