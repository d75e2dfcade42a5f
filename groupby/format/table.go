// Package format renders aggregates for people and spreadsheets.
package format

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/hwchen/groupby/groupby"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

// TableFormatter provides utilities for formatting aggregates as tables
type TableFormatter struct {
	// MaxWidth is the maximum width for a column, 0 for unlimited
	MaxWidth int
	// TruncateString is the string to append when truncating
	TruncateString string
}

// NewTableFormatter creates a new table formatter with default settings
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{
		MaxWidth:       50,
		TruncateString: "...",
	}
}

// FormatAggregate renders agg as a markdown table. headers names the key
// columns followed by the value column; missing names are filled in.
func FormatAggregate[V any](tf *TableFormatter, headers []string, agg *groupby.Aggregate[V]) string {
	if agg == nil || agg.Len() == 0 {
		return "_No groups_"
	}

	rows := Rows(agg)
	headers = fillHeaders(headers, len(rows[0]))

	tableString := &strings.Builder{}

	alignment := make([]tw.Align, len(headers))
	for i := range alignment {
		alignment[i] = tw.AlignNone
	}

	table := tablewriter.NewTable(tableString,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header(headers)

	for _, row := range rows {
		for j := range row {
			row[j] = tf.truncate(row[j])
		}
		table.Append(row)
	}

	table.Render()

	tableString.WriteString(fmt.Sprintf("\n_%d groups_\n", agg.Len()))
	return tableString.String()
}

// WriteCSV writes agg as CSV with a header line
func WriteCSV[V any](w io.Writer, headers []string, agg *groupby.Aggregate[V]) error {
	cw := csv.NewWriter(w)
	rows := Rows(agg)

	width := len(headers)
	if len(rows) > 0 {
		width = len(rows[0])
	}
	if err := cw.Write(fillHeaders(headers, width)); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// Rows flattens agg into string rows: key fields then the rendered value
func Rows[V any](agg *groupby.Aggregate[V]) [][]string {
	if agg == nil {
		return nil
	}
	rows := make([][]string, 0, agg.Len())
	for key, value := range agg.All() {
		row := make([]string, 0, len(key)+1)
		row = append(row, key...)
		row = append(row, FormatValue(value))
		rows = append(rows, row)
	}
	return rows
}

// FormatValue converts an accumulated value to its display form
func FormatValue(val interface{}) string {
	switch v := val.(type) {
	case nil:
		return ""
	case []string:
		return "[" + strings.Join(v, " ") + "]"
	case fmt.Stringer:
		return v.String()
	case []int64, []int, []float64, []uint64:
		return fmt.Sprint(v)
	default:
		return groupby.RenderValue(val)
	}
}

func (tf *TableFormatter) truncate(s string) string {
	runes := []rune(s)
	if tf.MaxWidth <= 0 || len(runes) <= tf.MaxWidth {
		return s
	}
	cut := tf.MaxWidth - len([]rune(tf.TruncateString))
	if cut < 0 {
		cut = 0
	}
	return string(runes[:cut]) + tf.TruncateString
}

func fillHeaders(headers []string, width int) []string {
	out := make([]string, width)
	for i := range out {
		switch {
		case i < len(headers) && headers[i] != "":
			out[i] = headers[i]
		case i == width-1:
			out[i] = "value"
		default:
			out[i] = fmt.Sprintf("key%d", i)
		}
	}
	return out
}
