package executor

import (
	"fmt"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
)

// TableFormatter renders rows as markdown tables
type TableFormatter struct {
	// MaxWidth is the maximum width for a column value
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

// FormatIterator drains it and formats the rows. The iterator is closed.
func (tf *TableFormatter) FormatIterator(columns []string, it Iterator) (string, error) {
	rows, err := Collect(it)
	if err != nil {
		return "", err
	}
	return tf.FormatRows(columns, rows), nil
}

// FormatRows formats rows under the given column names. Missing names are
// filled in positionally as c0, c1, ...
func (tf *TableFormatter) FormatRows(columns []string, rows []Row) string {
	width := len(columns)
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	headers := make([]string, width)
	for i := range headers {
		if i < len(columns) {
			headers[i] = columns[i]
		} else {
			headers[i] = fmt.Sprintf("c%d", i)
		}
	}

	if len(rows) == 0 {
		return fmt.Sprintf("_Columns: %v_\n\n_No rows_", headers)
	}

	tableString := &strings.Builder{}

	alignment := make([]tw.Align, width)
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
		cells := make([]string, width)
		for j := range cells {
			if j < len(row) {
				cells[j] = tf.formatValue(row[j])
			}
		}
		table.Append(cells)
	}

	table.Render()

	tableString.WriteString(fmt.Sprintf("\n_%d rows_\n", len(rows)))

	return tableString.String()
}

// formatValue converts a value to a string representation
func (tf *TableFormatter) formatValue(val interface{}) string {
	var s string
	switch v := val.(type) {
	case nil:
		return "NULL"
	case string:
		s = v
	case int:
		s = fmt.Sprintf("%d", v)
	case int64:
		s = fmt.Sprintf("%d", v)
	case float64:
		s = fmt.Sprintf("%.2f", v)
	case bool:
		s = fmt.Sprintf("%t", v)
	case time.Time:
		s = v.Format("2006-01-02 15:04:05")
	case []byte:
		s = fmt.Sprintf("%x", v)
	default:
		s = fmt.Sprintf("%v", v)
	}

	if tf.MaxWidth > 0 && len(s) > tf.MaxWidth {
		return s[:tf.MaxWidth] + tf.TruncateString
	}
	return s
}

// RowsString returns rows formatted with the default formatter
func RowsString(columns []string, rows []Row) string {
	return NewTableFormatter().FormatRows(columns, rows)
}
