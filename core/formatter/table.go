package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
)

// TableFormatter formats output as aligned text tables.
type TableFormatter struct{}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{}
}

// Name returns the formatter name.
func (f *TableFormatter) Name() string {
	return "table"
}

// Description returns the formatter description.
func (f *TableFormatter) Description() string {
	return "Aligned text table output"
}

// FormatList formats a list of records as a table.
func (f *TableFormatter) FormatList(w io.Writer, kind string, records []map[string]any, opts FormatOptions) error {
	if len(records) == 0 {
		fmt.Fprintf(w, "No %s records.\n", kind)
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	columns := resolveColumns(records, opts.Columns)

	// Print header
	if !opts.NoHeader {
		var headers []string
		for _, col := range columns {
			headers = append(headers, strings.ToUpper(col))
		}
		fmt.Fprintln(tw, strings.Join(headers, "\t"))
	}

	// Print rows
	for _, record := range records {
		var values []string
		for _, col := range columns {
			val := f.formatValue(record[col], opts.MaxWidth)
			values = append(values, val)
		}
		fmt.Fprintln(tw, strings.Join(values, "\t"))
	}

	return tw.Flush()
}

// FormatRecord formats a single record as key-value pairs.
func (f *TableFormatter) FormatRecord(w io.Writer, kind string, record map[string]any, opts FormatOptions) error {
	if record == nil {
		fmt.Fprintln(w, "Record not found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	columns := resolveColumns([]map[string]any{record}, opts.Columns)

	for _, col := range columns {
		label := f.formatLabel(col)
		val := f.formatValue(record[col], 0) // No truncation for detail view
		fmt.Fprintf(tw, "%s:\t%s\n", label, val)
	}

	return tw.Flush()
}

// FormatError formats an error message.
func (f *TableFormatter) FormatError(w io.Writer, err error) error {
	fmt.Fprintf(w, "Error: %s\n", err.Error())
	return nil
}

// formatLabel formats a field name as a label.
func (f *TableFormatter) formatLabel(name string) string {
	// Convert snake_case to Title Case
	words := strings.Split(name, "_")
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
	}
	return strings.Join(words, " ")
}

// formatValue formats a value for display.
func (f *TableFormatter) formatValue(val any, maxWidth int) string {
	if val == nil {
		return "-"
	}

	var str string
	switch v := val.(type) {
	case string:
		str = v
	case bool:
		if v {
			str = "yes"
		} else {
			str = "no"
		}
	case []byte:
		str = "[binary]"
	case float64:
		str = strconv.FormatFloat(v, 'g', -1, 64)
	case fmt.Stringer:
		str = v.String()
	default:
		b, _ := json.Marshal(v)
		str = string(b)
	}

	// Truncate if needed
	if maxWidth > 0 && len(str) > maxWidth {
		str = str[:maxWidth-3] + "..."
	}

	return str
}

func init() {
	Register(NewTableFormatter())
}
