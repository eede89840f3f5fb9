package formatter

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONFormatter formats output as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Name returns the formatter name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// Description returns the formatter description.
func (f *JSONFormatter) Description() string {
	return "JSON output format"
}

// FormatList formats a list of records as JSON.
func (f *JSONFormatter) FormatList(w io.Writer, kind string, records []map[string]any, opts FormatOptions) error {
	filtered := projectAll(records, opts.Columns)

	output := map[string]any{
		"kind":  kind,
		"count": len(filtered),
		"data":  filtered,
	}

	return f.encode(w, output, opts.Compact)
}

// FormatRecord formats a single record as JSON.
func (f *JSONFormatter) FormatRecord(w io.Writer, kind string, record map[string]any, opts FormatOptions) error {
	output := map[string]any{
		"kind": kind,
		"data": nil,
	}
	if record != nil {
		output["data"] = project(record, opts.Columns)
	}

	return f.encode(w, output, opts.Compact)
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(w io.Writer, err error) error {
	output := map[string]any{
		"error": err.Error(),
	}
	return f.encode(w, output, false)
}

// encode writes JSON to the writer.
func (f *JSONFormatter) encode(w io.Writer, data any, compact bool) error {
	encoder := json.NewEncoder(w)
	if !compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

func init() {
	if err := Register(NewJSONFormatter()); err != nil {
		fmt.Printf("failed to register json formatter: %v\n", err)
	}
}
