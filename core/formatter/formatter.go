// Package formatter provides a pluggable output formatting system.
// Formatters convert structured data to various output formats (table, json, yaml).
package formatter

import (
	"fmt"
	"io"
	"sort"
	"sync"
)

// Formatter converts structured data to a specific output format.
type Formatter interface {
	// Name returns the formatter name (e.g., "table", "json", "yaml").
	Name() string

	// Description returns a human-readable description.
	Description() string

	// FormatList formats a list of records of the given kind.
	FormatList(w io.Writer, kind string, records []map[string]any, opts FormatOptions) error

	// FormatRecord formats a single record of the given kind.
	FormatRecord(w io.Writer, kind string, record map[string]any, opts FormatOptions) error

	// FormatError formats an error.
	FormatError(w io.Writer, err error) error
}

// FormatOptions configures formatting behavior.
type FormatOptions struct {
	// Columns specifies which fields to include and their order
	// (nil = all fields, sorted by name).
	Columns []string

	// NoHeader disables header row for tabular formats.
	NoHeader bool

	// Compact minimizes whitespace (for json).
	Compact bool

	// MaxWidth truncates long values (0 = no limit).
	MaxWidth int
}

// Registry manages registered formatters.
type Registry struct {
	mu         sync.RWMutex
	formatters map[string]Formatter
	defaultFmt string
}

// NewRegistry creates a new formatter registry.
func NewRegistry() *Registry {
	return &Registry{
		formatters: make(map[string]Formatter),
		defaultFmt: "table",
	}
}

// Register adds a formatter to the registry.
func (r *Registry) Register(f Formatter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[f.Name()]; exists {
		return fmt.Errorf("formatter %q already registered", f.Name())
	}

	r.formatters[f.Name()] = f
	return nil
}

// Get returns a formatter by name.
func (r *Registry) Get(name string) (Formatter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.formatters[name]
	return f, ok
}

// Default returns the default formatter.
func (r *Registry) Default() Formatter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.formatters[r.defaultFmt]
}

// SetDefault sets the default formatter.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.formatters[name]; !exists {
		return fmt.Errorf("formatter %q not registered", name)
	}

	r.defaultFmt = name
	return nil
}

// List returns all registered formatter names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter to the default registry.
func Register(f Formatter) error {
	return DefaultRegistry.Register(f)
}

// Get returns a formatter from the default registry.
func Get(name string) (Formatter, bool) {
	return DefaultRegistry.Get(name)
}

// Default returns the default formatter from the default registry.
func Default() Formatter {
	return DefaultRegistry.Default()
}

// List returns all formatter names from the default registry.
func List() []string {
	return DefaultRegistry.List()
}

// resolveColumns returns the requested columns, or every key present in
// records sorted by name.
func resolveColumns(records []map[string]any, requested []string) []string {
	if len(requested) > 0 {
		return requested
	}

	seen := make(map[string]bool)
	var columns []string
	for _, record := range records {
		for k := range record {
			if !seen[k] {
				seen[k] = true
				columns = append(columns, k)
			}
		}
	}
	sort.Strings(columns)
	return columns
}

// project keeps only the given columns of record.
func project(record map[string]any, columns []string) map[string]any {
	if len(columns) == 0 {
		return record
	}

	result := make(map[string]any, len(columns))
	for _, col := range columns {
		if val, ok := record[col]; ok {
			result[col] = val
		}
	}
	return result
}

func projectAll(records []map[string]any, columns []string) []map[string]any {
	result := make([]map[string]any, len(records))
	for i, record := range records {
		result[i] = project(record, columns)
	}
	return result
}
