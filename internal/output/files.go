package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
)

// Format is a file format understood by Writer.Save.
type Format string

const (
	// FormatJSON writes indented JSON.
	FormatJSON Format = "json"
	// FormatCSV writes one row per record.
	FormatCSV Format = "csv"
)

// ParseFormat returns the Format named by s, ignoring case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCSV:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// filePermission restricts result files to the current user.
const filePermission = 0600

// Writer saves data under an output directory. The directory is created
// on first use.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithWriterLogger sets the logger. The default is slog.Default().
func WithWriterLogger(logger *slog.Logger) WriterOption {
	return func(w *Writer) {
		w.logger = logger
	}
}

// NewWriter creates a Writer for dir.
func NewWriter(dir string, opts ...WriterOption) *Writer {
	w := &Writer{
		dir:    dir,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Path returns the path of the file name with the given extension.
func (w *Writer) Path(name string, format Format) string {
	return filepath.Join(w.dir, name+"."+string(format))
}

// Save writes v in the given format. For FormatCSV, v must be a slice.
func (w *Writer) Save(v any, name string, format Format) (string, error) {
	switch format {
	case FormatJSON:
		return w.SaveJSON(v, name)
	case FormatCSV:
		return w.SaveCSV(toRecords(v), name)
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// SaveJSON writes v to <dir>/<name>.json with two-space indentation.
// Non-ASCII characters and HTML-significant characters are written as is.
func (w *Writer) SaveJSON(v any, name string) (string, error) {
	if err := os.MkdirAll(w.dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("failed to encode JSON: %w", err)
	}

	path := w.Path(name, FormatJSON)
	if err := os.WriteFile(path, buf.Bytes(), filePermission); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	w.logger.Info("data saved", "path", path)
	return path, nil
}

// SaveCSV writes records to <dir>/<name>.csv.
//
// Each record is flattened through its JSON encoding. The header is the
// union of the records' keys in first-seen order, nested values are
// written as compact JSON and missing values as empty cells. When records
// is empty nothing is written and the returned path is empty.
func (w *Writer) SaveCSV(records []any, name string) (string, error) {
	if len(records) == 0 {
		w.logger.Warn("no data to save", "name", name)
		return "", nil
	}

	var header []string
	seen := make(map[string]bool)
	rows := make([]map[string]string, 0, len(records))
	for _, r := range records {
		keys, row, err := flatten(r)
		if err != nil {
			return "", err
		}
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				header = append(header, k)
			}
		}
		rows = append(rows, row)
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.Write(header); err != nil {
		return "", fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range rows {
		line := make([]string, len(header))
		for i, k := range header {
			line[i] = row[k]
		}
		if err := cw.Write(line); err != nil {
			return "", fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", fmt.Errorf("failed to write CSV: %w", err)
	}

	if err := os.MkdirAll(w.dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := w.Path(name, FormatCSV)
	if err := os.WriteFile(path, buf.Bytes(), filePermission); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	w.logger.Info("data saved", "path", path, "rows", len(rows))
	return path, nil
}

// toRecords converts any slice to []any. Other values become a single
// record.
func toRecords(v any) []any {
	if records, ok := v.([]any); ok {
		return records
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{v}
	}
	records := make([]any, rv.Len())
	for i := range records {
		records[i] = rv.Index(i).Interface()
	}
	return records
}

// flatten returns the top-level keys of r's JSON object encoding in order,
// together with their cell values. Records that do not encode to an object
// are stored under the key "value".
func flatten(r any) ([]string, map[string]string, error) {
	data, err := marshalCompact(r)
	if err != nil {
		return nil, nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode record: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return []string{"value"}, map[string]string{"value": cell(data)}, nil
	}

	var keys []string
	row := make(map[string]string)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to decode record: %w", err)
		}
		key, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, nil, fmt.Errorf("failed to decode record: %w", err)
		}
		if _, dup := row[key]; !dup {
			keys = append(keys, key)
		}
		row[key] = cell(raw)
	}
	return keys, row, nil
}

// cell renders a JSON value as a CSV cell. Strings are unquoted, null is
// empty, everything else is kept as compact JSON.
func cell(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		return ""
	case len(trimmed) > 0 && trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}
	return string(trimmed)
}

func marshalCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
