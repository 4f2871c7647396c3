package output

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

type page struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Depth int    `json:"depth"`
}

func newTestWriter(t *testing.T) *Writer {
	t.Helper()
	return NewWriter(filepath.Join(t.TempDir(), "out"), WithWriterLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("failed to read CSV: %v", err)
	}
	return rows
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"CSV", FormatCSV, false},
		{" Json ", FormatJSON, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnsupportedFormat) {
				t.Errorf("ParseFormat(%q): expected ErrUnsupportedFormat, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestSaveJSON(t *testing.T) {
	t.Parallel()

	w := newTestWriter(t)
	data := []page{{URL: "https://example.com/?a=1&b=2", Title: "日本語 <b>", Depth: 0}}

	path, err := w.SaveJSON(data, "pages")
	if err != nil {
		t.Fatalf("SaveJSON failed: %v", err)
	}
	if path != filepath.Join(w.Dir(), "pages.json") {
		t.Errorf("unexpected path %q", path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}
	content := string(raw)
	if !strings.Contains(content, "日本語 <b>") {
		t.Errorf("expected non-ASCII and HTML characters kept, got %s", content)
	}
	if !strings.Contains(content, "\n  {") {
		t.Errorf("expected two-space indentation, got %s", content)
	}

	var decoded []page
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(decoded) != 1 || decoded[0].URL != data[0].URL {
		t.Errorf("unexpected decoded data %+v", decoded)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected permission 0600, got %v", info.Mode().Perm())
	}
}

func TestSaveCSV(t *testing.T) {
	t.Parallel()

	t.Run("union of keys in first-seen order", func(t *testing.T) {
		t.Parallel()

		w := newTestWriter(t)
		records := []any{
			map[string]any{"url": "https://a.example.com"},
			page{URL: "https://b.example.com", Title: "B", Depth: 1},
			struct {
				URL  string   `json:"url"`
				Tags []string `json:"tags"`
				Note *string  `json:"note"`
			}{URL: "https://c.example.com", Tags: []string{"x", "y"}},
		}

		path, err := w.SaveCSV(records, "mixed")
		if err != nil {
			t.Fatalf("SaveCSV failed: %v", err)
		}

		rows := readCSV(t, path)
		wantHeader := []string{"url", "title", "depth", "tags", "note"}
		if !slices.Equal(rows[0], wantHeader) {
			t.Fatalf("expected header %v, got %v", wantHeader, rows[0])
		}
		if len(rows) != 4 {
			t.Fatalf("expected 3 data rows, got %d", len(rows)-1)
		}
		if !slices.Equal(rows[1], []string{"https://a.example.com", "", "", "", ""}) {
			t.Errorf("unexpected first row %v", rows[1])
		}
		if !slices.Equal(rows[2], []string{"https://b.example.com", "B", "1", "", ""}) {
			t.Errorf("unexpected second row %v", rows[2])
		}
		if rows[3][3] != `["x","y"]` || rows[3][4] != "" {
			t.Errorf("expected nested value as JSON and null as empty, got %v", rows[3])
		}
	})

	t.Run("empty data writes nothing", func(t *testing.T) {
		t.Parallel()

		w := newTestWriter(t)
		path, err := w.SaveCSV(nil, "empty")
		if err != nil {
			t.Fatalf("SaveCSV failed: %v", err)
		}
		if path != "" {
			t.Errorf("expected no path, got %q", path)
		}
		if _, err := os.Stat(w.Path("empty", FormatCSV)); !os.IsNotExist(err) {
			t.Errorf("expected no file, got %v", err)
		}
	})

	t.Run("scalar records use a value column", func(t *testing.T) {
		t.Parallel()

		w := newTestWriter(t)
		path, err := w.SaveCSV([]any{"a", 2}, "scalars")
		if err != nil {
			t.Fatalf("SaveCSV failed: %v", err)
		}
		rows := readCSV(t, path)
		if !slices.Equal(rows[0], []string{"value"}) || rows[1][0] != "a" || rows[2][0] != "2" {
			t.Errorf("unexpected rows %v", rows)
		}
	})
}

func TestSave(t *testing.T) {
	t.Parallel()

	w := newTestWriter(t)
	data := []page{{URL: "https://example.com", Title: "Home"}}

	if _, err := w.Save(data, "pages", FormatJSON); err != nil {
		t.Errorf("Save json failed: %v", err)
	}

	path, err := w.Save(data, "pages", FormatCSV)
	if err != nil {
		t.Fatalf("Save csv failed: %v", err)
	}
	rows := readCSV(t, path)
	if len(rows) != 2 || rows[1][1] != "Home" {
		t.Errorf("unexpected rows %v", rows)
	}

	if _, err := w.Save(data, "pages", Format("xml")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}
