package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/aluiziolira/sitemap-explorer/config"
	"github.com/aluiziolira/sitemap-explorer/models"
)

// Stdout is the output name that selects standard output.
const Stdout = "-"

var csvHeader = []string{"site", "main_sitemap", "sitemap_url", "type", "count", "error"}

// NewWriter returns the writer for format. The dual format derives its JSON
// file name from the CSV one.
func NewWriter(format, filename string) (OutputWriter, error) {
	switch strings.ToLower(format) {
	case config.FormatText:
		return NewTextWriter(filename)
	case config.FormatJSON:
		return NewJSONWriter(filename)
	case config.FormatCSV:
		return NewCSVWriter(filename)
	case config.FormatMarkdown:
		return NewMarkdownWriter(filename)
	case config.FormatDual:
		jsonFilename := strings.TrimSuffix(filename, ".csv") + ".jsonl"
		return NewDualWriter(filename, jsonFilename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// output is a destination file that may be standard output.
type output struct {
	file    *os.File
	owned   bool
	written int
}

func openOutput(filename string) (*output, error) {
	if filename == Stdout {
		return &output{file: os.Stdout}, nil
	}
	if err := ensureDir(filename); err != nil {
		return nil, err
	}
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", filename, err)
	}
	return &output{file: f, owned: true}, nil
}

func (o *output) close() error {
	if !o.owned {
		return nil
	}
	return o.file.Close()
}

// validate fails when no report was ever written. Files are also checked
// on disk.
func (o *output) validate(kind string) error {
	if o.written == 0 {
		return fmt.Errorf("%s output has no reports", kind)
	}
	if !o.owned {
		return nil
	}
	info, err := o.file.Stat()
	if err != nil {
		return fmt.Errorf("stat %s file: %w", kind, err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("%s file is empty", kind)
	}
	return nil
}

// CSVWriter writes one row per sitemap entry.
type CSVWriter struct {
	out    *output
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVWriter initialises a CSV writer and writes the header row.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	out, err := openOutput(filename)
	if err != nil {
		return nil, err
	}

	writer := csv.NewWriter(out.file)
	if err := writer.Write(csvHeader); err != nil {
		out.close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		out.close()
		return nil, fmt.Errorf("flush csv header: %w", err)
	}

	return &CSVWriter{
		out:    out,
		writer: writer,
	}, nil
}

// Write appends the entries of every report to the CSV output.
func (cw *CSVWriter) Write(reports []*models.Report) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	for _, report := range reports {
		for _, entry := range report.Sitemaps {
			record := []string{
				report.Site,
				report.MainSitemap,
				entry.URL,
				string(entry.Type),
				strconv.Itoa(entry.Count),
				entry.Error,
			}
			if err := cw.writer.Write(record); err != nil {
				return fmt.Errorf("write csv record: %w", err)
			}
		}
		cw.out.written++
	}
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// Close flushes and closes the file handle.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return cw.out.close()
}

// Validate ensures the output has content besides the header.
func (cw *CSVWriter) Validate() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return cw.out.validate("csv")
}

// JSONWriter writes one report per line (JSONL).
type JSONWriter struct {
	out     *output
	writer  *bufio.Writer
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewJSONWriter initialises the JSON writer.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	out, err := openOutput(filename)
	if err != nil {
		return nil, err
	}

	buffer := bufio.NewWriter(out.file)
	return &JSONWriter{
		out:     out,
		writer:  buffer,
		encoder: json.NewEncoder(buffer),
	}, nil
}

// Write appends reports in JSONL format.
func (jw *JSONWriter) Write(reports []*models.Report) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	for _, report := range reports {
		if err := jw.encoder.Encode(report); err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
		jw.out.written++
	}

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}

	return nil
}

// Close flushes buffers and closes the underlying file.
func (jw *JSONWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return jw.out.close()
}

// Validate ensures the JSON output has data.
func (jw *JSONWriter) Validate() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	return jw.out.validate("json")
}

// DualWriter fans every batch out to a CSV and a JSONL file.
type DualWriter struct {
	writers []OutputWriter
}

// NewDualWriter opens both files. Neither may be standard output.
func NewDualWriter(csvFilename, jsonFilename string) (*DualWriter, error) {
	if csvFilename == Stdout || jsonFilename == Stdout {
		return nil, fmt.Errorf("dual output needs file names, not stdout")
	}

	cw, err := NewCSVWriter(csvFilename)
	if err != nil {
		return nil, err
	}
	jw, err := NewJSONWriter(jsonFilename)
	if err != nil {
		cw.Close()
		return nil, err
	}
	return &DualWriter{writers: []OutputWriter{cw, jw}}, nil
}

func (dw *DualWriter) each(fn func(OutputWriter) error) error {
	var errs []error
	for _, w := range dw.writers {
		errs = append(errs, fn(w))
	}
	return errors.Join(errs...)
}

// Write passes reports to both outputs.
func (dw *DualWriter) Write(reports []*models.Report) error {
	return dw.each(func(w OutputWriter) error { return w.Write(reports) })
}

// Close closes both outputs, reporting every failure.
func (dw *DualWriter) Close() error {
	return dw.each(OutputWriter.Close)
}

// Validate checks both outputs.
func (dw *DualWriter) Validate() error {
	return dw.each(OutputWriter.Validate)
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
