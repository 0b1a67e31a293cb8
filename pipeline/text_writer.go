package pipeline

import (
	"bufio"
	"fmt"
	"sync"
	"text/tabwriter"

	"github.com/aluiziolira/sitemap-explorer/models"
)

// TextWriter renders reports as aligned plain text for terminals.
type TextWriter struct {
	out    *output
	writer *bufio.Writer
	mu     sync.Mutex
}

func NewTextWriter(filename string) (*TextWriter, error) {
	out, err := openOutput(filename)
	if err != nil {
		return nil, err
	}
	return &TextWriter{out: out, writer: bufio.NewWriter(out.file)}, nil
}

func (tw *TextWriter) Write(reports []*models.Report) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	for _, report := range reports {
		if err := writeTextReport(tw.writer, report); err != nil {
			return fmt.Errorf("write text report: %w", err)
		}
		tw.out.written++
	}
	return tw.writer.Flush()
}

func writeTextReport(w *bufio.Writer, report *models.Report) error {
	fmt.Fprintf(w, "Site:           %s\n", report.Site)
	fmt.Fprintf(w, "Main sitemap:   %s\n", report.MainSitemap)
	fmt.Fprintf(w, "Sitemaps:       %d (%d failed)\n", report.TotalSitemaps, report.ErrorCount())
	fmt.Fprintf(w, "Total URLs:     %d\n\n", report.Counts.Sum())

	tab := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tab, "CATEGORY\tURLS")
	for _, category := range models.Categories {
		fmt.Fprintf(tab, "%s\t%d\n", category, report.Counts.Get(category))
	}
	fmt.Fprintln(tab)
	fmt.Fprintln(tab, "SITEMAP\tTYPE\tURLS\tERROR")
	for _, entry := range report.Sitemaps {
		fmt.Fprintf(tab, "%s\t%s\t%d\t%s\n", entry.URL, entry.Type, entry.Count, entry.Error)
	}
	if err := tab.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w)
	return err
}

func (tw *TextWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if err := tw.writer.Flush(); err != nil {
		return fmt.Errorf("flush text writer: %w", err)
	}
	return tw.out.close()
}

func (tw *TextWriter) Validate() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.out.validate("text")
}
