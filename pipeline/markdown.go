package pipeline

import (
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/aluiziolira/sitemap-explorer/models"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// MarkdownWriter renders each report as a Markdown section with summary
// and per-sitemap tables.
type MarkdownWriter struct {
	out *output
	mu  sync.Mutex
}

// NewMarkdownWriter creates a MarkdownWriter for filename ("-" for stdout).
func NewMarkdownWriter(filename string) (*MarkdownWriter, error) {
	out, err := openOutput(filename)
	if err != nil {
		return nil, err
	}
	return &MarkdownWriter{out: out}, nil
}

// Write appends one section per report.
func (mw *MarkdownWriter) Write(reports []*models.Report) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()

	for _, report := range reports {
		if err := renderMarkdown(mw.out.file, report); err != nil {
			return fmt.Errorf("write markdown report: %w", err)
		}
		mw.out.written++
	}
	return nil
}

func renderMarkdown(w io.Writer, report *models.Report) error {
	md := markdown.NewMarkdown(w)

	md.H2(report.Site)
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Main sitemap", report.MainSitemap},
			{"Sitemaps", strconv.Itoa(report.TotalSitemaps)},
			{"Failed sitemaps", strconv.Itoa(report.ErrorCount())},
			{"Total URLs", strconv.Itoa(report.Counts.Sum())},
		},
	})
	md.PlainText("")

	rows := make([][]string, 0, len(models.Categories))
	for _, category := range models.Categories {
		rows = append(rows, []string{string(category), strconv.Itoa(report.Counts.Get(category))})
	}
	md.H3("URLs by category")
	md.PlainText("")
	md.Table(markdown.TableSet{Header: []string{"Category", "URLs"}, Rows: rows})
	md.PlainText("")

	if report.Counts.Sum() > 0 {
		writePieChart(md, report.Counts)
	}

	entries := make([][]string, 0, len(report.Sitemaps))
	for _, entry := range report.Sitemaps {
		entries = append(entries, []string{entry.URL, string(entry.Type), strconv.Itoa(entry.Count), entry.Error})
	}
	md.H3("Sitemaps")
	md.PlainText("")
	md.Table(markdown.TableSet{Header: []string{"Sitemap", "Type", "URLs", "Error"}, Rows: entries})
	md.PlainText("")

	if failed := report.ErrorCount(); failed > 0 {
		md.Warningf("%d of %d sitemaps could not be fetched or parsed.", failed, report.TotalSitemaps)
		md.PlainText("")
	}
	md.HorizontalRule()
	md.PlainText("")

	return md.Build()
}

func writePieChart(md *markdown.Markdown, counts models.CategoryTotals) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("URLs by category"),
		piechart.WithShowData(true),
	)
	for _, category := range models.Categories {
		if n := counts.Get(category); n > 0 {
			chart.LabelAndIntValue(string(category), uint64(n))
		}
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// Close closes the underlying file.
func (mw *MarkdownWriter) Close() error {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return mw.out.close()
}

// Validate ensures at least one report was rendered.
func (mw *MarkdownWriter) Validate() error {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return mw.out.validate("markdown")
}
