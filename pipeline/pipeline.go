// Package pipeline runs many site references through an explorer and
// streams the resulting reports into an output writer.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aluiziolira/sitemap-explorer/config"
	"github.com/aluiziolira/sitemap-explorer/models"
	"github.com/aluiziolira/sitemap-explorer/parser"
	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	// ErrPipelineClosed is returned when Process is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
	// ErrPipelineCloseTimeout is returned when workers do not drain in time.
	ErrPipelineCloseTimeout = errors.New("pipeline: close timed out")
)

var drainTimeout = 2 * time.Minute

// Explorer produces a report for one site reference.
type Explorer interface {
	Explore(ctx context.Context, ref string) (*models.Report, error)
}

// OutputWriter defines the interface for report output.
type OutputWriter interface {
	Write(reports []*models.Report) error
	Close() error
	Validate() error
}

// Failure records a site that produced no report.
type Failure struct {
	Site string
	Err  error
}

// Pipeline coordinates de-duplication, exploration and output writing.
type Pipeline struct {
	ctx       context.Context
	explorer  Explorer
	writer    OutputWriter
	siteCh    chan string
	batchSize int

	wg sync.WaitGroup

	seen *lru.Cache[string, struct{}]

	metrics metrics

	mu       sync.Mutex // guards closed/err/failures
	closed   bool
	err      error
	failures []Failure

	closeOnce    sync.Once
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewPipeline builds a pipeline sized from cfg.
func NewPipeline(ctx context.Context, explorer Explorer, writer OutputWriter, cfg *config.Config) *Pipeline {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	dedupeSize := cfg.DedupeMaxSize
	if dedupeSize <= 0 {
		dedupeSize = config.DefaultConfig().DedupeMaxSize
	}
	seen, err := lru.New[string, struct{}](dedupeSize)
	if err != nil {
		panic(fmt.Sprintf("pipeline: dedupe cache: %v", err))
	}

	return &Pipeline{
		ctx:       ctx,
		explorer:  explorer,
		writer:    writer,
		siteCh:    make(chan string, batchSize*4),
		batchSize: batchSize,
		seen:      seen,
		metrics:   newMetrics(),
		shutdown:  make(chan struct{}),
	}
}

// Start launches worker goroutines.
func (p *Pipeline) Start(workers int) {
	if workers <= 0 {
		workers = 1
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Process enqueues site references for exploration.
func (p *Pipeline) Process(refs ...string) error {
	if len(refs) == 0 {
		return nil
	}

	closed, err := p.state()
	if err != nil {
		return err
	}
	if closed {
		return ErrPipelineClosed
	}

	for _, ref := range refs {
		if err := p.enqueue(ref); err != nil {
			return err
		}
	}
	return nil
}

// Close stops accepting sites and waits for queued work to be written.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.signalShutdown()
	p.closeOnce.Do(func() {
		close(p.siteCh)
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(drainTimeout):
		return ErrPipelineCloseTimeout
	}
	return p.Err()
}

// Err returns the first writer error encountered during processing.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Failures returns the sites that produced no report, in completion order.
func (p *Pipeline) Failures() []Failure {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Failure, len(p.failures))
	copy(out, p.failures)
	return out
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

// StartMetricsReporting emits periodic progress logs.
func (p *Pipeline) StartMetricsReporting(interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				metrics := p.GetMetrics()
				slog.Info("pipeline progress",
					slog.Int64("reports", metrics["processed_sites"].(int64)),
					slog.Int64("failed", metrics["failed_sites"].(int64)),
					slog.Any("skipped", metrics["skipped_sites"]),
				)
			case <-p.shutdown:
				return
			}
		}
	}()
}

func (p *Pipeline) worker() {
	defer p.wg.Done()

	batch := make([]*models.Report, 0, p.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.writer.Write(batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for ref := range p.siteCh {
		report := p.explore(ref)
		if report == nil {
			continue
		}
		batch = append(batch, report)
		if len(batch) >= p.batchSize {
			if err := flush(); err != nil {
				p.setErr(fmt.Errorf("write batch: %w", err))
				return
			}
		}
	}

	if err := flush(); err != nil {
		p.setErr(fmt.Errorf("write batch: %w", err))
	}
}

func (p *Pipeline) explore(ref string) *models.Report {
	if err := p.ctx.Err(); err != nil {
		p.addFailure(ref, err)
		return nil
	}

	origin, err := parser.NormalizeSiteReference(ref)
	if err != nil {
		p.addFailure(ref, err)
		return nil
	}
	if found, _ := p.seen.ContainsOrAdd(origin, struct{}{}); found {
		p.metrics.addSkipped("duplicate_site")
		return nil
	}

	report, err := p.explorer.Explore(p.ctx, origin)
	if err != nil {
		p.addFailure(ref, err)
		return nil
	}

	p.metrics.incrementProcessed()
	return report
}

func (p *Pipeline) addFailure(ref string, err error) {
	slog.Error("site analysis failed", slog.String("site", ref), slog.Any("error", err))
	p.metrics.incrementFailed()

	p.mu.Lock()
	p.failures = append(p.failures, Failure{Site: ref, Err: err})
	p.mu.Unlock()
}

func (p *Pipeline) enqueue(ref string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrPipelineClosed
		}
	}()

	select {
	case <-p.shutdown:
		return ErrPipelineClosed
	case p.siteCh <- ref:
		return nil
	}
}

func (p *Pipeline) setErr(err error) {
	if err == nil {
		return
	}

	p.mu.Lock()
	if p.err != nil {
		p.mu.Unlock()
		return
	}
	p.err = err
	p.closed = true
	p.mu.Unlock()

	p.signalShutdown()
	p.closeOnce.Do(func() {
		close(p.siteCh)
	})
}

func (p *Pipeline) state() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed, p.err
}

func (p *Pipeline) signalShutdown() {
	p.shutdownOnce.Do(func() {
		close(p.shutdown)
	})
}

type metrics struct {
	mu        sync.Mutex
	processed int64
	failed    int64
	skipped   map[string]int
}

func newMetrics() metrics {
	return metrics{
		skipped: make(map[string]int),
	}
}

func (m *metrics) incrementProcessed() {
	m.mu.Lock()
	m.processed++
	m.mu.Unlock()
}

func (m *metrics) incrementFailed() {
	m.mu.Lock()
	m.failed++
	m.mu.Unlock()
}

func (m *metrics) addSkipped(kind string) {
	m.mu.Lock()
	m.skipped[kind]++
	m.mu.Unlock()
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	copySkipped := make(map[string]int, len(m.skipped))
	for k, v := range m.skipped {
		copySkipped[k] = v
	}

	return map[string]interface{}{
		"processed_sites": m.processed,
		"failed_sites":    m.failed,
		"skipped_sites":   copySkipped,
	}
}
