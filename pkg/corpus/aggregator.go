package corpus

import (
	"context"
	"crypto/sha1"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rawbytedev/benscan"
)

// Aggregator scans every document under a root directory and folds the
// results into corpus statistics.
//
// Concurrency: one goroutine walks the tree, Config.Workers goroutines load
// and scan documents, and the goroutine calling Run is the only one that
// touches Stats.
type Aggregator struct {
	cfg     Config
	scanner *benscan.Scanner
	loader  *loader
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) { a.logger = logger }
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// New validates cfg and prepares an Aggregator. Call Close when done.
func New(cfg Config, opts ...Option) (*Aggregator, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	ld, err := newLoader(cfg.MaxDocumentSize, cfg.Mmap)
	if err != nil {
		return nil, err
	}
	a := &Aggregator{
		cfg:     cfg,
		scanner: benscan.NewScanner(benscan.Options{MaxDepth: cfg.MaxDepth, Strict: cfg.Strict}),
		loader:  ld,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Close releases decoder resources.
func (a *Aggregator) Close() {
	a.loader.Close()
}

// outcome is the per-document message from a worker to the reducer.
type outcome struct {
	path     string
	result   benscan.Result
	infoHash [sha1.Size]byte
	hashed   bool
	err      error
}

// Run scans the corpus. Per-document failures are counted and logged, never
// returned. A cancelled context stops the scan between documents; Run then
// returns the partial summary together with the context error.
func (a *Aggregator) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	info, err := os.Stat(a.cfg.Root)
	if err != nil {
		return Summary{}, fmt.Errorf("corpus root: %w", err)
	}
	if !info.IsDir() {
		return Summary{}, fmt.Errorf("corpus root %s is not a directory", a.cfg.Root)
	}

	g, gctx := errgroup.WithContext(ctx)
	paths := make(chan string, a.cfg.Workers*2)
	outcomes := make(chan outcome, a.cfg.Workers*2)

	g.Go(func() error {
		defer close(paths)
		return a.walk(gctx, paths)
	})

	var workers sync.WaitGroup
	for range a.cfg.Workers {
		workers.Add(1)
		g.Go(func() error {
			defer workers.Done()
			for p := range paths {
				if err := gctx.Err(); err != nil {
					return err
				}
				select {
				case outcomes <- a.process(p):
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		workers.Wait()
		close(outcomes)
	}()

	stats := NewStats()
	seen := make(map[[sha1.Size]byte]struct{})
	for o := range outcomes {
		a.fold(stats, seen, o)
	}

	err = g.Wait()
	summary := stats.Summary(a.cfg.MultiFileThreshold, time.Since(start))
	if err != nil {
		return summary, err
	}
	a.logger.Info("corpus scan complete",
		"root", a.cfg.Root,
		"processed", summary.Processed,
		"errors", summary.Errors,
		"duplicates", summary.Duplicates,
		"elapsed", summary.Elapsed,
	)
	return summary, nil
}

func (a *Aggregator) process(p string) outcome {
	start := time.Now()
	doc, release, err := a.loader.load(p)
	if err != nil {
		return outcome{path: p, err: err}
	}
	defer release()

	res, err := a.scanner.Scan(doc)
	a.metrics.observe(len(doc), time.Since(start))
	if err != nil {
		return outcome{path: p, err: fmt.Errorf("scanning %s: %w", p, err)}
	}
	o := outcome{path: p, result: res}
	if a.cfg.Dedupe {
		o.infoHash, o.hashed = res.InfoHash(doc)
	}
	return o
}

func (a *Aggregator) fold(stats *Stats, seen map[[sha1.Size]byte]struct{}, o outcome) {
	stats.Processed++
	if o.err != nil {
		stats.Errors++
		a.metrics.count("error")
		a.logger.Warn("document skipped", "path", o.path, "kind", ErrKind(o.err), "error", o.err)
		return
	}
	if o.hashed {
		if _, dup := seen[o.infoHash]; dup {
			stats.Duplicates++
			a.metrics.count("duplicate")
			a.logger.Debug("duplicate document", "path", o.path, "infohash", fmt.Sprintf("%x", o.infoHash))
			return
		}
		seen[o.infoHash] = struct{}{}
	}
	if err := stats.Add(o.result, a.cfg.MultiFileThreshold); err != nil {
		stats.Errors++
		a.metrics.count("error")
		a.logger.Warn("document skipped", "path", o.path, "kind", ErrKind(err), "error", err)
		return
	}
	a.metrics.count("ok")

	var chunk any
	if o.result.HasChunkSize {
		chunk = o.result.ChunkSize
	}
	a.logger.Debug("document scanned",
		"path", o.path,
		"piece", chunk,
		"size", o.result.TotalSize,
		"files", o.result.FileCount,
	)
}

// walk sends every matching document path. Unreadable subdirectories are
// logged and skipped; an unreadable root ends the walk.
func (a *Aggregator) walk(ctx context.Context, paths chan<- string) error {
	root := a.cfg.Root
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			a.logger.Warn("walk error", "path", p, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if p != root && a.excluded(rel) {
				return fs.SkipDir
			}
			return nil
		}
		if !a.matchSuffix(d.Name()) || a.excluded(rel) || !isDocument(p, d) {
			return nil
		}
		select {
		case paths <- p:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

// isDocument accepts regular files and symlinks to regular files. A dangling
// link is accepted so that loading it is counted as a failed document.
func isDocument(p string, d fs.DirEntry) bool {
	switch {
	case d.Type().IsRegular():
		return true
	case d.Type()&fs.ModeSymlink != 0:
		info, err := os.Stat(p)
		if err != nil {
			return true
		}
		return info.Mode().IsRegular()
	default:
		return false
	}
}

func (a *Aggregator) matchSuffix(name string) bool {
	for _, s := range a.cfg.Suffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

func (a *Aggregator) excluded(rel string) bool {
	base := path.Base(rel)
	for _, pattern := range a.cfg.Exclude {
		if ok, _ := path.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := path.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// IsCanceled reports whether err came from a cancelled or expired context.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
