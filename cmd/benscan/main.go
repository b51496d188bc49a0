// benscan walks a directory of .torrent files and reports the size-weighted
// average piece size and the average file size of large multi-file
// torrents. Only the few scalar fields it needs are read from each file;
// piece hashes are skipped unread.
//
// Usage:
//
//	benscan [flags] [root]
//
// Settings come from --config (YAML) first, then from explicitly set flags.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/rawbytedev/benscan/pkg/corpus"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// usageError marks failures caused by bad invocation rather than the scan.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(exitCode(err, os.Stderr))
}

func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return exitOK
	}
	fmt.Fprintf(stderr, "error: %v\n", err)
	var ue usageError
	if errors.As(err, &ue) {
		return exitUsage
	}
	return exitError
}

type options struct {
	configPath string
	format     string
	logLevel   string
	logFormat  string
	debugAddr  string
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var (
		opts options
		cfg  corpus.Config
	)

	flags := pflag.NewFlagSet("benscan", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.StringVarP(&opts.configPath, "config", "c", "", "YAML config file")
	flags.StringVar(&cfg.Root, "root", "", "corpus directory (or pass it as the only argument)")
	flags.StringSliceVar(&cfg.Suffixes, "suffix", nil, "accepted file suffixes (default .torrent)")
	flags.StringSliceVar(&cfg.Exclude, "exclude", nil, "glob patterns of paths to skip")
	flags.Int64Var(&cfg.MultiFileThreshold, "threshold", corpus.DefaultMultiFileThreshold, "minimum file count for the multi-file average")
	flags.IntVarP(&cfg.Workers, "workers", "j", 0, "concurrent scanners (default GOMAXPROCS)")
	flags.IntVar(&cfg.MaxDepth, "max-depth", 0, "maximum container nesting (default 64)")
	flags.BoolVar(&cfg.Strict, "strict", false, "reject documents with trailing or unterminated data")
	flags.BoolVar(&cfg.Mmap, "mmap", false, "memory-map uncompressed documents (a file truncated during the scan crashes the process with SIGBUS)")
	flags.BoolVar(&cfg.Dedupe, "dedupe", false, "count each infohash once")
	flags.Int64Var(&cfg.MaxDocumentSize, "max-size", corpus.DefaultMaxDocumentSize, "maximum bytes per loaded document")
	flags.StringVarP(&opts.format, "format", "o", string(corpus.FormatText), "output format: text, json or cbor")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	flags.StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")
	flags.StringVar(&opts.debugAddr, "debug-addr", "", "serve /metrics and /debug/pprof on this address")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return usageError{err}
	}

	if opts.configPath != "" {
		fileCfg, err := corpus.LoadConfig(opts.configPath)
		if err != nil {
			return usageError{err}
		}
		cfg = overlay(fileCfg, cfg, flags)
	}
	switch rest := flags.Args(); {
	case len(rest) > 1:
		return usagef("expected at most one root directory, got %d", len(rest))
	case len(rest) == 1 && flags.Changed("root"):
		return usagef("root given both as --root and as an argument")
	case len(rest) == 1:
		cfg.Root = rest[0]
	}

	format, err := corpus.ParseFormat(opts.format)
	if err != nil {
		return usageError{err}
	}
	logger, err := newLogger(stderr, opts.logLevel, opts.logFormat)
	if err != nil {
		return usageError{err}
	}

	var aggOpts []corpus.Option
	aggOpts = append(aggOpts, corpus.WithLogger(logger))
	if opts.debugAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		aggOpts = append(aggOpts, corpus.WithMetrics(corpus.NewMetrics(reg)))

		shutdown, err := serveDebug(opts.debugAddr, reg, logger)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	agg, err := corpus.New(cfg, aggOpts...)
	if err != nil {
		return usageError{err}
	}
	defer agg.Close()

	summary, err := agg.Run(ctx)
	if err != nil {
		if corpus.IsCanceled(err) {
			logger.Warn("scan interrupted, reporting partial results")
			if werr := corpus.WriteSummary(stdout, summary, format); werr != nil {
				return werr
			}
		}
		return err
	}
	return corpus.WriteSummary(stdout, summary, format)
}

// overlay returns file with every explicitly set flag from flagged applied.
func overlay(file, flagged corpus.Config, flags *pflag.FlagSet) corpus.Config {
	out := file
	if flags.Changed("root") {
		out.Root = flagged.Root
	}
	if flags.Changed("suffix") {
		out.Suffixes = flagged.Suffixes
	}
	if flags.Changed("exclude") {
		out.Exclude = flagged.Exclude
	}
	if flags.Changed("threshold") {
		out.MultiFileThreshold = flagged.MultiFileThreshold
	}
	if flags.Changed("workers") {
		out.Workers = flagged.Workers
	}
	if flags.Changed("max-depth") {
		out.MaxDepth = flagged.MaxDepth
	}
	if flags.Changed("strict") {
		out.Strict = flagged.Strict
	}
	if flags.Changed("mmap") {
		out.Mmap = flagged.Mmap
	}
	if flags.Changed("dedupe") {
		out.Dedupe = flagged.Dedupe
	}
	if flags.Changed("max-size") {
		out.MaxDocumentSize = flagged.MaxDocumentSize
	}
	return out
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	hopts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(w, hopts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, hopts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q (want text or json)", format)
	}
}

// serveDebug exposes metrics and profiling until the returned function is
// called.
func serveDebug(addr string, reg *prometheus.Registry, logger *slog.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("debug listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	srv := &http.Server{Handler: mux}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("debug server", "error", err)
		}
	}()
	logger.Info("debug server listening", "addr", ln.Addr().String())
	return func() { _ = srv.Close() }, nil
}
