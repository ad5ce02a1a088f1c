// Package main implements the stgen CLI.
//
// stgen reads a serialized primitive stream produced by an instrumentation
// frontend and generates SynchroTrace event traces from it:
//
//	frontend | stgen -o traces -c 100 -l text
//	stgen -o traces run.prims
//
// Options (short options only):
//
//	-o <dir>   output directory for trace artifacts (default ".")
//	-c <n>     compression: reads or writes folded per computation event,
//	           1-100 (default 100)
//	-l <fmt>   trace format: text, capnp, or null (default text)
//
// The primitive stream is line-oriented; see reader.go for the grammar.
// Setting STGEN_METRICS_ADDR serves prometheus counters on that address for
// the duration of the run.
package main

import (
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/kolkov/stgen/internal/stgen/encoder"
	"github.com/kolkov/stgen/internal/stgen/siglog"
	"github.com/kolkov/stgen/internal/stgen/stats"
	"github.com/kolkov/stgen/internal/stgen/tracegen"
)

func main() {
	fs := flag.NewFlagSet("stgen", flag.ContinueOnError)
	outputDir := fs.StringP("output-dir", "o", ".", "output directory for trace artifacts")
	compression := fs.UintP("compression", "c", 100, "reads or writes folded per computation event (1-100)")
	format := fs.StringP("log-format", "l", "text", "trace format: text, capnp, or null")

	for _, arg := range os.Args[1:] {
		if arg == "--" {
			break
		}
		if len(arg) > 2 && arg[:2] == "--" {
			siglog.Fatalf("parsing options: %s: only short options are accepted", arg)
		}
	}
	if err := fs.Parse(os.Args[1:]); err != nil {
		siglog.Fatalf("parsing options: %v", err)
	}

	kind, err := encoder.ParseKind(*format)
	if err != nil {
		siglog.Fatalf("parsing options: %v", err)
	}

	input := os.Stdin
	switch args := fs.Args(); len(args) {
	case 0:
	case 1:
		f, err := os.Open(args[0])
		if err != nil {
			siglog.Fatalf("opening primitive stream: %v", err)
		}
		defer f.Close()
		input = f
	default:
		siglog.Fatalf("unexpected arguments: %v", args[1:])
	}

	d, err := tracegen.NewDispatcher(tracegen.Options{
		OutputDir:      *outputDir,
		PrimsPerCompEv: *compression,
		Encoder:        kind,
	})
	if err != nil {
		siglog.Fatalf("%v", err)
	}

	if addr := os.Getenv("STGEN_METRICS_ADDR"); addr != "" {
		serveMetrics(addr, d.Counters())
	}

	count, err := replay(input, d)
	if err != nil {
		siglog.Fatalf("reading primitive stream: %v", err)
	}
	if err := d.Close(); err != nil {
		siglog.Fatalf("finalizing trace: %v", err)
	}

	siglog.Infof("processed %d primitives", count)
}

// serveMetrics exposes the live run counters for scraping. Long traces run
// for hours; this is the only way to watch one from outside.
func serveMetrics(addr string, counters *stats.RunCounters) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(stats.NewCollector(counters))

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		if err := http.ListenAndServe(addr, mux); err != nil {
			siglog.Errorf("metrics endpoint: %v", err)
		}
	}()
}
