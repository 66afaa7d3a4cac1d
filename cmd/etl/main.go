package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trafficetl/internal/config"
	"trafficetl/internal/metrics/backends"

	// register all backends with the storage factory.
	// config specifies which to use but we need to build in support for all of them.
	_ "trafficetl/internal/storage/all"
)

// verbose enables per-part archive logs and config echo.
var verbose bool

// main is the entry point for the ingest binary. It loads the pipeline config,
// optionally initializes a metrics backend, and executes the chunked run.
func main() {
	var (
		cfgPath     string
		metricsName string
		pushURL     string
		statsdAddr  string
		validate    bool
	)

	flag.StringVar(&cfgPath, "config", "configs/pipelines/traffic_violations.json", "pipeline config JSON path")
	flag.StringVar(&metricsName, "metrics-backend", "", "metrics backend: none, pushgateway or datadog (overrides env METRICS_BACKEND)")
	flag.StringVar(&pushURL, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.StringVar(&statsdAddr, "statsd-addr", "", "DogStatsD address (overrides env DD_DOGSTATSD_ADDR)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	flag.BoolVar(&verbose, "v", false, "enable verbose logs")

	flag.Parse()

	p, err := config.Load(cfgPath)
	if err != nil {
		fatalf("%v", err)
	}

	hasError := false
	for _, iss := range config.ValidatePipeline(p) {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
		if iss.Severity == config.SeverityError {
			hasError = true
		}
	}
	if hasError {
		log.Printf("Configuration is invalid: %v", cfgPath)
		os.Exit(1)
	}
	if validate {
		log.Printf("Configuration is valid: %v", cfgPath)
		os.Exit(0)
	}

	flush, err := backends.Install(backends.Options{
		Backend:        metricsName,
		Job:            jobName(p),
		PushgatewayURL: pushURL,
		StatsdAddr:     statsdAddr,
	})
	if err != nil {
		log.Printf("metrics: %v; using nop", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if verbose {
		log.Printf("pipeline: source=%s parser=%s storage=%s table=%s archive=%t",
			p.Source.Kind, p.Parser.Kind, p.Storage.Kind, p.Storage.DB.Table, p.Archive.Enabled)
	}

	start := time.Now()
	_, runErr := runIngest(ctx, p)
	flush()
	if runErr != nil {
		log.Fatalf("ingest: %v", runErr)
	}
	log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
