// Package backends selects and installs a metrics backend by name for the
// command-line tools.
package backends

import (
	"fmt"
	"log"
	"os"
	"strings"

	"trafficetl/internal/metrics"
	"trafficetl/internal/metrics/datadog"
	"trafficetl/internal/metrics/prompush"
)

// Backend names accepted by Install.
const (
	None        = "none"
	Pushgateway = "pushgateway"
	Datadog     = "datadog"
)

// Options carries the flag values. Empty fields fall back to the environment
// (METRICS_BACKEND, PUSHGATEWAY_URL, DD_DOGSTATSD_ADDR) and then to defaults.
type Options struct {
	Backend        string
	Job            string
	PushgatewayURL string
	StatsdAddr     string
}

func (o Options) resolve() Options {
	if o.Backend == "" {
		o.Backend = os.Getenv("METRICS_BACKEND")
	}
	o.Backend = strings.ToLower(strings.TrimSpace(o.Backend))
	if o.PushgatewayURL == "" {
		o.PushgatewayURL = os.Getenv("PUSHGATEWAY_URL")
	}
	if o.PushgatewayURL == "" {
		o.PushgatewayURL = "http://localhost:9091"
	}
	if o.StatsdAddr == "" {
		o.StatsdAddr = os.Getenv("DD_DOGSTATSD_ADDR")
	}
	if o.StatsdAddr == "" {
		o.StatsdAddr = "127.0.0.1:8125"
	}
	if o.Job == "" {
		o.Job = "trafficetl"
	}
	return o
}

// Install builds the selected backend and makes it current. The returned
// flush func pushes or closes it and is safe to call when metrics are off.
func Install(opt Options) (flush func(), err error) {
	opt = opt.resolve()
	noop := func() {}

	var b metrics.Backend
	switch opt.Backend {
	case "", None:
		return noop, nil
	case Pushgateway:
		pb, err := prompush.NewBackend(opt.Job, opt.PushgatewayURL)
		if err != nil {
			return noop, err
		}
		log.Printf("metrics: backend=%s url=%s job=%s", opt.Backend, opt.PushgatewayURL, opt.Job)
		b = pb
	case Datadog:
		db, err := datadog.NewBackend(datadog.Config{
			Addr:       opt.StatsdAddr,
			GlobalTags: []string{"job:" + opt.Job},
		})
		if err != nil {
			return noop, err
		}
		log.Printf("metrics: backend=%s addr=%s job=%s", opt.Backend, opt.StatsdAddr, opt.Job)
		b = db
	default:
		return noop, fmt.Errorf("metrics: unknown backend %q", opt.Backend)
	}

	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}, nil
}
