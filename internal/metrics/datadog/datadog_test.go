package datadog

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"trafficetl/internal/metrics"
)

// TestLabelsToTags sorts tags so emitted series are stable.
func TestLabelsToTags(t *testing.T) {
	t.Parallel()

	got := labelsToTags(metrics.Labels{"kind": "read", "job": "stops"})
	if diff := cmp.Diff([]string{"job:stops", "kind:read"}, got); diff != "" {
		t.Fatalf("labelsToTags() (-want +got):\n%s", diff)
	}
	if labelsToTags(nil) != nil {
		t.Fatal("labelsToTags(nil) should be nil")
	}
}

// TestNewBackendRequiresAddr fails fast without an address.
func TestNewBackendRequiresAddr(t *testing.T) {
	t.Parallel()

	if _, err := NewBackend(Config{}); err == nil {
		t.Fatal("NewBackend() error = nil, want missing Addr")
	}
}

// TestSendsCountOverUDP reads the DogStatsD datagram from a local listener.
func TestSendsCountOverUDP(t *testing.T) {
	t.Parallel()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("udp listen: %v", err)
	}
	defer pc.Close()

	b, err := NewBackend(Config{Addr: pc.LocalAddr().String(), GlobalTags: []string{"env:test"}})
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	b.IncCounter(metrics.RecordsTotal, 3, metrics.Labels{"job": "stops", "kind": "read"})
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	var got strings.Builder
	buf := make([]byte, 64<<10)
	_ = pc.SetReadDeadline(time.Now().Add(2 * time.Second))
	for !strings.Contains(got.String(), "trafficetl.etl_records_total:3|c") {
		n, _, err := pc.ReadFrom(buf)
		if err != nil {
			t.Fatalf("no count received; got %q: %v", got.String(), err)
		}
		got.Write(buf[:n])
	}
	for _, tag := range []string{"env:test", "job:stops", "kind:read"} {
		if !strings.Contains(got.String(), tag) {
			t.Errorf("datagram %q missing tag %q", got.String(), tag)
		}
	}
}

// TestZeroValueBackendIsSafe does nothing without a client.
func TestZeroValueBackendIsSafe(t *testing.T) {
	t.Parallel()

	var b Backend
	b.IncCounter(metrics.ChunksTotal, 1, nil)
	b.ObserveHistogram(metrics.StepDuration, 1, nil)
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
}
