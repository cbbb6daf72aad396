package observability

import (
	"reflect"
	"testing"
	"time"
)

func TestSnapshotKeysAreSorted(t *testing.T) {
	m := NewMetrics()
	m.Inc(CounterLogin)
	m.Inc(CounterLogin)
	m.Inc(CounterGateRedirect)
	m.RecordRequest("/products", "GET", 200, time.Millisecond)
	m.RecordError("/login", "POST", "VALIDATION_ERROR")

	snapshot := m.Snapshot()
	want := []string{
		"error|/login|POST|VALIDATION_ERROR",
		CounterGateRedirect,
		"request|/products|GET|200",
		CounterLogin,
	}
	if got := SortedKeys(snapshot); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if snapshot[CounterLogin] != 2 || m.Counter(CounterLogin) != 2 {
		t.Fatalf("expected login counter of 2, got %d", snapshot[CounterLogin])
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.Inc(CounterLogin)
	m.RecordRequest("/", "GET", 200, 0)
	m.RecordError("/", "GET", "X")
	if m.Counter(CounterLogin) != 0 {
		t.Fatalf("expected zero from nil metrics")
	}
	if len(m.Snapshot()) != 0 || len(SortedKeys(nil)) != 0 {
		t.Fatalf("expected empty snapshot from nil metrics")
	}
}
