package stats

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestPromName(t *testing.T) {
	cases := []struct {
		namespace, name, exp string
	}{
		{"cp", "worker.values.counter32", "cp_worker_values_counter32"},
		{"", "api.request.functions_name.status.200.counter32", "api_request_functions_name_status_200_counter32"},
		{"", "9lives", "_9lives"},
		{"cp", "input.kafka-in.x", "cp_input_kafka_in_x"},
	}
	for _, c := range cases {
		if got := promName(c.namespace, c.name); got != c.exp {
			t.Errorf("promName(%q, %q): expected %q, got %q", c.namespace, c.name, c.exp, got)
		}
	}
}

func TestCollector(t *testing.T) {
	hits := NewCounter32("test.collector.hits")
	hits.Add(3)

	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector("cp"))
	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range families {
		if f.GetName() != "cp_test_collector_hits_counter32" {
			continue
		}
		if got := f.GetMetric()[0].GetUntyped().GetValue(); got != 3 {
			t.Fatalf("expected 3 hits, got %v", got)
		}
		return
	}
	t.Fatal("counter not exported")
}
