package stats

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

// Collector exposes the registry to prometheus. Every reported line
// becomes one untyped sample.
type Collector struct {
	namespace string
}

func NewCollector(namespace string) *Collector {
	return &Collector{namespace: namespace}
}

// Describe sends no descriptors: the set of metrics grows at runtime,
// which makes this an unchecked collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	buf := Dump("", time.Now())
	for _, line := range bytes.Split(buf, []byte{'\n'}) {
		fields := strings.Fields(string(line))
		if len(fields) != 3 {
			continue
		}
		val, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			continue
		}
		desc := prometheus.NewDesc(promName(c.namespace, fields[0]), "", nil, nil)
		m, err := prometheus.NewConstMetric(desc, prometheus.UntypedValue, val)
		if err != nil {
			log.Debugf("stats: cannot export %q: %s", fields[0], err.Error())
			continue
		}
		ch <- m
	}
}

// promName turns "worker.values.counter32" into "ns_worker_values_counter32".
func promName(namespace, name string) string {
	var b strings.Builder
	if namespace != "" {
		b.WriteString(namespace)
		b.WriteByte('_')
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == ':':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 && namespace == "" {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
