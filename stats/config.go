package stats

import (
	"flag"

	"github.com/grafana/globalconf"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

var (
	enabled         bool
	namespace       string
	processReporter bool
)

func ConfigSetup() {
	inStats := flag.NewFlagSet("stats", flag.ExitOnError)
	inStats.BoolVar(&enabled, "enabled", true, "expose internal instrumentation on the /metrics endpoint")
	inStats.StringVar(&namespace, "namespace", "counterprocessor", "prometheus namespace of the exported metrics")
	inStats.BoolVar(&processReporter, "process-reporter", true, "report memory and cpu usage of the process from /proc")
	globalconf.Register("stats", inStats, flag.ExitOnError)
}

func ConfigProcess() {
	if namespace != "" && promName("", namespace) != namespace {
		log.Fatalf("stats: invalid namespace %q", namespace)
	}
}

// Start registers the stats collector with reg.
func Start(reg prometheus.Registerer) {
	if !enabled {
		log.Warn("running counterprocessor without instrumentation.")
		return
	}
	if processReporter {
		if _, err := NewProcessReporter(); err != nil {
			log.Warnf("stats: process reporter unavailable: %s", err.Error())
		}
	}
	reg.MustRegister(NewCollector(namespace))
}
