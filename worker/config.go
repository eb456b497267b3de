package worker

import (
	"flag"
	"runtime"

	"github.com/grafana/globalconf"
	log "github.com/sirupsen/logrus"
)

var (
	Workers = runtime.NumCPU()
	// QueueSize bounds the messages a worker keeps until its cache is filled
	QueueSize = 10000
	// FilterCacheSize is the number of compiled object filters kept per worker
	FilterCacheSize = 1000
)

func ConfigSetup() {
	fs := flag.NewFlagSet("worker", flag.ExitOnError)
	fs.IntVar(&Workers, "workers", Workers, "number of workers resolving counters in parallel")
	fs.IntVar(&QueueSize, "queue-size", QueueSize, "messages a worker keeps until it received its first cache update. newer ones are dropped once it is full")
	fs.IntVar(&FilterCacheSize, "filter-cache-size", FilterCacheSize, "compiled object filters kept per worker")
	globalconf.Register("worker", fs, flag.ExitOnError)
}

func ConfigProcess() {
	if Workers < 1 {
		log.Fatalf("worker: workers must be at least 1, got %d", Workers)
	}
	if QueueSize < 0 {
		log.Fatalf("worker: queue-size must not be negative, got %d", QueueSize)
	}
}
