package httpstore

import (
	"flag"
	"time"

	"github.com/alepiz/counterprocessor/schema/msg"
	"github.com/grafana/globalconf"
	"github.com/raintank/dur"
	log "github.com/sirupsen/logrus"
)

type StoreConfig struct {
	Enabled    bool
	Addr       string
	Format     string
	Timeout    time.Duration
	Retries    int
	RetryWait  time.Duration
	RetryMax   time.Duration
	WriteBatch int
}

// return StoreConfig with default values set.
func NewStoreConfig() *StoreConfig {
	return &StoreConfig{
		Enabled:    false,
		Addr:       "http://localhost:6070",
		Format:     "msgp",
		Timeout:    10 * time.Second,
		Retries:    2,
		RetryWait:  100 * time.Millisecond,
		RetryMax:   2 * time.Second,
		WriteBatch: 1000,
	}
}

var CliConfig = NewStoreConfig()

var (
	timeoutStr   string
	retryWaitStr string
)

func ConfigSetup() *flag.FlagSet {
	fs := flag.NewFlagSet("store", flag.ExitOnError)
	fs.BoolVar(&CliConfig.Enabled, "enabled", CliConfig.Enabled, "use the http history store. without it history lives in memory")
	fs.StringVar(&CliConfig.Addr, "addr", CliConfig.Addr, "base url of the history store")
	fs.StringVar(&CliConfig.Format, "format", CliConfig.Format, "message format of requests and responses: json|snappy-json|msgp")
	fs.StringVar(&timeoutStr, "timeout", "10s", "timeout of one http request")
	fs.IntVar(&CliConfig.Retries, "retries", CliConfig.Retries, "how many times a failed request is retried")
	fs.StringVar(&retryWaitStr, "retry-wait", "100ms", "pause before the first retry. doubles with every retry")
	fs.DurationVar(&CliConfig.RetryMax, "retry-max", CliConfig.RetryMax, "maximum pause between two retries")
	fs.IntVar(&CliConfig.WriteBatch, "write-batch", CliConfig.WriteBatch, "maximum number of values per write request")
	globalconf.Register("store", fs, flag.ExitOnError)
	return fs
}

func ConfigProcess() {
	if !CliConfig.Enabled {
		return
	}
	if _, err := msg.FormatFromString(CliConfig.Format); err != nil {
		log.Fatalf("store: %s", err)
	}
	CliConfig.Timeout = time.Duration(dur.MustParseNDuration("timeout", timeoutStr)) * time.Second
	// sub-second pauses are common here, which dur does not express
	wait, err := time.ParseDuration(retryWaitStr)
	if err != nil {
		log.Fatalf("store: invalid retry-wait %q. %s", retryWaitStr, err)
	}
	CliConfig.RetryWait = wait
	if CliConfig.WriteBatch < 1 {
		log.Fatal("store: write-batch must be at least 1")
	}
}
