package main

import (
	"context"
	"flag"
	"fmt"
	l "log"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/Dieterbe/profiletrigger/heap"
	"github.com/Shopify/sarama"
	"github.com/alepiz/counterprocessor/api"
	"github.com/alepiz/counterprocessor/collector"
	"github.com/alepiz/counterprocessor/conf"
	"github.com/alepiz/counterprocessor/functions"
	"github.com/alepiz/counterprocessor/history"
	"github.com/alepiz/counterprocessor/input"
	inKafka "github.com/alepiz/counterprocessor/input/kafka"
	"github.com/alepiz/counterprocessor/jaeger"
	"github.com/alepiz/counterprocessor/logger"
	pubKafka "github.com/alepiz/counterprocessor/publish/kafka"
	"github.com/alepiz/counterprocessor/schema/msg"
	"github.com/alepiz/counterprocessor/stats"
	"github.com/alepiz/counterprocessor/store/httpstore"
	"github.com/alepiz/counterprocessor/variables"
	"github.com/alepiz/counterprocessor/worker"
	"github.com/grafana/globalconf"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/raintank/dur"
	log "github.com/sirupsen/logrus"
)

var (
	version = "(none)"

	apiServer *api.Server
	inputs    []input.Plugin
	publisher *pubKafka.Publisher

	instance       = flag.String("instance", "default", "instance identifier. must be unique. exposed as ALEPIZ_ID and used for naming kafka clients")
	showVersion    = flag.Bool("version", false, "print version string")
	confFile       = flag.String("config", "/etc/counterprocessor/counterprocessor.ini", "configuration file path")
	collectorsFile = flag.String("collectors-conf", "/etc/counterprocessor/collectors.conf", "path to the collectors config file")

	logLevel = flag.String("log-level", "info", "log level. panic|fatal|error|warning|info|debug")

	proftrigPath       = flag.String("proftrigger-path", "/tmp", "path to store triggered profiles")
	proftrigFreqStr    = flag.String("proftrigger-freq", "60s", "inspect status frequency. set to 0 to disable")
	proftrigMinDiffStr = flag.String("proftrigger-min-diff", "1h", "minimum time between triggered profiles")
	proftrigHeapThresh = flag.Int("proftrigger-heap-thresh", 10000000000, "if this many bytes allocated, trigger a profile")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("counterprocessor (version: %s - runtime: %s)\n", version, runtime.Version())
		return
	}

	// Only try and parse the conf file if it exists
	path := ""
	if _, err := os.Stat(*confFile); err == nil {
		path = *confFile
	}
	config, err := globalconf.NewWithOptions(&globalconf.Options{
		Filename:  path,
		EnvPrefix: "CP_",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: configuration file error: %s", err)
		os.Exit(1)
	}

	variables.ConfigSetup()
	history.ConfigSetup()
	worker.ConfigSetup()
	inKafka.ConfigSetup()
	pubKafka.ConfigSetup()
	httpstore.ConfigSetup()
	api.ConfigSetup()
	stats.ConfigSetup()
	jaeger.ConfigSetup()

	config.ParseAll()

	/***********************************
		Set up Logger
	***********************************/
	if err := logger.Setup(*logLevel, ""); err != nil {
		log.Fatalf("failed to parse log-level, %s", err.Error())
	}
	log.Infof("logging level set to '%s'", *logLevel)

	if *instance == "" {
		log.Fatal("instance can't be empty")
	}

	/***********************************
		Validate settings
	***********************************/
	variables.ConfigProcess()
	history.ConfigProcess()
	worker.ConfigProcess()
	inKafka.ConfigProcess(*instance)
	httpstore.ConfigProcess()
	api.ConfigProcess()
	stats.ConfigProcess()
	jaeger.ConfigProcess()

	collectors := make(conf.Collectors)
	if _, err := os.Stat(*collectorsFile); err == nil {
		collectors, err = conf.ReadCollectors(*collectorsFile)
		if err != nil {
			log.Fatalf("collectors-conf: %s", err)
		}
	} else {
		log.Infof("collectors-conf %s not found. using default settings for every collector", *collectorsFile)
	}

	proftrigFreq := dur.MustParseDuration("proftrigger-freq", *proftrigFreqStr)
	proftrigMinDiff := int(dur.MustParseNDuration("proftrigger-min-diff", *proftrigMinDiffStr))
	if proftrigFreq > 0 {
		errors := make(chan error)
		trigger, _ := heap.New(*proftrigPath, *proftrigHeapThresh, proftrigMinDiff, time.Duration(proftrigFreq)*time.Second, errors)
		go func() {
			for e := range errors {
				log.Errorf("profiletrigger heap: %s", e)
			}
		}()
		go trigger.Run()
	}

	/************************************
	    handle interrupt signals
	************************************/
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	/***********************************
		Report Version
	***********************************/
	log.Infof("counterprocessor starting. version: %s - runtime: %s", version, runtime.Version())
	// metric version.%s is the version of counterprocessor running.  The metric value is always 1
	cpVersion := stats.NewBool(fmt.Sprintf("version.%s", strings.Replace(version, ".", "_", -1)))
	cpVersion.Set(true)

	/***********************************
		collect stats
	***********************************/
	registry := prometheus.NewRegistry()
	stats.Start(registry)

	/***********************************
		Initialize tracer
	***********************************/
	_, traceCloser, err := jaeger.Get("counterprocessor")
	if err != nil {
		log.Fatalf("Could not initialize jaeger tracer: %s", err.Error())
	}
	defer traceCloser.Close()

	/***********************************
		Initialize the history store
	***********************************/
	var store history.Store
	var writer history.Writer
	if httpstore.CliConfig.Enabled {
		hs, err := httpstore.New(httpstore.CliConfig)
		if err != nil {
			log.Fatalf("failed to initialize http history store. %s", err)
		}
		store, writer = hs, hs
	} else {
		log.Warn("http history store disabled. history is kept in memory and lost on restart")
		ms := history.NewMemoryStore()
		store, writer = ms, ms
	}
	env := functions.NewEnv(history.NewAccessor(store))
	newResolver := func() *variables.Resolver {
		r := variables.NewResolver(env)
		r.InstanceID = *instance
		return r
	}

	/***********************************
		Initialize the workers
	***********************************/
	if pubKafka.Enabled || inKafka.Enabled {
		sarama.Logger = l.New(os.Stdout, "[Sarama] ", l.LstdFlags)
	}
	dispatcher := worker.NewLocalDispatcher(collector.DefaultRegistry, collectors, nil)
	if p := pubKafka.New(*instance); p != nil {
		publisher = p
		dispatcher.Remote = p
	}
	pool := worker.NewPool(worker.Workers, newResolver, dispatcher)
	feed := pool.Sink()
	dispatcher.Sink = func(ctx context.Context, v msg.Value) error {
		if err := writer.Write(ctx, []msg.Value{v}); err != nil {
			log.WithField("ocid", uint64(v.OCID)).Warnf("failed to save value: %s", err)
		}
		return feed(ctx, v)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := pool.Run(ctx); err != nil && err != context.Canceled {
			log.Errorf("worker pool stopped: %s", err)
			cancel()
		}
	}()

	/***********************************
		Initialize our API server
	***********************************/
	apiServer = api.NewServer(pool, registry)
	go apiServer.Run()

	/***********************************
		Start our inputs
	***********************************/
	if inKafka.Enabled {
		inputs = append(inputs, inKafka.New())
	} else {
		log.Warn("no input plugin enabled. only the api will be served")
	}
	for _, plugin := range inputs {
		err = plugin.Start(input.NewDefaultHandler(pool, plugin.Name()), cancel)
		if err != nil {
			shutdown(cancel)
			return
		}
	}

	/***********************************
		Wait for Shutdown
	***********************************/
	select {
	case sig := <-sigChan:
		log.Infof("Received signal %q. Shutting down", sig)
	case <-ctx.Done():
		log.Info("An input plugin signalled a fatal error. Shutting down")
	}
	shutdown(cancel)
}

func shutdown(cancel context.CancelFunc) {
	apiServer.Stop()

	// stop the inputs first, so no message reaches a stopped pool
	timer := time.NewTimer(time.Second * 10)
	stopped := make(chan struct{})
	go func() {
		for _, plugin := range inputs {
			log.Infof("Shutting down %s consumer", plugin.Name())
			plugin.Stop()
			log.Infof("%s consumer finished shutdown", plugin.Name())
		}
		close(stopped)
	}()
	select {
	case <-timer.C:
		log.Warn("Plugins taking too long to shutdown, not waiting any longer.")
	case <-stopped:
		timer.Stop()
	}

	cancel()

	if publisher != nil {
		log.Info("closing kafka publisher")
		if err := publisher.Close(); err != nil {
			log.Warnf("closing kafka publisher: %s", err)
		}
	}
	log.Info("terminating.")
}
