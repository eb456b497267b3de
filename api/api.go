// Package api serves the status of the counter processor over http.
package api

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"strings"
	"time"

	_ "net/http/pprof"

	"github.com/alepiz/counterprocessor/schema/msg"
	"github.com/alepiz/counterprocessor/variables"
	"github.com/alepiz/counterprocessor/worker"
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"gopkg.in/macaron.v1"
)

// Pool is what the api reads from the workers. *worker.Pool implements it.
type Pool interface {
	Ready() bool
	Status() []worker.Status
	Explain(ctx context.Context, req msg.ResolveRequest) (*variables.Result, error)
}

type Server struct {
	Addr     string
	SSL      bool
	certFile string
	keyFile  string
	Macaron  *macaron.Macaron
	Pool     Pool
	Tracer   opentracing.Tracer
	Registry *prometheus.Registry
	shutdown chan struct{}
}

func NewServer(pool Pool, registry *prometheus.Registry) *Server {
	m := macaron.New()
	m.Use(macaron.Recovery())
	// route pprof to where it belongs
	m.Use(func(ctx *macaron.Context) {
		if strings.HasPrefix(ctx.Req.URL.Path, "/debug/") {
			http.DefaultServeMux.ServeHTTP(ctx.Resp, ctx.Req.Request)
		}
	})

	return &Server{
		Addr:     Addr,
		SSL:      UseSSL,
		certFile: certFile,
		keyFile:  keyFile,
		Macaron:  m,
		Pool:     pool,
		Tracer:   opentracing.GlobalTracer(),
		Registry: registry,
		shutdown: make(chan struct{}),
	}
}

func (s *Server) Run() {
	s.RegisterRoutes()
	proto := "http"
	if s.SSL {
		proto = "https"
	}
	log.Infof("API Listening on: %v://%s/", proto, s.Addr)

	// define our own listner so we can call Close on it
	l, err := net.Listen("tcp", s.Addr)
	if err != nil {
		log.Fatalf("API failed to listen on %s, %s", s.Addr, err.Error())
	}
	go s.handleShutdown(l)
	srv := http.Server{
		Addr:    s.Addr,
		Handler: s.Macaron,
	}
	if s.SSL {
		cert, err := tls.LoadX509KeyPair(s.certFile, s.keyFile)
		if err != nil {
			log.Fatalf("API Failed to start server: %v", err)
		}
		srv.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
			NextProtos:   []string{"http/1.1"},
		}
		tlsListener := tls.NewListener(tcpKeepAliveListener{l.(*net.TCPListener)}, srv.TLSConfig)
		err = srv.Serve(tlsListener)
	} else {
		err = srv.Serve(tcpKeepAliveListener{l.(*net.TCPListener)})
	}

	if err != nil {
		log.Infof("API %s", err.Error())
	}
}

func (s *Server) Stop() {
	close(s.shutdown)
}

func (s *Server) handleShutdown(l net.Listener) {
	<-s.shutdown
	log.Info("API shutdown started.")
	l.Close()
}

type tcpKeepAliveListener struct {
	*net.TCPListener
}

func (ln tcpKeepAliveListener) Accept() (c net.Conn, err error) {
	tc, err := ln.AcceptTCP()
	if err != nil {
		return
	}
	tc.SetKeepAlive(true)
	tc.SetKeepAlivePeriod(3 * time.Minute)
	return tc, nil
}
